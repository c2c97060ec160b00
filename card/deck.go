package card

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/bits"
)

// DeckSize is a full 52-card deck; Truco FDP plays with all four suits of
// all thirteen ranks.
const DeckSize = NumRanks * NumSuits

// Deck is an ordered pile of cards. Index 0 is the top.
type Deck []Card

// NewDeck returns an unshuffled 52-card deck.
func NewDeck() Deck {
	d := make(Deck, 0, DeckSize)
	for s := Suit(0); s < NumSuits; s++ {
		for r := Rank(0); r < NumRanks; r++ {
			d = append(d, Card{Rank: r, Suit: s})
		}
	}
	return d
}

// Shuffle permutes d in place with an unbiased Fisher-Yates driven by the
// given entropy source. Pass nil to use crypto/rand.
func (d Deck) Shuffle(entropy io.Reader) error {
	if entropy == nil {
		entropy = rand.Reader
	}
	for i := len(d) - 1; i >= 1; i-- {
		j, err := uniformInt(entropy, i+1)
		if err != nil {
			return fmt.Errorf("shuffle: %w", err)
		}
		d[i], d[j] = d[j], d[i]
	}
	return nil
}

// uniformInt draws an unbiased integer in [0, n) by rejection sampling the
// minimal number of whole bytes from entropy.
func uniformInt(entropy io.Reader, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("uniformInt: n must be positive, got %d", n)
	}
	if n == 1 {
		return 0, nil
	}
	nbytes := (bits.Len(uint(n-1)) + 7) / 8
	span := 1 << (8 * nbytes)
	limit := span - span%n // reject draws at or above the last full multiple
	buf := make([]byte, nbytes)
	for {
		if _, err := io.ReadFull(entropy, buf); err != nil {
			return 0, err
		}
		v := 0
		for _, b := range buf {
			v = v<<8 | int(b)
		}
		if v < limit {
			return v % n, nil
		}
	}
}

// DrawVira removes the top card as the vira and returns it, the remaining
// playable deck, and the manilha rank it implies.
func (d Deck) DrawVira() (Card, Deck, Rank, error) {
	if len(d) == 0 {
		return Card{}, nil, 0, fmt.Errorf("draw vira from empty deck")
	}
	vira := d[0]
	return vira, d[1:], ManilhaRank(vira.Rank), nil
}

// Deal removes count cards from the top and returns them with the rest.
func (d Deck) Deal(count int) ([]Card, Deck, error) {
	if count < 0 || count > len(d) {
		return nil, nil, fmt.Errorf("deal %d from deck of %d", count, len(d))
	}
	hand := make([]Card, count)
	copy(hand, d[:count])
	return hand, d[count:], nil
}
