package card

import (
	"encoding/json"
	"fmt"
)

// Rank is the Truco rank order, weakest to strongest: 4 < 5 < 6 < 7 < 8 < 9
// < 10 < J < Q < K < A < 2 < 3. The numeric value is the index in that order.
type Rank byte

const (
	Rank4 Rank = iota
	Rank5
	Rank6
	Rank7
	Rank8
	Rank9
	Rank10
	RankJ
	RankQ
	RankK
	RankA
	Rank2
	Rank3

	NumRanks = 13
)

var rankNames = [NumRanks]string{"4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "2", "3"}

func (r Rank) Valid() bool {
	return r < NumRanks
}

func (r Rank) String() string {
	if !r.Valid() {
		return "?"
	}
	return rankNames[r]
}

// ParseRank converts the wire form ("4".."10", "J", "Q", "K", "A", "2", "3").
func ParseRank(s string) (Rank, error) {
	for i, name := range rankNames {
		if name == s {
			return Rank(i), nil
		}
	}
	return 0, fmt.Errorf("invalid rank %q", s)
}

func (r Rank) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rank %d", r)
	}
	return json.Marshal(r.String())
}

func (r *Rank) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRank(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Suit strength order, weakest to strongest: diamonds < spades < hearts
// < clubs. Only meaningful between manilhas.
type Suit byte

const (
	Diamonds Suit = iota
	Spades
	Hearts
	Clubs

	NumSuits = 4
)

var suitNames = [NumSuits]string{"diamonds", "spades", "hearts", "clubs"}

func (s Suit) Valid() bool {
	return s < NumSuits
}

func (s Suit) String() string {
	if !s.Valid() {
		return "?"
	}
	return suitNames[s]
}

func ParseSuit(s string) (Suit, error) {
	for i, name := range suitNames {
		if name == s {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("invalid suit %q", s)
}

func (s Suit) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid suit %d", s)
	}
	return json.Marshal(s.String())
}

func (s *Suit) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSuit(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Card is a rank/suit pair. Wire form: {"rank":"K","suit":"hearts"}.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) Valid() bool {
	return c.Rank.Valid() && c.Suit.Valid()
}

func (c Card) String() string {
	return c.Rank.String() + " of " + c.Suit.String()
}

// ManilhaRank derives the manilha from the vira: the next rank in the Truco
// order, wrapping (vira=3 makes 4 the manilha).
func ManilhaRank(vira Rank) Rank {
	return Rank((int(vira) + 1) % NumRanks)
}

// IsManilha reports whether c is a manilha given the vira rank.
func (c Card) IsManilha(vira Rank) bool {
	return c.Rank == ManilhaRank(vira)
}

// Strength is the absolute strength of c in a round with the given vira.
// Base strength is rank index + 1; a manilha adds 100 plus its suit
// strength, which makes every manilha beat every plain card and makes
// manilha strengths pairwise distinct.
func (c Card) Strength(vira Rank) int {
	base := int(c.Rank) + 1
	if c.IsManilha(vira) {
		return base + 100 + int(c.Suit)
	}
	return base
}

// Compare returns -1, 0 or +1 as a is weaker than, equal to, or stronger
// than b under the given vira. Zero is only possible for two non-manilhas
// of equal rank.
func Compare(a, b Card, vira Rank) int {
	sa, sb := a.Strength(vira), b.Strength(vira)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}
