package card

import (
	"encoding/json"
	"testing"
)

func TestManilhaRank(t *testing.T) {
	cases := []struct {
		vira, want Rank
	}{
		{RankK, RankA},
		{Rank4, Rank5},
		{Rank3, Rank4}, // wraps past the top of the order
		{Rank2, Rank3},
	}
	for _, tc := range cases {
		if got := ManilhaRank(tc.vira); got != tc.want {
			t.Errorf("ManilhaRank(%s) = %s, want %s", tc.vira, got, tc.want)
		}
	}
}

func TestRankOrder(t *testing.T) {
	// 4 is the weakest plain card and 3 the strongest.
	vira := Rank7 // manilha 8, out of the way
	weak := Card{Rank: Rank4, Suit: Clubs}
	strong := Card{Rank: Rank3, Suit: Diamonds}
	if Compare(weak, strong, vira) != -1 {
		t.Fatalf("expected 4 < 3 with neutral vira")
	}
}

func TestStrengthManilha(t *testing.T) {
	vira := RankK // manilha A
	plain3 := Card{Rank: Rank3, Suit: Clubs}
	manilha := Card{Rank: RankA, Suit: Diamonds}
	if Compare(manilha, plain3, vira) != 1 {
		t.Fatalf("weakest manilha must beat the strongest plain card")
	}

	// Among manilhas: diamonds < spades < hearts < clubs.
	suits := []Suit{Diamonds, Spades, Hearts, Clubs}
	for i := 0; i < len(suits)-1; i++ {
		lo := Card{Rank: RankA, Suit: suits[i]}
		hi := Card{Rank: RankA, Suit: suits[i+1]}
		if Compare(lo, hi, vira) != -1 {
			t.Errorf("manilha %s should lose to manilha %s", lo, hi)
		}
	}
}

func TestCompareEqualPlainRanks(t *testing.T) {
	vira := Rank4 // manilha 5
	a := Card{Rank: RankA, Suit: Hearts}
	b := Card{Rank: RankA, Suit: Clubs}
	if Compare(a, b, vira) != 0 {
		t.Fatalf("equal non-manilha ranks must compare equal regardless of suit")
	}
}

func TestManilhaBeatsAceScenario(t *testing.T) {
	// Vira 3 makes 4 the manilha, so 4 of clubs beats an ace.
	vira := Rank3
	four := Card{Rank: Rank4, Suit: Clubs}
	ace := Card{Rank: RankA, Suit: Hearts}
	if !four.IsManilha(vira) {
		t.Fatalf("4 should be manilha when vira is 3")
	}
	if Compare(four, ace, vira) != 1 {
		t.Fatalf("manilha 4 of clubs should beat ace of hearts")
	}
}

func TestCardJSON(t *testing.T) {
	c := Card{Rank: Rank10, Suit: Hearts}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"rank":"10","suit":"hearts"}`
	if string(data) != want {
		t.Fatalf("marshal = %s, want %s", data, want)
	}
	var back Card
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != c {
		t.Fatalf("round trip = %v, want %v", back, c)
	}
}

func TestCardJSONRejectsUnknown(t *testing.T) {
	var c Card
	if err := json.Unmarshal([]byte(`{"rank":"11","suit":"hearts"}`), &c); err == nil {
		t.Fatalf("expected error for rank 11")
	}
	if err := json.Unmarshal([]byte(`{"rank":"K","suit":"stars"}`), &c); err == nil {
		t.Fatalf("expected error for suit stars")
	}
}

func TestParseRank(t *testing.T) {
	for r := Rank(0); r < NumRanks; r++ {
		got, err := ParseRank(r.String())
		if err != nil {
			t.Fatalf("ParseRank(%q): %v", r.String(), err)
		}
		if got != r {
			t.Fatalf("ParseRank(%q) = %v, want %v", r.String(), got, r)
		}
	}
	if _, err := ParseRank("joker"); err == nil {
		t.Fatalf("expected error for unknown rank")
	}
}
