package truco

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"truco-fdp/card"
)

func TestSnapshotRestoreMidBidding(t *testing.T) {
	g := newTestGame(t, 20)
	deal, err := g.Start(twoSeats(), time.Now())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := g.SubmitBid("alice", 0); err != nil {
		t.Fatalf("bid: %v", err)
	}

	snap := g.Snapshot()
	restored, err := Restore(snap, Config{})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.Phase() != PhaseBidding {
		t.Fatalf("phase = %s, want bidding", restored.Phase())
	}
	if restored.CurrentPlayerID() != "bob" {
		t.Fatalf("current player = %s, want bob", restored.CurrentPlayerID())
	}
	r := restored.CurrentRound()
	if r == nil || !reflect.DeepEqual(r.Hands, deal.Hands) {
		t.Fatalf("restored hands differ from the deal")
	}
	if r.Bids["alice"] != 0 {
		t.Fatalf("restored bids = %v, want alice 0", r.Bids)
	}

	// The restored game must accept the next legal action.
	if _, err := restored.SubmitBid("bob", 1); err != nil {
		t.Fatalf("bid after restore: %v", err)
	}
	if restored.Phase() != PhasePlaying {
		t.Fatalf("phase = %s, want playing", restored.Phase())
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	g := newTestGame(t, 21)
	if _, err := g.Start(twoSeats(), time.Now()); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := g.Snapshot()
	original := snap.Rounds[0].Hands["alice"][0]
	snap.Rounds[0].Hands["alice"][0] = card.Card{
		Rank: (original.Rank + 1) % card.NumRanks,
		Suit: original.Suit,
	}
	snap.PlayerOrder[0] = "mallory"

	if g.PlayerOrder()[0] != "alice" {
		t.Fatalf("snapshot mutation leaked into player order")
	}
	again := g.Snapshot()
	if again.Rounds[0].Hands["alice"][0] != original {
		t.Fatalf("snapshot mutation leaked into hands")
	}
}

func TestStateJSONRoundTrip(t *testing.T) {
	g := newTestGame(t, 22)
	deal, err := g.Start(twoSeats(), time.Now())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	playBlindRound(t, g, deal)

	snap := g.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back State
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Phase != snap.Phase || back.CurrentRound != snap.CurrentRound {
		t.Fatalf("round trip changed phase/round: %+v vs %+v", back, snap)
	}
	if !reflect.DeepEqual(back.PlayerOrder, snap.PlayerOrder) {
		t.Fatalf("player order = %v, want %v", back.PlayerOrder, snap.PlayerOrder)
	}
	if len(back.Rounds) != 1 || len(back.Rounds[0].Tricks) != 1 {
		t.Fatalf("rounds/tricks lost in round trip")
	}
}
