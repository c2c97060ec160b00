package truco

import (
	"testing"
	"time"

	"truco-fdp/card"
)

// lcgReader is a deterministic entropy source so game tests deal
// reproducible hands.
type lcgReader struct {
	state uint64
}

func (r *lcgReader) Read(p []byte) (int, error) {
	for i := range p {
		r.state = r.state*6364136223846793005 + 1442695040888963407
		p[i] = byte(r.state >> 33)
	}
	return len(p), nil
}

func newTestGame(t *testing.T, seed uint64) *Game {
	t.Helper()
	g, err := New("g1", "itajuba", Config{Entropy: &lcgReader{state: seed}})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return g
}

func twoSeats() []Seat {
	return []Seat{
		{PlayerID: "alice", DisplayName: "Alice"},
		{PlayerID: "bob", DisplayName: "Bob"},
	}
}

func TestStartRequiresTwoPlayers(t *testing.T) {
	g := newTestGame(t, 1)
	_, err := g.Start([]Seat{{PlayerID: "solo", DisplayName: "Solo"}}, time.Now())
	if !hasCode(err, CodeInsufficientPlayers) {
		t.Fatalf("got %v, want %s", err, CodeInsufficientPlayers)
	}
}

func TestStartDealsBlindRound(t *testing.T) {
	g := newTestGame(t, 2)
	now := time.Now()
	deal, err := g.Start(twoSeats(), now)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !deal.Blind || deal.RoundNumber != 1 || deal.CardCount != 1 {
		t.Fatalf("deal = %+v, want blind round 1 with 1 card", deal)
	}
	if deal.ManilhaRank != card.ManilhaRank(deal.Vira.Rank) {
		t.Fatalf("manilha %v does not match vira %v", deal.ManilhaRank, deal.Vira)
	}
	for id, hand := range deal.Hands {
		if len(hand) != 1 {
			t.Fatalf("hand of %s has %d cards, want 1", id, len(hand))
		}
	}
	if g.Phase() != PhaseBidding {
		t.Fatalf("phase = %s, want bidding", g.Phase())
	}
	if g.CurrentPlayerID() != "alice" {
		t.Fatalf("current player = %s, want alice", g.CurrentPlayerID())
	}
	if g.Seat("alice").Lives != DefaultStartingLives {
		t.Fatalf("lives = %d, want %d", g.Seat("alice").Lives, DefaultStartingLives)
	}
}

func TestStartTwiceFails(t *testing.T) {
	g := newTestGame(t, 3)
	if _, err := g.Start(twoSeats(), time.Now()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := g.Start(twoSeats(), time.Now()); !hasCode(err, CodeGameInProgress) {
		t.Fatalf("got %v, want %s", err, CodeGameInProgress)
	}
}

func TestSubmitBidTurnOrder(t *testing.T) {
	g := newTestGame(t, 4)
	if _, err := g.Start(twoSeats(), time.Now()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := g.SubmitBid("bob", 0); !hasCode(err, CodeInvalidTurn) {
		t.Fatalf("out-of-turn bid: got %v, want %s", err, CodeInvalidTurn)
	}
	if _, err := g.SubmitBid("alice", 2); !hasCode(err, CodeInvalidBid) {
		t.Fatalf("over-range bid: got %v, want %s", err, CodeInvalidBid)
	}

	out, err := g.SubmitBid("alice", 0)
	if err != nil {
		t.Fatalf("bid: %v", err)
	}
	if out.BiddingComplete || out.NextPlayerID != "bob" {
		t.Fatalf("outcome = %+v, want bob to bid next", out)
	}
	if _, err := g.SubmitBid("alice", 0); !hasCode(err, CodeInvalidTurn) {
		t.Fatalf("second bid: got %v, want %s", err, CodeInvalidTurn)
	}

	// Blind round: bob may bid 1 even though the sum would equal the
	// card count.
	out, err = g.SubmitBid("bob", 1)
	if err != nil {
		t.Fatalf("bid: %v", err)
	}
	if !out.BiddingComplete || out.FirstTrick == nil {
		t.Fatalf("outcome = %+v, want bidding complete with first trick", out)
	}
	if g.Phase() != PhasePlaying {
		t.Fatalf("phase = %s, want playing", g.Phase())
	}
	if out.FirstTrick.LeadPlayerID != "alice" {
		t.Fatalf("lead = %s, want alice", out.FirstTrick.LeadPlayerID)
	}
}

// playBlindRound drives a started two-player game through bids 0/0 and the
// single trick, returning the deal and the trick outcome.
func playBlindRound(t *testing.T, g *Game, deal *DealInfo) *PlayOutcome {
	t.Helper()
	if _, err := g.SubmitBid("alice", 0); err != nil {
		t.Fatalf("alice bid: %v", err)
	}
	if _, err := g.SubmitBid("bob", 0); err != nil {
		t.Fatalf("bob bid: %v", err)
	}
	now := time.Now()
	if _, err := g.PlayCard("alice", deal.Hands["alice"][0], now); err != nil {
		t.Fatalf("alice play: %v", err)
	}
	out, err := g.PlayCard("bob", deal.Hands["bob"][0], now)
	if err != nil {
		t.Fatalf("bob play: %v", err)
	}
	return out
}

func TestBlindRoundScoring(t *testing.T) {
	g := newTestGame(t, 5)
	deal, err := g.Start(twoSeats(), time.Now())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	out := playBlindRound(t, g, deal)

	if !out.TrickComplete || !out.RoundComplete || out.MoreTricks {
		t.Fatalf("outcome = %+v, want completed single-trick round", out)
	}
	if g.Phase() != PhaseScoring {
		t.Fatalf("phase = %s, want scoring", g.Phase())
	}

	summary, err := g.FinalizeRound()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	for id, res := range summary.Results {
		wantLost := res.Actual // both bid zero
		if res.LivesLost != wantLost {
			t.Errorf("%s lost %d lives, want %d", id, res.LivesLost, wantLost)
		}
		if res.LivesRemaining != DefaultStartingLives-res.LivesLost {
			t.Errorf("%s has %d lives, want %d", id, res.LivesRemaining, DefaultStartingLives-res.LivesLost)
		}
	}
	if out.Outcome.WinnerID != "" {
		won := summary.Results[out.Outcome.WinnerID]
		if won.Actual != 1 || won.LivesLost != 1 {
			t.Fatalf("trick winner result = %+v, want actual=1 livesLost=1", won)
		}
	}
}

func TestStartNextRoundGrowsHand(t *testing.T) {
	g := newTestGame(t, 6)
	deal, err := g.Start(twoSeats(), time.Now())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	playBlindRound(t, g, deal)
	if _, err := g.FinalizeRound(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	next, err := g.StartNextRound()
	if err != nil {
		t.Fatalf("next round: %v", err)
	}
	if next.RoundNumber != 2 || next.CardCount != 2 || next.Blind {
		t.Fatalf("deal = %+v, want non-blind round 2 with 2 cards", next)
	}
	if g.Phase() != PhaseBidding || g.CurrentPlayerID() != "alice" {
		t.Fatalf("phase=%s current=%s, want bidding/alice", g.Phase(), g.CurrentPlayerID())
	}
}

func TestRemoveSeat(t *testing.T) {
	g := newTestGame(t, 7)
	if _, err := g.Start(twoSeats(), time.Now()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !g.RemoveSeat("alice") {
		t.Fatalf("remove alice failed")
	}
	if g.RemoveSeat("alice") {
		t.Fatalf("second remove should report false")
	}
	if g.ActiveCount() != 1 || g.CurrentPlayerID() != "bob" {
		t.Fatalf("active=%d current=%s, want 1/bob", g.ActiveCount(), g.CurrentPlayerID())
	}
	if g.Seat("alice").Lives != 0 {
		t.Fatalf("removed seat keeps %d lives", g.Seat("alice").Lives)
	}
}

func threeSeats() []Seat {
	return []Seat{
		{PlayerID: "alice", DisplayName: "Alice"},
		{PlayerID: "bob", DisplayName: "Bob"},
		{PlayerID: "carol", DisplayName: "Carol"},
	}
}

func TestRemoveSeatCompletesBidding(t *testing.T) {
	g := newTestGame(t, 12)
	if _, err := g.Start(threeSeats(), time.Now()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := g.SubmitBid("alice", 0); err != nil {
		t.Fatalf("alice bid: %v", err)
	}
	if _, err := g.SubmitBid("bob", 0); err != nil {
		t.Fatalf("bob bid: %v", err)
	}

	// The only pending bidder leaves; the remaining bids are all in.
	if !g.RemoveSeat("carol") {
		t.Fatalf("remove carol failed")
	}
	adv := g.AdvanceAfterRemoval(time.Now())
	if adv == nil || !adv.BiddingComplete || adv.FirstTrick == nil {
		t.Fatalf("advance = %+v, want completed bidding with first trick", adv)
	}
	if g.Phase() != PhasePlaying {
		t.Fatalf("phase = %s, want playing", g.Phase())
	}
	if adv.FirstTrick.LeadPlayerID != "alice" {
		t.Fatalf("lead = %s, want alice", adv.FirstTrick.LeadPlayerID)
	}
}

func TestRemoveSeatResolvesTrick(t *testing.T) {
	g := newTestGame(t, 13)
	now := time.Now()
	deal, err := g.Start(threeSeats(), now)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, id := range []string{"alice", "bob", "carol"} {
		if _, err := g.SubmitBid(id, 0); err != nil {
			t.Fatalf("%s bid: %v", id, err)
		}
	}
	if _, err := g.PlayCard("alice", deal.Hands["alice"][0], now); err != nil {
		t.Fatalf("alice play: %v", err)
	}
	if _, err := g.PlayCard("bob", deal.Hands["bob"][0], now); err != nil {
		t.Fatalf("bob play: %v", err)
	}

	// The pending player leaves; the trick resolves from the cards on the
	// table and the single-trick round moves to scoring.
	if !g.RemoveSeat("carol") {
		t.Fatalf("remove carol failed")
	}
	adv := g.AdvanceAfterRemoval(now)
	if adv == nil || !adv.TrickComplete || !adv.RoundComplete || adv.MoreTricks {
		t.Fatalf("advance = %+v, want resolved trick completing the round", adv)
	}
	if len(adv.Trick.Plays) != 2 {
		t.Fatalf("trick has %d plays, want 2", len(adv.Trick.Plays))
	}
	if g.Phase() != PhaseScoring {
		t.Fatalf("phase = %s, want scoring", g.Phase())
	}

	summary, err := g.FinalizeRound()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("results = %+v, want alice and bob only", summary.Results)
	}
	if _, ok := summary.Results["carol"]; ok {
		t.Fatalf("removed player must not be scored")
	}
}

func TestRemoveSeatKeepsPendingTrickOpen(t *testing.T) {
	g := newTestGame(t, 14)
	now := time.Now()
	deal, err := g.Start(threeSeats(), now)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, id := range []string{"alice", "bob", "carol"} {
		if _, err := g.SubmitBid(id, 0); err != nil {
			t.Fatalf("%s bid: %v", id, err)
		}
	}
	if _, err := g.PlayCard("alice", deal.Hands["alice"][0], now); err != nil {
		t.Fatalf("alice play: %v", err)
	}

	// The leaver already played; their card stays on the table but the
	// trick must wait for every remaining player.
	if !g.RemoveSeat("alice") {
		t.Fatalf("remove alice failed")
	}
	if adv := g.AdvanceAfterRemoval(now); adv != nil {
		t.Fatalf("advance = %+v, want nil while bob and carol owe plays", adv)
	}
	out, err := g.PlayCard("bob", deal.Hands["bob"][0], now)
	if err != nil {
		t.Fatalf("bob play: %v", err)
	}
	if out.TrickComplete {
		t.Fatalf("trick completed with carol's play outstanding")
	}
	out, err = g.PlayCard("carol", deal.Hands["carol"][0], now)
	if err != nil {
		t.Fatalf("carol play: %v", err)
	}
	if !out.TrickComplete || len(out.Trick.Plays) != 3 {
		t.Fatalf("outcome = %+v, want completed trick with 3 plays", out)
	}
	// A win by the departed card counts for nobody.
	if out.Trick.WinnerID == "alice" && g.Seat("alice").TricksWon != 0 {
		t.Fatalf("departed player credited with a trick")
	}
}

func TestCompleteIdempotent(t *testing.T) {
	g := newTestGame(t, 8)
	if _, err := g.Start(twoSeats(), time.Now()); err != nil {
		t.Fatalf("start: %v", err)
	}
	g.RemoveSeat("alice")

	now := time.Now()
	first, applied := g.Complete(ReasonVictory, now)
	if !applied {
		t.Fatalf("first Complete not applied")
	}
	if first.WinnerID != "bob" {
		t.Fatalf("winner = %q, want bob", first.WinnerID)
	}
	if len(first.Standings) != 2 || first.Standings[0].PlayerID != "bob" {
		t.Fatalf("standings = %+v, want bob first", first.Standings)
	}

	second, applied := g.Complete(ReasonTimeout, now.Add(time.Minute))
	if applied {
		t.Fatalf("second Complete applied")
	}
	if second.Reason != ReasonVictory || second.WinnerID != "bob" {
		t.Fatalf("second completion = %+v, want the recorded one", second)
	}
}

func TestCompleteTimeoutHasNoWinner(t *testing.T) {
	g := newTestGame(t, 9)
	if _, err := g.Start(twoSeats(), time.Now()); err != nil {
		t.Fatalf("start: %v", err)
	}
	g.RemoveSeat("alice")
	out, _ := g.Complete(ReasonTimeout, time.Now())
	if out.WinnerID != "" {
		t.Fatalf("winner = %q, want none on timeout", out.WinnerID)
	}
}

func TestRemainingMs(t *testing.T) {
	g, err := New("g1", "itajuba", Config{TimeLimitMs: 1000, Entropy: &lcgReader{state: 10}})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	now := time.Now()
	if _, err := g.Start(twoSeats(), now); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := g.RemainingMs(now.Add(400 * time.Millisecond)); got != 600 {
		t.Fatalf("remaining = %d, want 600", got)
	}
	if got := g.RemainingMs(now.Add(2 * time.Second)); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
}

// TestFullGameWithAutoActions drives a three-player game to completion using
// only the timeout actions, checking phase bookkeeping on the way. The
// deterministic entropy keeps the run reproducible.
func TestFullGameWithAutoActions(t *testing.T) {
	g := newTestGame(t, 11)
	seats := []Seat{
		{PlayerID: "p1", DisplayName: "P1"},
		{PlayerID: "p2", DisplayName: "P2"},
		{PlayerID: "p3", DisplayName: "P3"},
	}
	now := time.Now()
	if _, err := g.Start(seats, now); err != nil {
		t.Fatalf("start: %v", err)
	}

	for rounds := 0; rounds < 500; rounds++ {
		switch g.Phase() {
		case PhaseBidding:
			if _, err := g.AutoBid(); err != nil {
				t.Fatalf("auto bid: %v", err)
			}
		case PhasePlaying:
			r := g.CurrentRound()
			if r.CurrentTrick() == nil {
				if _, err := g.OpenNextTrick(); err != nil {
					t.Fatalf("open trick: %v", err)
				}
			}
			if _, err := g.AutoPlay(now); err != nil {
				t.Fatalf("auto play: %v", err)
			}
		case PhaseScoring:
			summary, err := g.FinalizeRound()
			if err != nil {
				t.Fatalf("finalize: %v", err)
			}
			for id, res := range summary.Results {
				diff := res.Bid - res.Actual
				if diff < 0 {
					diff = -diff
				}
				if res.LivesLost != diff {
					t.Fatalf("%s: livesLost=%d, want |%d-%d|", id, res.LivesLost, res.Bid, res.Actual)
				}
			}
			if summary.ActiveRemaining < MinPlayers {
				out, applied := g.Complete(ReasonVictory, now)
				if !applied {
					t.Fatalf("completion not applied")
				}
				if summary.ActiveRemaining == 1 && out.WinnerID == "" {
					t.Fatalf("single survivor but no winner")
				}
				return
			}
			if _, err := g.StartNextRound(); err != nil {
				t.Fatalf("next round: %v", err)
			}
		default:
			t.Fatalf("unexpected phase %s", g.Phase())
		}
	}
	t.Fatalf("game did not complete within bound")
}
