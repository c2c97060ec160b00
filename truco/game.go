package truco

import (
	"sort"
	"time"

	"truco-fdp/card"
)

// Game is the authoritative state machine for one Truco FDP game. It is not
// safe for concurrent use: the owning room actor is the only writer and
// serializes every call.
type Game struct {
	ID     string
	RoomID string

	cfg Config

	playerOrder []string
	seats       map[string]*Seat

	currentRound int
	phase        Phase
	currentTurn  int
	rounds       []*Round

	startedAt time.Time
	endedAt   time.Time
	reason    CompletionReason
	winnerID  string
	standings []Standing
}

// New creates a game in the waiting phase.
func New(id, roomID string, cfg Config) (*Game, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Game{
		ID:     id,
		RoomID: roomID,
		cfg:    cfg,
		phase:  PhaseWaiting,
		seats:  make(map[string]*Seat),
	}, nil
}

func (g *Game) Phase() Phase             { return g.phase }
func (g *Game) Reason() CompletionReason { return g.reason }
func (g *Game) WinnerID() string         { return g.winnerID }
func (g *Game) PlayerOrder() []string    { return append([]string(nil), g.playerOrder...) }
func (g *Game) CurrentRoundNumber() int  { return g.currentRound }
func (g *Game) StartedAt() time.Time     { return g.startedAt }
func (g *Game) TimeLimitMs() int64       { return g.cfg.TimeLimitMs }
func (g *Game) Completed() bool          { return g.phase == PhaseCompleted }

// Seat returns the live seat record for a player, or nil.
func (g *Game) Seat(playerID string) *Seat {
	return g.seats[playerID]
}

// CurrentPlayerID returns the player the turn cursor points at, or "".
func (g *Game) CurrentPlayerID() string {
	if g.currentTurn < 0 || g.currentTurn >= len(g.playerOrder) {
		return ""
	}
	return g.playerOrder[g.currentTurn]
}

// CurrentRound returns the in-progress round, or nil.
func (g *Game) CurrentRound() *Round {
	if len(g.rounds) == 0 {
		return nil
	}
	return g.rounds[len(g.rounds)-1]
}

// RemainingMs reports time left on the whole-game clock.
func (g *Game) RemainingMs(now time.Time) int64 {
	if g.startedAt.IsZero() {
		return g.cfg.TimeLimitMs
	}
	left := g.cfg.TimeLimitMs - now.Sub(g.startedAt).Milliseconds()
	if left < 0 {
		left = 0
	}
	return left
}

// DealInfo describes a freshly dealt round. Hands holds the actual dealt
// cards; visibility filtering happens at the fan-out layer.
type DealInfo struct {
	RoundNumber int
	CardCount   int
	Vira        card.Card
	ManilhaRank card.Rank
	Blind       bool
	Hands       map[string][]card.Card
}

// Start snapshots the seating, deals the blind round and moves to bidding.
func (g *Game) Start(seats []Seat, now time.Time) (*DealInfo, error) {
	if g.phase != PhaseWaiting {
		return nil, newError(CodeGameInProgress, "game already started")
	}
	if len(seats) < MinPlayers {
		return nil, newError(CodeInsufficientPlayers, "need at least 2 players")
	}
	g.playerOrder = g.playerOrder[:0]
	for _, s := range seats {
		seat := s
		if seat.Lives == 0 {
			seat.Lives = g.cfg.StartingLives
		}
		g.playerOrder = append(g.playerOrder, seat.PlayerID)
		g.seats[seat.PlayerID] = &seat
	}
	g.startedAt = now

	deal, err := g.dealRound(1, 1)
	if err != nil {
		return nil, err
	}
	g.phase = PhaseBidding
	g.currentTurn = 0
	return deal, nil
}

func (g *Game) dealRound(number, cardCount int) (*DealInfo, error) {
	deck := card.NewDeck()
	if err := deck.Shuffle(g.cfg.Entropy); err != nil {
		return nil, err
	}
	vira, deck, manilha, err := deck.DrawVira()
	if err != nil {
		return nil, err
	}

	r := &Round{
		Number:      number,
		CardCount:   cardCount,
		Vira:        vira,
		ManilhaRank: manilha,
		Blind:       number == 1,
		Hands:       make(map[string][]card.Card, len(g.playerOrder)),
		Bids:        make(map[string]int, len(g.playerOrder)),
	}
	for _, id := range g.playerOrder {
		var hand []card.Card
		hand, deck, err = deck.Deal(cardCount)
		if err != nil {
			return nil, err
		}
		r.Hands[id] = hand
		g.seats[id].TricksWon = 0
	}
	g.rounds = append(g.rounds, r)
	g.currentRound = number

	dealt := make(map[string][]card.Card, len(r.Hands))
	for id, hand := range r.Hands {
		dealt[id] = append([]card.Card(nil), hand...)
	}
	return &DealInfo{
		RoundNumber: number,
		CardCount:   cardCount,
		Vira:        vira,
		ManilhaRank: manilha,
		Blind:       r.Blind,
		Hands:       dealt,
	}, nil
}

// BidOptionsFor computes the legal bids for a player in the current round.
func (g *Game) BidOptionsFor(playerID string) (BidOptions, error) {
	r := g.CurrentRound()
	if g.phase != PhaseBidding || r == nil {
		return BidOptions{}, newError(CodeInvalidPhase, "not in bidding phase")
	}
	return ValidBids(r.CardCount, g.playerOrder, playerID, r.Bids, r.Blind), nil
}

// BidOutcome describes an accepted bid.
type BidOutcome struct {
	PlayerID        string
	Bid             int
	AllBids         map[string]int
	BiddingComplete bool
	NextPlayerID    string
	FirstTrick      *Trick
}

// SubmitBid records a bid for the current player and advances the cursor.
// When the last bid lands the game opens the first trick, led by the first
// player in order.
func (g *Game) SubmitBid(playerID string, bid int) (*BidOutcome, error) {
	r := g.CurrentRound()
	if g.phase != PhaseBidding || r == nil {
		return nil, newError(CodeInvalidPhase, "not in bidding phase")
	}
	if g.CurrentPlayerID() != playerID {
		return nil, newError(CodeInvalidTurn, "not this player's turn to bid")
	}
	if _, dup := r.Bids[playerID]; dup {
		return nil, newError(CodeAlreadyBid, "bid already submitted")
	}
	opts := ValidBids(r.CardCount, g.playerOrder, playerID, r.Bids, r.Blind)
	if bid < 0 || bid > r.CardCount {
		err := newError(CodeInvalidBid, "bid out of range")
		err.Details = map[string]any{"validBids": opts.Valid}
		return nil, err
	}
	if !opts.Contains(bid) {
		err := newError(CodeLastBidderRestriction, "bid would match the card count")
		err.Details = map[string]any{"validBids": opts.Valid}
		return nil, err
	}

	r.Bids[playerID] = bid
	g.currentTurn = (g.currentTurn + 1) % len(g.playerOrder)

	out := &BidOutcome{
		PlayerID: playerID,
		Bid:      bid,
		AllBids:  copyBids(r.Bids),
	}
	if !g.biddingComplete(r) {
		out.NextPlayerID = g.CurrentPlayerID()
		return out, nil
	}

	out.BiddingComplete = true
	out.FirstTrick = g.beginPlaying(r)
	out.NextPlayerID = g.CurrentPlayerID()
	return out, nil
}

// biddingComplete reports whether every player still in the order has bid.
// Counting bids is not enough: the map may hold bids of removed players.
func (g *Game) biddingComplete(r *Round) bool {
	for _, id := range g.playerOrder {
		if _, ok := r.Bids[id]; !ok {
			return false
		}
	}
	return true
}

func (g *Game) beginPlaying(r *Round) *Trick {
	g.phase = PhasePlaying
	g.currentTurn = 0
	return g.openTrick(r)
}

func (g *Game) openTrick(r *Round) *Trick {
	t := &Trick{
		Number:       len(r.Tricks) + 1,
		LeadPlayerID: g.CurrentPlayerID(),
	}
	r.Tricks = append(r.Tricks, t)
	return t
}

// OpenNextTrick opens a new trick after the inter-trick delay. The lead is
// whatever the cursor points at (the previous winner, or the previous lead
// when everything cancelled).
func (g *Game) OpenNextTrick() (*Trick, error) {
	r := g.CurrentRound()
	if g.phase != PhasePlaying || r == nil {
		return nil, newError(CodeInvalidPhase, "not in playing phase")
	}
	if r.CurrentTrick() != nil {
		return nil, newError(CodeInvalidPhase, "trick already open")
	}
	if len(r.Tricks) >= r.CardCount {
		return nil, newError(CodeInvalidRound, "round has no tricks left")
	}
	return g.openTrick(r), nil
}

// PlayOutcome describes an accepted card play.
type PlayOutcome struct {
	Play          Play
	NextPlayerID  string
	TrickComplete bool
	Trick         *Trick
	Outcome       *TrickOutcome
	RoundComplete bool
	MoreTricks    bool
}

// PlayCard validates and applies a card play for the current trick.
func (g *Game) PlayCard(playerID string, c card.Card, now time.Time) (*PlayOutcome, error) {
	r := g.CurrentRound()
	if g.phase != PhasePlaying || r == nil {
		return nil, newError(CodeInvalidPhase, "not in playing phase")
	}
	trick := r.CurrentTrick()
	idx, err := ValidatePlay(r, trick, g.playerOrder, g.currentTurn, playerID, c)
	if err != nil {
		return nil, err
	}

	hand := r.Hands[playerID]
	r.Hands[playerID] = append(hand[:idx], hand[idx+1:]...)
	play := Play{PlayerID: playerID, Card: c, PlayedAt: now}
	trick.Plays = append(trick.Plays, play)

	out := &PlayOutcome{Play: play}
	if !g.trickFullyPlayed(trick) {
		g.advanceToNextWithCards()
		out.NextPlayerID = g.CurrentPlayerID()
		return out, nil
	}

	outcome := g.resolveTrick(r, trick, now)
	out.TrickComplete = true
	out.Trick = trick
	out.Outcome = &outcome
	out.NextPlayerID = g.CurrentPlayerID()
	if len(r.Tricks) < r.CardCount {
		out.MoreTricks = true
		return out, nil
	}

	g.phase = PhaseScoring
	out.RoundComplete = true
	return out, nil
}

// trickFullyPlayed reports whether every player still in the order has a
// play in the trick. Plays of removed players stay on the table but do not
// count toward completion.
func (g *Game) trickFullyPlayed(t *Trick) bool {
	for _, id := range g.playerOrder {
		if !t.hasPlayed(id) {
			return false
		}
	}
	return true
}

func (g *Game) resolveTrick(r *Round, trick *Trick, now time.Time) TrickOutcome {
	outcome := ResolveTrick(trick.Plays, r.ManilhaRank)
	trick.WinnerID = outcome.WinnerID
	trick.WinningCard = outcome.WinningCard
	trick.CancelledCards = outcome.Cancelled
	trick.CompletedAt = now

	// A departed player's card can still win the trick; the win counts for
	// nobody and the lead falls back to the previous leader, as in a
	// cancelled trick.
	if outcome.WinnerID != "" && g.isActive(outcome.WinnerID) {
		g.seats[outcome.WinnerID].TricksWon++
		g.setCursor(outcome.WinnerID)
	} else {
		g.setCursor(trick.LeadPlayerID)
	}
	return outcome
}

func (g *Game) isActive(playerID string) bool {
	for _, id := range g.playerOrder {
		if id == playerID {
			return true
		}
	}
	return false
}

// advanceToNextWithCards moves the cursor to the next player in order who
// still holds cards, cycling past emptied hands.
func (g *Game) advanceToNextWithCards() {
	r := g.CurrentRound()
	n := len(g.playerOrder)
	for step := 1; step <= n; step++ {
		idx := (g.currentTurn + step) % n
		if len(r.Hands[g.playerOrder[idx]]) > 0 {
			g.currentTurn = idx
			return
		}
	}
	g.currentTurn = (g.currentTurn + 1) % n
}

func (g *Game) setCursor(playerID string) {
	for i, id := range g.playerOrder {
		if id == playerID {
			g.currentTurn = i
			return
		}
	}
}

// RoundSummary is the result of finalizing a round.
type RoundSummary struct {
	RoundNumber     int
	Results         map[string]RoundResult
	Eliminated      []string
	ActiveRemaining int
}

// FinalizeRound scores the completed round, applies life losses and removes
// eliminated players from the seating order.
func (g *Game) FinalizeRound() (*RoundSummary, error) {
	r := g.CurrentRound()
	if g.phase != PhaseScoring || r == nil {
		return nil, newError(CodeInvalidPhase, "round not ready to score")
	}

	tricksWon := make(map[string]int, len(g.playerOrder))
	for _, id := range g.playerOrder {
		tricksWon[id] = g.seats[id].TricksWon
	}
	losses := ScoreRound(r, tricksWon)

	r.Results = make(map[string]RoundResult, len(losses))
	summary := &RoundSummary{RoundNumber: r.Number, Results: r.Results}
	for _, id := range g.playerOrder {
		seat := g.seats[id]
		lost := losses[id]
		seat.Lives -= lost
		if seat.Lives < 0 {
			seat.Lives = 0
		}
		r.Results[id] = RoundResult{
			Bid:            r.Bids[id],
			Actual:         seat.TricksWon,
			LivesLost:      lost,
			LivesRemaining: seat.Lives,
		}
		if seat.Lives == 0 {
			summary.Eliminated = append(summary.Eliminated, id)
		}
	}

	if len(summary.Eliminated) > 0 {
		kept := g.playerOrder[:0]
		for _, id := range g.playerOrder {
			if g.seats[id].Lives > 0 {
				kept = append(kept, id)
			}
		}
		g.playerOrder = kept
		if len(g.playerOrder) > 0 {
			g.currentTurn %= len(g.playerOrder)
		} else {
			g.currentTurn = 0
		}
	}
	summary.ActiveRemaining = len(g.playerOrder)
	return summary, nil
}

// StartNextRound deals the next round after scoring and returns to bidding.
func (g *Game) StartNextRound() (*DealInfo, error) {
	r := g.CurrentRound()
	if g.phase != PhaseScoring || r == nil {
		return nil, newError(CodeInvalidPhase, "not between rounds")
	}
	if len(g.playerOrder) < MinPlayers {
		return nil, newError(CodeInsufficientPlayers, "not enough players for another round")
	}
	count := NextCardCount(r.CardCount, len(g.playerOrder))
	deal, err := g.dealRound(r.Number+1, count)
	if err != nil {
		return nil, err
	}
	g.phase = PhaseBidding
	g.currentTurn = 0
	return deal, nil
}

// RemoveSeat drops a player from the active order mid-game, e.g. on a
// voluntary leave or session expiry. Their seat record survives for
// standings. Returns false when the player was not active.
func (g *Game) RemoveSeat(playerID string) bool {
	for i, id := range g.playerOrder {
		if id != playerID {
			continue
		}
		g.playerOrder = append(g.playerOrder[:i], g.playerOrder[i+1:]...)
		if len(g.playerOrder) > 0 {
			if g.currentTurn > i {
				g.currentTurn--
			}
			g.currentTurn %= len(g.playerOrder)
		} else {
			g.currentTurn = 0
		}
		if seat := g.seats[playerID]; seat != nil {
			seat.Lives = 0
		}
		return true
	}
	return false
}

// ActiveCount is the number of players still seated in the game.
func (g *Game) ActiveCount() int { return len(g.playerOrder) }

// Advance is a transition the game made without a player action: once a
// seat is removed, every remaining player's bid or play may already be in.
type Advance struct {
	BiddingComplete bool
	FirstTrick      *Trick
	TrickComplete   bool
	Trick           *Trick
	Outcome         *TrickOutcome
	MoreTricks      bool
	RoundComplete   bool
}

// AdvanceAfterRemoval re-evaluates the current phase after RemoveSeat. With
// the departed player out of the order, bidding may now be complete or the
// open trick fully played; either would otherwise never resolve, since
// those checks normally run only inside SubmitBid and PlayCard. Returns nil
// when the game still waits on a remaining player.
func (g *Game) AdvanceAfterRemoval(now time.Time) *Advance {
	r := g.CurrentRound()
	if r == nil || len(g.playerOrder) < MinPlayers {
		return nil
	}
	switch g.phase {
	case PhaseBidding:
		if !g.biddingComplete(r) {
			return nil
		}
		return &Advance{BiddingComplete: true, FirstTrick: g.beginPlaying(r)}
	case PhasePlaying:
		trick := r.CurrentTrick()
		if trick == nil || !g.trickFullyPlayed(trick) {
			return nil
		}
		outcome := g.resolveTrick(r, trick, now)
		adv := &Advance{TrickComplete: true, Trick: trick, Outcome: &outcome}
		if len(r.Tricks) < r.CardCount {
			adv.MoreTricks = true
			return adv
		}
		g.phase = PhaseScoring
		adv.RoundComplete = true
		return adv
	}
	return nil
}

// Completion is the final outcome of a game.
type Completion struct {
	WinnerID  string
	Standings []Standing
	Reason    CompletionReason
	EndedAt   time.Time
	Rounds    int
}

// Complete ends the game. Idempotent: the second and later calls return the
// recorded completion and false.
func (g *Game) Complete(reason CompletionReason, now time.Time) (*Completion, bool) {
	if g.phase == PhaseCompleted {
		return &Completion{
			WinnerID:  g.winnerID,
			Standings: g.standings,
			Reason:    g.reason,
			EndedAt:   g.endedAt,
			Rounds:    g.currentRound,
		}, false
	}
	g.phase = PhaseCompleted
	g.reason = reason
	g.endedAt = now

	standings := make([]Standing, 0, len(g.seats))
	alive := 0
	var lastAlive string
	for id, seat := range g.seats {
		standings = append(standings, Standing{
			PlayerID:       id,
			DisplayName:    seat.DisplayName,
			LivesRemaining: seat.Lives,
		})
		if seat.Lives > 0 {
			alive++
			lastAlive = id
		}
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].LivesRemaining != standings[j].LivesRemaining {
			return standings[i].LivesRemaining > standings[j].LivesRemaining
		}
		return standings[i].DisplayName < standings[j].DisplayName
	})
	g.standings = standings

	if alive == 1 && reason != ReasonTimeout {
		g.winnerID = lastAlive
	}
	return &Completion{
		WinnerID:  g.winnerID,
		Standings: standings,
		Reason:    reason,
		EndedAt:   now,
		Rounds:    g.currentRound,
	}, true
}

// AutoBid submits the smallest legal bid for the current player. Used by
// the turn timer.
func (g *Game) AutoBid() (*BidOutcome, error) {
	playerID := g.CurrentPlayerID()
	opts, err := g.BidOptionsFor(playerID)
	if err != nil {
		return nil, err
	}
	if len(opts.Valid) == 0 {
		return nil, newError(CodeInvalidBid, "no valid bids")
	}
	min := opts.Valid[0]
	for _, v := range opts.Valid[1:] {
		if v < min {
			min = v
		}
	}
	return g.SubmitBid(playerID, min)
}

// AutoPlay plays the first card in the current player's hand that
// validates, falling back to the first card. Used by the turn timer.
func (g *Game) AutoPlay(now time.Time) (*PlayOutcome, error) {
	r := g.CurrentRound()
	if g.phase != PhasePlaying || r == nil {
		return nil, newError(CodeInvalidPhase, "not in playing phase")
	}
	playerID := g.CurrentPlayerID()
	hand := r.Hands[playerID]
	if len(hand) == 0 {
		return nil, newError(CodeCardNotInHand, "hand is empty")
	}
	trick := r.CurrentTrick()
	pick := hand[0]
	for _, c := range hand {
		if _, err := ValidatePlay(r, trick, g.playerOrder, g.currentTurn, playerID, c); err == nil {
			pick = c
			break
		}
	}
	return g.PlayCard(playerID, pick, now)
}

func copyBids(bids map[string]int) map[string]int {
	out := make(map[string]int, len(bids))
	for k, v := range bids {
		out[k] = v
	}
	return out
}
