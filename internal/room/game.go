package room

import (
	"time"

	"github.com/google/uuid"

	"truco-fdp/card"
	"truco-fdp/internal/state"
	"truco-fdp/truco"
)

func (r *Room) handleStartGame(playerID string, now time.Time) error {
	player := r.players[playerID]
	if player == nil || !player.IsHost {
		return fail(codeNotHost, "only the host can start the game")
	}
	if r.room.Status != state.RoomWaiting || (r.game != nil && !r.game.Completed()) {
		return fail(codeGameInProgress, "a game is already running")
	}

	var seats []truco.Seat
	for _, id := range r.room.PlayerIDs {
		p := r.players[id]
		if p == nil || p.IsSpectator || p.Connection != state.Connected {
			continue
		}
		seats = append(seats, truco.Seat{
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			Lives:       r.room.HostSettings.StartingLives,
		})
	}
	if len(seats) < truco.MinPlayers {
		return fail(codeInsufficientPlayers, "need at least 2 connected players")
	}

	game, err := truco.New(uuid.NewString(), r.ID, truco.Config{
		StartingLives: r.room.HostSettings.StartingLives,
		TimeLimitMs:   r.cfg.TimeLimitMs,
	})
	if err != nil {
		return err
	}
	deal, err := game.Start(seats, now)
	if err != nil {
		return err
	}
	r.game = game
	r.room.Status = state.RoomPlaying
	r.room.LastActivity = now
	for _, s := range seats {
		if p := r.players[s.PlayerID]; p != nil {
			p.Lives = r.room.HostSettings.StartingLives
		}
	}

	r.emit(EventGameStarted, gameStartedPayload{
		GameID:       game.ID,
		PlayerOrder:  game.PlayerOrder(),
		HostSettings: r.room.HostSettings,
	})
	r.announceRound(deal, now)
	r.gameDeadline = now.Add(time.Duration(game.TimeLimitMs()) * time.Millisecond)
	r.nextGameTickAt = now.Add(r.cfg.GameTickInterval)

	r.log.Infof("room %s: game %s started with %d players", r.ID, game.ID, len(seats))
	return nil
}

// announceRound broadcasts round_started, delivers each private hand, then
// opens bidding. cards_dealt always lands before the first bidding_turn so
// every client has its hand before being asked to bid.
func (r *Room) announceRound(deal *truco.DealInfo, now time.Time) {
	r.emit(EventRoundStarted, roundStartedPayload{
		RoundNumber:  deal.RoundNumber,
		CardCount:    deal.CardCount,
		ViraCard:     deal.Vira,
		ManilhaRank:  deal.ManilhaRank,
		IsBlindRound: deal.Blind,
	})
	for playerID := range deal.Hands {
		r.emitTo(playerID, EventCardsDealt, r.cardsDealt(playerID, deal))
	}
	r.armBiddingTurn(now)
}

func (r *Room) armBiddingTurn(now time.Time) {
	current := r.game.CurrentPlayerID()
	opts, err := r.game.BidOptionsFor(current)
	if err != nil {
		r.log.Errorf("room %s: bid options for %s: %v", r.ID, current, err)
		return
	}
	round := r.game.CurrentRound()
	r.armTurnTimer(current, truco.PhaseBidding, now)
	r.emit(EventBiddingTurn, biddingTurnPayload{
		CurrentPlayer: current,
		ValidBids:     opts.Valid,
		RestrictedBid: opts.Forbidden,
		IsLastBidder:  opts.LastBidder,
		Deadline:      r.turnDeadline.UnixMilli(),
		TimeLeftMs:    r.turnDuration.Milliseconds(),
		Metadata: biddingContext{
			RoundNumber:  round.Number,
			CardCount:    round.CardCount,
			IsBlindRound: round.Blind,
		},
	})
}

func (r *Room) armPlayingTurn(now time.Time) {
	current := r.game.CurrentPlayerID()
	r.armTurnTimer(current, truco.PhasePlaying, now)
	r.emit(EventTurnTimerUpdate, r.turnTimerPayload())
}

func (r *Room) armTurnTimer(playerID string, phase truco.Phase, now time.Time) {
	seconds := clamp(r.room.HostSettings.TurnTimerSeconds, minTurnSeconds, maxTurnSeconds)
	r.turnDuration = time.Duration(seconds) * time.Second
	r.turnDeadline = now.Add(r.turnDuration)
	r.turnPlayerID = playerID
	r.turnPhase = phase
}

func (r *Room) clearTurnTimer() {
	r.turnDeadline = time.Time{}
	r.turnPlayerID = ""
	r.turnPhase = ""
}

func (r *Room) turnTimerPayload() turnTimerPayload {
	return turnTimerPayload{
		RoomID:     r.ID,
		GameID:     r.game.ID,
		PlayerID:   r.turnPlayerID,
		Phase:      r.turnPhase,
		Deadline:   r.turnDeadline.UnixMilli(),
		DurationMs: r.turnDuration.Milliseconds(),
	}
}

func (r *Room) handleSubmitBid(playerID string, bid int, now time.Time) error {
	if r.game == nil || r.game.Completed() {
		return fail(codeGameNotActive, "no active game")
	}
	r.rearmTimers(now)
	outcome, err := r.game.SubmitBid(playerID, bid)
	if err != nil {
		return err
	}
	r.afterBid(outcome, "completed", now)
	return nil
}

func (r *Room) afterBid(outcome *truco.BidOutcome, status string, now time.Time) {
	r.clearTurnTimer()
	r.actionSync[outcome.PlayerID] = actionSyncPayload{
		Action:     "submit_bid",
		Payload:    map[string]any{"bid": outcome.Bid},
		Status:     status,
		RecordedAt: now,
	}
	r.emit(EventBidSubmitted, bidSubmittedPayload{
		PlayerID: outcome.PlayerID,
		Bid:      outcome.Bid,
		AllBids:  outcome.AllBids,
	})
	r.room.LastActivity = now

	if !outcome.BiddingComplete {
		r.armBiddingTurn(now)
		return
	}
	r.emit(EventTrickStarted, trickStartedPayload{
		TrickNumber: outcome.FirstTrick.Number,
		LeadPlayer:  outcome.FirstTrick.LeadPlayerID,
	})
	r.armPlayingTurn(now)
}

func (r *Room) handlePlayCard(playerID string, c card.Card, now time.Time) error {
	if r.game == nil || r.game.Completed() {
		return fail(codeGameNotActive, "no active game")
	}
	r.rearmTimers(now)
	outcome, err := r.game.PlayCard(playerID, c, now)
	if err != nil {
		return err
	}
	r.afterPlay(outcome, "completed", now)
	return nil
}

func (r *Room) afterPlay(outcome *truco.PlayOutcome, status string, now time.Time) {
	r.clearTurnTimer()
	r.actionSync[outcome.Play.PlayerID] = actionSyncPayload{
		Action:     "play_card",
		Payload:    map[string]any{"card": outcome.Play.Card},
		Status:     status,
		RecordedAt: now,
	}
	r.room.LastActivity = now

	played := cardPlayedPayload{
		PlayerID: outcome.Play.PlayerID,
		Card:     outcome.Play.Card,
	}
	if !outcome.TrickComplete {
		played.NextPlayer = outcome.NextPlayerID
		if leader, winning := r.provisionalLeader(); leader != "" {
			played.CurrentLeader = leader
			played.WinningCard = winning
		}
		r.emit(EventCardPlayed, played)
		r.armPlayingTurn(now)
		return
	}

	trick := outcome.Trick
	played.CurrentLeader = trick.WinnerID
	played.WinningCard = trick.WinningCard
	played.CancelledCards = trick.CancelledCards
	r.emit(EventCardPlayed, played)

	cardsPlayed := make(map[string]card.Card, len(trick.Plays))
	for _, p := range trick.Plays {
		cardsPlayed[p.PlayerID] = p.Card
	}
	r.emit(EventTrickCompleted, trickCompletedPayload{
		TrickNumber:    trick.Number,
		CardsPlayed:    cardsPlayed,
		Winner:         trick.WinnerID,
		WinningCard:    trick.WinningCard,
		CancelledCards: trick.CancelledCards,
		NextTrick:      outcome.MoreTricks,
	})

	if outcome.MoreTricks {
		r.trickResumeAt = now.Add(r.cfg.TrickStartDelay)
		return
	}
	if outcome.RoundComplete {
		r.finalizeRound(now)
	}
}

// provisionalLeader is the currently winning play of the open trick, for
// card_played payloads mid-trick.
func (r *Room) provisionalLeader() (string, *card.Card) {
	round := r.game.CurrentRound()
	if round == nil {
		return "", nil
	}
	trick := round.CurrentTrick()
	if trick == nil || len(trick.Plays) == 0 {
		return "", nil
	}
	outcome := truco.ResolveTrick(trick.Plays, round.ManilhaRank)
	return outcome.WinnerID, outcome.WinningCard
}

func (r *Room) finalizeRound(now time.Time) {
	summary, err := r.game.FinalizeRound()
	if err != nil {
		r.log.Errorf("room %s: finalize round: %v", r.ID, err)
		return
	}

	for _, playerID := range summary.Eliminated {
		p := r.players[playerID]
		if p == nil {
			continue
		}
		p.IsSpectator = true
		p.Lives = 0
		r.room.PlayerIDs = removeID(r.room.PlayerIDs, playerID)
		r.room.SpectatorIDs = append(r.room.SpectatorIDs, playerID)
	}
	for _, id := range r.game.PlayerOrder() {
		if p := r.players[id]; p != nil {
			if seat := r.game.Seat(id); seat != nil {
				p.Lives = seat.Lives
			}
		}
	}
	r.electHost()

	r.emit(EventRoundCompleted, roundCompletedPayload{
		RoundNumber:       summary.RoundNumber,
		Results:           summary.Results,
		EliminatedPlayers: summary.Eliminated,
	})

	switch {
	case summary.ActiveRemaining == 1:
		r.completeGame(truco.ReasonVictory, now)
	case summary.ActiveRemaining == 0:
		r.completeGame(truco.ReasonInsufficientPlayers, now)
	default:
		delay := time.Duration(r.room.HostSettings.RoundTransitionDelayMs) * time.Millisecond
		r.nextRoundAt = now.Add(delay)
	}
}

func (r *Room) beginNextRound(now time.Time) {
	if r.game == nil || r.game.Completed() {
		return
	}
	if r.game.ActiveCount() < truco.MinPlayers {
		r.completeGame(truco.ReasonInsufficientPlayers, now)
		return
	}
	deal, err := r.game.StartNextRound()
	if err != nil {
		r.log.Errorf("room %s: next round: %v", r.ID, err)
		return
	}
	r.announceRound(deal, now)
}

func (r *Room) resumeNextTrick(now time.Time) {
	if r.game == nil || r.game.Completed() {
		return
	}
	trick, err := r.game.OpenNextTrick()
	if err != nil {
		r.log.Errorf("room %s: open trick: %v", r.ID, err)
		return
	}
	r.emit(EventTrickStarted, trickStartedPayload{
		TrickNumber: trick.Number,
		LeadPlayer:  trick.LeadPlayerID,
	})
	r.armPlayingTurn(now)
}

// fireTurnTimeout performs the auto-action for an expired turn. State may
// have advanced between the deadline being armed and the tick observing it,
// so everything is rechecked before acting.
func (r *Room) fireTurnTimeout(now time.Time) {
	playerID := r.turnPlayerID
	phase := r.turnPhase
	r.clearTurnTimer()
	if r.game == nil || r.game.Completed() {
		return
	}
	if r.game.Phase() != phase || r.game.CurrentPlayerID() != playerID {
		return
	}

	switch phase {
	case truco.PhaseBidding:
		outcome, err := r.game.AutoBid()
		if err != nil {
			r.log.Errorf("room %s: auto-bid for %s: %v", r.ID, playerID, err)
			return
		}
		r.emit(EventAutoAction, autoActionPayload{
			PlayerID: playerID,
			Action:   "auto_bid",
			Value:    outcome.Bid,
			Reason:   "timeout",
		})
		r.afterBid(outcome, "auto", now)
	case truco.PhasePlaying:
		outcome, err := r.game.AutoPlay(now)
		if err != nil {
			r.log.Errorf("room %s: auto-play for %s: %v", r.ID, playerID, err)
			return
		}
		r.emit(EventAutoAction, autoActionPayload{
			PlayerID: playerID,
			Action:   "auto_card",
			Value:    outcome.Play.Card,
			Reason:   "timeout",
		})
		r.afterPlay(outcome, "auto", now)
	}
}

// rearmTimers lazily re-establishes deadlines for a game restored from
// snapshot, whose timers are deliberately not persisted.
func (r *Room) rearmTimers(now time.Time) {
	if r.game == nil || r.game.Completed() || r.game.Phase() == truco.PhaseWaiting {
		return
	}
	if r.gameDeadline.IsZero() {
		r.gameDeadline = r.game.StartedAt().Add(time.Duration(r.game.TimeLimitMs()) * time.Millisecond)
		r.nextGameTickAt = now.Add(r.cfg.GameTickInterval)
	}
	if !r.turnDeadline.IsZero() || !r.trickResumeAt.IsZero() || !r.nextRoundAt.IsZero() {
		return
	}
	switch r.game.Phase() {
	case truco.PhaseBidding:
		r.armBiddingTurn(now)
	case truco.PhasePlaying:
		if round := r.game.CurrentRound(); round != nil && round.CurrentTrick() == nil {
			r.trickResumeAt = now.Add(r.cfg.TrickStartDelay)
		} else {
			r.armPlayingTurn(now)
		}
	case truco.PhaseScoring:
		r.nextRoundAt = now.Add(time.Duration(r.room.HostSettings.RoundTransitionDelayMs) * time.Millisecond)
	}
}

// advanceAfterRemoval re-arms the turn for the new current player after the
// turn holder left mid-game.
func (r *Room) advanceAfterRemoval(now time.Time) {
	r.clearTurnTimer()
	switch r.game.Phase() {
	case truco.PhaseBidding:
		r.armBiddingTurn(now)
	case truco.PhasePlaying:
		// Between tricks there is no turn to arm; the resume timer is
		// already pending.
		if round := r.game.CurrentRound(); round != nil && round.CurrentTrick() != nil {
			r.armPlayingTurn(now)
		}
	}
}

// applyAdvance fans out a transition the engine made on its own: a seat
// removal completed the bidding or finished the open trick.
func (r *Room) applyAdvance(adv *truco.Advance, now time.Time) {
	r.clearTurnTimer()
	if adv.BiddingComplete {
		r.emit(EventTrickStarted, trickStartedPayload{
			TrickNumber: adv.FirstTrick.Number,
			LeadPlayer:  adv.FirstTrick.LeadPlayerID,
		})
		r.armPlayingTurn(now)
		return
	}
	if !adv.TrickComplete {
		return
	}
	trick := adv.Trick
	cardsPlayed := make(map[string]card.Card, len(trick.Plays))
	for _, p := range trick.Plays {
		cardsPlayed[p.PlayerID] = p.Card
	}
	r.emit(EventTrickCompleted, trickCompletedPayload{
		TrickNumber:    trick.Number,
		CardsPlayed:    cardsPlayed,
		Winner:         trick.WinnerID,
		WinningCard:    trick.WinningCard,
		CancelledCards: trick.CancelledCards,
		NextTrick:      adv.MoreTricks,
	})
	if adv.MoreTricks {
		r.trickResumeAt = now.Add(r.cfg.TrickStartDelay)
		return
	}
	if adv.RoundComplete {
		r.finalizeRound(now)
	}
}

func (r *Room) emitGameTimer(now time.Time, forced string) {
	remaining := r.game.RemainingMs(now)
	status := forced
	if status == "" {
		switch {
		case remaining == 0:
			status = "expired"
		case remaining <= (5 * time.Minute).Milliseconds():
			status = "warning"
		default:
			status = "running"
		}
	}
	r.emit(EventGameTimerUpdate, gameTimerPayload{RemainingMs: remaining, Status: status})
}

// completeGame ends the active game exactly once: all timers cancelled,
// everyone reseated with fresh lives, room back to waiting.
func (r *Room) completeGame(reason truco.CompletionReason, now time.Time) {
	if r.game == nil {
		return
	}
	completion, first := r.game.Complete(reason, now)
	if !first {
		return
	}
	r.clearTurnTimer()
	r.trickResumeAt = time.Time{}
	r.nextRoundAt = time.Time{}
	r.gameDeadline = time.Time{}
	r.nextGameTickAt = time.Time{}

	// Reseat every game participant, clearing elimination spectator flags.
	for _, standing := range completion.Standings {
		p := r.players[standing.PlayerID]
		if p == nil {
			continue
		}
		if p.IsSpectator {
			p.IsSpectator = false
			r.room.SpectatorIDs = removeID(r.room.SpectatorIDs, p.ID)
			r.room.PlayerIDs = append(r.room.PlayerIDs, p.ID)
		}
		p.Lives = r.room.HostSettings.StartingLives
	}
	r.room.Status = state.RoomWaiting
	r.room.LastActivity = now
	r.electHost()

	remaining := r.game.RemainingMs(now)
	stats := gameStatsPayload{
		RoundsPlayed: completion.Rounds,
		DurationMs:   now.Sub(r.game.StartedAt()).Milliseconds(),
	}

	// Archive the final state before dropping the live engine.
	gs := r.game.Snapshot()
	r.store.PutGame(&gs)
	r.game = nil
	r.actionSync = make(map[string]actionSyncPayload)

	r.emit(EventGameCompleted, gameCompletedPayload{
		Winner:         completion.WinnerID,
		FinalStandings: completion.Standings,
		GameStats:      stats,
		Reason:         completion.Reason,
	})
	r.emit(EventGameTimerUpdate, gameTimerPayload{RemainingMs: remaining, Status: "completed"})
	r.log.Infof("room %s: game completed (%s), winner=%q", r.ID, reason, completion.WinnerID)
}
