package truco

import (
	"time"

	"truco-fdp/card"
)

// State is a deep, JSON-serializable copy of a game. It is what the
// snapshot file persists and what game_state_update payloads are built
// from (after per-viewer hand redaction).
type State struct {
	ID           string           `json:"id"`
	RoomID       string           `json:"roomId"`
	PlayerOrder  []string         `json:"playerOrder"`
	Seats        map[string]Seat  `json:"seats"`
	CurrentRound int              `json:"currentRound"`
	Phase        Phase            `json:"currentPhase"`
	CurrentTurn  int              `json:"currentPlayerIndex"`
	Rounds       []Round          `json:"rounds"`
	TimeLimitMs  int64            `json:"timeLimitMs"`
	StartedAt    time.Time        `json:"startedAt,omitempty"`
	EndedAt      time.Time        `json:"endedAt,omitempty"`
	Reason       CompletionReason `json:"completionReason,omitempty"`
	WinnerID     string           `json:"winnerId,omitempty"`
	Standings    []Standing       `json:"finalStandings,omitempty"`
}

// Snapshot deep-copies the game state.
func (g *Game) Snapshot() State {
	s := State{
		ID:           g.ID,
		RoomID:       g.RoomID,
		PlayerOrder:  append([]string(nil), g.playerOrder...),
		Seats:        make(map[string]Seat, len(g.seats)),
		CurrentRound: g.currentRound,
		Phase:        g.phase,
		CurrentTurn:  g.currentTurn,
		TimeLimitMs:  g.cfg.TimeLimitMs,
		StartedAt:    g.startedAt,
		EndedAt:      g.endedAt,
		Reason:       g.reason,
		WinnerID:     g.winnerID,
		Standings:    append([]Standing(nil), g.standings...),
	}
	for id, seat := range g.seats {
		s.Seats[id] = *seat
	}
	for _, r := range g.rounds {
		s.Rounds = append(s.Rounds, copyRound(r))
	}
	return s
}

func copyRound(r *Round) Round {
	out := Round{
		Number:      r.Number,
		CardCount:   r.CardCount,
		Vira:        r.Vira,
		ManilhaRank: r.ManilhaRank,
		Blind:       r.Blind,
		Hands:       make(map[string][]card.Card, len(r.Hands)),
		Bids:        copyBids(r.Bids),
	}
	for id, hand := range r.Hands {
		out.Hands[id] = append([]card.Card(nil), hand...)
	}
	for _, t := range r.Tricks {
		tc := *t
		tc.Plays = append([]Play(nil), t.Plays...)
		tc.CancelledCards = append([]card.Card(nil), t.CancelledCards...)
		out.Tricks = append(out.Tricks, &tc)
	}
	if r.Results != nil {
		out.Results = make(map[string]RoundResult, len(r.Results))
		for id, res := range r.Results {
			out.Results[id] = res
		}
	}
	return out
}

// Restore rebuilds a game from a persisted state. Timers are not rearmed
// here; the room rearms them lazily on the next intent.
func Restore(s State, cfg Config) (*Game, error) {
	cfg = cfg.withDefaults()
	cfg.TimeLimitMs = s.TimeLimitMs
	g, err := New(s.ID, s.RoomID, cfg)
	if err != nil {
		return nil, err
	}
	g.playerOrder = append([]string(nil), s.PlayerOrder...)
	for id, seat := range s.Seats {
		sc := seat
		g.seats[id] = &sc
	}
	g.currentRound = s.CurrentRound
	g.phase = s.Phase
	g.currentTurn = s.CurrentTurn
	g.startedAt = s.StartedAt
	g.endedAt = s.EndedAt
	g.reason = s.Reason
	g.winnerID = s.WinnerID
	g.standings = append([]Standing(nil), s.Standings...)
	for i := range s.Rounds {
		rc := copyRound(&s.Rounds[i])
		g.rounds = append(g.rounds, &rc)
	}
	return g, nil
}
