package truco

import (
	"time"

	"truco-fdp/card"
)

// Phase is the game lifecycle phase. Transitions:
// waiting -> bidding -> playing -> scoring -> {bidding, completed},
// with bidding -> completed when the table collapses mid-bid.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseBidding   Phase = "bidding"
	PhasePlaying   Phase = "playing"
	PhaseScoring   Phase = "scoring"
	PhaseCompleted Phase = "completed"
)

// CompletionReason records why a game ended.
type CompletionReason string

const (
	ReasonVictory             CompletionReason = "victory"
	ReasonInsufficientPlayers CompletionReason = "insufficient_players"
	ReasonTimeout             CompletionReason = "timeout"
)

// Play is one card placed into a trick.
type Play struct {
	PlayerID string    `json:"playerId"`
	Card     card.Card `json:"card"`
	PlayedAt time.Time `json:"playedAt"`
}

// Trick is one trick of a round. WinnerID is empty when every play
// cancelled out.
type Trick struct {
	Number         int         `json:"number"`
	LeadPlayerID   string      `json:"leadPlayerId"`
	Plays          []Play      `json:"plays"`
	CancelledCards []card.Card `json:"cancelledCards,omitempty"`
	WinnerID       string      `json:"winnerId,omitempty"`
	WinningCard    *card.Card  `json:"winningCard,omitempty"`
	CompletedAt    time.Time   `json:"completedAt,omitempty"`
}

func (t *Trick) hasPlayed(playerID string) bool {
	for _, p := range t.Plays {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

// RoundResult is the scored outcome for one player in one round.
type RoundResult struct {
	Bid            int `json:"bid"`
	Actual         int `json:"actual"`
	LivesLost      int `json:"livesLost"`
	LivesRemaining int `json:"livesRemaining"`
}

// Round is one dealt round: a vira, a hand per active player, a bid per
// active player, then cardCount tricks.
type Round struct {
	Number      int                    `json:"number"`
	CardCount   int                    `json:"cardCount"`
	Vira        card.Card              `json:"vira"`
	ManilhaRank card.Rank              `json:"manilhaRank"`
	Blind       bool                   `json:"blind"`
	Hands       map[string][]card.Card `json:"hands"`
	Bids        map[string]int         `json:"bids"`
	Tricks      []*Trick               `json:"tricks"`
	Results     map[string]RoundResult `json:"results,omitempty"`
}

// CurrentTrick returns the open trick, or nil when none is open.
func (r *Round) CurrentTrick() *Trick {
	if len(r.Tricks) == 0 {
		return nil
	}
	t := r.Tricks[len(r.Tricks)-1]
	if !t.CompletedAt.IsZero() {
		return nil
	}
	return t
}

// Seat is a player participating in a game.
type Seat struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Lives       int    `json:"lives"`
	TricksWon   int    `json:"tricksWon"`
}

// Standing is one row of the final leaderboard.
type Standing struct {
	PlayerID       string `json:"playerId"`
	DisplayName    string `json:"displayName"`
	LivesRemaining int    `json:"livesRemaining"`
}
