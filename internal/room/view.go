package room

import (
	"time"

	"truco-fdp/card"
	"truco-fdp/truco"
)

// cardsDealt builds the one private card payload in the protocol. In the
// blind round the recipient's own hand is hidden and everyone else's actual
// cards ride along in visibleCards; in every other round the recipient sees
// only their own cards.
func (r *Room) cardsDealt(playerID string, deal *truco.DealInfo) cardsDealtPayload {
	payload := cardsDealtPayload{RoundNumber: deal.RoundNumber}
	own := deal.Hands[playerID]
	if deal.Blind {
		for range own {
			payload.Hand = append(payload.Hand, hiddenCard())
		}
		for ownerID, hand := range deal.Hands {
			if ownerID == playerID {
				continue
			}
			ownerName := ownerID
			if p := r.players[ownerID]; p != nil {
				ownerName = p.DisplayName
			}
			for _, c := range hand {
				payload.VisibleCards = append(payload.VisibleCards, VisibleCard{
					OwnerID:          ownerID,
					OwnerDisplayName: ownerName,
					Card:             c,
				})
			}
		}
		return payload
	}
	for _, c := range own {
		payload.Hand = append(payload.Hand, visibleCard(c))
	}
	return payload
}

// redactedState is a per-viewer copy of the game state with hands filtered
// by the same visibility rule as cards_dealt.
type redactedState struct {
	ID            string                 `json:"id"`
	RoomID        string                 `json:"roomId"`
	PlayerOrder   []string               `json:"playerOrder"`
	Seats         map[string]truco.Seat  `json:"seats"`
	CurrentRound  int                    `json:"currentRound"`
	Phase         truco.Phase            `json:"currentPhase"`
	CurrentTurn   int                    `json:"currentPlayerIndex"`
	CurrentPlayer string                 `json:"currentPlayer,omitempty"`
	Rounds        []redactedRound        `json:"rounds"`
	TimeLimitMs   int64                  `json:"timeLimitMs"`
	StartedAt     time.Time              `json:"startedAt,omitempty"`
	Reason        truco.CompletionReason `json:"completionReason,omitempty"`
	WinnerID      string                 `json:"winnerId,omitempty"`
}

type redactedRound struct {
	Number      int                          `json:"number"`
	CardCount   int                          `json:"cardCount"`
	Vira        card.Card                    `json:"vira"`
	ManilhaRank card.Rank                    `json:"manilhaRank"`
	Blind       bool                         `json:"blind"`
	Hands       map[string][]CardView        `json:"hands"`
	Bids        map[string]int               `json:"bids"`
	Tricks      []*truco.Trick               `json:"tricks"`
	Results     map[string]truco.RoundResult `json:"results,omitempty"`
}

func redactRound(rd truco.Round, viewerID string) redactedRound {
	out := redactedRound{
		Number:      rd.Number,
		CardCount:   rd.CardCount,
		Vira:        rd.Vira,
		ManilhaRank: rd.ManilhaRank,
		Blind:       rd.Blind,
		Hands:       make(map[string][]CardView, len(rd.Hands)),
		Bids:        rd.Bids,
		Tricks:      rd.Tricks,
		Results:     rd.Results,
	}
	for ownerID, hand := range rd.Hands {
		views := make([]CardView, 0, len(hand))
		for _, c := range hand {
			visible := ownerID == viewerID
			if rd.Blind {
				visible = !visible
			}
			if visible {
				views = append(views, visibleCard(c))
			} else {
				views = append(views, hiddenCard())
			}
		}
		out.Hands[ownerID] = views
	}
	return out
}

// sendGameState delivers a full private snapshot to one player, with every
// hand filtered for that viewer.
func (r *Room) sendGameState(playerID string, now time.Time) {
	if r.game == nil {
		return
	}
	gs := r.game.Snapshot()
	view := redactedState{
		ID:            gs.ID,
		RoomID:        gs.RoomID,
		PlayerOrder:   gs.PlayerOrder,
		Seats:         gs.Seats,
		CurrentRound:  gs.CurrentRound,
		Phase:         gs.Phase,
		CurrentTurn:   gs.CurrentTurn,
		CurrentPlayer: r.game.CurrentPlayerID(),
		TimeLimitMs:   gs.TimeLimitMs,
		StartedAt:     gs.StartedAt,
		Reason:        gs.Reason,
		WinnerID:      gs.WinnerID,
	}
	for _, rd := range gs.Rounds {
		view.Rounds = append(view.Rounds, redactRound(rd, playerID))
	}
	r.emitTo(playerID, EventGameStateUpdate, gameStateUpdatePayload{
		GameState:      view,
		YourPlayerID:   playerID,
		LastUpdateTime: now.UnixMilli(),
	})
}
