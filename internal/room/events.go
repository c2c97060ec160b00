package room

import (
	"time"

	"truco-fdp/card"
	"truco-fdp/internal/state"
	"truco-fdp/truco"
)

// EventType names a server-to-client event.
type EventType string

const (
	EventConnectionStatus    EventType = "connection_status"
	EventRoomJoined          EventType = "room_joined"
	EventRoomLeft            EventType = "room_left"
	EventPlayerJoined        EventType = "player_joined"
	EventSpectatorJoined     EventType = "spectator_joined"
	EventPlayerLeft          EventType = "player_left"
	EventSpectatorLeft       EventType = "spectator_left"
	EventGameStarted         EventType = "game_started"
	EventRoundStarted        EventType = "round_started"
	EventCardsDealt          EventType = "cards_dealt"
	EventBiddingTurn         EventType = "bidding_turn"
	EventBidSubmitted        EventType = "bid_submitted"
	EventTrickStarted        EventType = "trick_started"
	EventCardPlayed          EventType = "card_played"
	EventTrickCompleted      EventType = "trick_completed"
	EventRoundCompleted      EventType = "round_completed"
	EventGameCompleted       EventType = "game_completed"
	EventTurnTimerUpdate     EventType = "turn_timer_update"
	EventGameTimerUpdate     EventType = "game_timer_update"
	EventAutoAction          EventType = "auto_action"
	EventGameStateUpdate     EventType = "game_state_update"
	EventActionSync          EventType = "action_sync"
	EventActionError         EventType = "action_error"
	EventJoinError           EventType = "join_error"
	EventChatMessage         EventType = "chat_message_received"
	EventChatAck             EventType = "chat_ack"
	EventHostSettingsUpdated EventType = "host_settings_updated"
)

// Envelope wraps every server-to-client message. Seq increases in emission
// order within a room, so clients can detect gaps after a reconnect.
type Envelope struct {
	Type    EventType `json:"type"`
	RoomID  string    `json:"roomId,omitempty"`
	Seq     uint64    `json:"seq"`
	Ts      int64     `json:"ts"`
	Payload any       `json:"payload,omitempty"`
}

// CardView is a card as shown to a specific viewer. During the blind round
// a player's own cards are hidden while everyone else's are visible.
type CardView struct {
	Hidden bool       `json:"hidden,omitempty"`
	Rank   *card.Rank `json:"rank,omitempty"`
	Suit   *card.Suit `json:"suit,omitempty"`
}

func visibleCard(c card.Card) CardView {
	r, s := c.Rank, c.Suit
	return CardView{Rank: &r, Suit: &s}
}

func hiddenCard() CardView {
	return CardView{Hidden: true}
}

// VisibleCard is another player's card shown during the blind round.
type VisibleCard struct {
	OwnerID          string    `json:"ownerId"`
	OwnerDisplayName string    `json:"ownerDisplayName"`
	Card             card.Card `json:"card"`
}

type connectionStatusPayload struct {
	Status string `json:"status"` // connected | reconnected
}

type playerInfo struct {
	PlayerID    string                 `json:"playerId"`
	DisplayName string                 `json:"displayName"`
	Lives       int                    `json:"lives"`
	IsHost      bool                   `json:"isHost"`
	IsSpectator bool                   `json:"isSpectator"`
	Connection  state.ConnectionStatus `json:"connectionStatus"`
}

type roomJoinedPayload struct {
	RoomID         string              `json:"roomId"`
	PlayerID       string              `json:"playerId"`
	IsHost         bool                `json:"isHost"`
	IsSpectator    bool                `json:"isSpectator"`
	CurrentPlayers []playerInfo        `json:"currentPlayers"`
	Spectators     []playerInfo        `json:"spectators"`
	HostSettings   state.HostSettings  `json:"hostSettings"`
	ChatMessages   []state.ChatMessage `json:"chatMessages"`
	SessionID      string              `json:"sessionId"`
	Game           *state.GameSummary  `json:"gameState,omitempty"`
}

type playerJoinedPayload struct {
	Player playerInfo `json:"player"`
}

type playerLeftPayload struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Reason      string `json:"reason"` // left | disconnected | eliminated
}

type gameStartedPayload struct {
	GameID       string             `json:"gameId"`
	PlayerOrder  []string           `json:"playerOrder"`
	HostSettings state.HostSettings `json:"hostSettings"`
}

type roundStartedPayload struct {
	RoundNumber  int       `json:"roundNumber"`
	CardCount    int       `json:"cardCount"`
	ViraCard     card.Card `json:"viraCard"`
	ManilhaRank  card.Rank `json:"manilhaRank"`
	IsBlindRound bool      `json:"isBlindRound"`
}

type cardsDealtPayload struct {
	RoundNumber  int           `json:"roundNumber"`
	Hand         []CardView    `json:"hand"`
	VisibleCards []VisibleCard `json:"visibleCards,omitempty"`
}

type biddingTurnPayload struct {
	CurrentPlayer string         `json:"currentPlayer"`
	ValidBids     []int          `json:"validBids"`
	RestrictedBid *int           `json:"restrictedBid,omitempty"`
	IsLastBidder  bool           `json:"isLastBidder"`
	Deadline      int64          `json:"deadline"`
	TimeLeftMs    int64          `json:"timeLeft"`
	Metadata      biddingContext `json:"metadata"`
}

type biddingContext struct {
	RoundNumber  int  `json:"roundNumber"`
	CardCount    int  `json:"cardCount"`
	IsBlindRound bool `json:"isBlindRound"`
}

type bidSubmittedPayload struct {
	PlayerID string         `json:"playerId"`
	Bid      int            `json:"bid"`
	AllBids  map[string]int `json:"allBids,omitempty"`
}

type trickStartedPayload struct {
	TrickNumber int    `json:"trickNumber"`
	LeadPlayer  string `json:"leadPlayer"`
}

type cardPlayedPayload struct {
	PlayerID       string      `json:"playerId"`
	Card           card.Card   `json:"card"`
	NextPlayer     string      `json:"nextPlayer,omitempty"`
	CurrentLeader  string      `json:"currentLeader,omitempty"`
	WinningCard    *card.Card  `json:"winningCard,omitempty"`
	CancelledCards []card.Card `json:"cancelledCards,omitempty"`
}

type trickCompletedPayload struct {
	TrickNumber    int                  `json:"trickNumber"`
	CardsPlayed    map[string]card.Card `json:"cardsPlayed"`
	Winner         string               `json:"winner,omitempty"`
	WinningCard    *card.Card           `json:"winningCard,omitempty"`
	CancelledCards []card.Card          `json:"cancelledCards"`
	NextTrick      bool                 `json:"nextTrick"`
}

type roundCompletedPayload struct {
	RoundNumber       int                          `json:"roundNumber"`
	Results           map[string]truco.RoundResult `json:"results"`
	EliminatedPlayers []string                     `json:"eliminatedPlayers"`
}

type gameStatsPayload struct {
	RoundsPlayed int   `json:"roundsPlayed"`
	DurationMs   int64 `json:"durationMs"`
}

type gameCompletedPayload struct {
	Winner         string                 `json:"winner,omitempty"`
	FinalStandings []truco.Standing       `json:"finalStandings"`
	GameStats      gameStatsPayload       `json:"gameStats"`
	Reason         truco.CompletionReason `json:"reason"`
}

type turnTimerPayload struct {
	RoomID     string      `json:"roomId"`
	GameID     string      `json:"gameId"`
	PlayerID   string      `json:"playerId"`
	Phase      truco.Phase `json:"phase"`
	Deadline   int64       `json:"deadline"`
	DurationMs int64       `json:"duration"`
}

type gameTimerPayload struct {
	RemainingMs int64  `json:"remainingMs"`
	Status      string `json:"status"` // running | warning | expired | completed
}

type autoActionPayload struct {
	PlayerID string `json:"playerId"`
	Action   string `json:"action"` // auto_bid | auto_card
	Value    any    `json:"value"`
	Reason   string `json:"reason"` // timeout
}

type gameStateUpdatePayload struct {
	GameState      redactedState `json:"gameState"`
	YourPlayerID   string        `json:"yourPlayerId"`
	LastUpdateTime int64         `json:"lastUpdateTime"`
}

type actionSyncPayload struct {
	Action     string    `json:"action"`
	Payload    any       `json:"payload"`
	Metadata   any       `json:"metadata,omitempty"`
	Status     string    `json:"status"` // completed | auto
	RecordedAt time.Time `json:"recordedAt"`
}

type ActionErrorPayload struct {
	Action  string         `json:"action"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type JoinErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type hostSettingsPayload struct {
	RoomID       string             `json:"roomId"`
	HostSettings state.HostSettings `json:"hostSettings"`
}

type chatAckPayload struct {
	Status string `json:"status"`
}
