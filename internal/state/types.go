package state

import (
	"time"

	"truco-fdp/truco"
)

// RoomStatus is waiting or playing.
type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomPlaying RoomStatus = "playing"
)

// ConnectionStatus tracks whether a player's transport is live.
type ConnectionStatus string

const (
	Connected    ConnectionStatus = "connected"
	Disconnected ConnectionStatus = "disconnected"
)

// HostSettings are the host-tunable knobs of a room.
type HostSettings struct {
	StartingLives          int  `json:"startingLives"`
	TurnTimerSeconds       int  `json:"turnTimerSeconds"`
	AllowSpectatorChat     bool `json:"allowSpectatorChat"`
	RoundTransitionDelayMs int  `json:"roundTransitionDelayMs"`
}

// DefaultHostSettings match a fresh room.
func DefaultHostSettings() HostSettings {
	return HostSettings{
		StartingLives:          truco.DefaultStartingLives,
		TurnTimerSeconds:       20,
		AllowSpectatorChat:     true,
		RoundTransitionDelayMs: 200,
	}
}

// ChatType distinguishes player, spectator and system chat entries.
type ChatType string

const (
	ChatPlayer    ChatType = "player"
	ChatSpectator ChatType = "spectator"
	ChatSystem    ChatType = "system"
)

// ChatMessage is one entry of a room's bounded chat log.
type ChatMessage struct {
	ID          string    `json:"messageId"`
	PlayerID    string    `json:"playerId,omitempty"`
	DisplayName string    `json:"displayName"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Type        ChatType  `json:"type"`
	IsSpectator bool      `json:"isSpectator,omitempty"`
}

// GameSummary is the lightweight view of a room's active game used by room
// listings and room_joined payloads.
type GameSummary struct {
	GameID          string      `json:"gameId"`
	Phase           truco.Phase `json:"phase"`
	Round           int         `json:"round"`
	CurrentPlayerID string      `json:"currentPlayer,omitempty"`
}

// Room is a named, never-destroyed lobby slot.
type Room struct {
	ID           string        `json:"id"`
	DisplayName  string        `json:"displayName"`
	Status       RoomStatus    `json:"status"`
	PlayerIDs    []string      `json:"playerIds"`
	SpectatorIDs []string      `json:"spectatorIds"`
	HostSettings HostSettings  `json:"hostSettings"`
	Chat         []ChatMessage `json:"chat"`
	Game         *GameSummary  `json:"game,omitempty"`
	LastActivity time.Time     `json:"lastActivity"`
}

// Player is a stable participant identity. Hands, bids and trick counts are
// canonical in the game state, not here; this record carries identity,
// connection and room membership.
type Player struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"displayName"`
	TransportID string           `json:"-"`
	RoomID      string           `json:"roomId"`
	Lives       int              `json:"lives"`
	IsHost      bool             `json:"isHost"`
	IsSpectator bool             `json:"isSpectator"`
	Connection  ConnectionStatus `json:"connectionStatus"`
	JoinedAt    time.Time        `json:"joinedAt"`
	LastSeenAt  time.Time        `json:"lastSeenAt"`
}

// Session binds a player to a room across transport drops. ExpiresAt is set
// iff the session is disconnected.
type Session struct {
	ID        string            `json:"id"`
	PlayerID  string            `json:"playerId"`
	RoomID    string            `json:"roomId"`
	Status    ConnectionStatus  `json:"status"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Expired reports whether the session's grace window has lapsed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
