package room

import "errors"

var (
	errRoomClosed    = errors.New("room closed")
	errUnknownIntent = errors.New("unknown intent")
)

// Error is a recoverable, client-visible failure with a machine-readable
// code. The gateway maps these onto action_error / join_error payloads.
type Error struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func fail(code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

const (
	codeRoomNotFound          = "room_not_found"
	codeRoomFull              = "room_full"
	codeRoomInProgress        = "room_in_progress"
	codeInvalidName           = "invalid_name"
	codeNameTaken             = "name_taken"
	codeInvalidMessage        = "invalid_message"
	codeNotHost               = "not_host"
	codeNotPlayersTurn        = "not_players_turn"
	codeSpectatorChatDisabled = "spectator_chat_disabled"
	codeSessionNotFound       = "session_not_found"
	codeSessionExpired        = "session_expired"
	codeGameNotActive         = "game_not_active"
	codeGameInProgress        = "game_in_progress"
	codeInsufficientPlayers   = "insufficient_players"
)
