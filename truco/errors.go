package truco

// Code is the machine-readable error code surfaced to clients in
// action_error payloads.
type Code string

const (
	CodeInvalidPhase          Code = "invalid_phase"
	CodeInvalidTurn           Code = "invalid_turn"
	CodeInvalidBid            Code = "invalid_bid"
	CodeAlreadyBid            Code = "already_bid"
	CodeLastBidderRestriction Code = "last_bidder_restriction"
	CodeCardNotInHand         Code = "card_not_in_hand"
	CodeCardAlreadyPlayed     Code = "card_already_played"
	CodeInvalidCard           Code = "invalid_card"
	CodeGameNotActive         Code = "game_not_active"
	CodeInvalidRound          Code = "invalid_round"
	CodeInsufficientPlayers   Code = "insufficient_players"
	CodeGameInProgress        Code = "game_in_progress"
)

// Error is a rule violation. It never indicates corrupted state; the game is
// unchanged when one is returned.
type Error struct {
	Code    Code
	Message string

	// Details carries optional machine-readable context, e.g. the valid
	// bid set after a rejected bid.
	Details map[string]any
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// AsError extracts a *Error from err, or wraps it as a generic one.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if te, ok := err.(*Error); ok {
		return te
	}
	return &Error{Code: "internal_error", Message: err.Error()}
}
