package gateway

import (
	"encoding/json"
	"errors"

	"truco-fdp/card"
	"truco-fdp/internal/room"
	"truco-fdp/truco"
)

// ClientEnvelope is the client-to-server message frame.
type ClientEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinRoomRequest struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
	IsSpectator bool   `json:"isSpectator"`
}

type submitBidRequest struct {
	Bid *int `json:"bid"`
}

type playCardRequest struct {
	Card *card.Card `json:"card"`
}

type chatRequest struct {
	Message string `json:"message"`
}

func (c *Connection) handleMessage(data []byte) {
	var env ClientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.sendActionError("", "invalid_message", "malformed message envelope", nil)
		return
	}

	switch env.Type {
	case "join_room":
		c.handleJoinRoom(env.Payload)
	case "leave_room":
		c.handleLeaveRoom()
	case "start_game":
		c.submit(env.Type, room.Intent{Type: room.IntentStartGame})
	case "submit_bid":
		c.handleSubmitBid(env.Payload)
	case "play_card":
		c.handlePlayCard(env.Payload)
	case "chat_message":
		c.handleChat(env.Payload)
	case "update_host_settings":
		c.handleHostSettings(env.Payload)
	default:
		c.sendActionError(env.Type, "invalid_message", "unknown message type", nil)
	}
}

func (c *Connection) handleJoinRoom(payload json.RawMessage) {
	var req joinRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendJoinError("invalid_message", "malformed join_room payload")
		return
	}
	if rm, _ := c.binding(); rm != nil {
		c.sendJoinError("invalid_message", "already in a room")
		return
	}
	rm := c.Gateway.lobby.Room(req.RoomID)
	if rm == nil {
		c.sendJoinError("room_not_found", "no such room")
		return
	}
	res := rm.Submit(room.Intent{
		Type:        room.IntentJoin,
		TransportID: c.ID,
		DisplayName: req.DisplayName,
		Spectator:   req.IsSpectator,
	})
	if res.Err != nil {
		code, msg, _ := errorParts(res.Err)
		c.sendJoinError(code, msg)
		return
	}
	if res.Join != nil {
		c.bind(rm, res.Join.PlayerID, res.Join.SessionID)
	}
}

// reconnect resumes a session named in the upgrade request's sessionId query
// parameter. Failures surface as join_error so the client falls back to a
// fresh join.
func (c *Connection) reconnect(sessionID string) {
	rm, sess := c.Gateway.lobby.FindSession(sessionID)
	if rm == nil || sess == nil {
		c.sendJoinError("session_not_found", "unknown session")
		return
	}
	res := rm.Submit(room.Intent{
		Type:        room.IntentReconnect,
		SessionID:   sessionID,
		TransportID: c.ID,
	})
	if res.Err != nil {
		code, msg, _ := errorParts(res.Err)
		c.sendJoinError(code, msg)
		return
	}
	if res.Join != nil {
		c.bind(rm, res.Join.PlayerID, res.Join.SessionID)
	}
}

func (c *Connection) handleLeaveRoom() {
	rm, playerID := c.binding()
	if rm == nil {
		return
	}
	rm.Submit(room.Intent{Type: room.IntentLeave, PlayerID: playerID})
	c.unbind()
}

func (c *Connection) handleSubmitBid(payload json.RawMessage) {
	var req submitBidRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.Bid == nil {
		c.sendActionError("submit_bid", "invalid_integer", "bid must be an integer", nil)
		return
	}
	c.submit("submit_bid", room.Intent{Type: room.IntentSubmitBid, Bid: *req.Bid})
}

func (c *Connection) handlePlayCard(payload json.RawMessage) {
	var req playCardRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.Card == nil {
		c.sendActionError("play_card", "invalid_card", "card must name a rank and suit", nil)
		return
	}
	c.submit("play_card", room.Intent{Type: room.IntentPlayCard, Card: *req.Card})
}

func (c *Connection) handleChat(payload json.RawMessage) {
	var req chatRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendActionError("chat_message", "invalid_message", "malformed chat payload", nil)
		return
	}
	c.submit("chat_message", room.Intent{Type: room.IntentChat, Message: req.Message})
}

func (c *Connection) handleHostSettings(payload json.RawMessage) {
	var patch room.SettingsPatch
	if err := json.Unmarshal(payload, &patch); err != nil {
		c.sendActionError("update_host_settings", "invalid_message", "malformed settings payload", nil)
		return
	}
	c.submit("update_host_settings", room.Intent{Type: room.IntentHostSettings, Settings: patch})
}

// submit routes an in-room intent, filling in the connection's player
// identity, and maps any failure to action_error.
func (c *Connection) submit(action string, intent room.Intent) {
	rm, playerID := c.binding()
	if rm == nil {
		c.sendActionError(action, "room_not_found", "not in a room", nil)
		return
	}
	intent.PlayerID = playerID
	if res := rm.Submit(intent); res.Err != nil {
		code, msg, details := errorParts(res.Err)
		c.sendActionError(action, code, msg, details)
	}
}

func errorParts(err error) (code, msg string, details map[string]any) {
	var re *room.Error
	if errors.As(err, &re) {
		return re.Code, re.Message, re.Details
	}
	var te *truco.Error
	if errors.As(err, &te) {
		return string(te.Code), te.Message, te.Details
	}
	return "internal_error", err.Error(), nil
}

func (c *Connection) sendActionError(action, code, msg string, details map[string]any) {
	c.sendEvent(room.EventActionError, room.ActionErrorPayload{
		Action:  action,
		Error:   code,
		Message: msg,
		Details: details,
	})
}

func (c *Connection) sendJoinError(code, msg string) {
	c.sendEvent(room.EventJoinError, room.JoinErrorPayload{
		Error:   code,
		Message: msg,
	})
}
