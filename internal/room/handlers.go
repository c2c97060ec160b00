package room

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"truco-fdp/internal/state"
	"truco-fdp/truco"
)

var (
	namePattern = regexp.MustCompile(`^[A-Za-z0-9 ]{3,20}$`)
	htmlTags    = regexp.MustCompile(`<[^>]*>`)
)

// NormalizeName collapses whitespace runs to single spaces and trims.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func (r *Room) handleJoin(intent Intent, now time.Time) IntentResult {
	name := NormalizeName(intent.DisplayName)
	if !namePattern.MatchString(name) {
		return IntentResult{Err: fail(codeInvalidName, "display name must be 3-20 letters, digits or spaces")}
	}
	for _, p := range r.players {
		if strings.EqualFold(p.DisplayName, name) {
			return IntentResult{Err: fail(codeNameTaken, "name already in use in this room")}
		}
	}
	if !intent.Spectator {
		if r.room.Status == state.RoomPlaying {
			return IntentResult{Err: fail(codeRoomInProgress, "game in progress, join as spectator")}
		}
		if len(r.room.PlayerIDs) >= maxSeated {
			return IntentResult{Err: fail(codeRoomFull, "room is full")}
		}
	}

	player := &state.Player{
		ID:          uuid.NewString(),
		DisplayName: name,
		TransportID: intent.TransportID,
		RoomID:      r.ID,
		Lives:       r.room.HostSettings.StartingLives,
		IsSpectator: intent.Spectator,
		Connection:  state.Connected,
		JoinedAt:    now,
		LastSeenAt:  now,
	}
	session := &state.Session{
		ID:        uuid.NewString(),
		PlayerID:  player.ID,
		RoomID:    r.ID,
		Status:    state.Connected,
		CreatedAt: now,
	}
	r.players[player.ID] = player
	r.sessions[session.ID] = session
	if intent.Spectator {
		r.room.SpectatorIDs = append(r.room.SpectatorIDs, player.ID)
	} else {
		r.room.PlayerIDs = append(r.room.PlayerIDs, player.ID)
	}
	r.room.LastActivity = now
	r.electHost()

	r.emitTo(player.ID, EventConnectionStatus, connectionStatusPayload{Status: "connected"})
	r.emitTo(player.ID, EventRoomJoined, r.roomJoined(player, session.ID))
	if intent.Spectator {
		r.emit(EventSpectatorJoined, playerJoinedPayload{Player: r.playerInfo(player)})
		if r.game != nil && !r.game.Completed() {
			r.sendGameState(player.ID, now)
		}
	} else {
		r.emit(EventPlayerJoined, playerJoinedPayload{Player: r.playerInfo(player)})
	}

	r.log.Infof("room %s: %s joined as %s (spectator=%v)", r.ID, name, player.ID, intent.Spectator)
	return IntentResult{Join: &JoinInfo{PlayerID: player.ID, SessionID: session.ID, IsSpectator: intent.Spectator}}
}

func (r *Room) handleReconnect(intent Intent, now time.Time) IntentResult {
	sess := r.sessions[intent.SessionID]
	if sess == nil {
		return IntentResult{Err: fail(codeSessionNotFound, "unknown session")}
	}
	if sess.Expired(now) {
		r.removePlayer(sess.PlayerID, "disconnected", now)
		return IntentResult{Err: fail(codeSessionExpired, "session expired")}
	}
	player := r.players[sess.PlayerID]
	if player == nil {
		delete(r.sessions, sess.ID)
		return IntentResult{Err: fail(codeSessionNotFound, "session has no player")}
	}

	sess.Status = state.Connected
	sess.ExpiresAt = nil
	player.Connection = state.Connected
	player.TransportID = intent.TransportID
	player.LastSeenAt = now
	r.room.LastActivity = now
	r.electHost()
	r.rearmTimers(now)

	r.emitTo(player.ID, EventConnectionStatus, connectionStatusPayload{Status: "reconnected"})
	r.emitTo(player.ID, EventRoomJoined, r.roomJoined(player, sess.ID))
	if r.game != nil && !r.game.Completed() {
		r.sendGameState(player.ID, now)
		if !player.IsSpectator {
			if sync, ok := r.actionSync[player.ID]; ok {
				if now.Sub(sync.RecordedAt) <= actionSyncTTL {
					r.emitTo(player.ID, EventActionSync, sync)
				}
				delete(r.actionSync, player.ID)
			}
			if !r.turnDeadline.IsZero() {
				r.emitTo(player.ID, EventTurnTimerUpdate, r.turnTimerPayload())
			}
		}
	}

	r.log.Infof("room %s: %s reconnected", r.ID, player.DisplayName)
	return IntentResult{Join: &JoinInfo{PlayerID: player.ID, SessionID: sess.ID, IsSpectator: player.IsSpectator}}
}

func (r *Room) handleLeave(playerID string, now time.Time) error {
	if r.players[playerID] == nil {
		return fail(codeSessionNotFound, "not in this room")
	}
	r.emitTo(playerID, EventRoomLeft, nil)
	r.removePlayer(playerID, "left", now)
	return nil
}

func (r *Room) handleDisconnect(playerID string, now time.Time) error {
	player := r.players[playerID]
	if player == nil {
		return nil
	}
	player.Connection = state.Disconnected
	player.TransportID = ""
	player.LastSeenAt = now
	for _, sess := range r.sessions {
		if sess.PlayerID == playerID {
			sess.Status = state.Disconnected
			exp := now.Add(sessionGrace)
			sess.ExpiresAt = &exp
		}
	}
	r.electHost()
	r.log.Infof("room %s: %s disconnected, grace until %s", r.ID, player.DisplayName, now.Add(sessionGrace).Format(time.RFC3339))
	return nil
}

// removePlayer drops a player entirely: seat or spectator slot, session,
// host flag, and their place in any running game.
func (r *Room) removePlayer(playerID, reason string, now time.Time) {
	player := r.players[playerID]
	if player == nil {
		return
	}
	delete(r.players, playerID)
	for id, sess := range r.sessions {
		if sess.PlayerID == playerID {
			delete(r.sessions, id)
			r.store.RemoveSession(id)
		}
	}
	r.store.RemovePlayer(playerID)
	r.room.PlayerIDs = removeID(r.room.PlayerIDs, playerID)
	r.room.SpectatorIDs = removeID(r.room.SpectatorIDs, playerID)
	delete(r.actionSync, playerID)
	delete(r.chatLast, playerID)
	r.room.LastActivity = now
	r.electHost()

	event := EventPlayerLeft
	if player.IsSpectator {
		event = EventSpectatorLeft
	}
	r.emit(event, playerLeftPayload{PlayerID: playerID, DisplayName: player.DisplayName, Reason: reason})

	if r.game != nil && !r.game.Completed() && r.game.RemoveSeat(playerID) {
		if r.game.ActiveCount() <= 1 {
			reason := truco.ReasonInsufficientPlayers
			if r.game.ActiveCount() == 1 {
				reason = truco.ReasonVictory
			}
			r.completeGame(reason, now)
		} else if adv := r.game.AdvanceAfterRemoval(now); adv != nil {
			// The departure left every remaining bid or play in.
			r.applyAdvance(adv, now)
		} else if r.game.CurrentPlayerID() != r.turnPlayerID {
			// The departing player held the turn; hand it on.
			r.advanceAfterRemoval(now)
		}
	}
}

// sweepSessions expires disconnected sessions whose grace has lapsed.
func (r *Room) sweepSessions(now time.Time) {
	var expired []string
	for _, sess := range r.sessions {
		if sess.Expired(now) {
			expired = append(expired, sess.PlayerID)
		}
	}
	for _, playerID := range expired {
		r.log.Infof("room %s: session for %s expired", r.ID, playerID)
		r.removePlayer(playerID, "disconnected", now)
	}
}

// electHost keeps the single-host invariant: earliest-joined connected
// seated player, falling back to the earliest-joined seated player when
// nobody seated is connected.
func (r *Room) electHost() {
	var candidates []*state.Player
	for _, id := range r.room.PlayerIDs {
		if p := r.players[id]; p != nil && !p.IsSpectator {
			candidates = append(candidates, p)
		}
	}
	var host *state.Player
	if len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].JoinedAt.Before(candidates[j].JoinedAt)
		})
		for _, p := range candidates {
			if p.Connection == state.Connected {
				host = p
				break
			}
		}
		if host == nil {
			host = candidates[0]
		}
	}
	for _, p := range r.players {
		p.IsHost = host != nil && p.ID == host.ID
	}
}

func (r *Room) handleChat(playerID, message string, now time.Time) error {
	player := r.players[playerID]
	if player == nil {
		return fail(codeSessionNotFound, "not in this room")
	}
	if player.IsSpectator && !r.room.HostSettings.AllowSpectatorChat {
		return fail(codeSpectatorChatDisabled, "spectator chat is disabled")
	}
	text := NormalizeName(htmlTags.ReplaceAllString(message, ""))
	if text == "" || len(text) > chatMaxLen {
		return fail(codeInvalidMessage, "message must be 1-200 characters")
	}
	if last, ok := r.chatLast[playerID]; ok && now.Sub(last) < chatThrottle {
		return fail(codeInvalidMessage, "sending too fast")
	}
	r.chatLast[playerID] = now

	chatType := state.ChatPlayer
	if player.IsSpectator {
		chatType = state.ChatSpectator
	}
	r.appendChat(state.ChatMessage{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		DisplayName: player.DisplayName,
		Message:     text,
		Timestamp:   now,
		Type:        chatType,
		IsSpectator: player.IsSpectator,
	})
	r.emitTo(playerID, EventChatAck, chatAckPayload{Status: "sent"})
	return nil
}

func (r *Room) appendChat(msg state.ChatMessage) {
	r.room.Chat = append(r.room.Chat, msg)
	if overflow := len(r.room.Chat) - chatLogMax; overflow > 0 {
		r.room.Chat = append([]state.ChatMessage(nil), r.room.Chat[overflow:]...)
	}
	r.emit(EventChatMessage, msg)
}

func (r *Room) handleHostSettings(playerID string, patch SettingsPatch, now time.Time) error {
	player := r.players[playerID]
	if player == nil || !player.IsHost {
		return fail(codeNotHost, "only the host can change settings")
	}
	if r.room.Status != state.RoomWaiting {
		return fail(codeGameInProgress, "settings are locked during a game")
	}

	settings := r.room.HostSettings
	spectatorToggled := false
	if patch.StartingLives != nil {
		lives := clamp(*patch.StartingLives, 1, 10)
		settings.StartingLives = lives
	}
	if patch.TurnTimerSeconds != nil {
		settings.TurnTimerSeconds = clamp(*patch.TurnTimerSeconds, minTurnSeconds, maxTurnSeconds)
	}
	if patch.AllowSpectatorChat != nil && *patch.AllowSpectatorChat != settings.AllowSpectatorChat {
		settings.AllowSpectatorChat = *patch.AllowSpectatorChat
		spectatorToggled = true
	}
	r.room.HostSettings = settings
	r.room.LastActivity = now

	r.emit(EventHostSettingsUpdated, hostSettingsPayload{RoomID: r.ID, HostSettings: settings})
	if spectatorToggled {
		status := "disabled"
		if settings.AllowSpectatorChat {
			status = "enabled"
		}
		r.appendChat(state.ChatMessage{
			ID:          uuid.NewString(),
			DisplayName: "system",
			Message:     player.DisplayName + " " + status + " spectator chat",
			Timestamp:   now,
			Type:        state.ChatSystem,
		})
	}
	return nil
}

func (r *Room) playerInfo(p *state.Player) playerInfo {
	info := playerInfo{
		PlayerID:    p.ID,
		DisplayName: p.DisplayName,
		Lives:       p.Lives,
		IsHost:      p.IsHost,
		IsSpectator: p.IsSpectator,
		Connection:  p.Connection,
	}
	if r.game != nil {
		if seat := r.game.Seat(p.ID); seat != nil {
			info.Lives = seat.Lives
		}
	}
	return info
}

func (r *Room) roomJoined(player *state.Player, sessionID string) roomJoinedPayload {
	payload := roomJoinedPayload{
		RoomID:       r.ID,
		PlayerID:     player.ID,
		IsHost:       player.IsHost,
		IsSpectator:  player.IsSpectator,
		HostSettings: r.room.HostSettings,
		ChatMessages: append([]state.ChatMessage(nil), r.room.Chat...),
		SessionID:    sessionID,
		Game:         r.room.Game,
	}
	for _, id := range r.room.PlayerIDs {
		if p := r.players[id]; p != nil {
			payload.CurrentPlayers = append(payload.CurrentPlayers, r.playerInfo(p))
		}
	}
	for _, id := range r.room.SpectatorIDs {
		if p := r.players[id]; p != nil {
			payload.Spectators = append(payload.Spectators, r.playerInfo(p))
		}
	}
	return payload
}

func removeID(list []string, id string) []string {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
