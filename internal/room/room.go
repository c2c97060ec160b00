package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/decred/slog"

	"truco-fdp/card"
	"truco-fdp/internal/state"
	"truco-fdp/truco"
)

// SendFunc delivers an encoded envelope to one transport (connection) id.
// Implemented by the gateway; an unknown or closed transport is a no-op.
// Routing by transport rather than player id lets join responses reach a
// connection that has no player identity yet.
type SendFunc func(transportID string, data []byte)

const (
	tickInterval  = 250 * time.Millisecond
	sessionGrace  = 5 * time.Minute
	actionSyncTTL = 60 * time.Second

	chatThrottle   = 750 * time.Millisecond
	chatMaxLen     = 200
	chatLogMax     = 100
	maxSeated      = 10
	minTurnSeconds = 5
	maxTurnSeconds = 30
)

// Config is per-process room tuning. Zero values take production defaults;
// tests override the delays to keep scenarios fast.
type Config struct {
	TrickStartDelay  time.Duration // delay before the next trick opens
	GameTickInterval time.Duration // cadence of game_timer_update
	TimeLimitMs      int64         // whole-game limit handed to new games
}

func (c Config) withDefaults() Config {
	if c.TrickStartDelay == 0 {
		c.TrickStartDelay = 10 * time.Second
	}
	if c.GameTickInterval == 0 {
		c.GameTickInterval = time.Minute
	}
	if c.TimeLimitMs == 0 {
		c.TimeLimitMs = truco.DefaultTimeLimitMs
	}
	return c
}

// Room is the per-room actor. All room, player, session and game mutation
// happens inside its run loop; the gateway talks to it only via Submit.
type Room struct {
	ID  string
	log slog.Logger
	cfg Config

	store *state.Store
	send  SendFunc

	intents  chan Intent
	done     chan struct{}
	stopOnce sync.Once

	closedMu sync.RWMutex
	closed   bool

	// Actor-owned working state. Only run() touches anything below.
	room     *state.Room
	players  map[string]*state.Player
	sessions map[string]*state.Session
	game     *truco.Game
	seq      uint64

	turnPlayerID   string
	turnPhase      truco.Phase
	turnDeadline   time.Time
	turnDuration   time.Duration
	trickResumeAt  time.Time
	nextRoundAt    time.Time
	gameDeadline   time.Time
	nextGameTickAt time.Time

	actionSync map[string]actionSyncPayload
	chatLast   map[string]time.Time
}

// New builds the actor for an existing room record and rehydrates any
// players, sessions and active game the store holds for it (snapshot
// restore). The actor goroutine starts immediately.
func New(roomRec *state.Room, store *state.Store, cfg Config, send SendFunc, log slog.Logger) *Room {
	r := newRoom(roomRec, store, cfg, send, log)
	go r.run()
	return r
}

// newRoom builds and hydrates the actor without starting its goroutine.
// Tests drive handle and tick directly for deterministic timing.
func newRoom(roomRec *state.Room, store *state.Store, cfg Config, send SendFunc, log slog.Logger) *Room {
	r := &Room{
		ID:         roomRec.ID,
		log:        log,
		cfg:        cfg.withDefaults(),
		store:      store,
		send:       send,
		intents:    make(chan Intent, 256),
		done:       make(chan struct{}),
		room:       cloneRoom(roomRec),
		players:    make(map[string]*state.Player),
		sessions:   make(map[string]*state.Session),
		actionSync: make(map[string]actionSyncPayload),
		chatLast:   make(map[string]time.Time),
	}
	r.hydrate()
	return r
}

// hydrate pulls this room's entities out of the store after a restart.
// Transports never survive a restart, so every session restarts its grace
// window and every player begins disconnected.
func (r *Room) hydrate() {
	now := time.Now()
	for _, sess := range r.store.Sessions() {
		if sess.RoomID != r.ID {
			continue
		}
		s := *sess
		s.Status = state.Disconnected
		if s.ExpiresAt == nil {
			exp := now.Add(sessionGrace)
			s.ExpiresAt = &exp
		}
		r.sessions[s.ID] = &s
		if p := r.store.Player(s.PlayerID); p != nil {
			pc := *p
			pc.Connection = state.Disconnected
			pc.TransportID = ""
			r.players[pc.ID] = &pc
		}
	}
	if r.room.Game != nil {
		if gs := r.store.Game(r.room.Game.GameID); gs != nil && gs.Phase != truco.PhaseCompleted {
			g, err := truco.Restore(*gs, truco.Config{StartingLives: r.room.HostSettings.StartingLives})
			if err != nil {
				r.log.Errorf("room %s: restore game %s: %v", r.ID, gs.ID, err)
			} else {
				// Timers stay unarmed until the first intent touches
				// the game; rearmTimers handles that lazily.
				r.game = g
			}
		}
	}
	r.commit()
}

func (r *Room) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case intent := <-r.intents:
			res := r.handle(intent)
			if intent.resp != nil {
				intent.resp <- res
			}
			r.commit()
		case <-ticker.C:
			r.tick(time.Now())
			r.commit()
		case <-r.done:
			r.log.Debugf("room %s: actor stopped", r.ID)
			return
		}
	}
}

// Submit queues an intent and waits for the actor to process it.
func (r *Room) Submit(intent Intent) IntentResult {
	intent.resp = make(chan IntentResult, 1)
	r.closedMu.RLock()
	closed := r.closed
	r.closedMu.RUnlock()
	if closed {
		return IntentResult{Err: errRoomClosed}
	}
	select {
	case r.intents <- intent:
	case <-r.done:
		return IntentResult{Err: errRoomClosed}
	}
	select {
	case res := <-intent.resp:
		return res
	case <-r.done:
		return IntentResult{Err: errRoomClosed}
	}
}

// Stop shuts the actor down.
func (r *Room) Stop() {
	r.closedMu.Lock()
	r.closed = true
	r.closedMu.Unlock()
	r.stopOnce.Do(func() { close(r.done) })
}

// tick drives every deadline: turn timers, the trick-start delay, round
// transitions, session expiry and the game clock.
func (r *Room) tick(now time.Time) {
	r.sweepSessions(now)
	if r.game == nil || r.game.Completed() {
		return
	}
	if !r.turnDeadline.IsZero() && !now.Before(r.turnDeadline) {
		r.fireTurnTimeout(now)
	}
	if !r.trickResumeAt.IsZero() && !now.Before(r.trickResumeAt) {
		r.trickResumeAt = time.Time{}
		r.resumeNextTrick(now)
	}
	if !r.nextRoundAt.IsZero() && !now.Before(r.nextRoundAt) {
		r.nextRoundAt = time.Time{}
		r.beginNextRound(now)
	}
	if !r.nextGameTickAt.IsZero() && !now.Before(r.nextGameTickAt) {
		r.nextGameTickAt = now.Add(r.cfg.GameTickInterval)
		r.emitGameTimer(now, "")
	}
	if !r.gameDeadline.IsZero() && !now.Before(r.gameDeadline) {
		r.completeGame(truco.ReasonTimeout, now)
	}
}

// commit publishes deep copies of the working state to the store so the
// snapshot writer and HTTP readers never observe a half-applied mutation.
func (r *Room) commit() {
	r.syncGameSummary()
	r.store.PutRoom(cloneRoom(r.room))
	for _, p := range r.players {
		pc := *p
		r.store.PutPlayer(&pc)
	}
	for _, s := range r.sessions {
		sc := *s
		if s.ExpiresAt != nil {
			exp := *s.ExpiresAt
			sc.ExpiresAt = &exp
		}
		r.store.PutSession(&sc)
	}
	if r.game != nil {
		gs := r.game.Snapshot()
		r.store.PutGame(&gs)
	}
}

func (r *Room) syncGameSummary() {
	if r.game == nil {
		r.room.Game = nil
		return
	}
	r.room.Game = &state.GameSummary{
		GameID:          r.game.ID,
		Phase:           r.game.Phase(),
		Round:           r.game.CurrentRoundNumber(),
		CurrentPlayerID: r.game.CurrentPlayerID(),
	}
}

// emit broadcasts an event to every connected member of the room.
func (r *Room) emit(t EventType, payload any) {
	data := r.encode(t, payload)
	if data == nil {
		return
	}
	for _, p := range r.players {
		if p.Connection == state.Connected && p.TransportID != "" {
			r.send(p.TransportID, data)
		}
	}
}

// emitTo sends a private event to one player's transport.
func (r *Room) emitTo(playerID string, t EventType, payload any) {
	p := r.players[playerID]
	if p == nil || p.TransportID == "" {
		return
	}
	data := r.encode(t, payload)
	if data == nil {
		return
	}
	r.send(p.TransportID, data)
}

func (r *Room) encode(t EventType, payload any) []byte {
	r.seq++
	env := Envelope{
		Type:    t,
		RoomID:  r.ID,
		Seq:     r.seq,
		Ts:      time.Now().UnixMilli(),
		Payload: payload,
	}
	data, err := json.Marshal(&env)
	if err != nil {
		r.log.Errorf("room %s: encode %s: %v", r.ID, t, err)
		return nil
	}
	return data
}

func cloneRoom(in *state.Room) *state.Room {
	out := *in
	out.PlayerIDs = append([]string(nil), in.PlayerIDs...)
	out.SpectatorIDs = append([]string(nil), in.SpectatorIDs...)
	out.Chat = append([]state.ChatMessage(nil), in.Chat...)
	if in.Game != nil {
		g := *in.Game
		out.Game = &g
	}
	return &out
}

// Intent is a validated client action routed to the actor.
type Intent struct {
	Type        IntentType
	PlayerID    string
	SessionID   string
	TransportID string
	DisplayName string
	Spectator   bool
	Bid         int
	Card        card.Card
	Message     string
	Settings    SettingsPatch

	resp chan IntentResult
}

// IntentType enumerates the actor's inbox.
type IntentType int

const (
	IntentJoin IntentType = iota
	IntentReconnect
	IntentLeave
	IntentDisconnect
	IntentStartGame
	IntentSubmitBid
	IntentPlayCard
	IntentChat
	IntentHostSettings
)

// SettingsPatch is a partial update_host_settings payload; nil fields are
// left unchanged.
type SettingsPatch struct {
	AllowSpectatorChat *bool `json:"allowSpectatorChat,omitempty"`
	TurnTimerSeconds   *int  `json:"turnTimer,omitempty"`
	StartingLives      *int  `json:"startingLives,omitempty"`
}

// JoinInfo is returned to the gateway so it can bind the connection to the
// new player identity.
type JoinInfo struct {
	PlayerID    string
	SessionID   string
	IsSpectator bool
}

// IntentResult is the actor's reply.
type IntentResult struct {
	Err  error
	Join *JoinInfo
}

func (r *Room) handle(intent Intent) IntentResult {
	now := time.Now()
	switch intent.Type {
	case IntentJoin:
		return r.handleJoin(intent, now)
	case IntentReconnect:
		return r.handleReconnect(intent, now)
	case IntentLeave:
		return IntentResult{Err: r.handleLeave(intent.PlayerID, now)}
	case IntentDisconnect:
		return IntentResult{Err: r.handleDisconnect(intent.PlayerID, now)}
	case IntentStartGame:
		return IntentResult{Err: r.handleStartGame(intent.PlayerID, now)}
	case IntentSubmitBid:
		return IntentResult{Err: r.handleSubmitBid(intent.PlayerID, intent.Bid, now)}
	case IntentPlayCard:
		return IntentResult{Err: r.handlePlayCard(intent.PlayerID, intent.Card, now)}
	case IntentChat:
		return IntentResult{Err: r.handleChat(intent.PlayerID, intent.Message, now)}
	case IntentHostSettings:
		return IntentResult{Err: r.handleHostSettings(intent.PlayerID, intent.Settings, now)}
	default:
		return IntentResult{Err: errUnknownIntent}
	}
}
