package lobby

import (
	"time"

	"github.com/decred/slog"

	"truco-fdp/internal/room"
	"truco-fdp/internal/state"
)

// RoomDef names one of the fixed rooms.
type RoomDef struct {
	ID          string
	DisplayName string
}

// DefaultRooms is the fixed five-room set.
func DefaultRooms() []RoomDef {
	return []RoomDef{
		{ID: "itajuba", DisplayName: "Itajubá"},
		{ID: "campinas", DisplayName: "Campinas"},
		{ID: "ouro-preto", DisplayName: "Ouro Preto"},
		{ID: "santos", DisplayName: "Santos"},
		{ID: "niteroi", DisplayName: "Niterói"},
	}
}

// Lobby owns the fixed room set. Rooms are created at startup and never
// destroyed; their actors run for the life of the process.
type Lobby struct {
	log   slog.Logger
	store *state.Store
	rooms map[string]*room.Room
	order []string
}

// New creates (or rehydrates, after a snapshot restore) every room in defs.
func New(store *state.Store, defs []RoomDef, cfg room.Config, send room.SendFunc, log slog.Logger) *Lobby {
	l := &Lobby{
		log:   log,
		store: store,
		rooms: make(map[string]*room.Room, len(defs)),
	}
	for _, def := range defs {
		rec := store.Room(def.ID)
		if rec == nil {
			rec = &state.Room{
				ID:           def.ID,
				DisplayName:  def.DisplayName,
				Status:       state.RoomWaiting,
				HostSettings: state.DefaultHostSettings(),
				LastActivity: time.Now(),
			}
			store.PutRoom(rec)
		}
		l.rooms[def.ID] = room.New(rec, store, cfg, send, log)
		l.order = append(l.order, def.ID)
	}
	log.Infof("lobby ready with %d rooms", len(defs))
	return l
}

// Room returns the actor for a room id, or nil.
func (l *Lobby) Room(id string) *room.Room {
	return l.rooms[id]
}

// RoomIDs returns the fixed room ids in definition order.
func (l *Lobby) RoomIDs() []string {
	return append([]string(nil), l.order...)
}

// FindSession resolves a session id to its room actor, for the reconnect
// handshake.
func (l *Lobby) FindSession(sessionID string) (*room.Room, *state.Session) {
	sess := l.store.Session(sessionID)
	if sess == nil {
		return nil, nil
	}
	return l.rooms[sess.RoomID], sess
}

// Stop shuts down every room actor.
func (l *Lobby) Stop() {
	for _, r := range l.rooms {
		r.Stop()
	}
}
