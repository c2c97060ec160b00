package state

import (
	"sync"

	"truco-fdp/truco"
)

// Store is the in-memory world: rooms, players, games and sessions keyed by
// id. Rooms are mutated only by their owning room actor; the store mutex
// exists so that cross-room readers (HTTP listings, the snapshot writer)
// see consistent entries.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	players  map[string]*Player
	games    map[string]*truco.State
	sessions map[string]*Session
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		rooms:    make(map[string]*Room),
		players:  make(map[string]*Player),
		games:    make(map[string]*truco.State),
		sessions: make(map[string]*Session),
	}
}

func (s *Store) PutRoom(r *Room) {
	s.mu.Lock()
	s.rooms[r.ID] = r
	s.mu.Unlock()
}

func (s *Store) Room(id string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[id]
}

func (s *Store) Rooms() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

func (s *Store) PutPlayer(p *Player) {
	s.mu.Lock()
	s.players[p.ID] = p
	s.mu.Unlock()
}

func (s *Store) Player(id string) *Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players[id]
}

func (s *Store) RemovePlayer(id string) {
	s.mu.Lock()
	delete(s.players, id)
	s.mu.Unlock()
}

func (s *Store) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

func (s *Store) PutGame(g *truco.State) {
	s.mu.Lock()
	s.games[g.ID] = g
	s.mu.Unlock()
}

func (s *Store) Game(id string) *truco.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games[id]
}

func (s *Store) RemoveGame(id string) {
	s.mu.Lock()
	delete(s.games, id)
	s.mu.Unlock()
}

func (s *Store) GameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

func (s *Store) PutSession(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
}

func (s *Store) Session(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (s *Store) RemoveSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Sessions returns every session, in no particular order.
func (s *Store) Sessions() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
