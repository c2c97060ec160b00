package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/decred/slog"

	"truco-fdp/truco"
)

// SnapshotVersion is the on-disk document version.
const SnapshotVersion = 1

// DefaultSnapshotInterval is how often the world is persisted.
const DefaultSnapshotInterval = 30 * time.Second

type snapshotMeta struct {
	Reason string `json:"reason"`
}

type snapshotDoc struct {
	Version  int            `json:"version"`
	SavedAt  time.Time      `json:"savedAt"`
	Metadata snapshotMeta   `json:"metadata"`
	Rooms    []*Room        `json:"rooms"`
	Players  []*Player      `json:"players"`
	Games    []*truco.State `json:"games"`
	Sessions []*Session     `json:"sessions"`
}

// Persister writes periodic crash-safe snapshots of a store to a single
// JSON file. Writers are serialized: a save in flight is finished before
// the next one starts.
type Persister struct {
	store *Store
	path  string
	log   slog.Logger

	saveMu sync.Mutex
}

// NewPersister wires a store to a snapshot path.
func NewPersister(store *Store, path string, log slog.Logger) *Persister {
	return &Persister{store: store, path: path, log: log}
}

// Save builds the snapshot document under the store's read lock, then
// writes it via a temp file and an atomic rename.
func (p *Persister) Save(reason string) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	p.store.mu.RLock()
	doc := snapshotDoc{
		Version:  SnapshotVersion,
		SavedAt:  time.Now().UTC(),
		Metadata: snapshotMeta{Reason: reason},
		Rooms:    make([]*Room, 0, len(p.store.rooms)),
		Players:  make([]*Player, 0, len(p.store.players)),
		Games:    make([]*truco.State, 0, len(p.store.games)),
		Sessions: make([]*Session, 0, len(p.store.sessions)),
	}
	for _, r := range p.store.rooms {
		doc.Rooms = append(doc.Rooms, r)
	}
	for _, pl := range p.store.players {
		doc.Players = append(doc.Players, pl)
	}
	for _, g := range p.store.games {
		doc.Games = append(doc.Games, g)
	}
	for _, sess := range p.store.sessions {
		doc.Sessions = append(doc.Sessions, sess)
	}
	data, err := json.Marshal(&doc)
	p.store.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot temp: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	p.log.Debugf("snapshot saved (%d rooms, %d players, %d games, %d sessions, reason=%s)",
		len(doc.Rooms), len(doc.Players), len(doc.Games), len(doc.Sessions), reason)
	return nil
}

// Load rehydrates the store from the snapshot file. A missing file is an
// empty world, not an error.
func (p *Persister) Load() error {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		p.log.Infof("no snapshot at %s, starting empty", p.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}

	p.store.mu.Lock()
	for _, r := range doc.Rooms {
		p.store.rooms[r.ID] = r
	}
	for _, pl := range doc.Players {
		p.store.players[pl.ID] = pl
	}
	for _, g := range doc.Games {
		p.store.games[g.ID] = g
	}
	for _, sess := range doc.Sessions {
		p.store.sessions[sess.ID] = sess
	}
	p.store.mu.Unlock()
	p.log.Infof("snapshot restored from %s (saved %s, reason=%s)", p.path, doc.SavedAt, doc.Metadata.Reason)
	return nil
}

// Run saves on every interval tick until done is closed. The final
// shutdown snapshot is the caller's responsibility, so it happens exactly
// once and synchronously. A failed save is retried on the next tick.
func (p *Persister) Run(interval time.Duration, done <-chan struct{}) {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := p.Save("interval"); err != nil {
				p.log.Errorf("periodic snapshot failed: %v", err)
			}
		case <-done:
			return
		}
	}
}
