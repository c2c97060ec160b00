package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"

	"truco-fdp/card"
	"truco-fdp/truco"
)

func testLogger() slog.Logger {
	return slog.Disabled
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.PutRoom(&Room{
		ID:           "itajuba",
		DisplayName:  "Itajubá",
		Status:       RoomPlaying,
		PlayerIDs:    []string{"p1", "p2"},
		HostSettings: DefaultHostSettings(),
		Chat: []ChatMessage{
			{ID: "m1", PlayerID: "p1", DisplayName: "Alice", Message: "oi", Type: ChatPlayer, Timestamp: time.Now().UTC()},
		},
		Game: &GameSummary{GameID: "g1", Phase: truco.PhaseBidding, Round: 1, CurrentPlayerID: "p1"},
	})
	s.PutPlayer(&Player{ID: "p1", DisplayName: "Alice", RoomID: "itajuba", Lives: 3, IsHost: true, Connection: Connected})
	s.PutPlayer(&Player{ID: "p2", DisplayName: "Bob", RoomID: "itajuba", Lives: 3, Connection: Disconnected})
	s.PutSession(&Session{ID: "s1", PlayerID: "p1", RoomID: "itajuba", Status: Connected, CreatedAt: time.Now().UTC()})
	s.PutGame(&truco.State{
		ID:          "g1",
		RoomID:      "itajuba",
		PlayerOrder: []string{"p1", "p2"},
		Seats: map[string]truco.Seat{
			"p1": {PlayerID: "p1", DisplayName: "Alice", Lives: 3},
			"p2": {PlayerID: "p2", DisplayName: "Bob", Lives: 3},
		},
		CurrentRound: 1,
		Phase:        truco.PhaseBidding,
		Rounds: []truco.Round{{
			Number:      1,
			CardCount:   1,
			Vira:        card.Card{Rank: card.RankK, Suit: card.Hearts},
			ManilhaRank: card.RankA,
			Blind:       true,
			Hands: map[string][]card.Card{
				"p1": {{Rank: card.Rank4, Suit: card.Clubs}},
				"p2": {{Rank: card.RankA, Suit: card.Hearts}},
			},
			Bids: map[string]int{},
		}},
		TimeLimitMs: truco.DefaultTimeLimitMs,
	})
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	src := seededStore(t)
	p := NewPersister(src, path, testLogger())
	require.NoError(t, p.Save("test"))

	dst := NewStore()
	require.NoError(t, NewPersister(dst, path, testLogger()).Load())

	room := dst.Room("itajuba")
	require.NotNil(t, room)
	require.Equal(t, RoomPlaying, room.Status)
	require.Equal(t, []string{"p1", "p2"}, room.PlayerIDs)
	require.Len(t, room.Chat, 1)
	require.NotNil(t, room.Game)
	require.Equal(t, "g1", room.Game.GameID)

	require.Equal(t, 2, dst.PlayerCount())
	require.True(t, dst.Player("p1").IsHost)

	sess := dst.Session("s1")
	require.NotNil(t, sess)
	require.Equal(t, "p1", sess.PlayerID)

	game := dst.Game("g1")
	require.NotNil(t, game)
	require.Equal(t, truco.PhaseBidding, game.Phase)
	require.Len(t, game.Rounds, 1)
	require.Equal(t, card.RankA, game.Rounds[0].ManilhaRank)
	require.Equal(t, []card.Card{{Rank: card.Rank4, Suit: card.Clubs}}, game.Rounds[0].Hands["p1"])

	// A restored game must be playable again.
	g, err := truco.Restore(*game, truco.Config{})
	require.NoError(t, err)
	require.Equal(t, "p1", g.CurrentPlayerID())
}

func TestLoadMissingFileIsEmptyWorld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	s := NewStore()
	require.NoError(t, NewPersister(s, path, testLogger()).Load())
	require.Empty(t, s.Rooms())
	require.Equal(t, 0, s.PlayerCount())
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	doc := map[string]any{"version": SnapshotVersion + 1}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	err = NewPersister(NewStore(), path, testLogger()).Load()
	require.Error(t, err)
}

func TestRunStopsWithoutFinalSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	p := NewPersister(seededStore(t), path, testLogger())
	done := make(chan struct{})
	close(done)
	p.Run(time.Hour, done)

	// The shutdown snapshot belongs to the caller, exactly once and
	// synchronously; Run only handles the interval saves.
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestSaveIsAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	p := NewPersister(seededStore(t), path, testLogger())
	require.NoError(t, p.Save("first"))
	require.NoError(t, p.Save("second"))

	_, err := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err), "temp file must not survive a save")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Version  int `json:"version"`
		Metadata struct {
			Reason string `json:"reason"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, SnapshotVersion, doc.Version)
	require.Equal(t, "second", doc.Metadata.Reason)
}
