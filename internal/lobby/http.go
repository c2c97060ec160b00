package lobby

import (
	"encoding/json"
	"net/http"
	"strings"

	"truco-fdp/internal/state"
	"truco-fdp/truco"
)

// HTTPHandler serves the read-only room listing and health endpoints from
// store snapshots; it never touches a room actor.
type HTTPHandler struct {
	lobby       *Lobby
	corsOrigins []string
}

type roomListEntry struct {
	RoomID         string           `json:"roomId"`
	DisplayName    string           `json:"displayName"`
	PlayerCount    int              `json:"playerCount"`
	SpectatorCount int              `json:"spectatorCount"`
	MaxPlayers     int              `json:"maxPlayers"`
	GameStatus     state.RoomStatus `json:"gameStatus"`
	CanJoin        bool             `json:"canJoin"`
}

type roomDetailResponse struct {
	roomListEntry
	HostSettings state.HostSettings `json:"hostSettings"`
	Game         *state.GameSummary `json:"game,omitempty"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Players     int    `json:"players"`
	Sessions    int    `json:"sessions"`
	ActiveGames int    `json:"activeGames"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(l *Lobby, corsOrigins []string) *HTTPHandler {
	return &HTTPHandler{lobby: l, corsOrigins: corsOrigins}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/rooms", h.withCORS(h.handleRooms))
	mux.HandleFunc("/api/rooms/", h.withCORS(h.handleRoomDetail))
	mux.HandleFunc("/api/health", h.withCORS(h.handleHealth))
}

func (h *HTTPHandler) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowed := range h.corsOrigins {
			if allowed == "*" || allowed == origin {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				break
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (h *HTTPHandler) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries := make([]roomListEntry, 0, len(h.lobby.order))
	for _, id := range h.lobby.order {
		if rec := h.lobby.store.Room(id); rec != nil {
			entries = append(entries, listEntry(rec))
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *HTTPHandler) handleRoomDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	rec := h.lobby.store.Room(id)
	if rec == nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, roomDetailResponse{
		roomListEntry: listEntry(rec),
		HostSettings:  rec.HostSettings,
		Game:          rec.Game,
	})
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	store := h.lobby.store
	active := 0
	for _, id := range h.lobby.order {
		if rec := store.Room(id); rec != nil && rec.Status == state.RoomPlaying {
			active++
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Rooms:       len(h.lobby.order),
		Players:     store.PlayerCount(),
		Sessions:    store.SessionCount(),
		ActiveGames: active,
	})
}

func listEntry(rec *state.Room) roomListEntry {
	return roomListEntry{
		RoomID:         rec.ID,
		DisplayName:    rec.DisplayName,
		PlayerCount:    len(rec.PlayerIDs),
		SpectatorCount: len(rec.SpectatorIDs),
		MaxPlayers:     truco.MaxPlayers,
		GameStatus:     rec.Status,
		CanJoin:        rec.Status == state.RoomWaiting && len(rec.PlayerIDs) < truco.MaxPlayers,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
