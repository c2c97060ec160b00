package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"truco-fdp/internal/lobby"
	"truco-fdp/internal/room"
)

const (
	sendBuffer    = 256
	readLimit     = 65536
	pongWait      = 60 * time.Second
	pingInterval  = 30 * time.Second
	writeDeadline = 10 * time.Second
)

// Connection is one WebSocket client. A connection is anonymous until its
// first successful join_room or reconnect, after which it is bound to a
// player identity and a room actor.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Gateway *Gateway

	mu        sync.Mutex
	playerID  string
	sessionID string
	room      *room.Room
}

func (c *Connection) bind(r *room.Room, playerID, sessionID string) {
	c.mu.Lock()
	c.playerID = playerID
	c.sessionID = sessionID
	c.room = r
	c.mu.Unlock()
}

func (c *Connection) binding() (*room.Room, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.playerID
}

func (c *Connection) unbind() {
	c.mu.Lock()
	c.playerID = ""
	c.sessionID = ""
	c.room = nil
	c.mu.Unlock()
}

// Gateway owns every WebSocket connection and routes client messages to
// room actors. Room actors push events back through SendToConn.
type Gateway struct {
	log slog.Logger

	mu         sync.RWMutex
	conns      map[string]*Connection
	nextConnID uint64

	lobby *lobby.Lobby

	upgrader websocket.Upgrader
}

func New(corsOrigins []string, log slog.Logger) *Gateway {
	g := &Gateway{
		log:   log,
		conns: make(map[string]*Connection),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range corsOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
	return g
}

// BindLobby wires the room set in after construction. The lobby needs the
// gateway's SendToPlayer to build its rooms, so the two are linked in two
// steps.
func (g *Gateway) BindLobby(l *lobby.Lobby) {
	g.lobby = l
}

// SendToConn implements room.SendFunc. Messages to a closed connection, or
// one with a full send buffer, are dropped; a reconnecting client recovers
// through game_state_update.
func (g *Gateway) SendToConn(connID string, data []byte) {
	g.mu.RLock()
	c := g.conns[connID]
	g.mu.RUnlock()
	if c == nil {
		return
	}
	select {
	case c.Send <- data:
	default:
		g.log.Warnf("gateway: send buffer full for %s, dropping", connID)
	}
}

// HandleWebSocket upgrades the request and starts the connection pumps. A
// sessionId query parameter triggers the reconnect handshake before any
// client message is read.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warnf("gateway: upgrade: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	c := &Connection{
		ID:      fmt.Sprintf("conn_%d", g.nextConnID),
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		Gateway: g,
	}
	g.conns[c.ID] = c
	total := len(g.conns)
	g.mu.Unlock()

	g.log.Debugf("gateway: client connected: %s, total %d", c.ID, total)

	go c.writePump()

	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		c.reconnect(sessionID)
	}

	go c.readPump()
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	delete(g.conns, c.ID)
	total := len(g.conns)
	g.mu.Unlock()
	g.log.Debugf("gateway: client disconnected: %s, total %d", c.ID, total)

	rm, playerID := c.binding()
	c.unbind()
	if rm != nil && playerID != "" {
		rm.Submit(room.Intent{Type: room.IntentDisconnect, PlayerID: playerID})
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Gateway.log.Debugf("gateway: read %s: %v", c.ID, err)
			}
			return
		}
		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) sendEvent(t room.EventType, payload any) {
	env := room.Envelope{
		Type:    t,
		Ts:      time.Now().UnixMilli(),
		Payload: payload,
	}
	data, err := json.Marshal(&env)
	if err != nil {
		c.Gateway.log.Errorf("gateway: encode %s: %v", t, err)
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
