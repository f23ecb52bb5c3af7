package main

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Seednode/census/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn *websocket.Conn
	send chan any
}

// roomEnvelope is the only message shape the server pushes: the
// redacted room, plus tallies once the game is over.
type roomEnvelope struct {
	Type    string                `json:"type"`
	Room    *game.Room            `json:"room"`
	Results []game.QuestionResult `json:"results,omitempty"`
}

func roomMessage(room *game.Room) roomEnvelope {
	public := game.Redact(room)

	msg := roomEnvelope{
		Type: "room",
		Room: public,
	}
	if public.Phase == game.PhaseComplete {
		msg.Results = game.Results(public)
	}

	return msg
}

// Hub tracks the websocket subscribers of each room. Delivery is
// best-effort; clients that stop draining their queue are dropped.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*wsClient]bool
}

func newHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*wsClient]bool),
	}
}

func (h *Hub) Register(code string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[code]
	if !ok {
		clients = make(map[*wsClient]bool)
		h.rooms[code] = clients
	}
	clients[c] = true
}

func (h *Hub) Unregister(code string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[code]
	if !ok {
		return
	}

	if _, ok := clients[c]; ok {
		delete(clients, c)
		close(c.send)
	}

	if len(clients) == 0 {
		delete(h.rooms, code)
	}
}

// Publish fans the room's current state out to its subscribers. The
// room is redacted here, so callers can hand over the authoritative
// copy without thinking about visibility.
func (h *Hub) Publish(code string, room *game.Room) {
	msg := roomMessage(room)

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[code] {
		select {
		case client.send <- msg:
		default:
			delete(h.rooms[code], client)
			close(client.send)
		}
	}
}

// CloseRoom disconnects every subscriber of a room (used when rooms
// are deleted or reaped).
func (h *Hub) CloseRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[code] {
		close(client.send)
		_ = client.conn.Close()
	}
	delete(h.rooms, code)
}

// clientCount reports the number of subscribers for a room.
func (h *Hub) clientCount(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.rooms[code])
}

// readPump discards inbound frames until the peer goes away. All
// mutations arrive over the HTTP API; the socket is downstream only.
func (c *wsClient) readPump(h *Hub, code string) {
	defer func() {
		h.Unregister(code, c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
