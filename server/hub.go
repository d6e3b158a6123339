package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/theoremus-urban-solutions/ridenav/alert"
	"github.com/theoremus-urban-solutions/ridenav/navigation"
)

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

// Message types sent to websocket clients.
const (
	MessageSnapshot = "snapshot"
	MessageTone     = "tone"
	MessageSpeech   = "speech"
)

// Message is the envelope of every websocket frame.
type Message struct {
	Type     string               `json:"type"`
	Snapshot *navigation.Snapshot `json:"snapshot,omitempty"`
	Tone     *alert.Pattern       `json:"tone,omitempty"`
	Text     string               `json:"text,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans navigation output out to connected websocket clients. It is the
// navigator's Observer and the dispatcher's TonePlayer and Speaker. A client
// that falls behind loses frames rather than stalling the sender.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:     logger.With("component", "hub"),
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) Publish(s navigation.Snapshot) {
	h.broadcast(Message{Type: MessageSnapshot, Snapshot: &s})
}

func (h *Hub) PlayTones(p alert.Pattern) {
	h.broadcast(Message{Type: MessageTone, Tone: &p})
}

func (h *Hub) Speak(text string) {
	h.broadcast(Message{Type: MessageSpeech, Text: text})
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(m Message) {
	msg, err := json.Marshal(m)
	if err != nil {
		h.log.Error("failed to encode websocket message", "type", m.Type, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("dropping frame for slow client", "remote", c.conn.RemoteAddr().String(), "type", m.Type)
		}
	}
}

// ServeHTTP upgrades the request and keeps the client registered until the
// connection fails.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info("client connected", "remote", conn.RemoteAddr().String())

	go h.writeLoop(c)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	h.log.Info("client disconnected", "remote", conn.RemoteAddr().String())
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("websocket write failed", "remote", c.conn.RemoteAddr().String(), "error", err)
			return
		}
	}
}
