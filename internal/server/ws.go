package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/bodystats/internal/tracking"
)

const (
	writeWait = 5 * time.Second

	// sendBuffer is the number of report batches queued per client before
	// the client is considered too slow and dropped.
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// hubClient is one WebSocket connection. Only writeLoop writes to conn.
type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// ReportHub broadcasts limb reports to WebSocket clients as they are produced.
type ReportHub struct {
	clients map[*hubClient]bool
	mu      sync.Mutex
}

// NewReportHub creates an empty ReportHub.
func NewReportHub() *ReportHub {
	return &ReportHub{
		clients: make(map[*hubClient]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ReportHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writeLoop()
	defer h.remove(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// remove unregisters a client and stops its writer.
func (h *ReportHub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// writeLoop sends queued batches until the send channel is closed or a
// write fails, then closes the connection.
func (c *hubClient) writeLoop() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("websocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Clients returns the number of connected clients.
func (h *ReportHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues one batch of reports for every connected client without
// waiting for the writes. Clients whose queue is full are dropped.
func (h *ReportHub) Broadcast(reports []tracking.LimbReport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(map[string]any{
		"reports":   reports,
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("websocket client too slow, dropping it")
			delete(h.clients, c)
			close(c.send)
		}
	}
}
