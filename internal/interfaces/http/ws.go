package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gregleo12/spooky-football-engine/internal/orchestrator"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsSendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
	},
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans refresh lifecycle events out to websocket clients. It implements
// the orchestrator's Publisher: Publish never blocks, a full feed drops the
// event rather than stalling a refresh run.
type Hub struct {
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once

	onEvent func(orchestrator.Event)
	metrics *Metrics

	mu      sync.RWMutex
	clients map[*wsClient]bool
}

// NewHub builds an idle hub; call Run to start serving. onEvent fires on
// every published event before broadcast and may be nil. Metrics may be nil.
func NewHub(metrics *Metrics, onEvent func(orchestrator.Event)) *Hub {
	return &Hub{
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		onEvent:    onEvent,
		metrics:    metrics,
		clients:    make(map[*wsClient]bool),
	}
}

// Run owns the client set until Stop. Start it on its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.WSClients.Inc()
			}
			log.Debug().Int("clients", n).Msg("Refresh feed client connected")

		case client := <-h.unregister:
			h.dropClient(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			stale := make([]*wsClient, 0)
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					stale = append(stale, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range stale {
				h.dropClient(client)
			}

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Clients reports the connected client count.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish implements orchestrator.Publisher.
func (h *Hub) Publish(e orchestrator.Event) {
	if h.onEvent != nil {
		h.onEvent(e)
	}
	if h.metrics != nil {
		switch e.Type {
		case orchestrator.EventRunStarted:
			h.metrics.SetRefreshRunning(true)
		case orchestrator.EventRunFinished:
			h.metrics.SetRefreshRunning(false)
			h.metrics.RecordRun(e.Report.Trigger, true)
		case orchestrator.EventRunFailed:
			h.metrics.SetRefreshRunning(false)
			h.metrics.RecordRun(e.Report.Trigger, false)
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("type", e.Type).Msg("Failed to encode refresh event")
		return
	}
	select {
	case h.broadcast <- b:
	default:
		log.Warn().Str("type", e.Type).Msg("Refresh feed full, dropping event")
	}
}

// Serve upgrades GET /ws/refresh connections onto the feed.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	client := &wsClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) dropClient(client *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if h.metrics != nil {
		h.metrics.WSClients.Dec()
	}
	log.Debug().Int("clients", n).Msg("Refresh feed client disconnected")
}

// readPump discards inbound frames; the feed is one-way. It keeps the pong
// deadline fresh and unregisters on error.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
