package network

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lodyland/internal/game"
	"lodyland/pkg/logger"
)

// EventFilter defines which events a client receives
type EventFilter struct {
	PlayerID int64    `json:"player_id,omitempty"`
	Kinds    []string `json:"kinds,omitempty"`
}

// Matches reports whether e passes the filter
func (f EventFilter) Matches(e game.Event) bool {
	if f.PlayerID != 0 && f.PlayerID != e.PlayerID {
		return false
	}
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == e.Kind {
			return true
		}
	}
	return false
}

// FilterFromQuery reads ?player=<id>&kinds=a,b
func FilterFromQuery(r *http.Request) EventFilter {
	var f EventFilter
	if v := r.URL.Query().Get("player"); v != "" {
		f.PlayerID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("kinds"); v != "" {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				f.Kinds = append(f.Kinds, k)
			}
		}
	}
	return f
}

// EventClient represents a WebSocket client subscribed to events
type EventClient struct {
	conn     *websocket.Conn
	filterMu sync.RWMutex
	filter   EventFilter
	buffer   chan game.Event
	done     chan struct{}
	clientID string
}

func (c *EventClient) currentFilter() EventFilter {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()
	return c.filter
}

// EventHub streams economy events to admin WebSocket clients
type EventHub struct {
	clients   map[string]*EventClient
	clientsMu sync.RWMutex
	history   []game.Event
	historyMu sync.RWMutex
	maxBuffer int
	upgrader  websocket.Upgrader
	logger    *logger.ColoredLogger
}

// NewEventHub creates a hub keeping the last maxBuffer events for new clients
func NewEventHub(maxBuffer int) *EventHub {
	return &EventHub{
		clients:   make(map[string]*EventClient),
		history:   make([]game.Event, 0, maxBuffer),
		maxBuffer: maxBuffer,
		upgrader: websocket.Upgrader{
			// admin endpoint, authorized before upgrade
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.NewComponentLogger("EVENT_HUB", logger.ColorBrightCyan),
	}
}

// Publish implements game.EventSink
func (h *EventHub) Publish(e game.Event) {
	h.historyMu.Lock()
	h.history = append(h.history, e)
	if len(h.history) > h.maxBuffer {
		h.history = h.history[len(h.history)-h.maxBuffer:]
	}
	h.historyMu.Unlock()

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for _, client := range h.clients {
		if !client.currentFilter().Matches(e) {
			continue
		}
		select {
		case client.buffer <- e:
		default:
			h.logger.Warn("Event buffer full for client: %s", client.clientID)
		}
	}
}

// History returns up to limit of the most recent events matching filter,
// oldest first
func (h *EventHub) History(filter EventFilter, limit int) []game.Event {
	h.historyMu.RLock()
	defer h.historyMu.RUnlock()

	var out []game.Event
	for i := len(h.history) - 1; i >= 0 && len(out) < limit; i-- {
		if filter.Matches(h.history[i]) {
			out = append(out, h.history[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ServeWS upgrades the request and streams matching events until the
// client goes away
func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade event stream: %v", err)
		return
	}
	h.AddClient(conn, uuid.NewString(), FilterFromQuery(r))
}

// AddClient registers conn and starts its writer and reader loops
func (h *EventHub) AddClient(conn *websocket.Conn, clientID string, filter EventFilter) {
	client := &EventClient{
		conn:     conn,
		filter:   filter,
		buffer:   make(chan game.Event, 100),
		done:     make(chan struct{}),
		clientID: clientID,
	}

	// queue history before the client becomes visible to Publish
	for _, e := range h.History(filter, cap(client.buffer)/2) {
		client.buffer <- e
	}

	h.clientsMu.Lock()
	h.clients[clientID] = client
	h.clientsMu.Unlock()

	h.logger.Info("Event client connected: %s", clientID)

	go h.writeLoop(client)
	go h.readLoop(client)
}

// RemoveClient removes a WebSocket client
func (h *EventHub) RemoveClient(clientID string) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if client, ok := h.clients[clientID]; ok {
		close(client.done)
		client.conn.Close()
		delete(h.clients, clientID)
		h.logger.Info("Event client disconnected: %s", clientID)
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *EventHub) Close() {
	h.clientsMu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.clientsMu.RUnlock()
	for _, id := range ids {
		h.RemoveClient(id)
	}
}

func (h *EventHub) writeLoop(client *EventClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case e := <-client.buffer:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteJSON(e); err != nil {
				h.logger.Error("Failed to send event to client %s: %v", client.clientID, err)
				h.RemoveClient(client.clientID)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.RemoveClient(client.clientID)
				return
			}
		case <-client.done:
			return
		}
	}
}

// readLoop accepts filter updates as JSON and notices disconnects
func (h *EventHub) readLoop(client *EventClient) {
	defer h.RemoveClient(client.clientID)
	for {
		var f EventFilter
		if err := client.conn.ReadJSON(&f); err != nil {
			return
		}
		client.filterMu.Lock()
		client.filter = f
		client.filterMu.Unlock()
		h.logger.Debug("Updated filter for client: %s", client.clientID)
	}
}
