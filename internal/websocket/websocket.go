package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/tabulator/internal/live"
	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/metrics"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/services"
)

// Message types pushed to viewers
const (
	MessageLeaderboard = "leaderboard"
	MessageRoundChange = "round_change"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // scoring devices connect over the venue LAN by IP
	},
}

// LeaderboardSource computes the live view of one event
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, eventID int) (*services.Leaderboard, error)
}

// Hub groups viewers by event. The first viewer of an event starts a live poller
// for it and the last one to leave stops it.
type Hub struct {
	log      logger.Logger
	source   LeaderboardSource
	interval time.Duration
	metrics  *metrics.Metrics

	rooms      map[int]*room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

type room struct {
	clients map[*Client]bool
	poller  *live.Poller
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	eventID int
	send    chan models.WSMessage
}

// New creates a hub. interval is the live poll interval; m may be nil.
func New(log logger.Logger, source LeaderboardSource, interval time.Duration, m *metrics.Metrics) *Hub {
	return &Hub{
		log:        log,
		source:     source,
		interval:   interval,
		metrics:    m,
		rooms:      make(map[int]*room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run handles viewer registration until ctx ends, then stops every poller and
// disconnects every viewer.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.mutex.Lock()
			r, ok := h.rooms[client.eventID]
			if !ok {
				r = &room{clients: make(map[*Client]bool)}
				r.poller = h.newPoller(client.eventID)
				h.rooms[client.eventID] = r
			}
			r.clients[client] = true
			viewers := len(r.clients)
			h.mutex.Unlock()

			if ok {
				r.poller.Kick()
			} else {
				r.poller.Start(ctx)
			}
			h.log.Debug("Viewer connected", "event_id", client.eventID, "viewers", viewers)

		case client := <-h.unregister:
			if p := h.remove(client); p != nil {
				p.Stop()
				h.log.Debug("Live view stopped", "event_id", client.eventID)
			}
		}
	}
}

// remove drops client from its room and returns the room's poller if the room is now empty
func (h *Hub) remove(client *Client) *live.Poller {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	r, ok := h.rooms[client.eventID]
	if !ok || !r.clients[client] {
		return nil
	}
	delete(r.clients, client)
	close(client.send)
	h.log.Debug("Viewer disconnected", "event_id", client.eventID, "viewers", len(r.clients))
	if len(r.clients) > 0 {
		return nil
	}
	delete(h.rooms, client.eventID)
	return r.poller
}

func (h *Hub) shutdown() {
	h.mutex.Lock()
	pollers := make([]*live.Poller, 0, len(h.rooms))
	for id, r := range h.rooms {
		for c := range r.clients {
			close(c.send)
		}
		pollers = append(pollers, r.poller)
		delete(h.rooms, id)
	}
	h.mutex.Unlock()

	for _, p := range pollers {
		p.Stop()
	}
	h.log.Info("Live views stopped", "pollers", len(pollers))
}

func (h *Hub) newPoller(eventID int) *live.Poller {
	source := func(ctx context.Context) (any, error) {
		return h.source.Leaderboard(ctx, eventID)
	}
	publish := func(snapshot any) {
		h.Broadcast(eventID, MessageLeaderboard, snapshot)
	}
	return live.New(h.log.With("event_id", eventID), h.interval, source, publish, h.metrics)
}

// Broadcast sends a message to every viewer of one event
func (h *Hub) Broadcast(eventID int, msgType string, payload any) {
	msg := models.WSMessage{Type: msgType, Payload: payload}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	r, ok := h.rooms[eventID]
	if !ok {
		return
	}
	for client := range r.clients {
		select {
		case client.send <- msg:
		default:
			// Client's send channel is full, unregister
			go client.leave()
		}
	}
}

// Refresh pushes a fresh leaderboard to the viewers of an event, if any are watching
func (h *Hub) Refresh(eventID int) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if r, ok := h.rooms[eventID]; ok {
		r.poller.Kick()
	}
}

// Viewers returns the number of viewers watching an event
func (h *Hub) Viewers(eventID int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if r, ok := h.rooms[eventID]; ok {
		return len(r.clients)
	}
	return 0
}

// ServeWs upgrades the request and attaches the viewer to an event's room
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, eventID int) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		eventID: eventID,
		send:    make(chan models.WSMessage, 256),
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

func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// readPump only watches for close and pong frames; viewers never send commands
func (c *Client) readPump() {
	defer func() {
		c.leave()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			msgBytes, err := json.Marshal(message)
			if err != nil {
				c.hub.log.Error("Failed to encode live message", "type", message.Type, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
