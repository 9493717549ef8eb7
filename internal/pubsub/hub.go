package pubsub

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/Guizzs26/attendance_poll_bot/internal/metrics"
	"github.com/Guizzs26/attendance_poll_bot/internal/tally"
)

const sendBuffer = 16

// Snapshotter supplies the tally sent to a client when it first connects.
type Snapshotter interface {
	Snapshot() tally.Snapshot
}

// one client conenected via websocket
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans tally snapshots out to every connected websocket client. Client
// bookkeeping is owned by Run; other goroutines talk to it over channels.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	source  Snapshotter
	metrics *metrics.BotMetrics
	logger  *zap.Logger
}

func NewHub(source Snapshotter, m *metrics.BotMetrics, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		source:     source,
		metrics:    m,
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.metrics.LiveSubscribers.Inc()

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
			}

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.Send <- message:
				default:
					h.logger.Warn("live tally client too slow, dropping it")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.Send)
	h.metrics.LiveSubscribers.Dec()
}

// Publish queues a snapshot for every client. It never blocks: when the queue
// is full the update is skipped, the next one carries the full tally anyway.
func (h *Hub) Publish(snap tally.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("failed to encode tally snapshot", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Debug("live tally queue full, skipping update")
	}
}

// ServeHTTP upgrades the request to a websocket and streams tally snapshots,
// starting with the current one.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	initial, err := json.Marshal(h.source.Snapshot())
	if err != nil {
		conn.Close(websocket.StatusInternalError, "encode failed")
		return
	}

	c := &Client{Hub: h, Conn: conn, Send: make(chan []byte, sendBuffer)}
	c.Send <- initial

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	case <-r.Context().Done():
		conn.Close(websocket.StatusGoingAway, "")
		return
	}

	go c.WritePump()
	c.ReadPump(r.Context())
}

// WritePump sends messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	defer func() {
		c.Conn.Close(websocket.StatusNormalClosure, "")
	}()

	for m := range c.Send {
		if err := c.Conn.Write(context.Background(), websocket.MessageText, m); err != nil {
			c.Hub.logger.Debug("error writing to live tally client", zap.Error(err))
			break
		}
	}
}

// ReadPump waits for the client to go away. Clients never send anything
// meaningful; reading is needed to process control frames.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.Conn.Read(ctx); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				c.Hub.logger.Debug("live tally client disconnected")
			} else {
				c.Hub.logger.Debug("error reading from live tally client", zap.Error(err))
			}
			return
		}
	}
}
