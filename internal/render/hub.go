// Package render streams simulation snapshots to renderer clients over
// websockets.
package render

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/apronsim/apronsim/internal/sim"
	"github.com/apronsim/apronsim/pkg/streaming"
)

// Source tags commands received from renderer clients.
const Source = "ws"

// EnqueueFunc pushes a command line onto the ingestion queue and returns its
// sequence number.
type EnqueueFunc func(source, line string) uint64

// Dependencies holds all dependencies for the hub.
type Dependencies struct {
	Logger       *slog.Logger
	Encoding     string
	TickInterval time.Duration
	// Enqueue accepts command frames from clients. Nil rejects them.
	Enqueue EnqueueFunc
}

// Hub fans snapshots out to connected clients.
type Hub struct {
	logger       *slog.Logger
	codec        codec
	tickInterval time.Duration
	enqueue      EnqueueFunc
	upgrader     ws.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	latest  *sim.Snapshot
	closed  bool

	dropped atomic.Uint64
}

// NewHub creates a hub for the given encoding.
func NewHub(deps Dependencies) (*Hub, error) {
	c, err := codecFor(deps.Encoding)
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Hub{
		logger:       deps.Logger,
		codec:        c,
		tickInterval: deps.TickInterval,
		enqueue:      deps.Enqueue,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}, nil
}

// Encoding returns the name of the outbound encoding.
func (h *Hub) Encoding() string {
	return h.codec.name
}

// Publish encodes the snapshot once and offers it to every client.
// It never blocks the caller.
func (h *Hub) Publish(snap *sim.Snapshot) {
	h.mu.Lock()
	h.latest = snap
	if len(h.clients) == 0 || h.closed {
		h.mu.Unlock()
		return
	}
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	data, err := h.codec.marshal(streaming.Envelope{Type: streaming.TypeSnapshot, Payload: snap})
	if err != nil {
		h.logger.Error("failed to encode snapshot", "tick", snap.Tick, "error", err)
		return
	}
	for _, c := range clients {
		if !c.send(data) {
			h.dropped.Add(1)
		}
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(h, conn)
	latest, ok := h.register(c)
	if !ok {
		c.close()
		return
	}

	hello := streaming.Envelope{
		Type: streaming.TypeHello,
		Payload: streaming.HelloPayload{
			Encoding:       h.codec.name,
			TickIntervalMs: h.tickInterval.Milliseconds(),
		},
	}
	if data, err := h.codec.marshal(hello); err == nil {
		c.send(data)
	}
	if latest != nil {
		if data, err := h.codec.marshal(streaming.Envelope{Type: streaming.TypeSnapshot, Payload: latest}); err == nil {
			c.send(data)
		}
	}

	c.logger.Info("renderer connected", "encoding", h.codec.name)
	go c.writeLoop()
	go c.readLoop()
}

func (h *Hub) register(c *client) (*sim.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	h.clients[c] = struct{}{}
	return h.latest, true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.logger.Info("renderer disconnected")
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many frames slow clients have missed.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	return nil
}
