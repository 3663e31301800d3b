package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"hitrivals/schedule/internal/metrics"
	"hitrivals/schedule/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are enforced by the CORS middleware
		return true
	},
}

// Hub maintains the set of active clients and broadcasts score updates to them
type Hub struct {
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	broadcast  chan models.Game
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.Game, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	log.Info().Msg("Live score hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case game := <-h.broadcast:
			h.broadcastGame(game)
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues a game update for every matching client
func (h *Hub) Broadcast(game models.Game) {
	select {
	case h.broadcast <- game:
	default:
		log.Warn().Int("game_id", game.ID).Msg("Broadcast buffer full, dropping update")
	}
}

// ClientCount returns the number of active clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches a client. An optional ?league=
// query restricts which updates it receives. Pumps run on ctx, not the
// request context.
func (h *Hub) ServeWS(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var league models.League
		if q := r.URL.Query().Get("league"); q != "" {
			l, err := models.ParseLeague(q)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			league = l
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		c := NewClient(uuid.New().String(), conn, h, league)
		h.Register(c)

		go c.WritePump(ctx)
		go c.ReadPump(ctx)
	}
}

func (h *Hub) registerClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.clients[c] = true
	metrics.WebsocketClients.Set(float64(len(h.clients)))

	log.Debug().
		Str("client", c.ID).
		Str("league", c.League().String()).
		Int("total", len(h.clients)).
		Msg("Websocket client connected")
}

func (h *Hub) unregisterClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.closeSend()
		metrics.WebsocketClients.Set(float64(len(h.clients)))
		log.Debug().Str("client", c.ID).Int("total", len(h.clients)).Msg("Websocket client disconnected")
	}
}

func (h *Hub) broadcastGame(game models.Game) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	msg := Message{
		Type:      MessageTypeScoreUpdate,
		Game:      &game,
		Timestamp: time.Now(),
	}

	for _, c := range clients {
		if !c.Matches(game.SportType) {
			continue
		}
		if !c.TrySend(msg) {
			// Too slow to keep up
			log.Warn().Str("client", c.ID).Msg("Client buffer full, disconnecting")
			h.unregisterClient(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	log.Info().Int("clients", len(h.clients)).Msg("Shutting down live score hub")

	for c := range h.clients {
		c.closeSend()
		delete(h.clients, c)
	}
	metrics.WebsocketClients.Set(0)
}
