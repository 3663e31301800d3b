package live

import (
	"context"
	"sync"
	"time"

	"hitrivals/schedule/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Buffer size for outbound messages
	sendBufferSize = 64
)

// unregisterer is the part of the hub a client needs
type unregisterer interface {
	Unregister(c *Client)
}

// Client is one websocket subscriber
type Client struct {
	ID   string
	conn *websocket.Conn
	Send chan Message
	hub  unregisterer

	sendMu sync.Mutex
	closed bool

	leagueMu sync.RWMutex
	league   models.League // empty means every league
}

// NewClient creates a client that only receives updates for league, or all
// leagues when league is empty
func NewClient(id string, conn *websocket.Conn, hub unregisterer, league models.League) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		Send:   make(chan Message, sendBufferSize),
		hub:    hub,
		league: league,
	}
}

// League returns the client's league filter
func (c *Client) League() models.League {
	c.leagueMu.RLock()
	defer c.leagueMu.RUnlock()
	return c.league
}

// Matches reports whether a message for league should go to this client
func (c *Client) Matches(league models.League) bool {
	f := c.League()
	return f == "" || f == league
}

// TrySend queues msg without blocking. It returns false when the buffer is full.
func (c *Client) TrySend(msg Message) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue once
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// ReadPump reads subscription changes until the connection drops
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}

		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("client", c.ID).Msg("Websocket closed unexpectedly")
			}
			return
		}
		c.handleClientMessage(msg)
	}
}

// WritePump writes queued messages and keepalive pings
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				log.Debug().Err(err).Str("client", c.ID).Msg("Websocket write failed")
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

func (c *Client) handleClientMessage(msg ClientMessage) {
	switch msg.Type {
	case MessageTypeSubscribe:
		league := models.League("")
		if msg.League != "" {
			l, err := models.ParseLeague(msg.League)
			if err != nil {
				c.TrySend(newError(err.Error()))
				return
			}
			league = l
		}
		c.leagueMu.Lock()
		c.league = league
		c.leagueMu.Unlock()
		log.Debug().Str("client", c.ID).Str("league", league.String()).Msg("Client subscribed")

	default:
		c.TrySend(newError("unknown message type: " + msg.Type))
	}
}
