// Package live pushes score updates to websocket subscribers.
package live

import (
	"time"

	"hitrivals/schedule/internal/models"
)

const (
	MessageTypeScoreUpdate = "score_update"
	MessageTypeError       = "error"
	MessageTypeSubscribe   = "subscribe"
)

// Message is sent from the server to clients
type Message struct {
	Type      string       `json:"type"`
	Game      *models.Game `json:"game,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// ClientMessage is sent from clients to the server
type ClientMessage struct {
	Type   string `json:"type"`
	League string `json:"league,omitempty"`
}

func newError(msg string) Message {
	return Message{Type: MessageTypeError, Error: msg, Timestamp: time.Now()}
}
