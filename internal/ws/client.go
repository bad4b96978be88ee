package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBuffer     = 256
)

// Client is one player's connection to one match, or to the player socket
// when matchID is empty.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	duels    *game.Duels
	playerID int64
	matchID  string
	send     chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, duels *game.Duels, playerID int64, matchID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		duels:    duels,
		playerID: playerID,
		matchID:  matchID,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

// Frame is a message read from or written to the socket
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type submitData struct {
	Round   int    `json:"round"`
	Payload string `json:"payload"`
}

// trySend queues data without blocking. It reports false when the buffer
// is full or the client is closed.
func (c *Client) trySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closed"), time.Now().Add(time.Second))
			c.conn.Close()
		}
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.Debug("write error", zap.Int64("player_id", c.playerID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.log.Debug("ping error", zap.Int64("player_id", c.playerID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("unexpected close", zap.Int64("player_id", c.playerID), zap.Error(err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.sendError("malformed frame")
			continue
		}
		c.handleFrame(ctx, frame)
	}
}

// handleFrame applies one client frame. The resulting state reaches both
// players through the duel broadcaster, so only errors are answered here.
func (c *Client) handleFrame(ctx context.Context, frame Frame) {
	if c.matchID == "" {
		c.sendError("player socket only receives notices")
		return
	}
	switch frame.Type {
	case "ready":
		if _, err := c.duels.Ready(ctx, c.matchID, c.playerID); err != nil {
			c.sendError(err.Error())
		}

	case "submit":
		var data submitData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			c.sendError("invalid submit data")
			return
		}
		if _, err := c.duels.Submit(ctx, c.matchID, c.playerID, data.Round, data.Payload); err != nil {
			c.sendError(err.Error())
		}

	case "get_state":
		c.sendState(ctx)

	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) sendState(ctx context.Context) {
	m, st, err := c.duels.Get(ctx, c.matchID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	data, err := json.Marshal(game.StateEvent(m, st))
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]any{
		"type":    "error",
		"message": message,
	})
	c.trySend(data)
}
