package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/game"
	"github.com/neuroforge/backend/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by CORS and the bearer token
	},
}

// HandleWebSocket attaches an authenticated participant to a match room.
// The first frame sent is the full duel state; after that the client gets
// every duel_state and notice published for the match.
func HandleWebSocket(ctx context.Context, hub *Hub, duels *game.Duels) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")
		playerID := middleware.PlayerID(c)

		m, st, err := duels.Get(c.Request.Context(), matchID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load match"})
			return
		}
		if !m.HasPlayer(playerID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this match"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("upgrade failed", zap.Int64("player_id", playerID), zap.Error(err))
			return
		}

		client := newClient(hub, conn, duels, playerID, matchID)
		if !hub.Register(client) {
			client.close()
			return
		}

		if data, err := json.Marshal(game.StateEvent(m, st)); err == nil {
			client.trySend(data)
		}

		go client.writePump()
		go client.readPump(ctx)
	}
}

// HandlePlayerSocket attaches an authenticated player to their private
// channel. It carries notices sent outside a match room, such as
// match_found and queue_timeout while the player is queued.
func HandlePlayerSocket(ctx context.Context, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := middleware.PlayerID(c)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("upgrade failed", zap.Int64("player_id", playerID), zap.Error(err))
			return
		}

		client := newClient(hub, conn, nil, playerID, "")
		if !hub.Register(client) {
			client.close()
			return
		}

		go client.writePump()
		go client.readPump(ctx)
	}
}
