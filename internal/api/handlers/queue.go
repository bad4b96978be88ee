package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neuroforge/backend/internal/game"
	"github.com/neuroforge/backend/internal/middleware"
)

// JoinQueue puts the caller in the matchmaking queue with one of their models.
func JoinQueue(mm *game.Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ModelID  int64  `json:"model_id" binding:"required"`
			Category string `json:"category" binding:"required"`
		}
		if !bindJSON(c, &req) {
			return
		}

		entry, err := mm.Join(c.Request.Context(), middleware.PlayerID(c), req.ModelID, req.Category)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "queued", "entry": entry})
	}
}

// LeaveQueue removes the caller from the queue.
func LeaveQueue(mm *game.Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mm.Leave(c.Request.Context(), middleware.PlayerID(c)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "left"})
	}
}
