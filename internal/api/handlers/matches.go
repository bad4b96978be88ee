package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/game"
	"github.com/neuroforge/backend/internal/middleware"
	"github.com/neuroforge/backend/internal/models"
)

func views(matches []models.Match) []game.MatchView {
	out := make([]game.MatchView, 0, len(matches))
	for i := range matches {
		out = append(out, game.NewMatchView(&matches[i], nil))
	}
	return out
}

// GetMatch returns the match with its full duel state. Clients use it to
// resync after a missed broadcast.
func GetMatch(duels *game.Duels) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, st, err := duels.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if !m.HasPlayer(middleware.PlayerID(c)) {
			respondError(c, apperr.InvalidOwnership("not a participant of match %s", m.ID))
			return
		}
		c.JSON(http.StatusOK, game.NewMatchView(m, st))
	}
}

func MatchHistory(duels *game.Duels) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		matches, err := duels.History(c.Request.Context(), middleware.PlayerID(c), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": views(matches)})
	}
}

func ActiveMatches(duels *game.Duels) gin.HandlerFunc {
	return func(c *gin.Context) {
		matches, err := duels.Active(c.Request.Context(), middleware.PlayerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": views(matches)})
	}
}

func ReadyMatch(duels *game.Duels) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := duels.Ready(c.Request.Context(), c.Param("id"), middleware.PlayerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

// SubmitRound scores the caller's answer for a round. Late, early and
// repeated submissions are accepted and ignored; the response is always the
// current state.
func SubmitRound(duels *game.Duels) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Round   int    `json:"round" binding:"required"`
			Payload string `json:"payload"`
		}
		if !bindJSON(c, &req) {
			return
		}
		st, err := duels.Submit(c.Request.Context(), c.Param("id"), middleware.PlayerID(c), req.Round, req.Payload)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

func CancelMatch(duels *game.Duels) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := duels.Cancel(c.Request.Context(), c.Param("id"), middleware.PlayerID(c)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
	}
}
