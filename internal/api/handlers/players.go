package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/game"
	"github.com/neuroforge/backend/internal/store"
)

// GetPlayerStats returns a player's rating and win rate.
func GetPlayerStats(players store.PlayerStore, duels *game.Duels) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := int64Param(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()

		p, err := players.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, apperr.NotFound("player %d not found", id))
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		rate, err := duels.WinRate(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"player_id":    p.ID,
			"username":     p.Username,
			"skill_rating": p.SkillRating,
			"win_rate":     rate,
		})
	}
}

// Leaderboard lists the top players by rating.
func Leaderboard(players store.PlayerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limit <= 0 || limit > 100 {
			limit = 10
		}
		top, err := players.TopByRating(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"players": top})
	}
}
