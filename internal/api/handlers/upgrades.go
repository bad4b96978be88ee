package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/neuroforge/backend/internal/middleware"
	"github.com/neuroforge/backend/internal/upgrades"
)

func category(c *gin.Context) string {
	return strings.ToUpper(c.Param("category"))
}

// ListUpgrades returns every upgrade track of the caller.
func ListUpgrades(svc *upgrades.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := svc.List(c.Request.Context(), middleware.PlayerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		out := make([]upgrades.LevelInfo, 0, len(records))
		for i := range records {
			out = append(out, svc.Describe(&records[i]))
		}
		c.JSON(http.StatusOK, gin.H{"upgrades": out})
	}
}

// GetUpgrade returns one track with its next step and remaining time.
func GetUpgrade(svc *upgrades.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := svc.NextLevelInfo(c.Request.Context(), middleware.PlayerID(c), category(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// StartUpgrade pays for and starts the next level.
func StartUpgrade(svc *upgrades.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := svc.Start(c.Request.Context(), middleware.PlayerID(c), category(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, svc.Describe(rec))
	}
}

// SpeedUpUpgrade spends research points to pull the finish time forward.
func SpeedUpUpgrade(svc *upgrades.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Minutes int `json:"minutes" binding:"required"`
		}
		if !bindJSON(c, &req) {
			return
		}
		rec, err := svc.SpeedUp(c.Request.Context(), middleware.PlayerID(c), category(c), req.Minutes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, svc.Describe(rec))
	}
}

// CancelUpgrade stops a running upgrade and refunds part of its cost.
func CancelUpgrade(svc *upgrades.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		refund, err := svc.Cancel(c.Request.Context(), middleware.PlayerID(c), category(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cancelled", "refund": refund})
	}
}
