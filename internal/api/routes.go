package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/neuroforge/backend/internal/accounts"
	"github.com/neuroforge/backend/internal/aimodels"
	"github.com/neuroforge/backend/internal/api/handlers"
	"github.com/neuroforge/backend/internal/config"
	"github.com/neuroforge/backend/internal/game"
	"github.com/neuroforge/backend/internal/logging"
	"github.com/neuroforge/backend/internal/middleware"
	"github.com/neuroforge/backend/internal/store"
	"github.com/neuroforge/backend/internal/upgrades"
	"github.com/neuroforge/backend/internal/ws"
)

// Services bundles what the handlers call into.
type Services struct {
	Players    store.PlayerStore
	Ledger     *accounts.Ledger
	Models     *aimodels.Service
	Upgrades   *upgrades.Service
	Matchmaker *game.Matchmaker
	Duels      *game.Duels
	Hub        *ws.Hub
}

// SetupRoutes configures all API routes. ctx bounds websocket sessions.
func SetupRoutes(ctx context.Context, router *gin.Engine, cfg *config.Config, svc Services) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		logging.Debug("no-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	v1.GET("/health", handlers.HealthCheck)

	authed := v1.Group("")
	authed.Use(middleware.Auth(cfg.JWTSecret))
	{
		authed.GET("/ws", middleware.WebSocketCORSCheck(cfg), ws.HandlePlayerSocket(ctx, svc.Hub))

		aiModels := authed.Group("/models")
		{
			aiModels.POST("", handlers.CreateModel(svc.Models))
			aiModels.GET("", handlers.ListMyModels(svc.Models))
			aiModels.GET("/top", handlers.TopModels(svc.Models))
			aiModels.GET("/:id", handlers.GetModel(svc.Models))
			aiModels.PATCH("/:id/deployment", handlers.SetModelDeployment(svc.Models))
		}

		queue := authed.Group("/queue")
		{
			queue.POST("/join", handlers.JoinQueue(svc.Matchmaker))
			queue.POST("/leave", handlers.LeaveQueue(svc.Matchmaker))
		}

		wallet := authed.Group("/wallet")
		{
			wallet.GET("", handlers.GetWallet(svc.Ledger))
			wallet.POST("/transfer", handlers.TransferCredits(svc.Ledger))
		}

		up := authed.Group("/upgrades")
		{
			up.GET("", handlers.ListUpgrades(svc.Upgrades))
			up.GET("/:category", handlers.GetUpgrade(svc.Upgrades))
			up.POST("/:category/start", handlers.StartUpgrade(svc.Upgrades))
			up.POST("/:category/speedup", handlers.SpeedUpUpgrade(svc.Upgrades))
			up.POST("/:category/cancel", handlers.CancelUpgrade(svc.Upgrades))
		}

		matches := authed.Group("/matches")
		{
			matches.GET("/history", handlers.MatchHistory(svc.Duels))
			matches.GET("/active", handlers.ActiveMatches(svc.Duels))
			matches.GET("/:id", handlers.GetMatch(svc.Duels))
			matches.POST("/:id/ready", handlers.ReadyMatch(svc.Duels))
			matches.POST("/:id/submit", handlers.SubmitRound(svc.Duels))
			matches.POST("/:id/cancel", handlers.CancelMatch(svc.Duels))
			matches.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), ws.HandleWebSocket(ctx, svc.Hub, svc.Duels))
		}

		authed.GET("/players/:id/stats", handlers.GetPlayerStats(svc.Players, svc.Duels))
		authed.GET("/players/:id/models", handlers.ListPlayerModels(svc.Models))
		authed.GET("/leaderboard", handlers.Leaderboard(svc.Players))
	}
}
