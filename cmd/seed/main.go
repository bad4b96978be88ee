package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/accounts"
	"github.com/neuroforge/backend/internal/config"
	"github.com/neuroforge/backend/internal/database"
	"github.com/neuroforge/backend/internal/logging"
	"github.com/neuroforge/backend/internal/middleware"
	"github.com/neuroforge/backend/internal/migrations"
	"github.com/neuroforge/backend/internal/seed"
	"github.com/neuroforge/backend/internal/store/postgres"
)

// seed creates the demo players in Postgres and prints a bearer token for
// each so the API can be tried out locally.
func main() {
	cfg := config.Load()
	if err := logging.Init(cfg.Environment, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logging.Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		logging.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()
	stores := postgres.New(db)
	ledger := accounts.NewLedger(stores.Wallets, stores.Players, accounts.Options{
		StartingCredits:        int64(cfg.StartingCredits),
		StartingResearchPoints: int64(cfg.StartingResearchPoints),
	})

	players, err := seed.Demo(ctx, stores, ledger)
	if err != nil {
		logging.Fatal("failed to seed", zap.Error(err))
	}

	for _, p := range players {
		token, err := middleware.IssueToken(cfg.JWTSecret, p.ID, 30*24*time.Hour)
		if err != nil {
			logging.Fatal("failed to sign token", zap.Error(err))
		}
		fmt.Printf("%-8s id=%d rating=%d\n  token: %s\n", p.Username, p.ID, p.SkillRating, token)
	}
	logging.Info("seed complete", zap.Int("players", len(players)))
}
