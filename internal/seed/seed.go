// Package seed creates demo players and models for local play.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/accounts"
	"github.com/neuroforge/backend/internal/logging"
	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

type demoPlayer struct {
	username string
	rating   int
	model    models.AIModel
}

var demo = []demoPlayer{
	{"ada", 1000, models.AIModel{Name: "babel-small", Accuracy: 0.72, SpeedScore: 60, PopularityScore: 40, Deployed: true}},
	{"grace", 1050, models.AIModel{Name: "quicksort-pro", Accuracy: 0.81, SpeedScore: 85, PopularityScore: 55, Deployed: true}},
	{"alan", 1180, models.AIModel{Name: "enigma-2", Accuracy: 0.9, SpeedScore: 70, PopularityScore: 90, Deployed: true}},
	{"linus", 940, models.AIModel{Name: "kernel-lm", Accuracy: 0.64, SpeedScore: 95, PopularityScore: 20}},
}

// Demo creates the demo players with one model each and opens their
// wallets. Players that already exist are skipped.
func Demo(ctx context.Context, stores store.Stores, ledger *accounts.Ledger) ([]models.Player, error) {
	log := logging.Named("seed")
	var created []models.Player

	for _, d := range demo {
		p := &models.Player{Username: d.username, SkillRating: d.rating}
		if err := stores.Players.Create(ctx, p); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				log.Info("player exists, skipping", zap.String("username", d.username))
				continue
			}
			return created, fmt.Errorf("create player %s: %w", d.username, err)
		}

		m := d.model
		m.OwnerID = p.ID
		m.CreditsPerMinute = accounts.ModelIncome(m)
		if err := stores.Models.Create(ctx, &m); err != nil {
			return created, fmt.Errorf("create model for %s: %w", d.username, err)
		}
		if _, err := ledger.Wallet(ctx, p.ID); err != nil {
			return created, fmt.Errorf("open wallet for %s: %w", d.username, err)
		}

		created = append(created, *p)
		log.Info("seeded player",
			zap.Int64("player_id", p.ID), zap.String("username", p.Username),
			zap.Int64("model_id", m.ID), zap.String("model", m.Name))
	}
	return created, nil
}
