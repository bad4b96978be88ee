package accounts

import (
	"context"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/logging"
	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

// ModelIncome returns the credits a deployed model earns per minute. Models
// without a stored rate get one derived from their stats.
func ModelIncome(m models.AIModel) int {
	if m.CreditsPerMinute > 0 {
		return m.CreditsPerMinute
	}
	rate := int(5 + m.Accuracy*10 + float64(m.PopularityScore)/10 + float64(m.SpeedScore)/20)
	if rate < 0 {
		return 0
	}
	return rate
}

// IncomeWorker credits owners of deployed models once per run.
type IncomeWorker struct {
	models store.ModelStore
	ledger *Ledger
	log    *zap.Logger
}

func NewIncomeWorker(models store.ModelStore, ledger *Ledger) *IncomeWorker {
	return &IncomeWorker{models: models, ledger: ledger, log: logging.Named("income")}
}

// Run pays every deployed model once and returns how many were paid. A
// failure on one model does not stop the others.
func (w *IncomeWorker) Run(ctx context.Context) int {
	deployed, err := w.models.ListDeployed(ctx)
	if err != nil {
		w.log.Error("list deployed models", zap.Error(err))
		return 0
	}

	paid := 0
	for _, m := range deployed {
		if ctx.Err() != nil {
			return paid
		}
		rate := ModelIncome(m)
		if rate != m.CreditsPerMinute {
			if err := w.models.UpdateIncome(ctx, m.ID, rate); err != nil {
				w.log.Warn("store derived income rate", zap.Int64("model_id", m.ID), zap.Error(err))
			}
		}
		if rate == 0 {
			continue
		}
		if _, err := w.ledger.AddCredits(ctx, m.OwnerID, int64(rate)); err != nil {
			w.log.Error("credit passive income",
				zap.Int64("model_id", m.ID), zap.Int64("owner_id", m.OwnerID), zap.Error(err))
			continue
		}
		paid++
	}

	if paid > 0 {
		w.log.Debug("passive income paid", zap.Int("models", paid))
	}
	return paid
}
