package upgrades

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/store"
)

// Sweep completes every upgrade whose finish time has passed and returns how
// many it completed. Records that fail are logged and left for the next run;
// a record another writer already completed is skipped.
func (s *Service) Sweep(ctx context.Context) int {
	running, err := s.records.ListUpgrading(ctx)
	if err != nil {
		s.log.Error("list running upgrades", zap.Error(err))
		return 0
	}

	now := s.now()
	completed := 0
	for i := range running {
		rec := &running[i]
		if ctx.Err() != nil {
			break
		}
		if !rec.FinishAt.Valid || rec.FinishAt.Time.After(now) {
			continue
		}

		if err := s.complete(ctx, rec); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				s.log.Debug("upgrade changed during sweep",
					zap.Int64("player_id", rec.PlayerID), zap.String("category", rec.Category))
				continue
			}
			s.log.Error("complete upgrade",
				zap.Int64("player_id", rec.PlayerID), zap.String("category", rec.Category), zap.Error(err))
			continue
		}

		completed++
		s.log.Info("upgrade completed",
			zap.Int64("player_id", rec.PlayerID), zap.String("category", rec.Category), zap.Int("level", rec.Level))
	}
	return completed
}
