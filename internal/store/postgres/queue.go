package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

const queueColumns = `player_id, model_id, category, skill_rating, status, enqueued_at`

type QueueStore struct {
	db *sqlx.DB
}

func (s *QueueStore) Upsert(ctx context.Context, e *models.QueueEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matchmaking_queue (player_id, model_id, category, skill_rating, status, enqueued_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (player_id) DO UPDATE SET
		   model_id=EXCLUDED.model_id, category=EXCLUDED.category, skill_rating=EXCLUDED.skill_rating,
		   status=EXCLUDED.status, enqueued_at=EXCLUDED.enqueued_at`,
		e.PlayerID, e.ModelID, e.Category, e.SkillRating, e.Status, e.EnqueuedAt)
	return err
}

func (s *QueueStore) Find(ctx context.Context, playerID int64) (*models.QueueEntry, error) {
	var e models.QueueEntry
	if err := s.db.GetContext(ctx, &e, `SELECT `+queueColumns+` FROM matchmaking_queue WHERE player_id=$1`, playerID); err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *QueueStore) Delete(ctx context.Context, playerID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM matchmaking_queue WHERE player_id=$1`, playerID)
	return err
}

// ClaimPair deletes both rows inside one transaction and rolls back unless
// exactly two rows matched.
func (s *QueueStore) ClaimPair(ctx context.Context, a, b models.QueueEntry) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM matchmaking_queue
		 WHERE (player_id=$1 AND enqueued_at=$2) OR (player_id=$3 AND enqueued_at=$4)`,
		a.PlayerID, a.EnqueuedAt, b.PlayerID, b.EnqueuedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n != 2 {
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *QueueStore) DeleteIf(ctx context.Context, e models.QueueEntry) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM matchmaking_queue WHERE player_id=$1 AND enqueued_at=$2`, e.PlayerID, e.EnqueuedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *QueueStore) ListSearching(ctx context.Context) ([]models.QueueEntry, error) {
	list := []models.QueueEntry{}
	err := s.db.SelectContext(ctx, &list,
		`SELECT `+queueColumns+` FROM matchmaking_queue WHERE status=$1 ORDER BY enqueued_at ASC, player_id ASC`,
		models.QueueStatusSearching)
	return list, err
}

func (s *QueueStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM matchmaking_queue WHERE enqueued_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ store.QueueStore = (*QueueStore)(nil)
