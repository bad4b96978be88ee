package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

const upgradeColumns = `id, player_id, category, level, status, started_at, finish_at, version`

type UpgradeStore struct {
	db *sqlx.DB
}

func (s *UpgradeStore) Find(ctx context.Context, playerID int64, category string) (*models.UpgradeRecord, error) {
	var r models.UpgradeRecord
	err := s.db.GetContext(ctx, &r,
		`SELECT `+upgradeColumns+` FROM upgrades WHERE player_id=$1 AND category=$2`, playerID, category)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *UpgradeStore) Create(ctx context.Context, r *models.UpgradeRecord) error {
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO upgrades (player_id, category, level, status, started_at, finish_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, 0) RETURNING id, version`,
		r.PlayerID, r.Category, r.Level, r.Status, r.StartedAt, r.FinishAt).Scan(&r.ID, &r.Version)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *UpgradeStore) Save(ctx context.Context, r *models.UpgradeRecord, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE upgrades SET level=$1, status=$2, started_at=$3, finish_at=$4, version=version+1
		 WHERE id=$5 AND version=$6`,
		r.Level, r.Status, r.StartedAt, r.FinishAt, r.ID, expectedVersion)
	if err != nil {
		return err
	}
	if err := expectOne(res, store.ErrVersionConflict); err != nil {
		return err
	}
	r.Version = expectedVersion + 1
	return nil
}

func (s *UpgradeStore) ListByPlayer(ctx context.Context, playerID int64) ([]models.UpgradeRecord, error) {
	list := []models.UpgradeRecord{}
	err := s.db.SelectContext(ctx, &list,
		`SELECT `+upgradeColumns+` FROM upgrades WHERE player_id=$1 ORDER BY category`, playerID)
	return list, err
}

func (s *UpgradeStore) ListUpgrading(ctx context.Context) ([]models.UpgradeRecord, error) {
	list := []models.UpgradeRecord{}
	err := s.db.SelectContext(ctx, &list,
		`SELECT `+upgradeColumns+` FROM upgrades WHERE status=$1 ORDER BY finish_at`, models.UpgradeStatusUpgrading)
	return list, err
}
