package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

type WalletStore struct {
	db *sqlx.DB
}

func (s *WalletStore) Find(ctx context.Context, playerID int64) (*models.Wallet, error) {
	var w models.Wallet
	err := s.db.GetContext(ctx, &w,
		`SELECT player_id, credits, research_points, version, updated_at FROM wallets WHERE player_id=$1`, playerID)
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (s *WalletStore) Create(ctx context.Context, w *models.Wallet) error {
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (player_id, credits, research_points, version, updated_at)
		 VALUES ($1, $2, $3, 0, NOW()) RETURNING version, updated_at`,
		w.PlayerID, w.Credits, w.ResearchPoints).Scan(&w.Version, &w.UpdatedAt)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *WalletStore) CompareAndSwap(ctx context.Context, w *models.Wallet, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE wallets SET credits=$1, research_points=$2, version=version+1, updated_at=NOW()
		 WHERE player_id=$3 AND version=$4`,
		w.Credits, w.ResearchPoints, w.PlayerID, expectedVersion)
	if err != nil {
		return err
	}
	if err := expectOne(res, store.ErrVersionConflict); err != nil {
		return err
	}
	w.Version = expectedVersion + 1
	return nil
}
