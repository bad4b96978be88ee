package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

const modelColumns = `id, owner_id, name, accuracy, speed_score, popularity_score, credits_per_minute, deployed, created_at`

type ModelStore struct {
	db *sqlx.DB
}

func (s *ModelStore) FindByID(ctx context.Context, id int64) (*models.AIModel, error) {
	var m models.AIModel
	if err := s.db.GetContext(ctx, &m, `SELECT `+modelColumns+` FROM ai_models WHERE id=$1`, id); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *ModelStore) Create(ctx context.Context, m *models.AIModel) error {
	return s.db.QueryRowxContext(ctx,
		`INSERT INTO ai_models (owner_id, name, accuracy, speed_score, popularity_score, credits_per_minute, deployed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING id, created_at`,
		m.OwnerID, m.Name, m.Accuracy, m.SpeedScore, m.PopularityScore, m.CreditsPerMinute, m.Deployed,
	).Scan(&m.ID, &m.CreatedAt)
}

func (s *ModelStore) SetDeployed(ctx context.Context, id int64, deployed bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE ai_models SET deployed=$1 WHERE id=$2`, deployed, id)
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrNotFound)
}

func (s *ModelStore) UpdateIncome(ctx context.Context, id int64, creditsPerMinute int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE ai_models SET credits_per_minute=$1 WHERE id=$2`, creditsPerMinute, id)
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrNotFound)
}

func (s *ModelStore) ListDeployed(ctx context.Context) ([]models.AIModel, error) {
	list := []models.AIModel{}
	err := s.db.SelectContext(ctx, &list, `SELECT `+modelColumns+` FROM ai_models WHERE deployed ORDER BY id`)
	return list, err
}

func (s *ModelStore) ListByOwner(ctx context.Context, ownerID int64) ([]models.AIModel, error) {
	list := []models.AIModel{}
	err := s.db.SelectContext(ctx, &list, `SELECT `+modelColumns+` FROM ai_models WHERE owner_id=$1 ORDER BY id`, ownerID)
	return list, err
}

func (s *ModelStore) TopByIncome(ctx context.Context, limit int) ([]models.AIModel, error) {
	list := []models.AIModel{}
	err := s.db.SelectContext(ctx, &list,
		`SELECT `+modelColumns+` FROM ai_models ORDER BY credits_per_minute DESC, id ASC LIMIT $1`, limit)
	return list, err
}

var _ store.ModelStore = (*ModelStore)(nil)
