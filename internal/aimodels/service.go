// Package aimodels manages the AI models players build, deploy for passive
// income and send into duels.
package aimodels

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/logging"
	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

const (
	DefaultTopLimit = 10
	maxNameLength   = 64
)

type Service struct {
	models  store.ModelStore
	players store.PlayerStore
	log     *zap.Logger
}

func NewService(aiModels store.ModelStore, players store.PlayerStore) *Service {
	return &Service{
		models:  aiModels,
		players: players,
		log:     logging.Named("models"),
	}
}

// CreateRequest holds the tunable stats of a new model.
type CreateRequest struct {
	Name       string  `json:"name"`
	Accuracy   float64 `json:"accuracy"`
	SpeedScore int     `json:"speed_score"`
}

func (r CreateRequest) validate() error {
	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		return apperr.Validation("model name is required")
	case len(name) > maxNameLength:
		return apperr.Validation("model name is longer than %d characters", maxNameLength)
	case r.Accuracy < 0 || r.Accuracy > 1:
		return apperr.Validation("accuracy must be between 0 and 1")
	case r.SpeedScore < 0:
		return apperr.Validation("speed score must not be negative")
	}
	return nil
}

// Create stores a new undeployed model for ownerID. Income starts at zero
// and is derived from the stats the first time the model earns.
func (s *Service) Create(ctx context.Context, ownerID int64, req CreateRequest) (*models.AIModel, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := s.players.FindByID(ctx, ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("player %d not found", ownerID)
		}
		return nil, fmt.Errorf("find player: %w", err)
	}

	m := &models.AIModel{
		OwnerID:    ownerID,
		Name:       strings.TrimSpace(req.Name),
		Accuracy:   req.Accuracy,
		SpeedScore: req.SpeedScore,
	}
	if err := s.models.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create model: %w", err)
	}

	s.log.Info("model created", zap.Int64("model_id", m.ID), zap.Int64("owner_id", ownerID), zap.String("name", m.Name))
	return m, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.AIModel, error) {
	m, err := s.models.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("model %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find model: %w", err)
	}
	return m, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]models.AIModel, error) {
	list, err := s.models.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return list, nil
}

// SetDeployed deploys or withdraws a model. Only the owner may do this;
// asking for the current state changes nothing.
func (s *Service) SetDeployed(ctx context.Context, requesterID, id int64, deploy bool) (*models.AIModel, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OwnerID != requesterID {
		return nil, apperr.InvalidOwnership("model %d does not belong to player %d", id, requesterID)
	}
	if m.Deployed == deploy {
		return m, nil
	}

	if err := s.models.SetDeployed(ctx, id, deploy); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("model %d not found", id)
		}
		return nil, fmt.Errorf("set deployment: %w", err)
	}
	m.Deployed = deploy

	s.log.Info("model deployment changed", zap.Int64("model_id", id), zap.Int64("owner_id", requesterID), zap.Bool("deployed", deploy))
	return m, nil
}

// Top returns the highest earning models. A non-positive limit means
// DefaultTopLimit.
func (s *Service) Top(ctx context.Context, limit int) ([]models.AIModel, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	list, err := s.models.TopByIncome(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top models: %w", err)
	}
	return list, nil
}
