// Package memory implements the store contracts in process memory. Values
// are copied in and out so callers observe the same isolation a database
// would give them.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

// New returns every store backed by one shared in-memory database.
func New() store.Stores {
	db := &DB{
		players:  map[int64]models.Player{},
		aiModels: map[int64]models.AIModel{},
		wallets:  map[int64]models.Wallet{},
		upgrades: map[upgradeKey]models.UpgradeRecord{},
		queue:    map[int64]models.QueueEntry{},
		matches:  map[string]models.Match{},
	}
	return store.Stores{
		Players:  (*PlayerStore)(db),
		Models:   (*ModelStore)(db),
		Wallets:  (*WalletStore)(db),
		Upgrades: (*UpgradeStore)(db),
		Queue:    (*QueueStore)(db),
		Matches:  (*MatchStore)(db),
	}
}

type upgradeKey struct {
	playerID int64
	category string
}

type DB struct {
	mu sync.Mutex

	nextPlayerID  int64
	nextModelID   int64
	nextUpgradeID int64

	players  map[int64]models.Player
	aiModels map[int64]models.AIModel
	wallets  map[int64]models.Wallet
	upgrades map[upgradeKey]models.UpgradeRecord
	queue    map[int64]models.QueueEntry
	matches  map[string]models.Match
}

// Players

type PlayerStore DB

func (s *PlayerStore) FindByID(_ context.Context, id int64) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *PlayerStore) Create(_ context.Context, p *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.players {
		if existing.Username == p.Username {
			return store.ErrAlreadyExists
		}
	}
	if p.ID == 0 {
		s.nextPlayerID++
		p.ID = s.nextPlayerID
	} else if p.ID > s.nextPlayerID {
		s.nextPlayerID = p.ID
	}
	if p.SkillRating == 0 {
		p.SkillRating = models.StartingRating
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.players[p.ID] = *p
	return nil
}

func (s *PlayerStore) AdjustRating(_ context.Context, id int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return store.ErrNotFound
	}
	p.SkillRating += delta
	s.players[id] = p
	return nil
}

func (s *PlayerStore) TopByRating(_ context.Context, limit int) ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.Player, 0, len(s.players))
	for _, p := range s.players {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].SkillRating != list[j].SkillRating {
			return list[i].SkillRating > list[j].SkillRating
		}
		return list[i].ID < list[j].ID
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Models

type ModelStore DB

func (s *ModelStore) FindByID(_ context.Context, id int64) (*models.AIModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.aiModels[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s *ModelStore) Create(_ context.Context, m *models.AIModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		s.nextModelID++
		m.ID = s.nextModelID
	} else if m.ID > s.nextModelID {
		s.nextModelID = m.ID
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.aiModels[m.ID] = *m
	return nil
}

func (s *ModelStore) SetDeployed(_ context.Context, id int64, deployed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.aiModels[id]
	if !ok {
		return store.ErrNotFound
	}
	m.Deployed = deployed
	s.aiModels[id] = m
	return nil
}

func (s *ModelStore) UpdateIncome(_ context.Context, id int64, creditsPerMinute int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.aiModels[id]
	if !ok {
		return store.ErrNotFound
	}
	m.CreditsPerMinute = creditsPerMinute
	s.aiModels[id] = m
	return nil
}

func (s *ModelStore) ListDeployed(_ context.Context) ([]models.AIModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.AIModel{}
	for _, m := range s.aiModels {
		if m.Deployed {
			list = append(list, m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *ModelStore) ListByOwner(_ context.Context, ownerID int64) ([]models.AIModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.AIModel{}
	for _, m := range s.aiModels {
		if m.OwnerID == ownerID {
			list = append(list, m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *ModelStore) TopByIncome(_ context.Context, limit int) ([]models.AIModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.AIModel, 0, len(s.aiModels))
	for _, m := range s.aiModels {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreditsPerMinute != list[j].CreditsPerMinute {
			return list[i].CreditsPerMinute > list[j].CreditsPerMinute
		}
		return list[i].ID < list[j].ID
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Wallets

type WalletStore DB

func (s *WalletStore) Find(_ context.Context, playerID int64) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[playerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (s *WalletStore) Create(_ context.Context, w *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[w.PlayerID]; ok {
		return store.ErrAlreadyExists
	}
	w.Version = 0
	w.UpdatedAt = time.Now()
	s.wallets[w.PlayerID] = *w
	return nil
}

func (s *WalletStore) CompareAndSwap(_ context.Context, w *models.Wallet, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.wallets[w.PlayerID]
	if !ok || current.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	w.Version = expectedVersion + 1
	w.UpdatedAt = time.Now()
	s.wallets[w.PlayerID] = *w
	return nil
}

// Upgrades

type UpgradeStore DB

func (s *UpgradeStore) Find(_ context.Context, playerID int64, category string) (*models.UpgradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.upgrades[upgradeKey{playerID, category}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *UpgradeStore) Create(_ context.Context, r *models.UpgradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := upgradeKey{r.PlayerID, r.Category}
	if _, ok := s.upgrades[key]; ok {
		return store.ErrAlreadyExists
	}
	s.nextUpgradeID++
	r.ID = s.nextUpgradeID
	r.Version = 0
	s.upgrades[key] = *r
	return nil
}

func (s *UpgradeStore) Save(_ context.Context, r *models.UpgradeRecord, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := upgradeKey{r.PlayerID, r.Category}
	current, ok := s.upgrades[key]
	if !ok || current.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	r.Version = expectedVersion + 1
	s.upgrades[key] = *r
	return nil
}

func (s *UpgradeStore) ListByPlayer(_ context.Context, playerID int64) ([]models.UpgradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.UpgradeRecord{}
	for _, r := range s.upgrades {
		if r.PlayerID == playerID {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Category < list[j].Category })
	return list, nil
}

func (s *UpgradeStore) ListUpgrading(_ context.Context) ([]models.UpgradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.UpgradeRecord{}
	for _, r := range s.upgrades {
		if r.Upgrading() {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Queue

type QueueStore DB

func (s *QueueStore) Upsert(_ context.Context, e *models.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue[e.PlayerID] = *e
	return nil
}

func (s *QueueStore) Find(_ context.Context, playerID int64) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.queue[playerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *QueueStore) Delete(_ context.Context, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queue, playerID)
	return nil
}

func (s *QueueStore) ClaimPair(_ context.Context, a, b models.QueueEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.queuedAt(a) || !s.queuedAt(b) {
		return false, nil
	}
	delete(s.queue, a.PlayerID)
	delete(s.queue, b.PlayerID)
	return true, nil
}

func (s *QueueStore) DeleteIf(_ context.Context, e models.QueueEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.queuedAt(e) {
		return false, nil
	}
	delete(s.queue, e.PlayerID)
	return true, nil
}

func (s *QueueStore) queuedAt(e models.QueueEntry) bool {
	current, ok := s.queue[e.PlayerID]
	return ok && current.EnqueuedAt.Equal(e.EnqueuedAt)
}

func (s *QueueStore) ListSearching(_ context.Context) ([]models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.QueueEntry{}
	for _, e := range s.queue {
		if e.Status == models.QueueStatusSearching {
			list = append(list, e)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].EnqueuedAt.Equal(list[j].EnqueuedAt) {
			return list[i].EnqueuedAt.Before(list[j].EnqueuedAt)
		}
		return list[i].PlayerID < list[j].PlayerID
	})
	return list, nil
}

func (s *QueueStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.queue {
		if e.EnqueuedAt.Before(cutoff) {
			delete(s.queue, id)
			n++
		}
	}
	return n, nil
}

// Matches

type MatchStore DB

func (s *MatchStore) Create(_ context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return store.ErrAlreadyExists
	}
	m.Version = 0
	s.matches[m.ID] = cloneMatch(*m)
	return nil
}

func (s *MatchStore) FindByID(_ context.Context, id string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	m = cloneMatch(m)
	return &m, nil
}

func (s *MatchStore) Update(_ context.Context, m *models.Match, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.matches[m.ID]
	if !ok || current.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	m.Version = expectedVersion + 1
	s.matches[m.ID] = cloneMatch(*m)
	return nil
}

func (s *MatchStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.matches, id)
	return nil
}

func (s *MatchStore) ListByPlayer(_ context.Context, playerID int64, limit int) ([]models.Match, error) {
	list := s.filter(func(m *models.Match) bool { return m.HasPlayer(playerID) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *MatchStore) ListActiveByPlayer(_ context.Context, playerID int64) ([]models.Match, error) {
	return s.filter(func(m *models.Match) bool { return m.HasPlayer(playerID) && !m.Ended() }), nil
}

func (s *MatchStore) ListActive(_ context.Context) ([]models.Match, error) {
	list := s.filter(func(m *models.Match) bool { return !m.Ended() })
	sort.SliceStable(list, func(i, j int) bool { return list[i].StartedAt.Before(list[j].StartedAt) })
	return list, nil
}

func (s *MatchStore) CountPlayed(_ context.Context, playerID int64) (int64, error) {
	return int64(len(s.filter(func(m *models.Match) bool { return m.HasPlayer(playerID) && m.Ended() }))), nil
}

func (s *MatchStore) CountWins(_ context.Context, playerID int64) (int64, error) {
	return int64(len(s.filter(func(m *models.Match) bool {
		return m.WinnerID.Valid && m.WinnerID.Int64 == playerID
	}))), nil
}

// filter returns matching copies, newest first.
func (s *MatchStore) filter(keep func(m *models.Match) bool) []models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.Match{}
	for _, m := range s.matches {
		if keep(&m) {
			list = append(list, cloneMatch(m))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.After(list[j].StartedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func cloneMatch(m models.Match) models.Match {
	if m.GameState != nil {
		m.GameState = append([]byte(nil), m.GameState...)
	}
	return m
}
