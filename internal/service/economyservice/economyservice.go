package economyservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GlebRadaev/spinearn/internal/domain"
	configrepo "github.com/GlebRadaev/spinearn/internal/repo/config-repo"
)

type Repo interface {
	Get(ctx context.Context, key string) (*domain.EconomyConfig, error)
	Save(ctx context.Context, key string, cfg *domain.EconomyConfig, expectedVersion int64, updatedBy int64) (*domain.EconomyConfig, error)
}

// Service hands out economy config snapshots. Snapshots are shared and must
// be treated as read-only.
type Service struct {
	repo  Repo
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu       sync.RWMutex
	cached   *domain.EconomyConfig
	loadedAt time.Time
}

func New(repo Repo, ttl time.Duration) *Service {
	return &Service{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns the current snapshot. Concurrent misses share one load; a
// missing row yields the defaults at version 0.
func (s *Service) Get(ctx context.Context) (*domain.EconomyConfig, error) {
	s.mu.RLock()
	cfg, loadedAt := s.cached, s.loadedAt
	s.mu.RUnlock()
	if cfg != nil && s.now().Sub(loadedAt) < s.ttl {
		return cfg, nil
	}

	v, err, _ := s.group.Do(configrepo.EconomyKey, func() (any, error) {
		cfg, err := s.repo.Get(ctx, configrepo.EconomyKey)
		if err != nil {
			return nil, err
		}
		if cfg == nil {
			cfg = domain.DefaultEconomyConfig()
		}
		if err := cfg.Validate(); err != nil {
			zap.L().Error("stored economy config is invalid", zap.Int64("version", cfg.Version), zap.Error(err))
			return nil, err
		}
		s.store(cfg)
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.EconomyConfig), nil
}

// Update saves cfg as the successor of expectedVersion. Only admins call it.
func (s *Service) Update(ctx context.Context, adminID int64, cfg *domain.EconomyConfig, expectedVersion int64) (*domain.EconomyConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	saved, err := s.repo.Save(ctx, configrepo.EconomyKey, cfg, expectedVersion, adminID)
	if err != nil {
		return nil, err
	}
	zap.L().Info("economy config updated", zap.Int64("version", saved.Version), zap.Int64("adminID", adminID))
	s.store(saved)
	return saved, nil
}

func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *Service) store(cfg *domain.EconomyConfig) {
	s.mu.Lock()
	s.cached = cfg
	s.loadedAt = s.now()
	s.mu.Unlock()
}
