package economyservice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/spinearn/internal/domain"
	configrepo "github.com/GlebRadaev/spinearn/internal/repo/config-repo"
)

func NewMock(t *testing.T) (*Service, *MockRepo) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	return New(repo, time.Minute), repo
}

func TestGet(t *testing.T) {
	stored := domain.DefaultEconomyConfig()
	stored.Version = 3
	broken := domain.DefaultEconomyConfig()
	broken.WheelWeights = map[string]int64{"2": 0}

	tests := []struct {
		name        string
		prepareMock func(repo *MockRepo)
		wantVersion int64
		wantErr     error
	}{
		{
			name: "stored config",
			prepareMock: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), configrepo.EconomyKey).Return(stored, nil)
			},
			wantVersion: 3,
		},
		{
			name: "defaults when nothing stored",
			prepareMock: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), configrepo.EconomyKey).Return(nil, nil)
			},
			wantVersion: 0,
		},
		{
			name: "invalid stored config",
			prepareMock: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), configrepo.EconomyKey).Return(broken, nil)
			},
			wantErr: domain.ErrConfig,
		},
		{
			name: "repository error",
			prepareMock: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), configrepo.EconomyKey).Return(nil, errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo := NewMock(t)
			tt.prepareMock(repo)

			cfg, err := service.Get(context.Background())
			if tt.wantErr != nil {
				assert.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrConfig) {
					assert.ErrorIs(t, err, domain.ErrConfig)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, cfg.Version)
		})
	}
}

func TestGetCachesUntilTTL(t *testing.T) {
	service, repo := NewMock(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	repo.EXPECT().Get(gomock.Any(), configrepo.EconomyKey).Return(domain.DefaultEconomyConfig(), nil).Times(2)

	for i := 0; i < 3; i++ {
		_, err := service.Get(context.Background())
		require.NoError(t, err)
	}
	now = now.Add(2 * time.Minute)
	_, err := service.Get(context.Background())
	require.NoError(t, err)
}

func TestGetConcurrentMissesLoadOnce(t *testing.T) {
	service, repo := NewMock(t)
	release := make(chan struct{})
	repo.EXPECT().Get(gomock.Any(), configrepo.EconomyKey).
		DoAndReturn(func(ctx context.Context, key string) (*domain.EconomyConfig, error) {
			<-release
			return domain.DefaultEconomyConfig(), nil
		}).MinTimes(1).MaxTimes(2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Get(context.Background())
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
}

func TestUpdate(t *testing.T) {
	valid := domain.DefaultEconomyConfig()
	saved := domain.DefaultEconomyConfig()
	saved.Version = 5
	invalid := domain.DefaultEconomyConfig()
	invalid.Withdrawals.Fee = 1.5

	tests := []struct {
		name        string
		cfg         *domain.EconomyConfig
		prepareMock func(repo *MockRepo)
		wantErr     error
	}{
		{
			name: "saved",
			cfg:  valid,
			prepareMock: func(repo *MockRepo) {
				repo.EXPECT().Save(gomock.Any(), configrepo.EconomyKey, valid, int64(4), int64(9)).Return(saved, nil)
			},
		},
		{
			name:        "invalid config",
			cfg:         invalid,
			prepareMock: func(repo *MockRepo) {},
			wantErr:     domain.ErrValidation,
		},
		{
			name: "stale version",
			cfg:  valid,
			prepareMock: func(repo *MockRepo) {
				repo.EXPECT().Save(gomock.Any(), configrepo.EconomyKey, valid, int64(4), int64(9)).
					Return(nil, domain.ErrConflict)
			},
			wantErr: domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo := NewMock(t)
			tt.prepareMock(repo)

			got, err := service.Update(context.Background(), 9, tt.cfg, 4)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(5), got.Version)

			// the saved snapshot is served without another load
			cfg, err := service.Get(context.Background())
			require.NoError(t, err)
			assert.Same(t, saved, cfg)
		})
	}
}

func TestInvalidate(t *testing.T) {
	service, repo := NewMock(t)
	repo.EXPECT().Get(gomock.Any(), configrepo.EconomyKey).Return(domain.DefaultEconomyConfig(), nil).Times(2)

	_, err := service.Get(context.Background())
	require.NoError(t, err)
	service.Invalidate()
	_, err = service.Get(context.Background())
	require.NoError(t, err)
}
