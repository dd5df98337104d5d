package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/pkg/metrics"
)

func TestReconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockDriftRepo(ctrl)
	scheduler := NewScheduler(repo, "@every 1h", time.UTC)

	repo.EXPECT().FindDrift(gomock.Any(), driftReportLimit).
		Return([]domain.LedgerDrift{{UserID: 1, Coins: 10, LedgerAmount: 5}}, nil)
	drifts, err := scheduler.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Len(t, drifts, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LedgerDriftUsers))

	repo.EXPECT().FindDrift(gomock.Any(), driftReportLimit).Return(nil, nil)
	drifts, err = scheduler.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drifts)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.LedgerDriftUsers))

	repo.EXPECT().FindDrift(gomock.Any(), driftReportLimit).Return(nil, errors.New("db down"))
	_, err = scheduler.Reconcile(context.Background())
	assert.Error(t, err)
}

func TestStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockDriftRepo(ctrl)

	bad := NewScheduler(repo, "not a schedule", nil)
	assert.Error(t, bad.Start(context.Background()))

	good := NewScheduler(repo, "30 3 * * *", nil)
	require.NoError(t, good.Start(context.Background()))
	good.Stop()
}
