// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/pkg/metrics"
)

const driftReportLimit = 100

type DriftRepo interface {
	FindDrift(ctx context.Context, limit int) ([]domain.LedgerDrift, error)
}

type Scheduler struct {
	cron     *cron.Cron
	drift    DriftRepo
	schedule string
}

func NewScheduler(drift DriftRepo, schedule string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		drift:    drift,
		schedule: schedule,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Reconcile(ctx); err != nil {
			zap.L().Error("ledger reconciliation failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	zap.L().Info("scheduler started", zap.String("reconcile", s.schedule))
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	zap.L().Info("scheduler stopped")
}

// Reconcile compares every balance with the sum of its wallet ledger and
// reports users whose numbers disagree.
func (s *Scheduler) Reconcile(ctx context.Context) ([]domain.LedgerDrift, error) {
	drifts, err := s.drift.FindDrift(ctx, driftReportLimit)
	if err != nil {
		return nil, err
	}
	metrics.LedgerDriftUsers.Set(float64(len(drifts)))
	for _, d := range drifts {
		zap.L().Warn("ledger drift",
			zap.Int64("userID", d.UserID),
			zap.Int64("coins", d.Coins),
			zap.Int64("ledger", d.LedgerAmount))
	}
	if len(drifts) == 0 {
		zap.L().Info("ledger reconciled")
	}
	return drifts, nil
}
