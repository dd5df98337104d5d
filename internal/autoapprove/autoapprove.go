// Package autoapprove settles small pending withdrawals without a reviewer.
package autoapprove

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GlebRadaev/spinearn/internal/domain"
)

const batchSize = 100

type Withdrawals interface {
	PendingForAutoApproval(ctx context.Context, limit int) ([]domain.WithdrawalRequest, error)
	Approve(ctx context.Context, id int64, adminID int64) (*domain.WithdrawalRequest, error)
}

type Service struct {
	withdrawals Withdrawals
	workerPool  WorkerPoolI
	interval    time.Duration
	inFlight    sync.Map
}

func New(withdrawals Withdrawals, workers int, interval time.Duration) *Service {
	return &Service{
		withdrawals: withdrawals,
		workerPool:  NewWorkerPool(workers),
		interval:    interval,
	}
}

// Start polls until ctx is done and then drains the worker pool.
func (s *Service) Start(ctx context.Context) {
	zap.L().Info("auto-approval started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.workerPool.Close()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("auto-approval stopped")
			return
		case <-ticker.C:
			s.process(ctx)
		}
	}
}

func (s *Service) process(ctx context.Context) {
	pending, err := s.withdrawals.PendingForAutoApproval(ctx, batchSize)
	if err != nil {
		zap.L().Error("failed to fetch withdrawals for auto-approval", zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, w := range pending {
		if _, loaded := s.inFlight.LoadOrStore(w.ID, struct{}{}); loaded {
			continue
		}
		g.Go(func() error {
			err := s.workerPool.Submit(ctx, func() error {
				defer s.inFlight.Delete(w.ID)
				return s.approve(ctx, w)
			})
			if err != nil {
				s.inFlight.Delete(w.ID)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("auto-approval batch interrupted", zap.Error(err))
	}
}

func (s *Service) approve(ctx context.Context, w domain.WithdrawalRequest) error {
	approved, err := s.withdrawals.Approve(ctx, w.ID, 0)
	if err != nil {
		return err
	}
	zap.L().Info("withdrawal auto-approved",
		zap.Int64("id", approved.ID),
		zap.Int64("userID", approved.UserID),
		zap.Int64("amount", approved.Amount))
	return nil
}
