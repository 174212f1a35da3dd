// Package scheduler runs the background payout loop: it dispatches delayed
// withdrawals once their window passes and keeps reconciling transfers whose
// outcome is unknown.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/audit"
	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrReconcileExhausted = errors.New("transfer outcome still unknown after retries")

type Processor interface {
	ProcessDue(ctx context.Context, now time.Time) (int, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]models.WithdrawalRequest, error)
	Reconcile(ctx context.Context, actorID, id uuid.UUID) (models.WithdrawalRequest, error)
}

type Scheduler struct {
	svc      Processor
	jobs     chan uuid.UUID
	interval time.Duration
	workers  int
	timeouts []time.Duration
	queued   sync.Map
	now      func() time.Time
}

func NewScheduler(svc Processor, interval time.Duration, workers int) *Scheduler {
	retriesCount := 3
	timeouts := make([]time.Duration, retriesCount)
	for i := 0; i < retriesCount; i++ {
		timeouts[i] = time.Duration(2*i+1) * time.Second
	}
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{
		svc:      svc,
		jobs:     make(chan uuid.UUID, workers*4),
		interval: interval,
		workers:  workers,
		timeouts: timeouts,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g := new(errgroup.Group)
	g.Go(func() error {
		s.loop(ctx)
		return nil
	})
	for i := 0; i < s.workers; i++ {
		i := i
		g.Go(func() error {
			s.worker(ctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	logger.Log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.jobs)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce dispatches due withdrawals and queues unknown transfers for
// reconciliation.
func (s *Scheduler) RunOnce(ctx context.Context) {
	n, err := s.svc.ProcessDue(ctx, s.now())
	if err != nil {
		logger.Log.Error("processing due withdrawals failed", zap.Error(err))
	} else if n > 0 {
		logger.Log.Info("dispatched delayed withdrawals", zap.Int("count", n))
	}

	unknown, err := s.svc.ListByStatus(ctx, models.StatusTransferUnknown)
	if err != nil {
		logger.Log.Error("listing unknown transfers failed", zap.Error(err))
		return
	}
	for _, w := range unknown {
		if _, loaded := s.queued.LoadOrStore(w.ID, struct{}{}); loaded {
			continue
		}
		select {
		case s.jobs <- w.ID:
		default:
			// workers are busy; the next tick picks the rest up
			s.queued.Delete(w.ID)
			logger.Log.Debug("reconcile queue full", zap.String("id", w.ID.String()))
			return
		}
	}
}

func (s *Scheduler) worker(ctx context.Context, idx int) {
	for id := range s.jobs {
		logger.Log.Debug("reconciling transfer", zap.Int("worker", idx), zap.String("id", id.String()))
		if err := s.reconcile(ctx, id); err != nil {
			logger.Log.Warn("reconciliation did not settle",
				zap.Int("worker", idx),
				zap.String("id", id.String()),
				zap.Error(err))
		}
		s.queued.Delete(id)
	}
}

func (s *Scheduler) reconcile(ctx context.Context, id uuid.UUID) error {
	for i, timeout := range s.timeouts {
		w, err := s.svc.Reconcile(ctx, audit.SystemActor, id)
		if err == nil {
			logger.Log.Info("transfer reconciled",
				zap.String("id", id.String()),
				zap.String("status", string(w.Status)))
			return nil
		}
		if !errors.Is(err, models.ErrTransferUnknown) {
			return err
		}
		logger.Log.Info("retrying after timeout",
			zap.Duration("timeout", timeout),
			zap.Int("retry-count", i+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(timeout):
		}
	}
	return ErrReconcileExhausted
}
