// Package cleanup enforces the run history retention policy.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/secretmask/pkg/config"
)

// RunPruner deletes recorded runs older than a cutoff.
type RunPruner interface {
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service periodically deletes runs older than the configured retention.
// Deletes are idempotent and safe to run from multiple replicas.
type Service struct {
	config *config.HistoryConfig
	store  RunPruner
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.HistoryConfig, store RunPruner) *Service {
	return &Service{
		config: cfg,
		store:  store,
		now:    time.Now,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"retention_days", s.config.RetentionDays,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.deleteExpiredRuns(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.deleteExpiredRuns(ctx)
		}
	}
}

// cutoff is the start time before which runs are expired.
func (s *Service) cutoff() time.Time {
	return s.now().AddDate(0, 0, -s.config.RetentionDays)
}

func (s *Service) deleteExpiredRuns(ctx context.Context) {
	count, err := s.store.DeleteRunsBefore(ctx, s.cutoff())
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("Retention: delete runs failed", "error", err)
		}
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted expired runs", "count", count)
	}
}
