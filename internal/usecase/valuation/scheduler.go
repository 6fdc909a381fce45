package valuation

import (
	"context"
	"time"

	portfoliov1 "github.com/quantara/execution/internal/domain/portfolio/v1"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/logger"
)

// Scheduler snapshots every portfolio to the snapshot store and the archive,
// on a fixed interval and on demand.
type Scheduler struct {
	cfg      config.SnapshotConfig
	valuator portfoliov1.Valuator
	store    portfoliov1.SnapshotStore
	archiver portfoliov1.Archiver
	logger   logger.Interface

	trigger chan struct{}
}

// NewScheduler creates a scheduler. Run starts the interval loop.
func NewScheduler(
	cfg config.SnapshotConfig,
	valuator portfoliov1.Valuator,
	store portfoliov1.SnapshotStore,
	archiver portfoliov1.Archiver,
	logger logger.Interface,
) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		valuator: valuator,
		store:    store,
		archiver: archiver,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate snapshot run. Requests arriving while one is
// already queued collapse into it.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run snapshots on the configured interval until the context ends.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SnapshotAll(ctx)
		case <-s.trigger:
			s.SnapshotAll(ctx)
		}
	}
}

// SnapshotAll revalues and persists every portfolio. Failures are logged per
// portfolio; one bad portfolio does not block the rest. A snapshot that
// fails to store is not archived, keeping the archive a subset of what the
// store has seen.
func (s *Scheduler) SnapshotAll(ctx context.Context) {
	for _, snap := range s.valuator.Snapshots(ctx) {
		if err := s.store.Save(ctx, snap); err != nil {
			s.logger.ErrorContext(ctx, "failed to store portfolio snapshot",
				logger.Field{Key: "portfolio_id", Value: snap.PortfolioID},
				logger.Field{Key: "error", Value: err.Error()},
			)
			continue
		}
		if err := s.archiver.Append(ctx, snap); err != nil {
			s.logger.ErrorContext(ctx, "failed to archive portfolio snapshot",
				logger.Field{Key: "portfolio_id", Value: snap.PortfolioID},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
	}
}
