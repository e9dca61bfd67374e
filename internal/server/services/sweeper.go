package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/revocations"
)

// Sweeper periodically purges ledger entries whose tokens have expired.
// Expired entries are harmless, so this only bounds storage growth.
type Sweeper struct {
	ledger   revocations.Repository
	interval time.Duration
	logger   logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewSweeper(ledger revocations.Repository, interval time.Duration, l logging.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		ledger:   ledger,
		interval: interval,
		logger:   l.With("module", "revocation_sweeper"),
		metrics:  m,
		now:      time.Now,
	}
}

// Run purges once per interval until ctx is done. A non-positive interval
// disables the sweeper and Run returns immediately.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info(ctx, "revocation sweeper disabled")
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "starting revocation sweeper", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "stopping revocation sweeper")
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single purge. Failures are logged and retried on the next
// tick.
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	n, err := s.ledger.Purge(ctx, s.now())
	if err != nil {
		s.logger.Warn(ctx, "revocation purge failed", "error", err)
		return 0
	}
	s.metrics.Purged(n)
	if n > 0 {
		s.logger.Debug(ctx, "purged expired revocations", "count", n)
	}
	return n
}
