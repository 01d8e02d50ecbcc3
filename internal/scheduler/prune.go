package scheduler

import (
	"context"
	"time"

	"github.com/anstrom/portsweep/internal/logging"
)

// SessionPruner forgets finished scan sessions. *scanning.Manager satisfies it.
type SessionPruner interface {
	Prune(retention time.Duration) int
}

// ReportPruner deletes stored reports. *db.ReportStore satisfies it.
type ReportPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruning describes one cleanup pass. Zero retentions and nil targets are
// skipped.
type Pruning struct {
	Sessions         SessionPruner
	SessionRetention time.Duration
	Reports          ReportPruner
	ReportRetention  time.Duration

	now func() time.Time
}

// Run performs the cleanup.
func (p Pruning) Run(ctx context.Context) error {
	now := time.Now
	if p.now != nil {
		now = p.now
	}

	if p.Sessions != nil && p.SessionRetention > 0 {
		if n := p.Sessions.Prune(p.SessionRetention); n > 0 {
			logging.Debug("Pruned finished sessions", "count", n)
		}
	}

	if p.Reports != nil && p.ReportRetention > 0 {
		n, err := p.Reports.PruneBefore(ctx, now().Add(-p.ReportRetention))
		if err != nil {
			return err
		}
		if n > 0 {
			logging.Info("Pruned stored reports", "count", n)
		}
	}
	return nil
}
