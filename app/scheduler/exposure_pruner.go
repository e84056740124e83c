// Package scheduler runs periodic maintenance jobs next to the HTTP server
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dulcemap/dulcemap-api/utils"
	"go.uber.org/zap"
)

// ExposurePruneTarget removes exposure state last touched before a cutoff
type ExposurePruneTarget interface {
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// ExposurePrunerConfig controls how often and how far back pruning goes
type ExposurePrunerConfig struct {
	Interval  time.Duration
	Timeout   time.Duration
	Retention time.Duration
}

// ExposurePruner periodically drops exposure history older than the retention window
type ExposurePruner struct {
	target ExposurePruneTarget
	cfg    ExposurePrunerConfig
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
}

func NewExposurePruner(target ExposurePruneTarget, cfg ExposurePrunerConfig, logger *zap.Logger) *ExposurePruner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExposurePruner{
		target: target,
		cfg:    cfg,
		logger: logger.Named("exposure_pruner"),
		now:    utils.UTCNow,
	}
}

// Start runs one pass immediately and then one per interval until the
// returned stop function is called or parent is cancelled.
func (p *ExposurePruner) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		p.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.RunOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// RunOnce prunes a single time. Overlapping calls are skipped.
func (p *ExposurePruner) RunOnce(ctx context.Context) (int64, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.logger.Warn("previous prune still running, skipping")
		return 0, nil
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	started := p.now()
	cutoff := started.Add(-p.cfg.Retention)

	removed, err := p.target.Prune(ctx, cutoff)
	if err != nil {
		p.logger.Error("exposure prune failed",
			zap.Error(err),
			zap.Time("cutoff", cutoff),
			zap.Int64("removed_before_failure", removed),
		)
		return removed, err
	}

	p.logger.Info("exposure prune finished",
		zap.Time("cutoff", cutoff),
		zap.Int64("removed", removed),
		zap.Duration("took", p.now().Sub(started)),
	)
	return removed, nil
}
