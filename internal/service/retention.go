package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/media-dispatch/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultRetentionScanInterval = time.Hour
	defaultRetentionPeriod       = 30 * 24 * time.Hour
)

// RetentionSweeper periodically deletes finished operation records older
// than the retention period.
type RetentionSweeper struct {
	ops       repository.ProductOpRepository
	logger    *zap.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewRetentionSweeper(
	ops repository.ProductOpRepository,
	interval time.Duration,
	retention time.Duration,
	logger *zap.Logger,
) (*RetentionSweeper, error) {
	if interval <= 0 {
		interval = defaultRetentionScanInterval
	}
	if retention <= 0 {
		retention = defaultRetentionPeriod
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetentionSweeper{
		ops:       ops,
		logger:    logger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}, nil
}

func (s *RetentionSweeper) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.sweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("retention initial sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("retention sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *RetentionSweeper) sweep(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.retention)

	deleted, err := s.ops.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired operation records: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("retention sweep removed expired records",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}
