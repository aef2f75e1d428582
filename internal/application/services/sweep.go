package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"compraser-api/internal/application/ports"
	domain "compraser-api/internal/domain/file_record"
	"compraser-api/internal/infrastructure/mq"
)

const sweepConcurrency = 8

type SweepService struct {
	logger   *zap.Logger
	assets   ports.AssetStore
	repo     domain.Repository
	events   ports.EventPublisher
	mCounter *prometheus.CounterVec
}

func NewSweepService(
	logger *zap.Logger,
	assets ports.AssetStore,
	repo domain.Repository,
	events ports.EventPublisher,
	mCounter *prometheus.CounterVec,
) ports.SweepService {
	return &SweepService{
		logger:   logger,
		assets:   assets,
		repo:     repo,
		events:   events,
		mCounter: mCounter,
	}
}

// Sweep deletes every record that expired before now together with its assets.
// Asset deletions are attempted once each and never abort the sweep; a failed row
// delete is reported as ErrRowDeletion with the asset counts still filled in.
func (ss *SweepService) Sweep(ctx context.Context, now time.Time) (*ports.SweepResult, error) {
	expired, err := ss.repo.FetchExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataStore, err)
	}
	if len(expired) == 0 {
		return &ports.SweepResult{}, nil
	}

	var deleted, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(sweepConcurrency)
	for _, rec := range expired {
		rt := rec.ResourceType()
		for _, assetID := range rec.AssetIDs() {
			g.Go(func() error {
				if err := ss.assets.Delete(ctx, assetID, rt); err != nil {
					failed.Add(1)
					ss.logger.Warn("asset delete failed",
						zap.String("record_id", rec.ID.String()),
						zap.String("asset_id", assetID),
						zap.Error(err),
					)
					return nil
				}
				deleted.Add(1)
				return nil
			})
		}
	}
	_ = g.Wait()

	res := &ports.SweepResult{
		AssetsDeleted: int(deleted.Load()),
		AssetFailures: int(failed.Load()),
	}
	ss.add("assets_deleted_total", res.AssetsDeleted)
	ss.add("asset_delete_failures_total", res.AssetFailures)

	ids := expired.IDs()
	n, err := ss.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		ss.logger.Error("expired rows delete failed",
			zap.Int("rows", len(ids)),
			zap.Int("assets_deleted", res.AssetsDeleted),
			zap.Error(err),
		)
		return res, fmt.Errorf("%w: %w", ErrRowDeletion, err)
	}
	res.DeletedCount = n
	res.DeletedIDs = ids
	ss.add("records_expired_total", int(n))

	for _, rec := range expired {
		ss.events.Publish(mq.NewEvent(mq.ActionExpired, *rec))
	}

	ss.logger.Info("sweep finished",
		zap.Int64("deleted_count", n),
		zap.Int("assets_deleted", res.AssetsDeleted),
		zap.Int("asset_failures", res.AssetFailures),
	)

	return res, nil
}

func (ss *SweepService) add(result string, n int) {
	if ss.mCounter != nil && n > 0 {
		ss.mCounter.WithLabelValues(result).Add(float64(n))
	}
}
