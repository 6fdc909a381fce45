// Package snapshotstore persists portfolio snapshots in Redis: the latest
// snapshot under a per-portfolio key plus a time-indexed history in a sorted
// set, trimmed to a configured length.
package snapshotstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	v9 "github.com/redis/go-redis/v9"

	portfoliov1 "github.com/quantara/execution/internal/domain/portfolio/v1"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/errors"
	"github.com/quantara/execution/pkg/logger"
	"github.com/quantara/execution/pkg/redis"
)

const (
	latestKeyPrefix  = "portfolio:snapshot:latest:"
	historyKeyPrefix = "portfolio:snapshot:history:"
)

// Store keeps portfolio snapshots in Redis.
type Store struct {
	cfg    config.SnapshotConfig
	client redis.Client
	logger logger.Interface
}

var _ portfoliov1.SnapshotStore = (*Store)(nil)

// NewStore creates a snapshot store on the given Redis client.
func NewStore(cfg config.SnapshotConfig, client redis.Client, logger logger.Interface) *Store {
	return &Store{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// Save stores the snapshot as the portfolio's latest and appends it to the
// time-indexed history, trimming the history to the configured length.
func (s *Store) Save(ctx context.Context, snap portfoliov1.Snapshot) error {
	buf, err := json.Marshal(snap)
	if err != nil {
		return errors.NewTracer(string(errors.SnapshotMarshalError)).Wrap(err)
	}

	if err := s.client.Set(ctx, latestKeyPrefix+snap.PortfolioID, buf, 0); err != nil {
		return errors.NewTracer(string(errors.SnapshotStoreError)).Wrap(err)
	}

	historyKey := historyKeyPrefix + snap.PortfolioID
	if _, err := s.client.ZAdd(ctx, historyKey, v9.Z{
		Score:  float64(snap.CreatedAt.Unix()),
		Member: string(buf),
	}); err != nil {
		return errors.NewTracer(string(errors.SnapshotStoreError)).Wrap(err)
	}

	if s.cfg.HistoryLimit > 0 {
		if _, err := s.client.ZRemRangeByRank(ctx, historyKey, 0, -s.cfg.HistoryLimit-1); err != nil {
			return errors.NewTracer(string(errors.SnapshotStoreError)).Wrap(err)
		}
	}

	s.logger.InfoContext(ctx, "snapshot stored", logger.Field{
		Key:   "portfolio_id",
		Value: snap.PortfolioID,
	}, logger.Field{
		Key:   "total_value",
		Value: snap.TotalValue,
	})
	return nil
}

// Latest returns the portfolio's most recent snapshot, or nil when none was
// stored yet.
func (s *Store) Latest(ctx context.Context, portfolioID string) (*portfoliov1.Snapshot, error) {
	data, err := s.client.Get(ctx, latestKeyPrefix+portfolioID)
	if err != nil {
		return nil, errors.NewTracer(string(errors.SnapshotStoreError)).Wrap(err)
	}
	if data == "" {
		return nil, nil
	}

	var snap portfoliov1.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, errors.NewTracer(string(errors.SnapshotMarshalError)).Wrap(err)
	}
	return &snap, nil
}

// History returns the portfolio's snapshots between from and to in
// chronological order. Zero time bounds are open-ended.
func (s *Store) History(ctx context.Context, portfolioID string, from, to time.Time) ([]portfoliov1.Snapshot, error) {
	minScore, maxScore := "-inf", "+inf"
	if !from.IsZero() {
		minScore = strconv.FormatInt(from.Unix(), 10)
	}
	if !to.IsZero() {
		maxScore = strconv.FormatInt(to.Unix(), 10)
	}

	members, err := s.client.ZRangeByScore(ctx, historyKeyPrefix+portfolioID, &v9.ZRangeBy{
		Min: minScore,
		Max: maxScore,
	})
	if err != nil {
		return nil, errors.NewTracer(string(errors.SnapshotStoreError)).Wrap(err)
	}

	snapshots := make([]portfoliov1.Snapshot, 0, len(members))
	for _, member := range members {
		var snap portfoliov1.Snapshot
		if err := json.Unmarshal([]byte(member), &snap); err != nil {
			return nil, errors.NewTracer(string(errors.SnapshotMarshalError)).Wrap(err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}
