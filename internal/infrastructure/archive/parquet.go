// Package archive appends portfolio snapshots to per-portfolio parquet files
// for offline analysis. Records are deduplicated by timestamp, so re-archiving
// the same snapshot after a retry is idempotent.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	portfoliov1 "github.com/quantara/execution/internal/domain/portfolio/v1"
	"github.com/quantara/execution/pkg/errors"
	"github.com/quantara/execution/pkg/logger"
)

// SnapshotRecord is the parquet schema for archived portfolio snapshots.
// Money is stored as float64; the archive feeds analysis, not accounting, and
// the authoritative decimals live in the snapshot store.
type SnapshotRecord struct {
	PortfolioID    string  `parquet:"portfolio_id"`
	Timestamp      int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Status         string  `parquet:"status"`
	InitialCapital float64 `parquet:"initial_capital"`
	AvailableCash  float64 `parquet:"available_cash"`
	LockedCash     float64 `parquet:"locked_cash"`
	PositionsValue float64 `parquet:"positions_value"`
	TotalValue     float64 `parquet:"total_value"`
	RealizedPnl    float64 `parquet:"realized_pnl"`
	UnrealizedPnl  float64 `parquet:"unrealized_pnl"`
	TotalPnl       float64 `parquet:"total_pnl"`
	TotalReturnPct float64 `parquet:"total_return_pct"`
	MaxDrawdownPct float64 `parquet:"max_drawdown_pct"`
	PositionCount  int32   `parquet:"position_count"`
}

// Archive writes snapshot records to parquet files, one file per portfolio
// and year. An empty directory disables archiving.
type Archive struct {
	dir    string
	logger logger.Interface

	// Appending reads, merges and rewrites the target file; the mutex keeps
	// concurrent appends from clobbering each other.
	mu sync.Mutex
}

var _ portfoliov1.Archiver = (*Archive)(nil)

// NewArchive creates an archive rooted at dir.
func NewArchive(dir string, logger logger.Interface) *Archive {
	return &Archive{
		dir:    dir,
		logger: logger,
	}
}

// Append merges the snapshot into the portfolio's parquet file for the
// snapshot's year.
func (a *Archive) Append(ctx context.Context, snap portfoliov1.Snapshot) error {
	if a.dir == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.snapshotPath(snap.PortfolioID, snap.CreatedAt)

	// A missing file is an empty history.
	existing, _ := readParquetFile[SnapshotRecord](path)
	merged := mergeSnapshotRecords(existing, toRecord(snap))

	if err := writeParquetFile(path, merged); err != nil {
		return errors.NewTracer(string(errors.SnapshotArchiveError)).Wrap(err)
	}

	a.logger.DebugContext(ctx, "snapshot archived", logger.Field{
		Key:   "portfolio_id",
		Value: snap.PortfolioID,
	}, logger.Field{
		Key:   "path",
		Value: path,
	})
	return nil
}

// snapshotPath returns the archive file for a portfolio and year.
// Layout: <dir>/<PORTFOLIO_ID>/<YYYY>.parquet
func (a *Archive) snapshotPath(portfolioID string, t time.Time) string {
	return filepath.Join(a.dir, portfolioID, fmt.Sprintf("%d.parquet", t.Year()))
}

func toRecord(snap portfoliov1.Snapshot) SnapshotRecord {
	return SnapshotRecord{
		PortfolioID:    snap.PortfolioID,
		Timestamp:      snap.CreatedAt.UnixMilli(),
		Status:         string(snap.Status),
		InitialCapital: snap.InitialCapital.InexactFloat64(),
		AvailableCash:  snap.AvailableCash.InexactFloat64(),
		LockedCash:     snap.LockedCash.InexactFloat64(),
		PositionsValue: snap.PositionsValue.InexactFloat64(),
		TotalValue:     snap.TotalValue.InexactFloat64(),
		RealizedPnl:    snap.RealizedPnl.InexactFloat64(),
		UnrealizedPnl:  snap.UnrealizedPnl.InexactFloat64(),
		TotalPnl:       snap.TotalPnl.InexactFloat64(),
		TotalReturnPct: snap.TotalReturnPct.InexactFloat64(),
		MaxDrawdownPct: snap.MaxDrawdownPct.InexactFloat64(),
		PositionCount:  int32(len(snap.Positions)),
	}
}

// mergeSnapshotRecords folds the incoming record into the existing series,
// deduplicating by timestamp with the newer write winning, sorted
// chronologically.
func mergeSnapshotRecords(existing []SnapshotRecord, incoming SnapshotRecord) []SnapshotRecord {
	seen := make(map[int64]SnapshotRecord, len(existing)+1)
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	seen[incoming.Timestamp] = incoming

	merged := make([]SnapshotRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}
