// Package history maintains the append-only snapshot series stored in the
// per-year weekly buckets. The merge logic is what keeps re-runs from
// duplicating writes while still letting distinct runs accumulate a genuine
// time series.
package history

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mateusz-wlodarczyk/boatwatch/pkg/db"
)

// Merger folds freshly fetched snapshots into a boat's stored weekly history.
type Merger struct {
	store  db.BoatYearStore
	logger *zap.Logger
}

// NewMerger creates a Merger writing through the given store.
func NewMerger(store db.BoatYearStore, logger *zap.Logger) *Merger {
	return &Merger{store: store, logger: logger}
}

// Merge persists one snapshot for one week of one boat/year. existing is the
// record previously loaded for the boat (nil when no row exists yet); it is
// not re-read between calls.
//
// Three cases, checked in order:
//  1. no row yet: insert a new row whose week column holds only this snapshot;
//  2. row exists but the week column is null: fill it with a one-entry bucket;
//  3. the week already holds a bucket: skip entirely when the bucket already
//     carries an identical snapshot under this timestamp, otherwise union the
//     keys (incoming wins on collision) and write the merged bucket back.
func (m *Merger) Merge(ctx context.Context, existing *db.BoatYearRecord, slug string, year int, week db.WeekKey, timestamp string, snap db.Snapshot) error {
	if existing == nil {
		m.logger.Debug("Inserting first weekly bucket",
			zap.String("slug", slug),
			zap.Int("year", year),
			zap.Int("week", int(week)))
		bucket := db.WeeklyBucket{timestamp: snap}
		if err := m.store.InsertWeekIfAbsent(ctx, year, slug, week, bucket); err != nil {
			m.logger.Error("Failed to insert weekly bucket",
				zap.String("slug", slug),
				zap.Int("year", year),
				zap.Int("week", int(week)),
				zap.Error(err))
			return fmt.Errorf("failed to insert week %d for %s/%d: %w", week, slug, year, err)
		}
		return nil
	}

	bucket, ok := existing.Weeks[week]
	if !ok || len(bucket) == 0 {
		m.logger.Debug("Filling empty weekly bucket",
			zap.String("slug", slug),
			zap.Int("year", year),
			zap.Int("week", int(week)))
		fresh := db.WeeklyBucket{timestamp: snap}
		if err := m.store.UpdateWeek(ctx, year, slug, week, fresh); err != nil {
			m.logger.Error("Failed to update weekly bucket",
				zap.String("slug", slug),
				zap.Int("year", year),
				zap.Int("week", int(week)),
				zap.Error(err))
			return fmt.Errorf("failed to update week %d for %s/%d: %w", week, slug, year, err)
		}
		return nil
	}

	if stored, seen := bucket[timestamp]; seen && stored == snap {
		// Identical observation from the same run; writing again would be a
		// pure duplicate.
		m.logger.Debug("Snapshot unchanged, skipping write",
			zap.String("slug", slug),
			zap.Int("year", year),
			zap.Int("week", int(week)),
			zap.String("timestamp", timestamp))
		return nil
	}

	merged := bucket.Clone()
	merged[timestamp] = snap

	m.logger.Debug("Merging snapshot into weekly bucket",
		zap.String("slug", slug),
		zap.Int("year", year),
		zap.Int("week", int(week)),
		zap.Int("snapshots", len(merged)))
	if err := m.store.UpdateWeek(ctx, year, slug, week, merged); err != nil {
		m.logger.Error("Failed to merge weekly bucket",
			zap.String("slug", slug),
			zap.Int("year", year),
			zap.Int("week", int(week)),
			zap.Error(err))
		return fmt.Errorf("failed to merge week %d for %s/%d: %w", week, slug, year, err)
	}
	return nil
}
