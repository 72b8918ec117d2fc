package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mateusz-wlodarczyk/boatwatch/pkg/clients/charterapi"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/core/freeweeks"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/core/history"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/db"
)

// CharterClient defines the upstream API operations the availability sync needs.
type CharterClient interface {
	GetAvailability(ctx context.Context, slug string) (*charterapi.BoatAvailability, error)
	GetPrice(ctx context.Context, slug string, slot freeweeks.Slot) (*charterapi.PriceQuote, error)
}

// AvailabilityStore defines the storage operations the availability sync needs.
type AvailabilityStore interface {
	db.BoatYearStore
	EnsureYearTable(ctx context.Context, year int) error
}

// Pacer throttles the loop between boats.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SyncResult summarizes one availability sync run.
type SyncResult struct {
	RunID          string
	BoatsProcessed int
	BoatsSkipped   int
	BoatsFailed    int
	QuotesMerged   int
}

// slotQuote pairs a candidate slot with its fetched quote. A nil quote means
// the fetch missed or failed and the slot contributes nothing downstream.
type slotQuote struct {
	slot  freeweeks.Slot
	quote *charterapi.PriceQuote
}

// SyncAvailability runs the full price/availability reconciliation pass: for
// every tracked boat it derives the free weekly slots per year, fetches quotes
// for them concurrently, and merges the results into the stored per-week
// snapshot series.
//
// Boats are processed sequentially in the order supplied; a failure on one
// boat is logged and never stops the loop. The pacer runs after each boat to
// keep the upstream API out of burst territory. runStart doubles as the
// generation anchor for the current year and as the snapshot timestamp, so
// every write of one run shares a single as-of moment.
func SyncAvailability(
	ctx context.Context,
	store AvailabilityStore,
	client CharterClient,
	pacer Pacer,
	logger *zap.Logger,
	boats []db.Boat,
	endYear int,
	runStart time.Time,
) (*SyncResult, error) {
	result := &SyncResult{RunID: uuid.New().String()}
	logger = logger.With(zap.String("run_id", result.RunID))

	startYear := runStart.Year()
	if endYear < startYear {
		return nil, fmt.Errorf("end year %d is before current year %d", endYear, startYear)
	}

	logger.Info("Starting availability sync",
		zap.Int("boats", len(boats)),
		zap.Int("start_year", startYear),
		zap.Int("end_year", endYear),
		zap.Time("run_start", runStart))

	for year := startYear; year <= endYear; year++ {
		if err := store.EnsureYearTable(ctx, year); err != nil {
			return nil, fmt.Errorf("failed to ensure table for year %d: %w", year, err)
		}
	}

	merger := history.NewMerger(store, logger)
	timestamp := runStart.UTC().Format(time.RFC3339)

	for _, boat := range boats {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		merged, err := syncBoat(ctx, store, client, merger, logger, boat.Slug, startYear, endYear, timestamp, runStart)
		switch {
		case err != nil:
			result.BoatsFailed++
			logger.Error("Boat sync failed, continuing with next boat",
				zap.String("slug", boat.Slug),
				zap.Error(err))
		case merged < 0:
			result.BoatsSkipped++
		default:
			result.BoatsProcessed++
			result.QuotesMerged += merged
		}

		if err := pacer.Wait(ctx); err != nil {
			return result, fmt.Errorf("pacing interrupted: %w", err)
		}
	}

	logger.Info("Availability sync completed",
		zap.Int("boats_processed", result.BoatsProcessed),
		zap.Int("boats_skipped", result.BoatsSkipped),
		zap.Int("boats_failed", result.BoatsFailed),
		zap.Int("quotes_merged", result.QuotesMerged))

	return result, nil
}

// syncBoat reconciles one boat across all target years. Returns the number of
// quotes merged, or -1 when the boat was skipped because its availability was
// a miss.
func syncBoat(
	ctx context.Context,
	store AvailabilityStore,
	client CharterClient,
	merger *history.Merger,
	logger *zap.Logger,
	slug string,
	startYear, endYear int,
	timestamp string,
	runStart time.Time,
) (int, error) {
	logger.Debug("Fetching availability", zap.String("slug", slug))
	availability, err := client.GetAvailability(ctx, slug)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch availability: %w", err)
	}
	if availability == nil {
		logger.Warn("No availability data for boat, skipping", zap.String("slug", slug))
		return -1, nil
	}

	logger.Info("Syncing boat",
		zap.String("slug", slug),
		zap.Int("reservations", len(availability.Intervals)))

	totalMerged := 0
	for year := startYear; year <= endYear; year++ {
		merged, err := syncBoatYear(ctx, store, client, merger, logger, slug, availability.Intervals, year, timestamp, runStart)
		if err != nil {
			return totalMerged, fmt.Errorf("year %d: %w", year, err)
		}
		totalMerged += merged
	}

	return totalMerged, nil
}

// syncBoatYear computes the free slots of one boat/year, fans out the quote
// fetches, and merges the surviving quotes into storage.
func syncBoatYear(
	ctx context.Context,
	store AvailabilityStore,
	client CharterClient,
	merger *history.Merger,
	logger *zap.Logger,
	slug string,
	reservations []db.ReservedInterval,
	year int,
	timestamp string,
	runStart time.Time,
) (int, error) {
	slots := freeweeks.ComputeFreeWeeks(reservations, year, runStart)
	logger.Debug("Computed free weeks",
		zap.String("slug", slug),
		zap.Int("year", year),
		zap.Int("slots", len(slots)))
	if len(slots) == 0 {
		return 0, nil
	}

	quotes := fetchQuotes(ctx, client, logger, slug, slots)
	logger.Debug("Fetched quotes",
		zap.String("slug", slug),
		zap.Int("year", year),
		zap.Int("quotes", len(quotes)))
	if len(quotes) == 0 {
		return 0, nil
	}

	// Single read per boat/year; the merger works off this record for every
	// week. Weeks within one run never collide, so no re-read is needed.
	record, err := store.GetBoatYear(ctx, year, slug)
	if err != nil {
		return 0, fmt.Errorf("failed to load record: %w", err)
	}

	merged := 0
	for _, sq := range quotes {
		if !freeweeks.QuoteBelongsToYear(sq.slot, year) {
			continue
		}

		week, err := freeweeks.WeekOfCheckout(sq.slot)
		if err != nil {
			logger.Warn("Skipping quote with invalid checkout date",
				zap.String("slug", slug),
				zap.String("check_out", sq.slot.CheckOut),
				zap.Error(err))
			continue
		}

		snap := db.Snapshot{
			Price:     sq.quote.Price,
			Discount:  sq.quote.Discount,
			CreatedAt: timestamp,
		}
		if err := merger.Merge(ctx, record, slug, year, week, timestamp, snap); err != nil {
			return merged, err
		}
		if record == nil {
			// The first merge created the row; later weeks of this run go
			// through the update path instead of re-inserting.
			record = &db.BoatYearRecord{Slug: slug, Weeks: map[db.WeekKey]db.WeeklyBucket{}}
		}
		merged++
	}

	return merged, nil
}

// fetchQuotes issues one concurrent fetch per slot and joins them with
// all-settle semantics: a failed or missed fetch yields nil for its slot and
// never cancels the siblings.
func fetchQuotes(ctx context.Context, client CharterClient, logger *zap.Logger, slug string, slots []freeweeks.Slot) []slotQuote {
	results := make([]slotQuote, len(slots))

	var wg sync.WaitGroup
	for i, slot := range slots {
		wg.Add(1)
		go func(i int, slot freeweeks.Slot) {
			defer wg.Done()
			quote, err := client.GetPrice(ctx, slug, slot)
			if err != nil {
				logger.Warn("Price fetch failed for slot",
					zap.String("slug", slug),
					zap.String("check_in", slot.CheckIn),
					zap.Error(err))
				return
			}
			results[i] = slotQuote{slot: slot, quote: quote}
		}(i, slot)
	}
	wg.Wait()

	settled := make([]slotQuote, 0, len(results))
	for i, r := range results {
		if r.quote != nil {
			r.slot = slots[i]
			settled = append(settled, r)
		}
	}
	return settled
}
