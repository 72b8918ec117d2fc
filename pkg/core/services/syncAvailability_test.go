package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mateusz-wlodarczyk/boatwatch/pkg/clients/charterapi"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/core/freeweeks"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/db"
)

// fakeCharter serves canned availability/price responses.
type fakeCharter struct {
	availability map[string]*charterapi.BoatAvailability
	availErr     map[string]error
	priceFn      func(slug string, slot freeweeks.Slot) (*charterapi.PriceQuote, error)
}

func (f *fakeCharter) GetAvailability(ctx context.Context, slug string) (*charterapi.BoatAvailability, error) {
	if err, ok := f.availErr[slug]; ok {
		return nil, err
	}
	return f.availability[slug], nil
}

func (f *fakeCharter) GetPrice(ctx context.Context, slug string, slot freeweeks.Slot) (*charterapi.PriceQuote, error) {
	return f.priceFn(slug, slot)
}

// fakeAvailStore keeps year tables in memory.
type fakeAvailStore struct {
	rows    map[string]map[db.WeekKey]db.WeeklyBucket // "slug/year" -> weeks
	ensured []int
}

func newFakeAvailStore() *fakeAvailStore {
	return &fakeAvailStore{rows: make(map[string]map[db.WeekKey]db.WeeklyBucket)}
}

func availKey(slug string, year int) string {
	return fmt.Sprintf("%s/%d", slug, year)
}

func (f *fakeAvailStore) EnsureYearTable(ctx context.Context, year int) error {
	f.ensured = append(f.ensured, year)
	return nil
}

func (f *fakeAvailStore) GetBoatYear(ctx context.Context, year int, slug string) (*db.BoatYearRecord, error) {
	weeks, ok := f.rows[availKey(slug, year)]
	if !ok {
		return nil, nil
	}
	return &db.BoatYearRecord{Slug: slug, Weeks: weeks}, nil
}

func (f *fakeAvailStore) InsertWeekIfAbsent(ctx context.Context, year int, slug string, week db.WeekKey, bucket db.WeeklyBucket) error {
	key := availKey(slug, year)
	if _, ok := f.rows[key]; !ok {
		f.rows[key] = make(map[db.WeekKey]db.WeeklyBucket)
	}
	if existing, ok := f.rows[key][week]; ok && len(existing) > 0 {
		return nil
	}
	f.rows[key][week] = bucket
	return nil
}

func (f *fakeAvailStore) UpdateWeek(ctx context.Context, year int, slug string, week db.WeekKey, bucket db.WeeklyBucket) error {
	key := availKey(slug, year)
	if _, ok := f.rows[key]; !ok {
		return fmt.Errorf("no row for %s", key)
	}
	f.rows[key][week] = bucket
	return nil
}

// fakePacer counts waits instead of sleeping.
type fakePacer struct {
	waits int
}

func (f *fakePacer) Wait(ctx context.Context) error {
	f.waits++
	return nil
}

func fixedQuote(price, discount float64) func(string, freeweeks.Slot) (*charterapi.PriceQuote, error) {
	return func(string, freeweeks.Slot) (*charterapi.PriceQuote, error) {
		return &charterapi.PriceQuote{Price: price, Discount: discount}, nil
	}
}

func TestSyncAvailability_EndToEnd(t *testing.T) {
	store := newFakeAvailStore()
	client := &fakeCharter{
		availability: map[string]*charterapi.BoatAvailability{
			"bali-41-avaler": {
				Slug: "bali-41-avaler",
				Intervals: []db.ReservedInterval{
					{CheckIn: "2025-06-07", CheckOut: "2025-06-14"},
				},
			},
		},
		priceFn: fixedQuote(3500, 10),
	}
	pacer := &fakePacer{}
	runStart := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	result, err := SyncAvailability(context.Background(), store, client, pacer, zap.NewNop(),
		[]db.Boat{{Slug: "bali-41-avaler"}}, 2025, runStart)
	require.NoError(t, err)

	assert.Equal(t, 1, result.BoatsProcessed)
	assert.Equal(t, 0, result.BoatsSkipped)
	assert.Equal(t, 0, result.BoatsFailed)
	// 52 candidate Saturdays minus the reserved week and its two
	// boundary-touching neighbours.
	assert.Equal(t, 49, result.QuotesMerged)
	assert.Equal(t, []int{2025}, store.ensured)
	assert.Equal(t, 1, pacer.waits)

	weeks := store.rows[availKey("bali-41-avaler", 2025)]
	require.Len(t, weeks, 49)

	// The first surviving slot (Jan 4 -> Jan 11) lands in ISO week 2 with one
	// snapshot stamped by the run.
	bucket, ok := weeks[db.WeekKey(2)]
	require.True(t, ok)
	require.Len(t, bucket, 1)
	snap := bucket["2025-01-01T00:00:00Z"]
	assert.Equal(t, 3500.0, snap.Price)
	assert.Equal(t, 10.0, snap.Discount)

	// The reserved week's bucket (checkout June 14th, ISO week 24) was never
	// written.
	_, reserved := weeks[db.WeekKey(24)]
	assert.False(t, reserved)
}

func TestSyncAvailability_FanOutIsolation(t *testing.T) {
	store := newFakeAvailStore()
	failingCheckIn := "2025-12-13"
	client := &fakeCharter{
		availability: map[string]*charterapi.BoatAvailability{
			"bali-41-avaler": {Slug: "bali-41-avaler"},
		},
		priceFn: func(slug string, slot freeweeks.Slot) (*charterapi.PriceQuote, error) {
			if slot.CheckIn == failingCheckIn {
				return nil, fmt.Errorf("upstream exploded")
			}
			return &charterapi.PriceQuote{Price: 2000, Discount: 0}, nil
		},
	}
	pacer := &fakePacer{}
	// November 29th 2025 is a Saturday; five candidate weeks remain in the year.
	runStart := time.Date(2025, time.November, 29, 0, 0, 0, 0, time.UTC)

	result, err := SyncAvailability(context.Background(), store, client, pacer, zap.NewNop(),
		[]db.Boat{{Slug: "bali-41-avaler"}}, 2025, runStart)
	require.NoError(t, err)

	// One slot's failure contributes nothing but never cancels its siblings.
	assert.Equal(t, 1, result.BoatsProcessed)
	assert.Equal(t, 0, result.BoatsFailed)
	assert.Equal(t, 4, result.QuotesMerged)
	assert.Len(t, store.rows[availKey("bali-41-avaler", 2025)], 4)
}

func TestSyncAvailability_SkipsBoatOnAvailabilityMiss(t *testing.T) {
	store := newFakeAvailStore()
	client := &fakeCharter{
		availability: map[string]*charterapi.BoatAvailability{}, // every lookup misses
		priceFn:      fixedQuote(1000, 0),
	}
	pacer := &fakePacer{}
	runStart := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	result, err := SyncAvailability(context.Background(), store, client, pacer, zap.NewNop(),
		[]db.Boat{{Slug: "ghost-boat"}}, 2025, runStart)
	require.NoError(t, err)

	assert.Equal(t, 0, result.BoatsProcessed)
	assert.Equal(t, 1, result.BoatsSkipped)
	assert.Equal(t, 0, result.BoatsFailed)
	assert.Empty(t, store.rows)
}

func TestSyncAvailability_BoatFailureDoesNotStopLoop(t *testing.T) {
	store := newFakeAvailStore()
	client := &fakeCharter{
		availability: map[string]*charterapi.BoatAvailability{
			"lagoon-42-luna": {Slug: "lagoon-42-luna"},
		},
		availErr: map[string]error{
			"bali-41-avaler": fmt.Errorf("request failed after 3 retries"),
		},
		priceFn: fixedQuote(1500, 5),
	}
	pacer := &fakePacer{}
	runStart := time.Date(2025, time.November, 29, 0, 0, 0, 0, time.UTC)

	result, err := SyncAvailability(context.Background(), store, client, pacer, zap.NewNop(),
		[]db.Boat{{Slug: "bali-41-avaler"}, {Slug: "lagoon-42-luna"}}, 2025, runStart)
	require.NoError(t, err)

	assert.Equal(t, 1, result.BoatsFailed)
	assert.Equal(t, 1, result.BoatsProcessed)
	assert.Equal(t, 5, result.QuotesMerged)
	// The pacer still runs after a failed boat.
	assert.Equal(t, 2, pacer.waits)
	assert.NotContains(t, store.rows, availKey("bali-41-avaler", 2025))
	assert.Contains(t, store.rows, availKey("lagoon-42-luna", 2025))
}

func TestSyncAvailability_MultiYear(t *testing.T) {
	store := newFakeAvailStore()
	client := &fakeCharter{
		availability: map[string]*charterapi.BoatAvailability{
			"bali-41-avaler": {Slug: "bali-41-avaler"},
		},
		priceFn: fixedQuote(1800, 0),
	}
	pacer := &fakePacer{}
	// December 6th 2025 is a Saturday; four Saturdays remain in 2025.
	runStart := time.Date(2025, time.December, 6, 0, 0, 0, 0, time.UTC)

	result, err := SyncAvailability(context.Background(), store, client, pacer, zap.NewNop(),
		[]db.Boat{{Slug: "bali-41-avaler"}}, 2026, runStart)
	require.NoError(t, err)

	assert.Equal(t, []int{2025, 2026}, store.ensured)
	assert.Equal(t, 4+52, result.QuotesMerged)
	assert.Len(t, store.rows[availKey("bali-41-avaler", 2025)], 4)
	assert.Len(t, store.rows[availKey("bali-41-avaler", 2026)], 52)

	// The year-straddling December slot (checkout January 3rd 2026) is keyed
	// into the 2025 table under ISO week 1.
	_, straddle := store.rows[availKey("bali-41-avaler", 2025)][db.WeekKey(1)]
	assert.True(t, straddle)
}

func TestSyncAvailability_RejectsPastEndYear(t *testing.T) {
	store := newFakeAvailStore()
	client := &fakeCharter{priceFn: fixedQuote(0, 0)}
	runStart := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	_, err := SyncAvailability(context.Background(), store, client, &fakePacer{}, zap.NewNop(),
		[]db.Boat{{Slug: "bali-41-avaler"}}, 2024, runStart)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before current year")
}

func TestSyncAvailability_RerunIsIdempotent(t *testing.T) {
	store := newFakeAvailStore()
	client := &fakeCharter{
		availability: map[string]*charterapi.BoatAvailability{
			"bali-41-avaler": {Slug: "bali-41-avaler"},
		},
		priceFn: fixedQuote(2200, 5),
	}
	runStart := time.Date(2025, time.November, 29, 0, 0, 0, 0, time.UTC)
	boats := []db.Boat{{Slug: "bali-41-avaler"}}

	_, err := SyncAvailability(context.Background(), store, client, &fakePacer{}, zap.NewNop(), boats, 2025, runStart)
	require.NoError(t, err)

	// Same run timestamp, same quotes: buckets must not grow.
	_, err = SyncAvailability(context.Background(), store, client, &fakePacer{}, zap.NewNop(), boats, 2025, runStart)
	require.NoError(t, err)

	weeks := store.rows[availKey("bali-41-avaler", 2025)]
	require.Len(t, weeks, 5)
	for week, bucket := range weeks {
		assert.Len(t, bucket, 1, "week %d accumulated duplicate snapshots", week)
	}

	// A later run with a new timestamp accumulates a second snapshot per week.
	laterRun := runStart.Add(24 * time.Hour)
	_, err = SyncAvailability(context.Background(), store, client, &fakePacer{}, zap.NewNop(), boats, 2025, laterRun)
	require.NoError(t, err)

	for week, bucket := range weeks {
		assert.Len(t, bucket, 2, "week %d should hold both runs' snapshots", week)
	}
}
