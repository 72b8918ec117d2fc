package db

import "context"

// BoatYearStore defines the storage operations for the per-year availability tables.
type BoatYearStore interface {
	// GetBoatYear loads the record for slug from the given year's table.
	// Returns (nil, nil) when no row exists yet.
	GetBoatYear(ctx context.Context, year int, slug string) (*BoatYearRecord, error)

	// InsertWeekIfAbsent creates the row for slug if needed and fills the given
	// week column with bucket, but never overwrites an existing non-null bucket.
	InsertWeekIfAbsent(ctx context.Context, year int, slug string, week WeekKey, bucket WeeklyBucket) error

	// UpdateWeek replaces the given week column for slug.
	UpdateWeek(ctx context.Context, year int, slug string, week WeekKey, bucket WeeklyBucket) error
}

// BoatStore defines the storage operations for the boat listing table.
type BoatStore interface {
	UpsertBoat(ctx context.Context, boat *Boat) error
	ListTrackedBoats(ctx context.Context) ([]Boat, error)
}
