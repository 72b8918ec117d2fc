package db

import "fmt"

// MaxWeek is the highest ISO week number a year can have.
const MaxWeek = 53

// WeekKey identifies one ISO week column (week_1..week_53) of a boat-year table.
type WeekKey int

// NewWeekKey validates n against the ISO week range and returns it as a WeekKey.
func NewWeekKey(n int) (WeekKey, error) {
	if n < 1 || n > MaxWeek {
		return 0, fmt.Errorf("week key must be between 1 and %d, got %d", MaxWeek, n)
	}
	return WeekKey(n), nil
}

// Column returns the storage column name for this week.
func (w WeekKey) Column() string {
	return fmt.Sprintf("week_%d", int(w))
}

// ReservedInterval is a booked date range for a boat, as reported by the
// charter availability API. Dates are yyyy-MM-dd strings.
type ReservedInterval struct {
	CheckIn  string `json:"chin"`
	CheckOut string `json:"chout"`
}

// Snapshot is one observed price/discount quote. It is keyed inside its
// WeeklyBucket by the timestamp of the run that observed it.
type Snapshot struct {
	Price     float64 `json:"price"`
	Discount  float64 `json:"discount"`
	CreatedAt string  `json:"created_at"`
}

// WeeklyBucket accumulates every Snapshot ever observed for one ISO week of
// one boat/year, keyed by run timestamp. Keys are only ever added, never
// removed.
type WeeklyBucket map[string]Snapshot

// Clone returns a shallow copy of the bucket.
func (b WeeklyBucket) Clone() WeeklyBucket {
	out := make(WeeklyBucket, len(b))
	for ts, snap := range b {
		out[ts] = snap
	}
	return out
}

// BoatYearRecord is the persisted row for one boat in one year's
// boat_availability table. Weeks holds only non-null buckets; a week column
// that exists but is null simply has no entry in the map.
type BoatYearRecord struct {
	Slug   string
	BoatID int64
	Weeks  map[WeekKey]WeeklyBucket
}

// Boat is one row of the boat listing table, refreshed by the catalog sync.
type Boat struct {
	Slug      string
	BoatID    int64
	Name      string
	Model     string
	Category  string
	Country   string
	Marina    string
	Cabins    int
	Berths    int
	Length    float64
	BuiltYear int
	Tracked   bool
}
