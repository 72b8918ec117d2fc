package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/mateusz-wlodarczyk/boatwatch/pkg/db"
)

// yearTable returns the availability table name for a year. One table per
// year is the upstream naming convention the dashboard reads from.
func yearTable(year int) string {
	return fmt.Sprintf("boat_availability_%d", year)
}

// EnsureYearTable creates the availability table for a year if it does not
// exist yet: slug PK, boat_id, and one nullable JSONB column per ISO week.
func (d *DB) EnsureYearTable(ctx context.Context, year int) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n", yearTable(year))
	sb.WriteString("    slug TEXT PRIMARY KEY,\n")
	sb.WriteString("    boat_id BIGINT NOT NULL DEFAULT 0")
	for week := 1; week <= db.MaxWeek; week++ {
		fmt.Fprintf(&sb, ",\n    week_%d JSONB", week)
	}
	sb.WriteString("\n)")

	if _, err := d.pool.Exec(ctx, sb.String()); err != nil {
		return fmt.Errorf("failed to create table %s: %w", yearTable(year), err)
	}
	return nil
}

// GetBoatYear loads one boat's row from a year table. Null week columns are
// omitted from the returned map. Returns (nil, nil) when the row is absent.
func (d *DB) GetBoatYear(ctx context.Context, year int, slug string) (*db.BoatYearRecord, error) {
	columns := make([]string, 0, db.MaxWeek+1)
	columns = append(columns, "boat_id")
	for week := 1; week <= db.MaxWeek; week++ {
		columns = append(columns, fmt.Sprintf("week_%d", week))
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE slug = $1",
		strings.Join(columns, ", "), yearTable(year))

	record := &db.BoatYearRecord{
		Slug:  slug,
		Weeks: make(map[db.WeekKey]db.WeeklyBucket),
	}

	raw := make([][]byte, db.MaxWeek)
	dest := make([]any, 0, db.MaxWeek+1)
	dest = append(dest, &record.BoatID)
	for i := range raw {
		dest = append(dest, &raw[i])
	}

	if err := d.pool.QueryRow(ctx, query, slug).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s from %s: %w", slug, yearTable(year), err)
	}

	for i, data := range raw {
		if len(data) == 0 {
			continue
		}
		var bucket db.WeeklyBucket
		if err := json.Unmarshal(data, &bucket); err != nil {
			return nil, fmt.Errorf("failed to decode week_%d for %s/%d: %w", i+1, slug, year, err)
		}
		if len(bucket) == 0 {
			continue
		}
		record.Weeks[db.WeekKey(i+1)] = bucket
	}

	return record, nil
}

// InsertWeekIfAbsent creates the row for slug if needed and fills the week
// column with bucket. An existing non-null bucket is left untouched, so a
// concurrent or repeated run can never clobber accumulated history.
func (d *DB) InsertWeekIfAbsent(ctx context.Context, year int, slug string, week db.WeekKey, bucket db.WeeklyBucket) error {
	data, err := json.Marshal(bucket)
	if err != nil {
		return fmt.Errorf("failed to encode bucket: %w", err)
	}

	table := yearTable(year)
	column := week.Column()
	query := fmt.Sprintf(`
		INSERT INTO %s (slug, %s) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET %s = EXCLUDED.%s
		WHERE %s.%s IS NULL
	`, table, column, column, column, table, column)

	if _, err := d.pool.Exec(ctx, query, slug, data); err != nil {
		return fmt.Errorf("failed to insert %s for %s/%d: %w", column, slug, year, err)
	}
	return nil
}

// UpdateWeek replaces the week column for slug with bucket.
func (d *DB) UpdateWeek(ctx context.Context, year int, slug string, week db.WeekKey, bucket db.WeeklyBucket) error {
	data, err := json.Marshal(bucket)
	if err != nil {
		return fmt.Errorf("failed to encode bucket: %w", err)
	}

	column := week.Column()
	query := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE slug = $2", yearTable(year), column)

	tag, err := d.pool.Exec(ctx, query, data, slug)
	if err != nil {
		return fmt.Errorf("failed to update %s for %s/%d: %w", column, slug, year, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no row for %s in %s", slug, yearTable(year))
	}
	return nil
}
