package postgres

import (
	"context"
	"fmt"

	"github.com/mateusz-wlodarczyk/boatwatch/pkg/db"
)

// UpsertBoat inserts or refreshes one boat's listing metadata, keyed by slug.
// The tracked flag of an existing row is preserved so operator opt-outs
// survive catalog refreshes.
func (d *DB) UpsertBoat(ctx context.Context, boat *db.Boat) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO boat (slug, boat_id, name, model, category, country, marina,
		                  cabins, berths, length, built_year, tracked, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (slug) DO UPDATE SET
			boat_id = EXCLUDED.boat_id,
			name = EXCLUDED.name,
			model = EXCLUDED.model,
			category = EXCLUDED.category,
			country = EXCLUDED.country,
			marina = EXCLUDED.marina,
			cabins = EXCLUDED.cabins,
			berths = EXCLUDED.berths,
			length = EXCLUDED.length,
			built_year = EXCLUDED.built_year,
			updated_at = NOW()
	`, boat.Slug, boat.BoatID, boat.Name, boat.Model, boat.Category, boat.Country,
		boat.Marina, boat.Cabins, boat.Berths, boat.Length, boat.BuiltYear, boat.Tracked)
	if err != nil {
		return fmt.Errorf("failed to upsert boat %s: %w", boat.Slug, err)
	}
	return nil
}

// ListTrackedBoats returns all boats enabled for availability sync, ordered
// by slug so runs process them in a stable order.
func (d *DB) ListTrackedBoats(ctx context.Context) ([]db.Boat, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT slug, boat_id, name, model, category, country, marina,
		       cabins, berths, length, built_year, tracked
		FROM boat
		WHERE tracked
		ORDER BY slug
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked boats: %w", err)
	}
	defer rows.Close()

	var boats []db.Boat
	for rows.Next() {
		var boat db.Boat
		if err := rows.Scan(&boat.Slug, &boat.BoatID, &boat.Name, &boat.Model,
			&boat.Category, &boat.Country, &boat.Marina, &boat.Cabins,
			&boat.Berths, &boat.Length, &boat.BuiltYear, &boat.Tracked); err != nil {
			return nil, fmt.Errorf("failed to scan boat: %w", err)
		}
		boats = append(boats, boat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boats: %w", err)
	}

	return boats, nil
}
