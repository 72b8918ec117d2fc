package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mateusz-wlodarczyk/boatwatch/pkg/clients/charterapi"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/db"
)

// SearchClient defines the upstream API operations the listing sync needs.
type SearchClient interface {
	SearchBoats(ctx context.Context, country, category string, page int) (*charterapi.SearchPage, error)
}

// ListingStore defines the storage operations the listing sync needs.
type ListingStore interface {
	UpsertBoat(ctx context.Context, boat *db.Boat) error
}

// ListingResult summarizes one catalog refresh.
type ListingResult struct {
	TotalBoats int
	Upserted   int
	Failed     int
	Pages      int
}

// SyncListing re-fetches the full paginated boat catalog and upserts each
// boat's listing metadata. Pages are followed until the accumulated count
// reaches the API-reported total or a page comes back empty. A failed upsert
// of one boat is logged and skipped; it never aborts the batch.
func SyncListing(
	ctx context.Context,
	store ListingStore,
	client SearchClient,
	logger *zap.Logger,
	country, category string,
) (*ListingResult, error) {
	logger.Info("Starting listing sync",
		zap.String("country", country),
		zap.String("category", category))

	result := &ListingResult{}
	accumulated := 0

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		logger.Debug("Fetching search page", zap.Int("page", page))
		searchPage, err := client.SearchBoats(ctx, country, category, page)
		if err != nil {
			return result, fmt.Errorf("failed to fetch search page %d: %w", page, err)
		}
		if searchPage == nil || len(searchPage.Boats) == 0 {
			logger.Info("Search returned no data, stopping pagination", zap.Int("page", page))
			break
		}

		result.Pages++
		result.TotalBoats = searchPage.TotalBoats
		accumulated += len(searchPage.Boats)

		for _, details := range searchPage.Boats {
			boat := boatFromDetails(details)
			if err := store.UpsertBoat(ctx, boat); err != nil {
				result.Failed++
				logger.Error("Failed to upsert boat, skipping",
					zap.String("slug", details.Slug),
					zap.Error(err))
				continue
			}
			result.Upserted++
		}

		logger.Debug("Page processed",
			zap.Int("page", page),
			zap.Int("accumulated", accumulated),
			zap.Int("total_boats", searchPage.TotalBoats))

		if accumulated >= searchPage.TotalBoats {
			break
		}
	}

	logger.Info("Listing sync completed",
		zap.Int("pages", result.Pages),
		zap.Int("upserted", result.Upserted),
		zap.Int("failed", result.Failed),
		zap.Int("total_boats", result.TotalBoats))

	return result, nil
}

// boatFromDetails maps a search API record onto the listing row. Boats picked
// up by the catalog refresh are tracked by default.
func boatFromDetails(details charterapi.BoatDetails) *db.Boat {
	return &db.Boat{
		Slug:      details.Slug,
		BoatID:    details.ID,
		Name:      details.Name,
		Model:     details.Model,
		Category:  details.Category,
		Country:   details.Country,
		Marina:    details.Marina,
		Cabins:    details.Cabins,
		Berths:    details.Berths,
		Length:    details.Length,
		BuiltYear: details.BuiltYear,
		Tracked:   true,
	}
}
