package charterapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// SearchBoats fetches one page of the boat catalog for a country/category
// filter. Returns (nil, nil) on a recoverable miss (no results for the page).
func (c *Client) SearchBoats(ctx context.Context, country, category string, page int) (*SearchPage, error) {
	query := url.Values{}
	query.Set("country", country)
	query.Set("category", category)
	query.Set("page", strconv.Itoa(page))

	resp, err := c.get(ctx, "/search", query)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Search miss",
			zap.String("country", country),
			zap.String("category", category),
			zap.Int("page", page),
			zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	var envelope searchEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode search response (page %d): %w", page, err)
	}

	if len(envelope.Data) == 0 {
		return nil, nil
	}

	return &SearchPage{
		TotalBoats: envelope.Data[0].TotalBoats,
		Boats:      envelope.Data[0].Data,
	}, nil
}
