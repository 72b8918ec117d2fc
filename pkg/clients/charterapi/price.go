package charterapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mateusz-wlodarczyk/boatwatch/pkg/core/freeweeks"
)

// GetPrice asks the pricing API for a quote covering one candidate week.
// Returns (nil, nil) on a recoverable miss, meaning no price exists for that week.
func (c *Client) GetPrice(ctx context.Context, slug string, slot freeweeks.Slot) (*PriceQuote, error) {
	query := url.Values{}
	query.Set("checkIn", slot.CheckIn)
	query.Set("checkOut", slot.CheckOut)

	resp, err := c.get(ctx, "/price/"+slug, query)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Price miss",
			zap.String("slug", slug),
			zap.String("check_in", slot.CheckIn),
			zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	var envelope priceEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode price response for %s: %w", slug, err)
	}

	if envelope.Status != statusSuccess || len(envelope.Data) == 0 || len(envelope.Data[0].Data) == 0 {
		c.logger.Debug("Price payload empty",
			zap.String("slug", slug),
			zap.String("check_in", slot.CheckIn),
			zap.String("api_status", envelope.Status))
		return nil, nil
	}

	return &envelope.Data[0].Data[0], nil
}
