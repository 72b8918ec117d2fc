package charterapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// GetAvailability fetches the reservation calendar for one boat.
// Returns (nil, nil) on a recoverable miss: 4xx, non-success status field, or
// an empty data array.
func (c *Client) GetAvailability(ctx context.Context, slug string) (*BoatAvailability, error) {
	resp, err := c.get(ctx, "/availability/"+slug, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Availability miss",
			zap.String("slug", slug),
			zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	var envelope availabilityEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode availability response for %s: %w", slug, err)
	}

	if envelope.Status != statusSuccess || len(envelope.Data) == 0 {
		c.logger.Debug("Availability payload empty",
			zap.String("slug", slug),
			zap.String("api_status", envelope.Status))
		return nil, nil
	}

	return &envelope.Data[0], nil
}
