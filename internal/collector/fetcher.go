package collector

import (
	"context"

	"PriceTracker/internal/model"
)

// Fetcher retrieves the raw product-rate payload for a date-time window.
type Fetcher interface {
	FetchRaw(ctx context.Context, w model.Window) ([]byte, error)
	Name() string
}
