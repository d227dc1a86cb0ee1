package repository

import (
	"context"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
)

// UsageSource defines the interface for the source usage-query API.
type UsageSource interface {
	// FetchUsage submits the category's query for the window, waits for the
	// asynchronous job to finish and returns every result row. An empty
	// slice is a valid result (no usage in the window).
	FetchUsage(ctx context.Context, spec entity.CategorySpec, window entity.TimeWindow) ([]entity.RawUsageRecord, error)
}
