// Package billing defines the billing export data source contract.
// Forecasting only needs daily cost aggregates; how they are stored
// (ClickHouse, Postgres, Cost Explorer) is a deployment choice.
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CostQuery selects a window of daily cost aggregates.
// ProjectID and ServiceName are optional filters; empty means all.
type CostQuery struct {
	Start       time.Time
	End         time.Time
	ProjectID   string
	ServiceName string
}

// DailyCost is one day of aggregated spend. Sources must pre-aggregate:
// at most one row per calendar day.
type DailyCost struct {
	Date      time.Time
	TotalCost decimal.Decimal
}

// Source provides daily cost aggregates from a billing export.
// Implementations own their retry and timeout policy; callers treat a
// returned error as terminal for the request.
type Source interface {
	QueryDailyCosts(ctx context.Context, q CostQuery) ([]DailyCost, error)
}
