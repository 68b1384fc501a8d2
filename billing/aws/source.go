// Package aws provides a billing source backed by AWS Cost Explorer.
// GetCostAndUsage already returns daily aggregates, so no warehouse is
// needed; Cost Explorer's own latency (data lands ~24h behind) is
// acceptable for forecasting.
package aws

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/shopspring/decimal"

	"finops-forecast/billing"
)

const costMetric = "UnblendedCost"

// CostExplorerAPI is the slice of the Cost Explorer client the source
// uses; narrowed for test doubles.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// Source implements billing.Source over AWS Cost Explorer. The
// ProjectID filter maps to the linked account dimension, ServiceName to
// the SERVICE dimension.
type Source struct {
	client CostExplorerAPI
}

var _ billing.Source = (*Source)(nil)

// NewSource loads the default AWS config chain (env, shared config,
// instance role) and builds a Cost Explorer client.
func NewSource(ctx context.Context) (*Source, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Source{client: costexplorer.NewFromConfig(cfg)}, nil
}

// NewSourceWithClient wraps an existing client.
func NewSourceWithClient(client CostExplorerAPI) *Source {
	return &Source{client: client}
}

// QueryDailyCosts fetches daily unblended cost over the window. Cost
// Explorer treats the end date as exclusive, so one day is added to
// keep the query window inclusive like the other sources.
func (s *Source) QueryDailyCosts(ctx context.Context, q billing.CostQuery) ([]billing.DailyCost, error) {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: awssdk.String(q.Start.Format("2006-01-02")),
			End:   awssdk.String(q.End.AddDate(0, 0, 1).Format("2006-01-02")),
		},
		Granularity: cetypes.GranularityDaily,
		Metrics:     []string{costMetric},
		Filter:      buildFilter(q),
	}

	var costs []billing.DailyCost
	for {
		out, err := s.client.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("cost explorer query failed: %w", err)
		}

		for _, result := range out.ResultsByTime {
			if result.TimePeriod == nil || result.TimePeriod.Start == nil {
				continue
			}
			day, err := time.ParseInLocation("2006-01-02", *result.TimePeriod.Start, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("invalid period start %q: %w", *result.TimePeriod.Start, err)
			}
			amount, err := metricAmount(result.Total)
			if err != nil {
				return nil, fmt.Errorf("invalid amount for %s: %w", *result.TimePeriod.Start, err)
			}
			costs = append(costs, billing.DailyCost{Date: day, TotalCost: amount})
		}

		if out.NextPageToken == nil {
			return costs, nil
		}
		input.NextPageToken = out.NextPageToken
	}
}

func buildFilter(q billing.CostQuery) *cetypes.Expression {
	var exprs []cetypes.Expression
	if q.ServiceName != "" {
		exprs = append(exprs, cetypes.Expression{
			Dimensions: &cetypes.DimensionValues{
				Key:    cetypes.DimensionService,
				Values: []string{q.ServiceName},
			},
		})
	}
	if q.ProjectID != "" {
		exprs = append(exprs, cetypes.Expression{
			Dimensions: &cetypes.DimensionValues{
				Key:    cetypes.DimensionLinkedAccount,
				Values: []string{q.ProjectID},
			},
		})
	}

	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return &exprs[0]
	default:
		return &cetypes.Expression{And: exprs}
	}
}

func metricAmount(total map[string]cetypes.MetricValue) (decimal.Decimal, error) {
	metric, ok := total[costMetric]
	if !ok || metric.Amount == nil {
		// Days with no spend come back without the metric.
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*metric.Amount)
}
