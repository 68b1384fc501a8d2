package forecast

import (
	"github.com/shopspring/decimal"

	"finops-forecast/pkg/errors"
)

// Escalating budget-alert multipliers over the predicted spend.
var (
	conservativeFactor = decimal.NewFromFloat(1.10)
	warningFactor      = decimal.NewFromFloat(1.20)
	criticalFactor     = decimal.NewFromFloat(1.30)
)

// AlertThresholds are budget-alert levels derived from a forecast.
// Recomputed per request, never persisted.
type AlertThresholds struct {
	PredictedMonthlyCost decimal.Decimal `json:"predicted_monthly_cost"`
	Conservative         decimal.Decimal `json:"conservative"`
	Warning              decimal.Decimal `json:"warning"`
	Critical             decimal.Decimal `json:"critical"`
}

// ThresholdsFromTotal converts a total predicted cost into three
// escalating alert levels. Negative input is a caller bug and is
// rejected.
func ThresholdsFromTotal(total decimal.Decimal) (*AlertThresholds, error) {
	if total.IsNegative() {
		return nil, errors.NewInvalidInputError("predicted cost must not be negative: " + total.String())
	}
	return &AlertThresholds{
		PredictedMonthlyCost: total,
		Conservative:         total.Mul(conservativeFactor),
		Warning:              total.Mul(warningFactor),
		Critical:             total.Mul(criticalFactor),
	}, nil
}
