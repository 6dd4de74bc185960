package domain

import "strings"

// DeviationKind selects which plan is compared with which actuals.
type DeviationKind string

const (
	DeviationProduction  DeviationKind = "production"
	DeviationSales       DeviationKind = "sales"
	DeviationConsumption DeviationKind = "consumption"
)

// ParseDeviationKind accepts the kind name case-insensitively.
func ParseDeviationKind(raw string) (DeviationKind, bool) {
	switch DeviationKind(strings.ToLower(strings.TrimSpace(raw))) {
	case DeviationProduction:
		return DeviationProduction, true
	case DeviationSales:
		return DeviationSales, true
	case DeviationConsumption:
		return DeviationConsumption, true
	}
	return "", false
}

// Severity flags how far actuals drifted from plan.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityCritical Severity = "critical"
)

// Aggregate is a keyed monthly total on either side of a comparison.
type Aggregate struct {
	Key      string  `json:"key"`
	Month    string  `json:"month"` // YYYY-MM
	Quantity float64 `json:"quantity"`
}

// DeviationRecord is the plan-versus-actual comparison for one key.
type DeviationRecord struct {
	Key      string   `json:"key"`
	Plan     float64  `json:"plan"`
	Actual   float64  `json:"actual"`
	Diff     float64  `json:"diff"`
	Pct      float64  `json:"pct"`
	Severity Severity `json:"severity"`
}

// DeviationReport is the ranked output of one analysis.
type DeviationReport struct {
	Kind     DeviationKind     `json:"kind"`
	Month    string            `json:"month"`
	Compared int               `json:"compared"`
	Filtered int               `json:"filtered"`
	Records  []DeviationRecord `json:"records"`
}
