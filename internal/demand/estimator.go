// Package demand estimates average daily usage from consumption history.
package demand

import (
	"math"
	"time"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

const (
	// DaysPerMonth converts monthly totals to daily rates.
	DaysPerMonth = 30.0
	// HistoryMonths is the number of closed months averaged for ADU6m.
	HistoryMonths = 6
	// TrailingDays is the window of the recent ADU.
	TrailingDays = 30
)

// Weights blends the historical and the recent ADU.
type Weights struct {
	Historical float64
	Recent     float64
}

// Config holds estimator settings.
type Config struct {
	Weights     Weights
	Consumption domain.ConsumptionConfig
}

// DefaultConfig weighs the six-month ADU at 0.4 and the trailing 30 days at 0.6.
func DefaultConfig() Config {
	return Config{
		Weights:     Weights{Historical: 0.4, Recent: 0.6},
		Consumption: domain.DefaultConsumptionConfig(),
	}
}

// Input is everything the estimator needs for one item.
type Input struct {
	AsOf       time.Time
	Aggregates []domain.ConsumptionAggregate
	// TrailingTotal is the demand of the last TrailingDays, nil when unknown.
	TrailingTotal *float64
	DefaultADU    float64
	Override      *domain.HybridOverride
	// FEI comes from an external seasonality source, nil when none.
	FEI *float64
}

// Estimator computes DemandMetrics.
type Estimator struct {
	cfg Config
}

// NewEstimator creates an estimator, restoring default weights when both are zero.
func NewEstimator(cfg Config) *Estimator {
	if cfg.Weights.Historical <= 0 && cfg.Weights.Recent <= 0 {
		cfg.Weights = DefaultConfig().Weights
	}
	return &Estimator{cfg: cfg}
}

// Estimate derives the full DemandMetrics record for one item.
func (e *Estimator) Estimate(in Input) domain.DemandMetrics {
	ov := in.Override
	if ov == nil {
		ov = &domain.HybridOverride{}
	}
	var overridden []string
	track := func(name string, src domain.Source) {
		if src == domain.SourceOverride {
			overridden = append(overridden, name)
		}
	}

	// 1. Monthly totals over the closed months preceding the as-of month
	months := ClosedMonths(in.AsOf, HistoryMonths)
	totals, hasHistory := MonthlyTotals(in.Aggregates, months, e.cfg.Consumption)

	// 2. Historical ADU and daily deviation
	var computed6m *float64
	if hasHistory {
		v := mean(totals) / DaysPerMonth
		computed6m = &v
	}
	adu6m, src := domain.Resolve(perDay(ov.ADU6mMonthly), computed6m, 0)
	track("adu_6m", src)
	historyAvailable := src != domain.SourceFallback

	stdDev := populationStdDev(totals) / math.Sqrt(DaysPerMonth)
	stdDev, src = domain.Resolve(coerce(ov.DailyStdDev), &stdDev, 0)
	track("std_dev_daily", src)

	// 3. Trailing ADU
	var computedL30d *float64
	if in.TrailingTotal != nil {
		v := domain.DemandQuantity(sanitize(*in.TrailingTotal)) / TrailingDays
		computedL30d = &v
	}
	aduL30d, src := domain.Resolve(coerce(ov.ADUL30dDaily), computedL30d, 0)
	track("adu_l30d", src)
	recentAvailable := src != domain.SourceFallback

	// 4. Hybrid ADU with fallback chain
	var computedHybrid *float64
	switch {
	case historyAvailable && recentAvailable:
		v := e.cfg.Weights.Historical*adu6m + e.cfg.Weights.Recent*aduL30d
		computedHybrid = &v
	case historyAvailable:
		computedHybrid = &adu6m
	case recentAvailable:
		computedHybrid = &aduL30d
	}
	hybrid, src := domain.Resolve(coerce(ov.ADUHybrid), computedHybrid, math.Max(0, sanitize(in.DefaultADU)))
	track("adu_hybrid", src)

	// 5. Variability
	cov := 0.0
	if hybrid > 0 {
		cov = stdDev / hybrid
	}

	// 6. End-of-month factor
	fei, src := domain.Resolve(coerce(ov.EndOfMonthFactor), coerce(in.FEI), 1.0)
	track("fei_factor", src)
	if fei <= 0 {
		fei = 1.0
	}

	return domain.DemandMetrics{
		ADU6m:         adu6m,
		ADUL30d:       aduL30d,
		ADUHybrid:     hybrid,
		StdDevDaily:   stdDev,
		CoV:           cov,
		FEIFactor:     fei,
		MonthlyTotals: totals,
		ActivePeriods: activePeriods(totals),
		Overridden:    overridden,
	}
}

// ClosedMonths returns the n calendar months before asOf's month as YYYY-MM,
// oldest first.
func ClosedMonths(asOf time.Time, n int) []string {
	first := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]string, 0, n)
	for i := n; i >= 1; i-- {
		months = append(months, first.AddDate(0, -i, 0).Format("2006-01"))
	}
	return months
}

// MonthlyTotals sums the enabled movement types per month as demand
// magnitudes. Months without records count as zero. The bool reports whether any record contributed.
func MonthlyTotals(aggs []domain.ConsumptionAggregate, months []string, cfg domain.ConsumptionConfig) ([]float64, bool) {
	index := make(map[string]int, len(months))
	for i, m := range months {
		index[m] = i
	}

	totals := make([]float64, len(months))
	contributed := false
	for _, a := range aggs {
		if !cfg.Includes(a.MovementType) {
			continue
		}
		i, ok := index[a.Month]
		if !ok {
			continue
		}
		totals[i] += domain.DemandQuantity(sanitize(a.Quantity))
		contributed = true
	}
	return totals, contributed
}

// TrailingTotal sums the enabled movements dated in the TrailingDays before
// asOf. It returns nil when no movement falls in the window.
func TrailingTotal(movements []domain.Movement, asOf time.Time, cfg domain.ConsumptionConfig) *float64 {
	end := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -TrailingDays)

	total := 0.0
	found := false
	for _, m := range movements {
		if !cfg.Includes(m.MovementType) {
			continue
		}
		if m.Date.Before(start) || !m.Date.Before(end) {
			continue
		}
		total += domain.DemandQuantity(sanitize(m.Quantity))
		found = true
	}
	if !found {
		return nil
	}
	return &total
}

func perDay(monthly *float64) *float64 {
	if monthly == nil || !finite(*monthly) {
		return nil
	}
	v := *monthly / DaysPerMonth
	return &v
}

func coerce(v *float64) *float64 {
	if v == nil || !finite(*v) {
		return nil
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sq := 0.0
	for _, v := range values {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(values)))
}

func activePeriods(totals []float64) int {
	n := 0
	for _, v := range totals {
		if v > 0 {
			n++
		}
	}
	return n
}

func sanitize(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
