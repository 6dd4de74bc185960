// Package deviation compares monthly plans with actuals.
package deviation

import (
	"math"
	"sort"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

// Config holds the analyzer thresholds.
type Config struct {
	// NoiseThreshold drops records whose absolute difference is below it.
	NoiseThreshold float64
	// TopN caps the number of records returned.
	TopN int
	// CriticalPct flags records whose absolute percentage exceeds it.
	CriticalPct float64
}

func DefaultConfig() Config {
	return Config{NoiseThreshold: 10, TopN: 50, CriticalPct: 20}
}

// Analyzer ranks plan-versus-actual deviations.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an analyzer. Negative thresholds and a non-positive
// TopN fall back to the defaults.
func NewAnalyzer(cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.NoiseThreshold < 0 {
		cfg.NoiseThreshold = def.NoiseThreshold
	}
	if cfg.TopN <= 0 {
		cfg.TopN = def.TopN
	}
	if cfg.CriticalPct <= 0 {
		cfg.CriticalPct = def.CriticalPct
	}
	return &Analyzer{cfg: cfg}
}

// Analyze joins plan and actual totals of month on their key.
func (a *Analyzer) Analyze(kind domain.DeviationKind, month string, plan, actual []domain.Aggregate) domain.DeviationReport {
	planned := sumByKey(plan, month)
	actuals := sumByKey(actual, month)

	keys := make(map[string]struct{}, len(planned)+len(actuals))
	for k := range planned {
		keys[k] = struct{}{}
	}
	for k := range actuals {
		keys[k] = struct{}{}
	}

	report := domain.DeviationReport{Kind: kind, Month: month, Compared: len(keys)}
	records := make([]domain.DeviationRecord, 0, len(keys))
	for k := range keys {
		rec := a.Compare(k, planned[k], actuals[k])
		if math.Abs(rec.Diff) < a.cfg.NoiseThreshold {
			report.Filtered++
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		di, dj := math.Abs(records[i].Diff), math.Abs(records[j].Diff)
		if di != dj {
			return di > dj
		}
		return records[i].Key < records[j].Key
	})
	if len(records) > a.cfg.TopN {
		records = records[:a.cfg.TopN]
	}

	report.Records = records
	return report
}

// Compare builds the record for a single key.
func (a *Analyzer) Compare(key string, plan, actual float64) domain.DeviationRecord {
	diff := actual - plan
	var pct float64
	switch {
	case plan != 0:
		pct = diff / plan * 100
	case actual > 0:
		pct = 100
	}

	sev := domain.SeverityNormal
	if math.Abs(pct) > a.cfg.CriticalPct {
		sev = domain.SeverityCritical
	}
	return domain.DeviationRecord{
		Key:      key,
		Plan:     plan,
		Actual:   actual,
		Diff:     diff,
		Pct:      pct,
		Severity: sev,
	}
}

func sumByKey(aggs []domain.Aggregate, month string) map[string]float64 {
	out := make(map[string]float64)
	for _, ag := range aggs {
		if ag.Month != month || ag.Key == "" {
			continue
		}
		q := ag.Quantity
		if math.IsNaN(q) || math.IsInf(q, 0) {
			q = 0
		}
		out[ag.Key] += q
	}
	return out
}
