package buffer

import (
	"math"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

// HealthConfig holds the stock health thresholds.
type HealthConfig struct {
	// ExcessMultiplier flags stock above this multiple of ROP as excess.
	ExcessMultiplier float64
	LowCoverageDays  float64
	HighCoverageDays float64
}

// DefaultHealthConfig flags excess above 1.5 x ROP and treats 15 to 45 days
// of coverage as optimal.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		ExcessMultiplier: 1.5,
		LowCoverageDays:  15,
		HighCoverageDays: 45,
	}
}

// Coverage returns stock expressed in days of demand. Items without demand
// have infinite coverage.
func Coverage(stock, adu float64) float64 {
	if adu <= 0 || math.IsNaN(adu) {
		return math.Inf(1)
	}
	return stock / adu
}

// Classify evaluates current stock against a buffer profile.
func Classify(stock float64, p domain.BufferProfile, cfg HealthConfig) domain.Health {
	if cfg.ExcessMultiplier <= 0 {
		cfg.ExcessMultiplier = DefaultHealthConfig().ExcessMultiplier
	}

	h := domain.Health{Status: domain.HealthHealthy, Zone: domain.ZoneGreen}

	switch {
	case stock < p.SafetyStock:
		h.Status = domain.HealthCritical
	case stock > cfg.ExcessMultiplier*p.ROP:
		h.Status = domain.HealthExcess
	}

	switch {
	case stock < p.RedTotal:
		h.Zone = domain.ZoneRed
	case stock < p.ROP:
		h.Zone = domain.ZoneYellow
	}

	h.CoverageDays = Coverage(stock, p.ADU)
	switch {
	case math.IsInf(h.CoverageDays, 1):
		h.CoverageBand = domain.CoverageNoDemand
	case h.CoverageDays < cfg.LowCoverageDays:
		h.CoverageBand = domain.CoverageLow
	case h.CoverageDays > cfg.HighCoverageDays:
		h.CoverageBand = domain.CoverageHigh
	default:
		h.CoverageBand = domain.CoverageOptimal
	}

	return h
}
