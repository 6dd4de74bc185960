package pipeline

import (
	"time"

	"github.com/andresuchdata/ddmrp-planner/internal/buffer"
	"github.com/andresuchdata/ddmrp-planner/internal/config"
	"github.com/andresuchdata/ddmrp-planner/internal/demand"
	"github.com/andresuchdata/ddmrp-planner/internal/deviation"
	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/projection"
	"github.com/andresuchdata/ddmrp-planner/internal/segment"
)

// Config holds the settings of every planning stage.
type Config struct {
	Demand     demand.Config
	Segment    segment.Config
	Health     buffer.HealthConfig
	Projection projection.Config
	Deviation  deviation.Config
	LTF        float64 // lead time factor applied to every buffer
	// WorkerCount bounds the per-item compute pool.
	WorkerCount     int
	DefaultHorizon  int
	RefreshInterval time.Duration
}

// DefaultConfig returns the standard DDMRP settings.
func DefaultConfig() Config {
	return FromEngineConfig(config.DefaultEngineConfig())
}

// FromEngineConfig maps the flat environment settings onto stage configs.
func FromEngineConfig(ec config.EngineConfig) Config {
	return Config{
		Demand: demand.Config{
			Weights: demand.Weights{Historical: ec.HistoricalWeight, Recent: ec.RecentWeight},
			Consumption: domain.ConsumptionConfig{
				IncludeSales:       ec.IncludeSales,
				IncludeConsumption: ec.IncludeConsumption,
				IncludeTransfer:    ec.IncludeTransfer,
			},
		},
		Segment: segment.Config{
			ShareA:            ec.ABCShareA,
			ShareB:            ec.ABCShareB,
			XMax:              ec.XYZXMax,
			YMax:              ec.XYZYMax,
			RotationHigh:      ec.RotationHigh,
			RotationMedium:    ec.RotationMedium,
			PeriodicityHigh:   ec.PeriodicityHigh,
			PeriodicityMedium: ec.PeriodicityMedium,
		},
		Health: buffer.HealthConfig{
			ExcessMultiplier: ec.ExcessMultiplier,
			LowCoverageDays:  ec.LowCoverageDays,
			HighCoverageDays: ec.HighCoverageDays,
		},
		Projection: projection.Config{FEIWindowDays: ec.FEIWindowDays},
		Deviation: deviation.Config{
			NoiseThreshold: ec.DeviationNoise,
			TopN:           ec.DeviationTopN,
			CriticalPct:    ec.DeviationCriticalPct,
		},
		LTF:             ec.LTF,
		WorkerCount:     4,
		DefaultHorizon:  ec.DefaultHorizon,
		RefreshInterval: time.Duration(ec.RefreshIntervalSeconds) * time.Second,
	}
}

// RefreshStatus represents the state of the latest refresh cycle
type RefreshStatus string

const (
	StatusPending    RefreshStatus = "pending"
	StatusProcessing RefreshStatus = "processing"
	StatusCompleted  RefreshStatus = "completed"
	StatusFailed     RefreshStatus = "failed"
)

// RefreshMetrics holds counters for monitoring
type RefreshMetrics struct {
	Status          RefreshStatus `json:"status"`
	Runs            int64         `json:"runs"`
	Failures        int64         `json:"failures"`
	Coalesced       int64         `json:"coalesced"`
	LastDuration    time.Duration `json:"last_duration"`
	LastRefreshedAt time.Time     `json:"last_refreshed_at"`
	LastError       string        `json:"last_error,omitempty"`
}
