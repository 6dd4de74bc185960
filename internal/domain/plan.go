package domain

import (
	"encoding/json"
	"math"
)

// DemandMetrics is the derived demand picture of one item. The whole record
// is recomputed together whenever any of its inputs change.
type DemandMetrics struct {
	ADU6m         float64   `json:"adu_6m"`
	ADUL30d       float64   `json:"adu_l30d"`
	ADUHybrid     float64   `json:"adu_hybrid"`
	StdDevDaily   float64   `json:"std_dev_daily"`
	CoV           float64   `json:"cov"`
	FEIFactor     float64   `json:"fei_factor"`
	MonthlyTotals []float64 `json:"monthly_totals"`
	ActivePeriods int       `json:"active_periods"`
	// Overridden lists the metrics taken from an authoritative override.
	Overridden []string `json:"overridden,omitempty"`
}

// BufferProfile holds the DDMRP zones of one item.
type BufferProfile struct {
	ADU                   float64 `json:"adu"`
	LeadTimeDays          float64 `json:"lead_time_days"`
	LTF                   float64 `json:"ltf"`
	VariabilityFactor     float64 `json:"variability_factor"`
	YellowZone            float64 `json:"yellow_zone"`
	RedBase               float64 `json:"red_base"`
	RedAlert              float64 `json:"red_alert"`
	RedTotal              float64 `json:"red_total"`
	SafetyStock           float64 `json:"safety_stock"`
	SafetyStockOverridden bool    `json:"safety_stock_overridden"`
	ROP                   float64 `json:"rop"`
	// ROPOverride is an upstream reorder point reported alongside the computed
	// ROP; it never replaces it.
	ROPOverride *float64 `json:"rop_override,omitempty"`
}

// TargetROP returns the reorder point the planner should act on: the upstream
// value when one was supplied, the computed one otherwise.
func (b BufferProfile) TargetROP() float64 {
	if b.ROPOverride != nil {
		return *b.ROPOverride
	}
	return b.ROP
}

// Level is a three-way High/Medium/Low bucket.
type Level string

const (
	LevelHigh   Level = "High"
	LevelMedium Level = "Medium"
	LevelLow    Level = "Low"
)

// Segment is the multi-axis classification of an item.
type Segment struct {
	ABC           string  `json:"abc"`
	XYZ           string  `json:"xyz"`
	Rotation      Level   `json:"rotation"`
	Periodicity   Level   `json:"periodicity"`
	TurnoverRatio float64 `json:"turnover_ratio"`
	ActivePeriods float64 `json:"active_periods"`
}

// HealthStatus is the stock health classification against the buffer.
type HealthStatus string

const (
	HealthCritical HealthStatus = "critical"
	HealthHealthy  HealthStatus = "healthy"
	HealthExcess   HealthStatus = "excess"
)

// Zone is the DDMRP color zone the current stock falls in.
type Zone string

const (
	ZoneRed    Zone = "red"
	ZoneYellow Zone = "yellow"
	ZoneGreen  Zone = "green"
)

// CoverageBand buckets coverage days.
type CoverageBand string

const (
	CoverageNoDemand CoverageBand = "no_demand"
	CoverageLow      CoverageBand = "low"
	CoverageOptimal  CoverageBand = "optimal"
	CoverageHigh     CoverageBand = "high"
)

// Health describes the current stock of an item against its buffer.
// CoverageDays is +Inf when the item has no demand.
type Health struct {
	Status       HealthStatus `json:"status"`
	Zone         Zone         `json:"zone"`
	CoverageDays float64      `json:"coverage_days"`
	CoverageBand CoverageBand `json:"coverage_band"`
}

type healthJSON struct {
	Status           HealthStatus `json:"status"`
	Zone             Zone         `json:"zone"`
	CoverageDays     *float64     `json:"coverage_days"`
	CoverageInfinite bool         `json:"coverage_infinite"`
	CoverageBand     CoverageBand `json:"coverage_band"`
}

// MarshalJSON encodes infinite coverage as a null day count plus a flag,
// since JSON has no representation for +Inf.
func (h Health) MarshalJSON() ([]byte, error) {
	out := healthJSON{Status: h.Status, Zone: h.Zone, CoverageBand: h.CoverageBand}
	if math.IsInf(h.CoverageDays, 1) {
		out.CoverageInfinite = true
	} else {
		days := h.CoverageDays
		out.CoverageDays = &days
	}
	return json.Marshal(out)
}

func (h *Health) UnmarshalJSON(data []byte) error {
	var in healthJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	h.Status, h.Zone, h.CoverageBand = in.Status, in.Zone, in.CoverageBand
	switch {
	case in.CoverageInfinite:
		h.CoverageDays = math.Inf(1)
	case in.CoverageDays != nil:
		h.CoverageDays = *in.CoverageDays
	default:
		h.CoverageDays = 0
	}
	return nil
}

// ItemPlan bundles every derived record of one item.
type ItemPlan struct {
	Item    ItemProfile   `json:"item"`
	Demand  DemandMetrics `json:"demand"`
	Buffer  BufferProfile `json:"buffer"`
	Segment Segment       `json:"segment"`
	Stock   float64       `json:"stock"`
	Health  Health        `json:"health"`
}
