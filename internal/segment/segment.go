// Package segment classifies items along value, variability, rotation and
// periodicity axes.
package segment

import (
	"math"
	"sort"
	"strings"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

// Config holds the classification boundaries. Every field has a default in
// DefaultConfig and can be tuned through configuration.
type Config struct {
	// ABC shares of the ranked item count.
	ShareA float64
	ShareB float64
	// XYZ boundaries on the coefficient of variation: X when cov <= XMax,
	// Y when cov < YMax, Z otherwise.
	XMax float64
	YMax float64
	// Turnover ratio (annual demand / stock) boundaries.
	RotationHigh   float64
	RotationMedium float64
	// Active months (out of six) boundaries.
	PeriodicityHigh   float64
	PeriodicityMedium float64
}

// DefaultConfig uses a 20/30/50 ABC split and the buffer variability tiers
// for XYZ.
func DefaultConfig() Config {
	return Config{
		ShareA:            0.2,
		ShareB:            0.3,
		XMax:              0.5,
		YMax:              0.8,
		RotationHigh:      6,
		RotationMedium:    2,
		PeriodicityHigh:   5,
		PeriodicityMedium: 3,
	}
}

// Input is the per-item data needed for segmentation.
type Input struct {
	ItemID string
	// Value ranks items for ABC, typically annual demand value.
	Value         float64
	CoV           float64
	AnnualDemand  float64
	Stock         float64
	ActivePeriods int
	Override      *domain.HybridOverride
}

// Engine assigns segments.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine, filling unset boundaries from DefaultConfig.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ShareA <= 0 {
		cfg.ShareA = def.ShareA
	}
	if cfg.ShareB <= 0 {
		cfg.ShareB = def.ShareB
	}
	if cfg.XMax <= 0 {
		cfg.XMax = def.XMax
	}
	if cfg.YMax <= cfg.XMax {
		cfg.YMax = math.Max(def.YMax, cfg.XMax)
	}
	if cfg.RotationHigh <= 0 {
		cfg.RotationHigh = def.RotationHigh
	}
	if cfg.RotationMedium <= 0 {
		cfg.RotationMedium = def.RotationMedium
	}
	if cfg.PeriodicityHigh <= 0 {
		cfg.PeriodicityHigh = def.PeriodicityHigh
	}
	if cfg.PeriodicityMedium <= 0 {
		cfg.PeriodicityMedium = def.PeriodicityMedium
	}
	return &Engine{cfg: cfg}
}

// Classify segments every item. ABC depends on the whole population, so
// items are always classified together.
func (e *Engine) Classify(items []Input) map[string]domain.Segment {
	abc := e.rankABC(items)

	out := make(map[string]domain.Segment, len(items))
	for _, in := range items {
		ov := in.Override
		if ov == nil {
			ov = &domain.HybridOverride{}
		}

		computedABC := abc[in.ItemID]
		abcClass, _ := domain.Resolve(parseClass(ov.ABCSegment, "ABC"), &computedABC, "C")

		computedXYZ := e.XYZ(in.CoV)
		xyzClass, _ := domain.Resolve(parseClass(ov.XYZSegment, "XYZ"), &computedXYZ, "X")

		computedTurnover := Turnover(in.AnnualDemand, in.Stock)
		turnover, _ := domain.Resolve(finite(ov.TurnoverRatio), &computedTurnover, 0)

		computedPeriods := float64(in.ActivePeriods)
		periods, _ := domain.Resolve(finite(ov.ActivePeriods), &computedPeriods, 0)

		rotation := bucket(turnover, e.cfg.RotationHigh, e.cfg.RotationMedium)
		rotation, _ = domain.Resolve(parseLevel(ov.RotationSegment), &rotation, domain.LevelLow)

		periodicity := bucket(periods, e.cfg.PeriodicityHigh, e.cfg.PeriodicityMedium)
		periodicity, _ = domain.Resolve(parseLevel(ov.PeriodicitySegment), &periodicity, domain.LevelLow)

		out[in.ItemID] = domain.Segment{
			ABC:           abcClass,
			XYZ:           xyzClass,
			Rotation:      rotation,
			Periodicity:   periodicity,
			TurnoverRatio: turnover,
			ActivePeriods: periods,
		}
	}
	return out
}

// XYZ classifies variability.
func (e *Engine) XYZ(cov float64) string {
	switch {
	case cov <= e.cfg.XMax:
		return "X"
	case cov < e.cfg.YMax:
		return "Y"
	default:
		return "Z"
	}
}

// Turnover is annual demand over stock. Stock below one unit counts as one
// so items without stock but with demand rank as fast movers.
func Turnover(annualDemand, stock float64) float64 {
	if annualDemand <= 0 || math.IsNaN(annualDemand) {
		return 0
	}
	return annualDemand / math.Max(stock, 1)
}

func (e *Engine) rankABC(items []Input) map[string]string {
	ranked := make([]Input, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].ItemID < ranked[j].ItemID
	})

	n := float64(len(ranked))
	cutA := int(math.Ceil(n*e.cfg.ShareA - 1e-9))
	cutB := int(math.Ceil(n*(e.cfg.ShareA+e.cfg.ShareB) - 1e-9))

	classes := make(map[string]string, len(ranked))
	for i, in := range ranked {
		switch {
		case in.Value <= 0 || math.IsNaN(in.Value):
			classes[in.ItemID] = "C"
		case i < cutA:
			classes[in.ItemID] = "A"
		case i < cutB:
			classes[in.ItemID] = "B"
		default:
			classes[in.ItemID] = "C"
		}
	}
	return classes
}

func bucket(v, high, medium float64) domain.Level {
	switch {
	case v >= high:
		return domain.LevelHigh
	case v >= medium:
		return domain.LevelMedium
	default:
		return domain.LevelLow
	}
}

func parseClass(raw, allowed string) *string {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if len(v) != 1 || !strings.Contains(allowed, v) {
		return nil
	}
	return &v
}

func parseLevel(raw string) *domain.Level {
	var l domain.Level
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "alta", "alto":
		l = domain.LevelHigh
	case "medium", "media", "medio":
		l = domain.LevelMedium
	case "low", "baja", "bajo":
		l = domain.LevelLow
	default:
		return nil
	}
	return &l
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
