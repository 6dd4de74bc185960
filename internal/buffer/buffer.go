// Package buffer sizes DDMRP buffer zones and classifies stock against them.
package buffer

import (
	"math"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

// DefaultLTF is the lead time factor applied to the red base zone.
const DefaultLTF = 0.2

// VariabilityFactor maps a coefficient of variation onto its VF tier.
// cov <= 0.5 is low, 0.5 < cov < 0.8 medium, cov >= 0.8 high.
func VariabilityFactor(cov float64) float64 {
	switch {
	case cov <= 0.5:
		return 0.2
	case cov < 0.8:
		return 0.4
	default:
		return 0.7
	}
}

// Input holds the parameters of one buffer computation.
type Input struct {
	ADU          float64
	LeadTimeDays float64
	CoV          float64
	// LTF falls back to DefaultLTF when zero or negative.
	LTF                 float64
	SafetyStockOverride *float64
	ROPOverride         *float64
}

// Compute sizes the buffer. It has no side effects: identical inputs always
// produce identical profiles.
func Compute(in Input) domain.BufferProfile {
	return size(in, VariabilityFactor(clean(in.CoV)))
}

// Simulate re-sizes an existing profile with an alternate LTF, keeping its
// ADU, lead time, variability tier and overrides. The stored profile is not
// modified.
func Simulate(p domain.BufferProfile, ltf float64) domain.BufferProfile {
	in := Input{
		ADU:          p.ADU,
		LeadTimeDays: p.LeadTimeDays,
		LTF:          ltf,
		ROPOverride:  p.ROPOverride,
	}
	if p.SafetyStockOverridden {
		ss := p.SafetyStock
		in.SafetyStockOverride = &ss
	}
	return size(in, p.VariabilityFactor)
}

func size(in Input, vf float64) domain.BufferProfile {
	adu := math.Max(0, clean(in.ADU))
	lt := clean(in.LeadTimeDays)
	if lt <= 0 {
		lt = domain.DefaultLeadTimeDays
	}
	ltf := clean(in.LTF)
	if ltf <= 0 {
		ltf = DefaultLTF
	}

	p := domain.BufferProfile{
		ADU:               adu,
		LeadTimeDays:      lt,
		LTF:               ltf,
		VariabilityFactor: vf,
	}

	// 1. Yellow zone covers demand over the lead time
	p.YellowZone = adu * lt

	// 2. Red zone = base (lead time factor) + alert (variability factor)
	p.RedBase = adu * lt * ltf
	p.RedAlert = adu * lt * vf
	p.RedTotal = p.RedBase + p.RedAlert

	// 3. Safety stock is the red zone unless an authoritative value exists
	p.SafetyStock = p.RedTotal
	if in.SafetyStockOverride != nil && !math.IsNaN(*in.SafetyStockOverride) {
		p.SafetyStock = math.Max(0, *in.SafetyStockOverride)
		p.SafetyStockOverridden = true
	}

	// 4. Reorder point
	p.ROP = p.RedTotal + p.YellowZone
	if in.ROPOverride != nil && !math.IsNaN(*in.ROPOverride) {
		rop := math.Max(0, *in.ROPOverride)
		p.ROPOverride = &rop
	}

	return p
}

func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
