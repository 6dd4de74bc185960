package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func TestNormalizeItemID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "leading zeros", raw: "000123", want: "123"},
		{name: "surrounding spaces", raw: "  0042 ", want: "42"},
		{name: "all zeros", raw: "0000", want: "0"},
		{name: "alphanumeric kept", raw: "00AB12", want: "00AB12"},
		{name: "empty", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeItemID(tt.raw); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseMovementType(t *testing.T) {
	tests := []struct {
		raw  string
		want MovementType
	}{
		{raw: "VENTA NACIONAL", want: MovementSale},
		{raw: "sale", want: MovementSale},
		{raw: "Consumo Produccion", want: MovementConsumption},
		{raw: "TRASLADO", want: MovementTransfer},
		{raw: "transfer", want: MovementTransfer},
		{raw: "STOCK", want: MovementOther},
		{raw: "", want: MovementOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseMovementType(tt.raw); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestConsumptionConfigIncludes(t *testing.T) {
	cfg := ConsumptionConfig{IncludeSales: true}
	if !cfg.Includes(MovementSale) {
		t.Errorf("Expected sales to be included")
	}
	if cfg.Includes(MovementConsumption) || cfg.Includes(MovementTransfer) || cfg.Includes(MovementOther) {
		t.Errorf("Expected only sales to be included")
	}
}

func TestClassifyBalance(t *testing.T) {
	tests := []struct {
		psoh float64
		want DayStatus
	}{
		{psoh: -5, want: DayCritical},
		{psoh: 0, want: DayCritical},
		{psoh: 10, want: DayWarning},
		{psoh: 80, want: DayWarning},
		{psoh: 80.01, want: DayHealthy},
	}

	for _, tt := range tests {
		if got := ClassifyBalance(tt.psoh, 80); got != tt.want {
			t.Errorf("psoh %.2f: expected %s, got %s", tt.psoh, tt.want, got)
		}
	}
}

func TestHealthJSONInfiniteCoverage(t *testing.T) {
	h := Health{Status: HealthHealthy, Zone: ZoneGreen, CoverageDays: math.Inf(1), CoverageBand: CoverageNoDemand}

	payload, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Failed to marshal health: %v", err)
	}

	var decoded Health
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal health: %v", err)
	}
	if !math.IsInf(decoded.CoverageDays, 1) {
		t.Errorf("Expected infinite coverage, got %v", decoded.CoverageDays)
	}
	if decoded.CoverageBand != CoverageNoDemand {
		t.Errorf("Expected band %s, got %s", CoverageNoDemand, decoded.CoverageBand)
	}
}

func TestItemProfileDefaults(t *testing.T) {
	p := ItemProfile{ID: "1", LeadTimeDays: -3}
	if got := p.EffectiveLeadTime(); got != DefaultLeadTimeDays {
		t.Errorf("Expected lead time %.0f, got %.0f", DefaultLeadTimeDays, got)
	}
	if got := p.EffectiveUnitCost(); got != 1 {
		t.Errorf("Expected unit cost 1, got %v", got)
	}
}
