package buffer

import (
	"math"
	"testing"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestVariabilityFactorTiers(t *testing.T) {
	tests := []struct {
		cov  float64
		want float64
	}{
		{cov: 0, want: 0.2},
		{cov: 0.3, want: 0.2},
		{cov: 0.5, want: 0.2},
		{cov: 0.5000001, want: 0.4},
		{cov: 0.79, want: 0.4},
		{cov: 0.8, want: 0.7},
		{cov: 3, want: 0.7},
	}

	for _, tt := range tests {
		if got := VariabilityFactor(tt.cov); got != tt.want {
			t.Errorf("cov %v: expected VF %v, got %v", tt.cov, tt.want, got)
		}
	}
}

func TestComputeReferenceScenario(t *testing.T) {
	p := Compute(Input{ADU: 10, LeadTimeDays: 20, CoV: 0.3, LTF: 0.2})

	if p.VariabilityFactor != 0.2 {
		t.Errorf("Expected VF 0.2, got %v", p.VariabilityFactor)
	}
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"redBase", p.RedBase, 40},
		{"redAlert", p.RedAlert, 40},
		{"redTotal", p.RedTotal, 80},
		{"safetyStock", p.SafetyStock, 80},
		{"yellowZone", p.YellowZone, 200},
		{"rop", p.ROP, 280},
	}
	for _, c := range checks {
		if !near(c.got, c.want) {
			t.Errorf("Expected %s %v, got %v", c.name, c.want, c.got)
		}
	}
}

func TestComputeInvariants(t *testing.T) {
	for _, adu := range []float64{0, 0.37, 3, 12.5, 1000} {
		for _, lt := range []float64{-1, 0, 7, 25, 90} {
			for _, cov := range []float64{0, 0.5, 0.65, 0.8, 2} {
				p := Compute(Input{ADU: adu, LeadTimeDays: lt, CoV: cov})
				if p.RedTotal != p.RedBase+p.RedAlert {
					t.Fatalf("redTotal identity broken for adu=%v lt=%v cov=%v", adu, lt, cov)
				}
				if p.ROP != p.RedTotal+p.YellowZone {
					t.Fatalf("rop identity broken for adu=%v lt=%v cov=%v", adu, lt, cov)
				}
				if p.YellowZone < 0 || p.RedBase < 0 || p.RedAlert < 0 {
					t.Fatalf("negative zone for adu=%v lt=%v cov=%v", adu, lt, cov)
				}
			}
		}
	}
}

func TestComputeDefaults(t *testing.T) {
	p := Compute(Input{ADU: 2, LeadTimeDays: 0, CoV: 0.1})
	if p.LeadTimeDays != domain.DefaultLeadTimeDays {
		t.Errorf("Expected default lead time, got %v", p.LeadTimeDays)
	}
	if p.LTF != DefaultLTF {
		t.Errorf("Expected default LTF, got %v", p.LTF)
	}

	p = Compute(Input{ADU: -4, LeadTimeDays: 10, CoV: math.NaN()})
	if p.ROP != 0 {
		t.Errorf("Expected zero buffer for negative ADU, got rop %v", p.ROP)
	}
}

func TestComputeOverrides(t *testing.T) {
	ss, rop := 55.0, 300.0
	p := Compute(Input{ADU: 10, LeadTimeDays: 20, CoV: 0.3, SafetyStockOverride: &ss, ROPOverride: &rop})

	if p.SafetyStock != 55 || !p.SafetyStockOverridden {
		t.Errorf("Expected overridden safety stock 55, got %v", p.SafetyStock)
	}
	if !near(p.RedTotal, 80) {
		t.Errorf("Expected red total to stay 80, got %v", p.RedTotal)
	}
	if !near(p.ROP, 280) {
		t.Errorf("Expected computed rop 280, got %v", p.ROP)
	}
	if p.TargetROP() != 300 {
		t.Errorf("Expected target rop 300, got %v", p.TargetROP())
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	in := Input{ADU: 13.37, LeadTimeDays: 17, CoV: 0.61, LTF: 0.35}
	a, b := Compute(in), Compute(in)
	if a.RedTotal != b.RedTotal || a.ROP != b.ROP || a.SafetyStock != b.SafetyStock {
		t.Errorf("Expected bit-identical profiles, got %+v and %+v", a, b)
	}
}

func TestSimulateDoesNotMutate(t *testing.T) {
	stored := Compute(Input{ADU: 10, LeadTimeDays: 20, CoV: 0.3})
	whatIf := Simulate(stored, 0.5)

	if !near(stored.RedBase, 40) {
		t.Errorf("Expected stored red base untouched, got %v", stored.RedBase)
	}
	if !near(whatIf.RedBase, 100) {
		t.Errorf("Expected simulated red base 100, got %v", whatIf.RedBase)
	}
	if !near(whatIf.ROP, 100+40+200) {
		t.Errorf("Expected simulated rop 340, got %v", whatIf.ROP)
	}
	if whatIf.VariabilityFactor != stored.VariabilityFactor {
		t.Errorf("Expected VF to carry over")
	}
}

func TestClassifyReferenceScenario(t *testing.T) {
	p := Compute(Input{ADU: 10, LeadTimeDays: 20, CoV: 0.3, LTF: 0.2})
	cfg := DefaultHealthConfig()

	low := Classify(60, p, cfg)
	if low.Status != domain.HealthCritical {
		t.Errorf("Expected critical at stock 60, got %s", low.Status)
	}
	if low.Zone != domain.ZoneRed {
		t.Errorf("Expected red zone at stock 60, got %s", low.Zone)
	}

	high := Classify(450, p, cfg)
	if high.Status != domain.HealthExcess {
		t.Errorf("Expected excess at stock 450, got %s", high.Status)
	}
	if !near(high.CoverageDays, 45) {
		t.Errorf("Expected coverage 45, got %v", high.CoverageDays)
	}
	if high.CoverageBand != domain.CoverageOptimal {
		t.Errorf("Expected optimal band at 45 days, got %s", high.CoverageBand)
	}

	mid := Classify(200, p, cfg)
	if mid.Status != domain.HealthHealthy || mid.Zone != domain.ZoneYellow {
		t.Errorf("Expected healthy/yellow at 200, got %s/%s", mid.Status, mid.Zone)
	}
}

func TestClassifyZeroDemandCoverage(t *testing.T) {
	p := Compute(Input{ADU: 0, LeadTimeDays: 20})
	h := Classify(120, p, DefaultHealthConfig())

	if !math.IsInf(h.CoverageDays, 1) {
		t.Errorf("Expected infinite coverage, got %v", h.CoverageDays)
	}
	if math.IsNaN(h.CoverageDays) {
		t.Errorf("Coverage must never be NaN")
	}
	if h.CoverageBand != domain.CoverageNoDemand {
		t.Errorf("Expected no_demand band, got %s", h.CoverageBand)
	}
	if !math.IsInf(Coverage(0, 0), 1) {
		t.Errorf("Expected infinite coverage for zero stock and zero ADU")
	}
}
