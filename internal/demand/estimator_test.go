package demand

import (
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

var asOf = time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

func flatHistory(qty float64, mt domain.MovementType) []domain.ConsumptionAggregate {
	var aggs []domain.ConsumptionAggregate
	for _, m := range ClosedMonths(asOf, HistoryMonths) {
		aggs = append(aggs, domain.ConsumptionAggregate{ItemID: "1", Month: m, MovementType: mt, Quantity: qty})
	}
	return aggs
}

func ptr(v float64) *float64 { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestClosedMonths(t *testing.T) {
	got := ClosedMonths(asOf, 6)
	want := []string{"2025-01", "2025-02", "2025-03", "2025-04", "2025-05", "2025-06"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d months, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected month %s at %d, got %s", want[i], i, got[i])
		}
	}
}

func TestEstimateHybridBlend(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	m := e.Estimate(Input{
		AsOf:          asOf,
		Aggregates:    flatHistory(300, domain.MovementSale),
		TrailingTotal: ptr(450),
	})

	if !almostEqual(m.ADU6m, 10) {
		t.Errorf("Expected adu6m 10, got %v", m.ADU6m)
	}
	if !almostEqual(m.ADUL30d, 15) {
		t.Errorf("Expected aduL30d 15, got %v", m.ADUL30d)
	}
	if !almostEqual(m.ADUHybrid, 13) {
		t.Errorf("Expected aduHybrid 13, got %v", m.ADUHybrid)
	}
	if m.StdDevDaily != 0 || m.CoV != 0 {
		t.Errorf("Expected zero variability for flat history, got std %v cov %v", m.StdDevDaily, m.CoV)
	}
	if m.FEIFactor != 1 {
		t.Errorf("Expected default FEI 1, got %v", m.FEIFactor)
	}
	if m.ActivePeriods != 6 {
		t.Errorf("Expected 6 active periods, got %d", m.ActivePeriods)
	}
}

func TestEstimateFallbacks(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	tests := []struct {
		name  string
		input Input
		want  float64
	}{
		{
			name:  "history only",
			input: Input{AsOf: asOf, Aggregates: flatHistory(600, domain.MovementSale), DefaultADU: 99},
			want:  20,
		},
		{
			name:  "trailing only",
			input: Input{AsOf: asOf, TrailingTotal: ptr(90), DefaultADU: 99},
			want:  3,
		},
		{
			name:  "master default",
			input: Input{AsOf: asOf, DefaultADU: 7},
			want:  7,
		},
		{
			name:  "nothing at all",
			input: Input{AsOf: asOf},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := e.Estimate(tt.input)
			if !almostEqual(m.ADUHybrid, tt.want) {
				t.Errorf("Expected aduHybrid %v, got %v", tt.want, m.ADUHybrid)
			}
			if m.ADUHybrid == 0 && m.CoV != 0 {
				t.Errorf("Expected cov 0 with zero ADU, got %v", m.CoV)
			}
		})
	}
}

func TestEstimateVariability(t *testing.T) {
	months := ClosedMonths(asOf, HistoryMonths)
	var aggs []domain.ConsumptionAggregate
	for i, m := range months {
		qty := 0.0
		if i%2 == 1 {
			qty = 600
		}
		aggs = append(aggs, domain.ConsumptionAggregate{Month: m, MovementType: domain.MovementConsumption, Quantity: qty})
	}

	m := NewEstimator(DefaultConfig()).Estimate(Input{AsOf: asOf, Aggregates: aggs})

	wantStd := 300 / math.Sqrt(30)
	if !almostEqual(m.StdDevDaily, wantStd) {
		t.Errorf("Expected std %v, got %v", wantStd, m.StdDevDaily)
	}
	if !almostEqual(m.CoV, wantStd/10) {
		t.Errorf("Expected cov %v, got %v", wantStd/10, m.CoV)
	}
	if m.ActivePeriods != 3 {
		t.Errorf("Expected 3 active periods, got %d", m.ActivePeriods)
	}
}

func TestEstimateRespectsConsumptionConfig(t *testing.T) {
	aggs := append(flatHistory(300, domain.MovementSale), flatHistory(900, domain.MovementTransfer)...)
	// current month must never count
	aggs = append(aggs, domain.ConsumptionAggregate{Month: "2025-07", MovementType: domain.MovementSale, Quantity: 10000})

	m := NewEstimator(DefaultConfig()).Estimate(Input{AsOf: asOf, Aggregates: aggs})
	if !almostEqual(m.ADU6m, 10) {
		t.Errorf("Expected adu6m 10 without transfers, got %v", m.ADU6m)
	}

	cfg := DefaultConfig()
	cfg.Consumption.IncludeTransfer = true
	m = NewEstimator(cfg).Estimate(Input{AsOf: asOf, Aggregates: aggs})
	if !almostEqual(m.ADU6m, 40) {
		t.Errorf("Expected adu6m 40 with transfers, got %v", m.ADU6m)
	}
}

func TestEstimateOverridesWin(t *testing.T) {
	ov := &domain.HybridOverride{
		ADUHybrid:        ptr(42),
		DailyStdDev:      ptr(21),
		ADU6mMonthly:     ptr(600),
		EndOfMonthFactor: ptr(1.3),
	}
	m := NewEstimator(DefaultConfig()).Estimate(Input{
		AsOf:          asOf,
		Aggregates:    flatHistory(300, domain.MovementSale),
		TrailingTotal: ptr(450),
		Override:      ov,
		FEI:           ptr(1.1),
	})

	if m.ADUHybrid != 42 {
		t.Errorf("Expected overridden aduHybrid 42, got %v", m.ADUHybrid)
	}
	if m.ADU6m != 20 {
		t.Errorf("Expected adu6m from monthly override 20, got %v", m.ADU6m)
	}
	if !almostEqual(m.CoV, 0.5) {
		t.Errorf("Expected cov 0.5, got %v", m.CoV)
	}
	if m.FEIFactor != 1.3 {
		t.Errorf("Expected override FEI 1.3, got %v", m.FEIFactor)
	}
	if len(m.Overridden) != 4 {
		t.Errorf("Expected 4 overridden metrics, got %v", m.Overridden)
	}
}

func TestEstimateCoercesBadFEI(t *testing.T) {
	m := NewEstimator(DefaultConfig()).Estimate(Input{AsOf: asOf, FEI: ptr(-2)})
	if m.FEIFactor != 1 {
		t.Errorf("Expected FEI to fall back to 1, got %v", m.FEIFactor)
	}

	m = NewEstimator(DefaultConfig()).Estimate(Input{AsOf: asOf, FEI: ptr(math.NaN())})
	if m.FEIFactor != 1 {
		t.Errorf("Expected NaN FEI to fall back to 1, got %v", m.FEIFactor)
	}
}

func TestTrailingTotal(t *testing.T) {
	movs := []domain.Movement{
		{Date: asOf.AddDate(0, 0, -1), MovementType: domain.MovementSale, Quantity: 10},
		{Date: asOf.AddDate(0, 0, -30), MovementType: domain.MovementConsumption, Quantity: 5},
		{Date: asOf.AddDate(0, 0, -31), MovementType: domain.MovementSale, Quantity: 100},
		{Date: asOf, MovementType: domain.MovementSale, Quantity: 100},
		{Date: asOf.AddDate(0, 0, -2), MovementType: domain.MovementTransfer, Quantity: 100},
	}

	got := TrailingTotal(movs, asOf, domain.DefaultConsumptionConfig())
	if got == nil {
		t.Fatalf("Expected a trailing total")
	}
	if *got != 15 {
		t.Errorf("Expected trailing total 15, got %v", *got)
	}

	if TrailingTotal(nil, asOf, domain.DefaultConsumptionConfig()) != nil {
		t.Errorf("Expected nil trailing total with no movements")
	}
}

func TestEstimateNegativeIssues(t *testing.T) {
	movs := []domain.Movement{
		{Date: asOf.AddDate(0, 0, -3), MovementType: domain.MovementSale, Quantity: -200},
		{Date: asOf.AddDate(0, 0, -5), MovementType: domain.MovementSale, Quantity: -100},
	}
	trailing := TrailingTotal(movs, asOf, domain.DefaultConsumptionConfig())
	if trailing == nil || *trailing != 300 {
		t.Fatalf("Expected trailing demand 300, got %v", trailing)
	}

	e := NewEstimator(DefaultConfig())
	m := e.Estimate(Input{
		AsOf:          asOf,
		Aggregates:    flatHistory(-300, domain.MovementSale),
		TrailingTotal: trailing,
	})
	if !almostEqual(m.ADU6m, 10) {
		t.Errorf("Expected adu6m 10, got %v", m.ADU6m)
	}
	if !almostEqual(m.ADUL30d, 10) {
		t.Errorf("Expected aduL30d 10, got %v", m.ADUL30d)
	}
	if !almostEqual(m.ADUHybrid, 10) {
		t.Errorf("Expected aduHybrid 10, got %v", m.ADUHybrid)
	}
}
