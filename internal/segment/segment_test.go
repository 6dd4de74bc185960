package segment

import (
	"fmt"
	"math"
	"testing"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

func TestClassifyABCByRank(t *testing.T) {
	var items []Input
	for i := 1; i <= 10; i++ {
		items = append(items, Input{ItemID: fmt.Sprintf("%02d", i), Value: float64(1000 - i*10)})
	}
	items = append(items, Input{ItemID: "zero", Value: 0})

	got := NewEngine(DefaultConfig()).Classify(items)

	// 11 items: A = ceil(2.2) = 3, B up to ceil(5.5) = 6
	want := map[string]string{
		"01": "A", "02": "A", "03": "A",
		"04": "B", "05": "B", "06": "B",
		"07": "C", "08": "C", "09": "C", "10": "C",
		"zero": "C",
	}
	for id, class := range want {
		if got[id].ABC != class {
			t.Errorf("Expected item %s in class %s, got %s", id, class, got[id].ABC)
		}
	}
}

func TestClassifySingleItemIsA(t *testing.T) {
	got := NewEngine(DefaultConfig()).Classify([]Input{{ItemID: "1", Value: 5}})
	if got["1"].ABC != "A" {
		t.Errorf("Expected a lone valued item to be A, got %s", got["1"].ABC)
	}
}

func TestXYZBoundaries(t *testing.T) {
	e := NewEngine(DefaultConfig())
	tests := []struct {
		cov  float64
		want string
	}{
		{0.1, "X"},
		{0.5, "X"},
		{0.6, "Y"},
		{0.8, "Z"},
		{1.4, "Z"},
	}
	for _, tt := range tests {
		if got := e.XYZ(tt.cov); got != tt.want {
			t.Errorf("cov %v: expected %s, got %s", tt.cov, tt.want, got)
		}
	}

	custom := NewEngine(Config{XMax: 0.25, YMax: 1})
	if got := custom.XYZ(0.3); got != "Y" {
		t.Errorf("Expected configured boundaries to apply, got %s", got)
	}
}

func TestRotationAndPeriodicity(t *testing.T) {
	items := []Input{
		{ItemID: "fast", AnnualDemand: 1200, Stock: 100, ActivePeriods: 6},
		{ItemID: "mid", AnnualDemand: 300, Stock: 100, ActivePeriods: 3},
		{ItemID: "slow", AnnualDemand: 50, Stock: 100, ActivePeriods: 1},
		{ItemID: "empty", AnnualDemand: 50, Stock: 0, ActivePeriods: 2},
	}
	got := NewEngine(DefaultConfig()).Classify(items)

	tests := []struct {
		id          string
		rotation    domain.Level
		periodicity domain.Level
	}{
		{"fast", domain.LevelHigh, domain.LevelHigh},
		{"mid", domain.LevelMedium, domain.LevelMedium},
		{"slow", domain.LevelLow, domain.LevelLow},
		{"empty", domain.LevelHigh, domain.LevelLow},
	}
	for _, tt := range tests {
		seg := got[tt.id]
		if seg.Rotation != tt.rotation {
			t.Errorf("%s: expected rotation %s, got %s", tt.id, tt.rotation, seg.Rotation)
		}
		if seg.Periodicity != tt.periodicity {
			t.Errorf("%s: expected periodicity %s, got %s", tt.id, tt.periodicity, seg.Periodicity)
		}
	}
	if got["fast"].TurnoverRatio != 12 {
		t.Errorf("Expected turnover 12, got %v", got["fast"].TurnoverRatio)
	}
	if math.IsInf(got["empty"].TurnoverRatio, 0) {
		t.Errorf("Turnover must stay finite")
	}
}

func TestOverridesWin(t *testing.T) {
	turnover := 0.5
	items := []Input{
		{ItemID: "1", Value: 1000, CoV: 0.1, AnnualDemand: 1200, Stock: 10, ActivePeriods: 6, Override: &domain.HybridOverride{
			ABCSegment:         "c",
			XYZSegment:         "Z",
			TurnoverRatio:      &turnover,
			PeriodicitySegment: "Baja",
		}},
		{ItemID: "2", Value: 10, Override: &domain.HybridOverride{ABCSegment: "not-a-class"}},
	}

	got := NewEngine(DefaultConfig()).Classify(items)
	seg := got["1"]
	if seg.ABC != "C" || seg.XYZ != "Z" {
		t.Errorf("Expected overridden C/Z, got %s/%s", seg.ABC, seg.XYZ)
	}
	if seg.TurnoverRatio != 0.5 || seg.Rotation != domain.LevelLow {
		t.Errorf("Expected overridden turnover to drive rotation, got %v/%s", seg.TurnoverRatio, seg.Rotation)
	}
	if seg.Periodicity != domain.LevelLow {
		t.Errorf("Expected overridden periodicity Low, got %s", seg.Periodicity)
	}
	// two items: only the first fits in the top 20% and top 50% cuts
	if got["2"].ABC != "C" {
		t.Errorf("Expected invalid override to be ignored, got %s", got["2"].ABC)
	}
}
