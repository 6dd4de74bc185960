package pipeline

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

var asOf = time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)

// testDataset plans item "1" at ADU 10 with lead time 20 and 60 units on
// hand, and item "2" with no demand at all.
func testDataset() *domain.Dataset {
	ds := &domain.Dataset{
		Items: []domain.ItemProfile{
			{ID: "1", Name: "Film 20mic", Category: "FILM", LeadTimeDays: 20, UnitCost: 2},
			{ID: "2", Name: "Core", Category: "PACKAGING"},
		},
		Stock: []domain.StockSnapshot{
			{ItemID: "0001", Warehouse: "2100 - 2118", Quantity: 60, Valid: true},
			{ItemID: "1", Warehouse: "2100 - 9999", Quantity: 500, Valid: false},
		},
		Movements: []domain.Movement{
			{ItemID: "1", Date: time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC), MovementType: domain.MovementSale, Quantity: 300},
		},
	}
	for m := time.March; m <= time.August; m++ {
		ds.Consumption = append(ds.Consumption, domain.ConsumptionAggregate{
			ItemID:       "0001",
			Month:        time.Date(2025, m, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
			MovementType: domain.MovementSale,
			Quantity:     300,
		})
	}
	return ds
}

func TestRecompute(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := e.Recompute(testDataset(), asOf, nil)

	if len(snap.Plans) != 2 {
		t.Fatalf("Expected 2 plans, got %d", len(snap.Plans))
	}
	if len(snap.Faults) != 0 {
		t.Errorf("Expected no faults, got %+v", snap.Faults)
	}

	p, err := snap.Item("001")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.Demand.ADUHybrid != 10 {
		t.Errorf("Expected hybrid ADU 10, got %v", p.Demand.ADUHybrid)
	}
	if p.Buffer.RedTotal != 80 || p.Buffer.ROP != 280 {
		t.Errorf("Expected red 80 and ROP 280, got %v and %v", p.Buffer.RedTotal, p.Buffer.ROP)
	}
	if p.Stock != 60 {
		t.Errorf("Expected stock of valid warehouses 60, got %v", p.Stock)
	}
	if p.Health.Status != domain.HealthCritical || p.Health.Zone != domain.ZoneRed {
		t.Errorf("Expected critical/red, got %s/%s", p.Health.Status, p.Health.Zone)
	}
	if p.Segment.ABC != "A" {
		t.Errorf("Expected ABC A, got %s", p.Segment.ABC)
	}

	idle, _ := snap.Item("2")
	if !math.IsInf(idle.Health.CoverageDays, 1) {
		t.Errorf("Expected infinite coverage for idle item, got %v", idle.Health.CoverageDays)
	}
	if idle.Segment.ABC != "C" {
		t.Errorf("Expected idle item in C, got %s", idle.Segment.ABC)
	}

	if _, err := snap.Item("404"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}

	again := e.Recompute(testDataset(), asOf, snap)
	if again.Seq <= snap.Seq {
		t.Errorf("Expected increasing sequence, got %d then %d", snap.Seq, again.Seq)
	}
}

func TestRecomputeIsolatesFaults(t *testing.T) {
	e := NewEngine(DefaultConfig())
	first := e.Recompute(testDataset(), asOf, nil)

	e.probe = func(id string) {
		if id == "1" {
			panic("corrupt record")
		}
	}

	second := e.Recompute(testDataset(), asOf, first)
	if len(second.Faults) != 1 || second.Faults[0].ItemID != "1" {
		t.Fatalf("Expected one fault for item 1, got %+v", second.Faults)
	}
	if !errors.Is(second.Faults[0], domain.ErrComputationFault) {
		t.Errorf("Expected fault to match ErrComputationFault")
	}
	kept, err := second.Item("1")
	if err != nil {
		t.Fatalf("Expected previous plan to be kept, got %v", err)
	}
	if kept.Buffer.ROP != 280 {
		t.Errorf("Expected kept ROP 280, got %v", kept.Buffer.ROP)
	}
	if _, err := second.Item("2"); err != nil {
		t.Errorf("Expected healthy item to be computed, got %v", err)
	}
	if len(second.Warnings) != 1 || second.Warnings[0].Code != domain.WarnComputationFault {
		t.Errorf("Expected computation fault warning, got %+v", second.Warnings)
	}

	cold := e.Recompute(testDataset(), asOf, nil)
	if _, err := cold.Item("1"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("Expected faulted item to be absent without a previous plan, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	snap := NewEngine(DefaultConfig()).Recompute(testDataset(), asOf, nil)
	sum := snap.Summary()

	if sum.TotalItems != 2 {
		t.Errorf("Expected 2 items, got %d", sum.TotalItems)
	}
	if sum.StatusSummary[0].Status != domain.HealthCritical || sum.StatusSummary[0].Count != 1 {
		t.Errorf("Expected one critical item, got %+v", sum.StatusSummary[0])
	}
	if sum.StatusSummary[0].TotalValue != 120 {
		t.Errorf("Expected critical stock value 120, got %v", sum.StatusSummary[0].TotalValue)
	}
	if sum.NoDemandItems != 1 {
		t.Errorf("Expected 1 item without demand, got %d", sum.NoDemandItems)
	}
	if sum.AvgCoverageDays != 6 {
		t.Errorf("Expected average coverage 6 days, got %v", sum.AvgCoverageDays)
	}
	if len(sum.SegmentMatrix) != 9 {
		t.Errorf("Expected 9 matrix cells, got %d", len(sum.SegmentMatrix))
	}
}

func TestQueries(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := e.Recompute(testDataset(), asOf, nil)

	proj, err := e.Project(snap, "1", 0, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if proj.Horizon != 30 || len(proj.Days) != 31 {
		t.Errorf("Expected default horizon of 30 (31 days), got %d / %d", proj.Horizon, len(proj.Days))
	}
	if proj.OpeningBalance != 60 {
		t.Errorf("Expected opening balance 60, got %v", proj.OpeningBalance)
	}

	all, _ := e.Project(snap, "1", 10, []string{"2100 - 2118", "2100 - 9999"})
	if all.OpeningBalance != 560 {
		t.Errorf("Expected explicit selection to include invalid warehouse, got %v", all.OpeningBalance)
	}

	alerts, err := e.Alerts(snap, 10)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(alerts) != 2 || alerts[0].ItemID != "2" || alerts[0].Type != domain.AlertCritical {
		t.Errorf("Expected critical alert for item 2 first, got %+v", alerts)
	}

	sim, health, err := e.SimulateBuffer(snap, "1", 0.5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sim.RedBase != 100 || sim.ROP != 340 {
		t.Errorf("Expected red base 100 and ROP 340, got %v and %v", sim.RedBase, sim.ROP)
	}
	if health.Zone != domain.ZoneRed {
		t.Errorf("Expected red zone, got %s", health.Zone)
	}
	stored, _ := snap.Item("1")
	if stored.Buffer.LTF != 0.2 {
		t.Errorf("Expected stored profile untouched, got LTF %v", stored.Buffer.LTF)
	}

	rep, err := e.Deviation(snap, domain.DeviationSales, "", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rep.Month != "2025-09" || len(rep.Records) != 1 || rep.Records[0].Actual != 300 {
		t.Errorf("Expected one September sales record of 300, got %+v", rep)
	}

	if _, err := e.Deviation(snap, "bogus", "", nil); err == nil {
		t.Errorf("Expected error for unknown deviation kind")
	}
}
