package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/pipeline"
)

var asOf = time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)

type staticSource struct{ ds *domain.Dataset }

func (s staticSource) Load(context.Context) (*domain.Dataset, error) { return s.ds, nil }

func fixture() *domain.Dataset {
	ds := &domain.Dataset{
		Items: []domain.ItemProfile{
			{ID: "10", Name: "Film natural", Category: "FILM", LeadTimeDays: 20, UnitCost: 2},
			{ID: "20", Name: "Core carton", Category: "PACKAGING", LeadTimeDays: 10},
			{ID: "30", Name: "Film negro", Category: "film", LeadTimeDays: 20},
		},
		Stock: []domain.StockSnapshot{
			{ItemID: "10", Warehouse: "A01", Quantity: 60, Valid: true},
			{ItemID: "20", Warehouse: "A01", Quantity: 1000, Valid: true},
		},
	}
	for m := time.March; m <= time.August; m++ {
		month := time.Date(2025, m, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
		ds.Consumption = append(ds.Consumption,
			domain.ConsumptionAggregate{ItemID: "10", Month: month, MovementType: domain.MovementSale, Quantity: 300},
			domain.ConsumptionAggregate{ItemID: "20", Month: month, MovementType: domain.MovementSale, Quantity: 30},
		)
	}
	return ds
}

func newService(t *testing.T) *PlanningService {
	t.Helper()
	r := pipeline.NewRefresher(pipeline.NewEngine(pipeline.DefaultConfig()), staticSource{fixture()},
		pipeline.WithClock(func() time.Time { return asOf }))
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Unexpected refresh error: %v", err)
	}
	return NewPlanningService(r, nil)
}

func TestListItems(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter domain.ItemFilter
		want   []string
	}{
		{"default order", domain.ItemFilter{}, []string{"10", "20", "30"}},
		{"category is case-insensitive", domain.ItemFilter{Category: "FILM"}, []string{"10", "30"}},
		{"search by name", domain.ItemFilter{Search: "CARTON"}, []string{"20"}},
		{"status", domain.ItemFilter{Status: domain.HealthCritical}, []string{"10"}},
		{"stock descending", domain.ItemFilter{SortField: "stock", SortDirection: "desc"}, []string{"20", "10", "30"}},
		{"paging", domain.ItemFilter{PageSize: 2, Page: 2}, []string{"30"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListItems(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			var got []string
			for _, p := range page.Items {
				got = append(got, p.Item.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestListItemsPagingMetadata(t *testing.T) {
	page, err := newService(t).ListItems(context.Background(), domain.ItemFilter{PageSize: 2})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || page.Page != 1 {
		t.Errorf("Expected 3 items over 2 pages, got %+v", page)
	}
}

func TestSimulateBufferLeavesPlanUntouched(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	whatIf, err := svc.SimulateBuffer(ctx, "10", 0.5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if whatIf.Buffer.RedBase != 100 || whatIf.Current.ROP != 280 {
		t.Errorf("Expected red base 100 against current ROP 280, got %+v", whatIf)
	}

	plan, _ := svc.GetItem(ctx, "10")
	if plan.Buffer.LTF == 0.5 {
		t.Errorf("Expected published plan to keep its LTF")
	}
}

func TestGetProjectionLastRequestWins(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p, err := svc.GetProjection(ctx, "tab-1", "10", 10, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.OpeningBalance != 60 || len(p.Days) != 11 {
		t.Errorf("Expected 11 days from 60, got %d days from %v", len(p.Days), p.OpeningBalance)
	}

	// A request overtaken while it computes is dropped; the newer one wins.
	compute := svc.project
	overtaken := false
	svc.project = func(snap *pipeline.Snapshot, id string, horizon int, warehouses []string) (domain.Projection, error) {
		if !overtaken {
			overtaken = true
			if _, err := svc.GetProjection(ctx, "tab-2", id, horizon, warehouses); err != nil {
				t.Errorf("Expected newer request to succeed, got %v", err)
			}
		}
		return compute(snap, id, horizon, warehouses)
	}
	if _, err := svc.GetProjection(ctx, "tab-2", "10", 5, nil); !errors.Is(err, domain.ErrStaleRequest) {
		t.Errorf("Expected ErrStaleRequest for the overtaken request, got %v", err)
	}
	if _, err := svc.GetProjection(ctx, "tab-3", "10", 5, nil); err != nil {
		t.Errorf("Expected other sessions to be unaffected, got %v", err)
	}
	svc.project = compute

	if _, err := svc.GetProjection(ctx, "", "404", 10, nil); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
}

func TestGetSummaryAndDeviation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	summary, err := svc.GetSummary(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.TotalItems != 3 {
		t.Errorf("Expected 3 items, got %d", summary.TotalItems)
	}

	report, err := svc.GetDeviation(ctx, domain.DeviationSales, "2025-08", "category")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Kind != domain.DeviationSales || report.Month != "2025-08" {
		t.Errorf("Unexpected report %+v", report)
	}
}

func TestNoSnapshot(t *testing.T) {
	r := pipeline.NewRefresher(pipeline.NewEngine(pipeline.DefaultConfig()), staticSource{fixture()})
	svc := NewPlanningService(r, nil)
	if _, err := svc.ListItems(context.Background(), domain.ItemFilter{}); !errors.Is(err, domain.ErrSnapshotUnavailable) {
		t.Errorf("Expected ErrSnapshotUnavailable, got %v", err)
	}
}

func TestRefreshNow(t *testing.T) {
	svc := newService(t)
	before := svc.refresher.Current().Seq
	m, err := svc.RefreshNow(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m.Runs != 2 || svc.refresher.Current().Seq <= before {
		t.Errorf("Expected a second run with a newer snapshot, got %+v", m)
	}
}
