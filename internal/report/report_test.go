package report

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/storage"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		v      float64
		locale Locale
		want   string
	}{
		{1234.5, LocalePlain, "1234.5"},
		{1234.5, LocaleES, "1.234,5"},
		{1000, LocaleES, "1.000"},
		{-1234567.891, LocaleES, "-1.234.567,89"},
		{2.675, LocalePlain, "2.68"},
		{12, LocalePlain, "12"},
		{math.Inf(1), LocaleES, "inf"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.v, 2, tt.locale); got != tt.want {
			t.Errorf("formatNumber(%v, %q): Expected %s, got %s", tt.v, tt.locale, tt.want, got)
		}
	}
}

func samplePlans() []domain.ItemPlan {
	return []domain.ItemPlan{
		{
			Item:   domain.ItemProfile{ID: "1", Name: "Film"},
			Buffer: domain.BufferProfile{ROP: 280.004, SafetyStock: 80},
			Stock:  60,
			Health: domain.Health{Status: domain.HealthCritical, Zone: domain.ZoneRed, CoverageDays: 6},
		},
		{
			Item:   domain.ItemProfile{ID: "2"},
			Health: domain.Health{Status: domain.HealthHealthy, Zone: domain.ZoneGreen, CoverageDays: math.Inf(1)},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, PlansTable(samplePlans()), DefaultOptions()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "item_id,name") {
		t.Errorf("Unexpected header %s", lines[0])
	}
	if !strings.Contains(lines[1], ",280,") {
		t.Errorf("Expected rounded ROP 280 in %s", lines[1])
	}
	if !strings.Contains(lines[2], ",inf,") {
		t.Errorf("Expected infinite coverage rendered as inf in %s", lines[2])
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXLSX, PlansTable(samplePlans()), DefaultOptions()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("plans")
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "1" {
		t.Fatalf("Expected 3 rows starting with item 1, got %v", rows)
	}
}

func TestProjectionTableColumns(t *testing.T) {
	day := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)
	p := domain.Projection{
		ItemID: "1",
		Days: []domain.ProjectionDay{
			{Date: day, PSoH: 50, DemandOut: 10, DemandBreakdown: map[string]float64{"FORECAST": 10, "FEI_UPLIFT": 0}},
			{Date: day.AddDate(0, 0, 1), PSoH: 150, SupplyIn: 100, SupplyBreakdown: map[string]float64{"EXTRUSION": 100}},
		},
	}
	table := ProjectionTable(p)
	want := []string{"date", "psoh", "status", "supply_in", "demand_out", "in_EXTRUSION", "out_FORECAST", "forecast_covered"}
	if strings.Join(table.Headers, "|") != strings.Join(want, "|") {
		t.Errorf("Expected headers %v, got %v", want, table.Headers)
	}
	if table.Rows[1][5] != 100.0 {
		t.Errorf("Expected supply column 100, got %v", table.Rows[1][5])
	}
}

type captureStore struct {
	storage.ObjectStorage
	key  string
	data []byte
}

func (c *captureStore) UploadObject(_ context.Context, key string, data []byte) error {
	c.key, c.data = key, data
	return nil
}

func TestPublish(t *testing.T) {
	store := &captureStore{}
	report := domain.DeviationReport{
		Kind:    domain.DeviationSales,
		Month:   "2025-09",
		Records: []domain.DeviationRecord{{Key: "1", Plan: 100, Actual: 70, Diff: -30, Pct: -30, Severity: domain.SeverityCritical}},
	}
	key, err := Publish(context.Background(), store, "reports/", FormatCSV, DeviationTable(report), DefaultOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if key != "reports/deviation_sales_2025-09.csv" || store.key != key {
		t.Errorf("Unexpected key %s", key)
	}
	if !strings.Contains(string(store.data), "1,100,70,-30,-30,critical") {
		t.Errorf("Unexpected payload %s", store.data)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(".XLSX"); err != nil || f != FormatXLSX {
		t.Errorf("Expected xlsx, got %v %v", f, err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Errorf("Expected error for pdf")
	}
}
