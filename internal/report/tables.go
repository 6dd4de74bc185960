// Package report turns plans, projections, alerts and deviation reports into
// tabular CSV or XLSX exports.
package report

import (
	"math"
	"sort"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

// Table is a header plus rows of cell values. Cells are strings, float64,
// int or bool.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

func PlansTable(plans []domain.ItemPlan) Table {
	t := Table{
		Name: "plans",
		Headers: []string{
			"item_id", "name", "category", "lead_time_days", "adu_hybrid", "adu_6m", "adu_l30d", "cov",
			"abc", "xyz", "rotation", "periodicity", "vf", "yellow_zone", "red_total",
			"safety_stock", "rop", "rop_override", "stock", "status", "zone", "coverage_days", "coverage_band",
		},
	}
	for _, p := range plans {
		var ropOverride interface{} = ""
		if p.Buffer.ROPOverride != nil {
			ropOverride = *p.Buffer.ROPOverride
		}
		t.Rows = append(t.Rows, []interface{}{
			p.Item.ID, p.Item.Name, p.Item.Category, p.Buffer.LeadTimeDays,
			p.Demand.ADUHybrid, p.Demand.ADU6m, p.Demand.ADUL30d, p.Demand.CoV,
			p.Segment.ABC, p.Segment.XYZ, string(p.Segment.Rotation), string(p.Segment.Periodicity),
			p.Buffer.VariabilityFactor, p.Buffer.YellowZone, p.Buffer.RedTotal,
			p.Buffer.SafetyStock, p.Buffer.ROP, ropOverride, p.Stock,
			domain.HealthStatusLabel(p.Health.Status), string(p.Health.Zone), p.Health.CoverageDays, string(p.Health.CoverageBand),
		})
	}
	return t
}

// ProjectionTable flattens the ledger. Breakdown categories become columns.
func ProjectionTable(p domain.Projection) Table {
	supplyCats := categories(p.Days, func(d domain.ProjectionDay) map[string]float64 { return d.SupplyBreakdown })
	demandCats := categories(p.Days, func(d domain.ProjectionDay) map[string]float64 { return d.DemandBreakdown })

	t := Table{Name: "projection_" + p.ItemID, Headers: []string{"date", "psoh", "status", "supply_in", "demand_out"}}
	for _, c := range supplyCats {
		t.Headers = append(t.Headers, "in_"+c)
	}
	for _, c := range demandCats {
		t.Headers = append(t.Headers, "out_"+c)
	}
	t.Headers = append(t.Headers, "forecast_covered")

	for _, d := range p.Days {
		row := []interface{}{d.Date.Format("2006-01-02"), d.PSoH, string(d.Status), d.SupplyIn, d.DemandOut}
		for _, c := range supplyCats {
			row = append(row, d.SupplyBreakdown[c])
		}
		for _, c := range demandCats {
			row = append(row, d.DemandBreakdown[c])
		}
		row = append(row, d.ForecastCovered)
		t.Rows = append(t.Rows, row)
	}
	return t
}

func AlertsTable(alerts []domain.Alert) Table {
	t := Table{Name: "alerts", Headers: []string{"item_id", "type", "date", "psoh", "days_until"}}
	for _, a := range alerts {
		t.Rows = append(t.Rows, []interface{}{a.ItemID, string(a.Type), a.Date.Format("2006-01-02"), a.PSoH, a.DaysUntil})
	}
	return t
}

func DeviationTable(r domain.DeviationReport) Table {
	t := Table{Name: "deviation_" + string(r.Kind) + "_" + r.Month, Headers: []string{"key", "plan", "actual", "diff", "pct", "severity"}}
	for _, rec := range r.Records {
		t.Rows = append(t.Rows, []interface{}{rec.Key, rec.Plan, rec.Actual, rec.Diff, rec.Pct, string(rec.Severity)})
	}
	return t
}

func categories(days []domain.ProjectionDay, pick func(domain.ProjectionDay) map[string]float64) []string {
	seen := map[string]struct{}{}
	for _, d := range days {
		for c, v := range pick(d) {
			if v != 0 && !math.IsNaN(v) {
				seen[c] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
