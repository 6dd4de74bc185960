// Package projection simulates projected stock on hand day by day.
package projection

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

const (
	MinHorizon     = 3
	MaxHorizon     = 30
	DefaultHorizon = 30

	// Breakdown categories for distributed forecast demand.
	CategoryForecast = "FORECAST"
	CategoryFEI      = "FEI_UPLIFT"
)

var ignoredWarehouses = map[string]struct{}{
	"":     {},
	"NONE": {},
	"NAN":  {},
	"NAT":  {},
	"N/A":  {},
}

// Config tunes the simulator.
type Config struct {
	// FEIWindowDays limits the FEI uplift to the last N days of the current
	// month. Zero applies it to every remaining day of the month.
	FEIWindowDays int
}

// Request is one simulation for one item.
type Request struct {
	ItemID  string
	AsOf    time.Time
	Horizon int
	Stock   []domain.StockSnapshot
	// Warehouses selects the stock lines of the opening balance. Nil selects
	// every valid warehouse; an empty non-nil slice selects nothing.
	Warehouses  []string
	SafetyStock float64
	Forecasts   []domain.DemandForecast
	Events      []domain.ScheduledEvent
	FEIFactor   float64
}

// Simulator runs projections. It holds no mutable state and is safe for
// concurrent use.
type Simulator struct {
	cfg Config
}

func NewSimulator(cfg Config) *Simulator {
	if cfg.FEIWindowDays < 0 {
		cfg.FEIWindowDays = 0
	}
	return &Simulator{cfg: cfg}
}

// ClampHorizon bounds a requested horizon to [MinHorizon, MaxHorizon].
// Zero or negative requests get DefaultHorizon.
func ClampHorizon(h int) int {
	switch {
	case h <= 0:
		return DefaultHorizon
	case h < MinHorizon:
		return MinHorizon
	case h > MaxHorizon:
		return MaxHorizon
	}
	return h
}

// dayFlow is the scheduled supply and demand of one day. It never depends
// on the warehouse selection.
type dayFlow struct {
	date     time.Time
	supply   map[string]float64
	demand   map[string]float64
	covered  bool
	supplyIn float64
	demandIn float64
}

// Run produces the projection ledger for days AsOf..AsOf+Horizon inclusive.
func (s *Simulator) Run(req Request) domain.Projection {
	horizon := ClampHorizon(req.Horizon)
	start := Day(req.AsOf)
	fei := req.FEIFactor
	if fei <= 0 || math.IsNaN(fei) || math.IsInf(fei, 0) {
		fei = 1
	}

	// 1. Opening balance from the selected warehouses
	opening, breakdown := OpeningBalance(req.Stock, req.Warehouses)

	// 2-3. Scheduled events and distributed forecast per day
	flows := s.schedule(req, start, horizon, fei)

	proj := domain.Projection{
		ItemID:           req.ItemID,
		AsOf:             start,
		Horizon:          horizon,
		SafetyStock:      req.SafetyStock,
		OpeningBalance:   opening,
		OpeningStatus:    domain.ClassifyBalance(opening, req.SafetyStock),
		OpeningBreakdown: breakdown,
		Days:             make([]domain.ProjectionDay, 0, len(flows)),
	}

	// 4-5. Running balance and status
	psoh := opening
	var firstUncovered *time.Time
	for _, f := range flows {
		psoh = psoh + f.supplyIn - f.demandIn
		proj.Days = append(proj.Days, domain.ProjectionDay{
			Date:            f.date,
			PSoH:            psoh,
			SupplyIn:        f.supplyIn,
			SupplyBreakdown: f.supply,
			DemandOut:       f.demandIn,
			DemandBreakdown: f.demand,
			Status:          domain.ClassifyBalance(psoh, req.SafetyStock),
			ForecastCovered: f.covered,
		})
		if !f.covered && firstUncovered == nil {
			d := f.date
			firstUncovered = &d
		}
	}

	if firstUncovered != nil {
		proj.Warnings = append(proj.Warnings, domain.Warning{
			Code:    domain.WarnInsufficientForecast,
			ItemID:  req.ItemID,
			Date:    firstUncovered,
			Message: fmt.Sprintf("no forecast for %s: days from %s carry no distributed demand", MonthKey(*firstUncovered), firstUncovered.Format("2006-01-02")),
		})
	}

	return proj
}

// OpeningBalance sums the selected stock lines and returns a per-warehouse
// breakdown sorted by warehouse code. Placeholder warehouse codes are dropped.
func OpeningBalance(stock []domain.StockSnapshot, selected []string) (float64, []domain.WarehouseBalance) {
	var want map[string]struct{}
	if selected != nil {
		want = make(map[string]struct{}, len(selected))
		for _, w := range selected {
			want[strings.TrimSpace(w)] = struct{}{}
		}
	}

	lines := make(map[string]*domain.WarehouseBalance)
	for _, st := range stock {
		code := strings.TrimSpace(st.Warehouse)
		if _, skip := ignoredWarehouses[strings.ToUpper(code)]; skip {
			continue
		}
		line, ok := lines[code]
		if !ok {
			line = &domain.WarehouseBalance{Warehouse: code, Valid: st.Valid}
			lines[code] = line
		}
		line.Quantity += clean(st.Quantity)
		line.Valid = line.Valid && st.Valid
	}

	codes := make([]string, 0, len(lines))
	for code := range lines {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	total := 0.0
	breakdown := make([]domain.WarehouseBalance, 0, len(codes))
	for _, code := range codes {
		line := lines[code]
		if want == nil {
			line.Included = line.Valid
		} else {
			_, line.Included = want[code]
		}
		if line.Included {
			total += line.Quantity
		}
		breakdown = append(breakdown, *line)
	}
	return total, breakdown
}

func (s *Simulator) schedule(req Request, start time.Time, horizon int, fei float64) []dayFlow {
	forecasts := make(map[string]float64)
	for _, f := range req.Forecasts {
		forecasts[MonthKey(f.Month)] += math.Max(0, clean(f.Quantity))
	}

	end := start.AddDate(0, 0, horizon)
	flows := make([]dayFlow, 0, horizon+1)
	index := make(map[time.Time]int, horizon+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		index[d] = len(flows)
		flows = append(flows, dayFlow{
			date:   d,
			supply: map[string]float64{},
			demand: map[string]float64{},
		})
	}

	// Scheduled events post on their exact date, Sundays included.
	for _, ev := range req.Events {
		i, ok := index[Day(ev.Date)]
		if !ok {
			continue
		}
		qty := clean(ev.Quantity)
		category := strings.TrimSpace(ev.Category)
		if category == "" {
			category = "UNCLASSIFIED"
		}
		switch ev.Direction {
		case domain.DirectionSupply:
			flows[i].supply[category] += qty
			flows[i].supplyIn += qty
		case domain.DirectionDemand:
			flows[i].demand[category] += qty
			flows[i].demandIn += qty
		}
	}

	for i := range flows {
		f := &flows[i]
		total, covered := forecasts[MonthKey(f.date)]
		f.covered = covered
		if !covered || !IsDemandDay(f.date) {
			continue
		}
		share := DailyShare(f.date, total)
		if share == 0 {
			continue
		}
		f.demand[CategoryForecast] += share
		f.demandIn += share
		if s.inFEIWindow(f.date, start) && fei != 1 {
			uplift := share * (fei - 1)
			f.demand[CategoryFEI] += uplift
			f.demandIn += uplift
		}
	}

	return flows
}

// inFEIWindow reports whether d is a remaining day of the as-of month that
// the end-of-month factor applies to.
func (s *Simulator) inFEIWindow(d, asOf time.Time) bool {
	if d.Year() != asOf.Year() || d.Month() != asOf.Month() {
		return false
	}
	if s.cfg.FEIWindowDays == 0 {
		return true
	}
	return d.Day() > DaysInMonth(d)-s.cfg.FEIWindowDays
}

func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
