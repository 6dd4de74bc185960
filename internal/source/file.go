package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

// Export file base names per table. The first name that exists with a .csv
// or .xlsx extension wins.
var (
	itemFiles                 = []string{"items", "item_master", "maestro_articulos", "maestro"}
	consumptionFiles          = []string{"consumption", "consumption_monthly", "consumo_mensual", "demanda"}
	overrideFiles             = []string{"overrides", "hybrid_overrides", "adu_hibrido"}
	forecastFiles             = []string{"forecasts", "demand_forecasts", "pronostico", "forecast"}
	scheduledProductionFiles  = []string{"scheduled_production", "produccion_programada"}
	scheduledConsumptionFiles = []string{"scheduled_consumption", "consumo_programado"}
	productionPlanFiles       = []string{"production_plan", "plan_produccion"}
	stockFiles                = []string{"stock", "stock_positions", "stock_actual", "existencias"}
	actualProductionFiles     = []string{"actual_production", "produccion_real"}
	movementFiles             = []string{"movements", "stock_movements", "movimientos"}
	processFiles              = []string{"processes", "procesos", "db_proceso"}
)

var fileExtensions = []string{".csv", ".xlsx"}

// Column aliases shared by every table.
var (
	colItemID    = []string{"item_id", "codigo", "sku", "material", "item"}
	colDate      = []string{"date", "fecha"}
	colMonth     = []string{"month", "mes", "periodo"}
	colQuantity  = []string{"quantity", "cantidad", "cantidad_diaria", "qty"}
	colMovement  = []string{"movement_type", "tipo_movimiento"}
	colClass     = []string{"class", "movement_class", "clase_movimiento", "order_class", "clase_orden"}
	colProcess   = []string{"process_class", "clase_proceso", "category"}
	colWarehouse = []string{"warehouse", "warehouse_code", "almacen"}
)

// FileSource reads CSV or XLSX exports from a directory. Missing files are
// treated as empty tables.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) Load(ctx context.Context) (*domain.Dataset, error) {
	if _, err := os.Stat(s.Dir); err != nil {
		return nil, fmt.Errorf("data directory %s: %w", s.Dir, err)
	}

	ds := &domain.Dataset{}
	steps := []struct {
		names []string
		parse func(*table, *domain.Dataset)
	}{
		{itemFiles, parseItems},
		{consumptionFiles, parseConsumption},
		{overrideFiles, parseOverrides},
		{forecastFiles, parseForecasts},
		{scheduledProductionFiles, parseSchedule(domain.DirectionSupply)},
		{scheduledConsumptionFiles, parseSchedule(domain.DirectionDemand)},
		{productionPlanFiles, parseProductionPlan},
		{stockFiles, parseStock},
		{actualProductionFiles, parseActualProduction},
		{movementFiles, parseMovements},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, ok := s.find(step.names)
		if !ok {
			log.Debug().Str("dir", s.Dir).Str("table", step.names[0]).Msg("No export found, treating table as empty")
			continue
		}
		t, err := readTable(path)
		if err != nil {
			return nil, err
		}
		step.parse(t, ds)
		log.Debug().Str("file", filepath.Base(path)).Int("rows", len(t.rows)).Msg("Loaded export")
	}

	if path, ok := s.find(processFiles); ok {
		t, err := readTable(path)
		if err != nil {
			return nil, err
		}
		labelProcesses(ds.Scheduled, parseProcesses(t))
	}

	ds.Normalize()
	log.Info().
		Str("dir", s.Dir).
		Int("items", len(ds.Items)).
		Int("consumption", len(ds.Consumption)).
		Int("scheduled", len(ds.Scheduled)).
		Int("stock", len(ds.Stock)).
		Msg("Dataset loaded from files")
	return ds, nil
}

func (s *FileSource) find(names []string) (string, bool) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return "", false
	}
	byName := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			byName[strings.ToLower(e.Name())] = e.Name()
		}
	}
	for _, name := range names {
		for _, ext := range fileExtensions {
			if real, ok := byName[name+ext]; ok {
				return filepath.Join(s.Dir, real), true
			}
		}
	}
	return "", false
}

func parseItems(t *table, ds *domain.Dataset) {
	id := t.cols.find(colItemID...)
	name := t.cols.find("name", "descripcion", "description")
	category := t.cols.find("category", "categoria", "nivel1_jerarquia", "hierarchy_1")
	h1 := t.cols.find("hierarchy_1", "nivel1_jerarquia")
	group := t.cols.find("group_description", "grupo_articulos")
	material := t.cols.find("material_type", "tipo_material")
	lead := t.cols.find("lead_time_days", "lead_time", "leadtime")
	service := t.cols.find("service_level_target", "nivel_servicio")
	adu := t.cols.find("default_adu", "adu")
	cost := t.cols.find("unit_cost", "costo_unitario", "costo")

	for _, r := range t.rows {
		if r.str(id) == "" {
			continue
		}
		ds.Items = append(ds.Items, domain.ItemProfile{
			ID:                 r.str(id),
			Name:               r.str(name),
			Category:           r.str(category),
			Hierarchy1:         r.str(h1),
			GroupDescription:   r.str(group),
			MaterialType:       r.str(material),
			LeadTimeDays:       r.float(lead),
			ServiceLevelTarget: r.float(service),
			DefaultADU:         r.float(adu),
			UnitCost:           r.float(cost),
		})
	}
}

// parseConsumption accepts monthly aggregates or daily demand rows; daily
// rows are folded into their month.
func parseConsumption(t *table, ds *domain.Dataset) {
	id := t.cols.find(colItemID...)
	month := t.cols.find(colMonth...)
	if month < 0 {
		month = t.cols.find(colDate...)
	}
	kind := t.cols.find(colMovement...)
	qty := t.cols.find(colQuantity...)

	totals := make(map[domain.ConsumptionAggregate]float64)
	var order []domain.ConsumptionAggregate
	for _, r := range t.rows {
		if r.str(id) == "" || r.str(month) == "" {
			continue
		}
		mt := domain.MovementConsumption
		if raw := r.str(kind); raw != "" {
			mt = domain.ParseMovementType(raw)
		}
		key := domain.ConsumptionAggregate{ItemID: r.str(id), Month: monthKey(r.str(month)), MovementType: mt}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] += r.float(qty)
	}
	for _, key := range order {
		key.Quantity = totals[key]
		ds.Consumption = append(ds.Consumption, key)
	}
}

func parseOverrides(t *table, ds *domain.Dataset) {
	id := t.cols.find(colItemID...)
	hybrid := t.cols.find("adu_hybrid_final", "adu_hibrido_final", "adu_hybrid")
	std := t.cols.find("daily_std_dev", "desviacion_diaria", "std_dev")
	adu6m := t.cols.find("adu_6m_monthly", "adu_6m")
	adu30 := t.cols.find("adu_l30d_daily", "adu_l30d")
	fei := t.cols.find("end_of_month_factor", "fei")
	ss := t.cols.find("safety_stock_override", "safety_stock", "ss")
	rop := t.cols.find("reorder_point_override", "reorder_point", "rop")
	abc := t.cols.find("abc_segment", "abc")
	xyz := t.cols.find("xyz_segment", "xyz")
	turnover := t.cols.find("turnover_ratio", "rotacion")
	active := t.cols.find("active_periods", "periodos_activos")
	rotation := t.cols.find("rotation_segment", "segmento_rotacion")
	periodicity := t.cols.find("periodicity_segment", "segmento_periodicidad")

	for _, r := range t.rows {
		if r.str(id) == "" {
			continue
		}
		ds.Overrides = append(ds.Overrides, domain.HybridOverride{
			ItemID:             r.str(id),
			ADUHybrid:          r.optFloat(hybrid),
			DailyStdDev:        r.optFloat(std),
			ADU6mMonthly:       r.optFloat(adu6m),
			ADUL30dDaily:       r.optFloat(adu30),
			EndOfMonthFactor:   r.optFloat(fei),
			SafetyStock:        r.optFloat(ss),
			ReorderPoint:       r.optFloat(rop),
			ABCSegment:         r.str(abc),
			XYZSegment:         r.str(xyz),
			TurnoverRatio:      r.optFloat(turnover),
			ActivePeriods:      r.optFloat(active),
			RotationSegment:    r.str(rotation),
			PeriodicitySegment: r.str(periodicity),
		})
	}
}

func parseForecasts(t *table, ds *domain.Dataset) {
	id := t.cols.find(colItemID...)
	month := t.cols.find(append(colMonth, colDate...)...)
	qty := t.cols.find(append(colQuantity, "forecast", "pronostico")...)

	for _, r := range t.rows {
		d, ok := r.date(month)
		if r.str(id) == "" || !ok {
			continue
		}
		ds.Forecasts = append(ds.Forecasts, domain.DemandForecast{
			ItemID:   r.str(id),
			Month:    time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC),
			Quantity: r.float(qty),
		})
	}
}

func parseSchedule(dir domain.Direction) func(*table, *domain.Dataset) {
	return func(t *table, ds *domain.Dataset) {
		id := t.cols.find(colItemID...)
		date := t.cols.find(colDate...)
		qty := t.cols.find(append([]string{"scheduled_quantity", "programado", "consumo"}, colQuantity...)...)
		process := t.cols.find(colProcess...)

		for _, r := range t.rows {
			d, ok := r.date(date)
			if r.str(id) == "" || !ok {
				continue
			}
			ds.Scheduled = append(ds.Scheduled, scheduledEvent(r.str(id), d, dir, r.str(process), r.float(qty)))
		}
	}
}

// parseProductionPlan splits each plan line into a receipt of the produced
// SKU and a draw on its raw material.
func parseProductionPlan(t *table, ds *domain.Dataset) {
	date := t.cols.find(colDate...)
	sku := t.cols.find("sku", "produced_item_id", "codigo")
	planned := t.cols.find("programado", "scheduled_quantity", "planned")
	material := t.cols.find("materia_prima", "consumed_item_id", "component")
	consumed := t.cols.find("consumo", "consumed_quantity")
	process := t.cols.find(colProcess...)

	for _, r := range t.rows {
		d, ok := r.date(date)
		if !ok {
			continue
		}
		if r.str(sku) != "" {
			ds.Scheduled = append(ds.Scheduled, scheduledEvent(r.str(sku), d, domain.DirectionSupply, r.str(process), r.float(planned)))
		}
		if r.str(material) != "" {
			ds.Scheduled = append(ds.Scheduled, scheduledEvent(r.str(material), d, domain.DirectionDemand, r.str(process), r.float(consumed)))
		}
	}
}

func scheduledEvent(id string, d time.Time, dir domain.Direction, process string, qty float64) domain.ScheduledEvent {
	category := strings.ToUpper(strings.TrimSpace(process))
	if category == "" {
		category = "OTROS"
	}
	return domain.ScheduledEvent{ItemID: id, Date: d, Direction: dir, Category: category, Quantity: qty}
}

// parseProcesses maps upper-cased process class codes to their names.
func parseProcesses(t *table) map[string]string {
	code := t.cols.find("process_class", "clase_proceso", "codigo", "code")
	name := t.cols.find("process_name", "proceso", "nombre", "descripcion", "name")
	out := make(map[string]string, len(t.rows))
	for _, r := range t.rows {
		c := strings.ToUpper(r.str(code))
		if c == "" || r.str(name) == "" {
			continue
		}
		out[c] = strings.ToUpper(r.str(name))
	}
	return out
}

// labelProcesses renames event categories after their process. Component
// draws read "CONSUMO | <process>". Unknown codes keep the raw code.
func labelProcesses(events []domain.ScheduledEvent, names map[string]string) {
	if len(names) == 0 {
		return
	}
	for i := range events {
		name, ok := names[events[i].Category]
		if !ok {
			continue
		}
		if events[i].Direction == domain.DirectionDemand {
			name = "CONSUMO | " + name
		}
		events[i].Category = name
	}
}

func parseStock(t *table, ds *domain.Dataset) {
	id := t.cols.find(colItemID...)
	wh := t.cols.find(colWarehouse...)
	qty := t.cols.find(append(colQuantity, "stock", "existencia")...)
	valid := t.cols.find("valid", "is_valid", "is_valid_warehouse", "almacen_valido")

	for _, r := range t.rows {
		if r.str(id) == "" {
			continue
		}
		ds.Stock = append(ds.Stock, domain.StockSnapshot{
			ItemID:    r.str(id),
			Warehouse: r.str(wh),
			Quantity:  r.float(qty),
			Valid:     r.boolean(valid, true),
		})
	}
}

func parseActualProduction(t *table, ds *domain.Dataset) {
	id := t.cols.find(colItemID...)
	date := t.cols.find(colDate...)
	qty := t.cols.find(colQuantity...)
	class := t.cols.find(colClass...)

	for _, r := range t.rows {
		d, ok := r.date(date)
		if r.str(id) == "" || !ok {
			continue
		}
		ds.Production = append(ds.Production, domain.ActualProduction{
			ItemID:     r.str(id),
			Date:       d,
			Quantity:   r.float(qty),
			OrderClass: r.str(class),
		})
	}
}

func parseMovements(t *table, ds *domain.Dataset) {
	id := t.cols.find(colItemID...)
	date := t.cols.find(colDate...)
	kind := t.cols.find(colMovement...)
	class := t.cols.find(colClass...)
	qty := t.cols.find(colQuantity...)

	for _, r := range t.rows {
		d, ok := r.date(date)
		if r.str(id) == "" || !ok {
			continue
		}
		ds.Movements = append(ds.Movements, domain.Movement{
			ItemID:       r.str(id),
			Date:         d,
			MovementType: domain.ParseMovementType(r.str(kind)),
			Class:        r.str(class),
			Quantity:     r.float(qty),
		})
	}
}
