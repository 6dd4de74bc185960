package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Raw rows of the planning tables. Numeric columns are read as text so a
// malformed value reaches the boundary coercion instead of failing the scan.

type ItemRow struct {
	ItemID             string         `db:"item_id"`
	Name               sql.NullString `db:"name"`
	Category           sql.NullString `db:"category"`
	Hierarchy1         sql.NullString `db:"hierarchy_1"`
	GroupDescription   sql.NullString `db:"group_description"`
	MaterialType       sql.NullString `db:"material_type"`
	LeadTimeDays       sql.NullString `db:"lead_time_days"`
	ServiceLevelTarget sql.NullString `db:"service_level_target"`
	DefaultADU         sql.NullString `db:"default_adu"`
	UnitCost           sql.NullString `db:"unit_cost"`
}

type ConsumptionRow struct {
	ItemID       string         `db:"item_id"`
	Month        string         `db:"month"`
	MovementType sql.NullString `db:"movement_type"`
	Quantity     sql.NullString `db:"quantity"`
}

type OverrideRow struct {
	ItemID             string         `db:"item_id"`
	ADUHybrid          sql.NullString `db:"adu_hybrid_final"`
	DailyStdDev        sql.NullString `db:"daily_std_dev"`
	ADU6mMonthly       sql.NullString `db:"adu_6m_monthly"`
	ADUL30dDaily       sql.NullString `db:"adu_l30d_daily"`
	EndOfMonthFactor   sql.NullString `db:"end_of_month_factor"`
	SafetyStock        sql.NullString `db:"safety_stock_override"`
	ReorderPoint       sql.NullString `db:"reorder_point_override"`
	ABCSegment         sql.NullString `db:"abc_segment"`
	XYZSegment         sql.NullString `db:"xyz_segment"`
	TurnoverRatio      sql.NullString `db:"turnover_ratio"`
	ActivePeriods      sql.NullString `db:"active_periods"`
	RotationSegment    sql.NullString `db:"rotation_segment"`
	PeriodicitySegment sql.NullString `db:"periodicity_segment"`
}

type ForecastRow struct {
	ItemID   string         `db:"item_id"`
	Month    sql.NullTime   `db:"month"`
	Quantity sql.NullString `db:"quantity"`
}

// ScheduleRow is a scheduled production or component consumption line.
type ScheduleRow struct {
	ItemID       string         `db:"item_id"`
	Date         sql.NullTime   `db:"date"`
	Quantity     sql.NullString `db:"scheduled_quantity"`
	ProcessClass sql.NullString `db:"process_class"`
}

type StockRow struct {
	ItemID    string         `db:"item_id"`
	Warehouse sql.NullString `db:"warehouse_code"`
	Quantity  sql.NullString `db:"quantity"`
	Valid     sql.NullBool   `db:"is_valid_warehouse"`
}

// ActualRow is a posted production receipt or stock movement.
type ActualRow struct {
	ItemID       string         `db:"item_id"`
	Date         sql.NullTime   `db:"date"`
	Quantity     sql.NullString `db:"quantity"`
	Class        sql.NullString `db:"class"`
	MovementType sql.NullString `db:"movement_type"`
}

type PlanningRepository interface {
	GetItems(ctx context.Context, scope Scope) ([]ItemRow, error)
	GetConsumption(ctx context.Context, scope Scope) ([]ConsumptionRow, error)
	GetOverrides(ctx context.Context, scope Scope) ([]OverrideRow, error)
	GetForecasts(ctx context.Context, scope Scope) ([]ForecastRow, error)
	GetScheduledProduction(ctx context.Context, scope Scope) ([]ScheduleRow, error)
	GetScheduledConsumption(ctx context.Context, scope Scope) ([]ScheduleRow, error)
	GetStock(ctx context.Context, scope Scope) ([]StockRow, error)
	GetActualProduction(ctx context.Context, scope Scope) ([]ActualRow, error)
	GetMovements(ctx context.Context, scope Scope) ([]ActualRow, error)
}

type planningRepository struct {
	db *DB
}

func NewPlanningRepository(db *DB) PlanningRepository {
	return &planningRepository{db: db}
}

func (r *planningRepository) GetItems(ctx context.Context, scope Scope) ([]ItemRow, error) {
	query := `
		SELECT item_id, name, category, hierarchy_1, group_description, material_type,
		       lead_time_days::text AS lead_time_days,
		       service_level_target::text AS service_level_target,
		       default_adu::text AS default_adu,
		       unit_cost::text AS unit_cost
		FROM items
	`
	var rows []ItemRow
	if err := r.selectScoped(ctx, &rows, query, "item_id", "", scope); err != nil {
		return nil, fmt.Errorf("error getting items: %w", err)
	}
	return rows, nil
}

func (r *planningRepository) GetConsumption(ctx context.Context, scope Scope) ([]ConsumptionRow, error) {
	query := `
		SELECT item_id, month, movement_type, quantity::text AS quantity
		FROM consumption_monthly
	`
	var rows []ConsumptionRow
	if err := r.selectScoped(ctx, &rows, query, "item_id", "to_date(month, 'YYYY-MM')", scope); err != nil {
		return nil, fmt.Errorf("error getting consumption: %w", err)
	}
	return rows, nil
}

func (r *planningRepository) GetOverrides(ctx context.Context, scope Scope) ([]OverrideRow, error) {
	query := `
		SELECT item_id,
		       adu_hybrid_final::text AS adu_hybrid_final,
		       daily_std_dev::text AS daily_std_dev,
		       adu_6m_monthly::text AS adu_6m_monthly,
		       adu_l30d_daily::text AS adu_l30d_daily,
		       end_of_month_factor::text AS end_of_month_factor,
		       safety_stock_override::text AS safety_stock_override,
		       reorder_point_override::text AS reorder_point_override,
		       abc_segment, xyz_segment,
		       turnover_ratio::text AS turnover_ratio,
		       active_periods::text AS active_periods,
		       rotation_segment, periodicity_segment
		FROM hybrid_overrides
	`
	var rows []OverrideRow
	if err := r.selectScoped(ctx, &rows, query, "item_id", "", scope); err != nil {
		return nil, fmt.Errorf("error getting overrides: %w", err)
	}
	return rows, nil
}

func (r *planningRepository) GetForecasts(ctx context.Context, scope Scope) ([]ForecastRow, error) {
	query := `
		SELECT item_id, month, quantity::text AS quantity
		FROM demand_forecasts
	`
	var rows []ForecastRow
	if err := r.selectScoped(ctx, &rows, query, "item_id", "", scope); err != nil {
		return nil, fmt.Errorf("error getting forecasts: %w", err)
	}
	return rows, nil
}

func (r *planningRepository) GetScheduledProduction(ctx context.Context, scope Scope) ([]ScheduleRow, error) {
	query := `
		SELECT produced_item_id AS item_id, date,
		       scheduled_quantity::text AS scheduled_quantity, process_class
		FROM scheduled_production
	`
	var rows []ScheduleRow
	if err := r.selectScoped(ctx, &rows, query, "produced_item_id", "date", scope); err != nil {
		return nil, fmt.Errorf("error getting scheduled production: %w", err)
	}
	return rows, nil
}

func (r *planningRepository) GetScheduledConsumption(ctx context.Context, scope Scope) ([]ScheduleRow, error) {
	query := `
		SELECT consumed_item_id AS item_id, date,
		       scheduled_quantity::text AS scheduled_quantity, process_class
		FROM scheduled_consumption
	`
	var rows []ScheduleRow
	if err := r.selectScoped(ctx, &rows, query, "consumed_item_id", "date", scope); err != nil {
		return nil, fmt.Errorf("error getting scheduled consumption: %w", err)
	}
	return rows, nil
}

func (r *planningRepository) GetStock(ctx context.Context, scope Scope) ([]StockRow, error) {
	query := `
		SELECT item_id, warehouse_code, quantity::text AS quantity, is_valid_warehouse
		FROM stock_positions
	`
	var rows []StockRow
	if err := r.selectScoped(ctx, &rows, query, "item_id", "", scope); err != nil {
		return nil, fmt.Errorf("error getting stock: %w", err)
	}
	return rows, nil
}

func (r *planningRepository) GetActualProduction(ctx context.Context, scope Scope) ([]ActualRow, error) {
	query := `
		SELECT item_id, date, quantity::text AS quantity, order_class AS class,
		       NULL::text AS movement_type
		FROM actual_production
	`
	var rows []ActualRow
	if err := r.selectScoped(ctx, &rows, query, "item_id", "date", scope); err != nil {
		return nil, fmt.Errorf("error getting actual production: %w", err)
	}
	return rows, nil
}

func (r *planningRepository) GetMovements(ctx context.Context, scope Scope) ([]ActualRow, error) {
	query := `
		SELECT item_id, date, quantity::text AS quantity, movement_class AS class, movement_type
		FROM stock_movements
	`
	var rows []ActualRow
	if err := r.selectScoped(ctx, &rows, query, "item_id", "date", scope); err != nil {
		return nil, fmt.Errorf("error getting movements: %w", err)
	}
	return rows, nil
}

// selectScoped appends the scope clause to query and scans into dest while
// holding a connection slot.
func (r *planningRepository) selectScoped(ctx context.Context, dest interface{}, query, idCol, dateCol string, scope Scope) error {
	clause, args := buildScopeClause(scope, idCol, dateCol, 1)
	return r.db.Limit(ctx, func() error {
		return sqlx.SelectContext(ctx, r.db, dest, query+clause, args...)
	})
}
