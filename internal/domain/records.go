package domain

import (
	"math"
	"strings"
	"time"
)

// MovementType classifies a stock movement for demand purposes.
type MovementType string

const (
	MovementSale        MovementType = "sale"
	MovementConsumption MovementType = "consumption"
	MovementTransfer    MovementType = "transfer"
	MovementOther       MovementType = "other"
)

// DemandQuantity is the demand carried by a movement quantity. ERP exports
// record issues as negative outflows and as positive quantities alike, so
// demand is the magnitude either way.
func DemandQuantity(q float64) float64 {
	return math.Abs(q)
}

// ParseMovementType maps a raw movement label from the ERP exports onto a
// MovementType. Unknown labels map to MovementOther.
func ParseMovementType(raw string) MovementType {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case v == "":
		return MovementOther
	case strings.Contains(v, "VENT"), strings.Contains(v, "SALE"):
		return MovementSale
	case strings.Contains(v, "CONSUM"):
		return MovementConsumption
	case strings.Contains(v, "TRASL"), strings.Contains(v, "TRANSF"):
		return MovementTransfer
	}
	return MovementOther
}

// ConsumptionConfig selects which movement types count as demand.
type ConsumptionConfig struct {
	IncludeSales       bool `json:"include_sales"`
	IncludeConsumption bool `json:"include_consumption"`
	IncludeTransfer    bool `json:"include_transfer"`
}

// DefaultConsumptionConfig counts sales and production consumption.
func DefaultConsumptionConfig() ConsumptionConfig {
	return ConsumptionConfig{IncludeSales: true, IncludeConsumption: true}
}

// Includes reports whether movements of type t contribute to demand.
func (c ConsumptionConfig) Includes(t MovementType) bool {
	switch t {
	case MovementSale:
		return c.IncludeSales
	case MovementConsumption:
		return c.IncludeConsumption
	case MovementTransfer:
		return c.IncludeTransfer
	}
	return false
}

// ConsumptionAggregate is a monthly movement total for one item.
type ConsumptionAggregate struct {
	ItemID       string       `json:"item_id" db:"item_id"`
	Month        string       `json:"month" db:"month"` // YYYY-MM
	MovementType MovementType `json:"movement_type" db:"movement_type"`
	Quantity     float64      `json:"quantity" db:"quantity"`
}

// HybridOverride carries authoritative values computed upstream. Nil pointers
// and empty strings mean "not supplied".
type HybridOverride struct {
	ItemID             string   `json:"item_id" db:"item_id"`
	ADUHybrid          *float64 `json:"adu_hybrid_final,omitempty" db:"adu_hybrid_final"`
	DailyStdDev        *float64 `json:"daily_std_dev,omitempty" db:"daily_std_dev"`
	ADU6mMonthly       *float64 `json:"adu_6m_monthly,omitempty" db:"adu_6m_monthly"`
	ADUL30dDaily       *float64 `json:"adu_l30d_daily,omitempty" db:"adu_l30d_daily"`
	EndOfMonthFactor   *float64 `json:"end_of_month_factor,omitempty" db:"end_of_month_factor"`
	SafetyStock        *float64 `json:"safety_stock_override,omitempty" db:"safety_stock_override"`
	ReorderPoint       *float64 `json:"reorder_point_override,omitempty" db:"reorder_point_override"`
	ABCSegment         string   `json:"abc_segment,omitempty" db:"abc_segment"`
	XYZSegment         string   `json:"xyz_segment,omitempty" db:"xyz_segment"`
	TurnoverRatio      *float64 `json:"turnover_ratio,omitempty" db:"turnover_ratio"`
	ActivePeriods      *float64 `json:"active_periods,omitempty" db:"active_periods"`
	RotationSegment    string   `json:"rotation_segment,omitempty" db:"rotation_segment"`
	PeriodicitySegment string   `json:"periodicity_segment,omitempty" db:"periodicity_segment"`
}

// DemandForecast is a monthly forecast total; Month is the first day of the month.
type DemandForecast struct {
	ItemID   string    `json:"item_id" db:"item_id"`
	Month    time.Time `json:"month" db:"month"`
	Quantity float64   `json:"quantity" db:"quantity"`
}

// Direction tells whether a scheduled event adds or removes stock.
type Direction string

const (
	DirectionSupply Direction = "supply"
	DirectionDemand Direction = "demand"
)

// ScheduledEvent is a dated, categorized supply or demand fact such as a
// production order receipt or a component consumption.
type ScheduledEvent struct {
	ItemID    string    `json:"item_id" db:"item_id"`
	Date      time.Time `json:"date" db:"date"`
	Direction Direction `json:"direction" db:"direction"`
	Category  string    `json:"category" db:"category"`
	Quantity  float64   `json:"quantity" db:"quantity"`
}

// StockSnapshot is the on-hand quantity of one item in one warehouse.
type StockSnapshot struct {
	ItemID    string  `json:"item_id" db:"item_id"`
	Warehouse string  `json:"warehouse" db:"warehouse"`
	Quantity  float64 `json:"quantity" db:"quantity"`
	Valid     bool    `json:"valid" db:"is_valid"`
}

// ActualProduction is a production receipt posted by the ERP.
type ActualProduction struct {
	ItemID     string    `json:"item_id" db:"item_id"`
	Date       time.Time `json:"date" db:"date"`
	Quantity   float64   `json:"quantity" db:"quantity"`
	OrderClass string    `json:"order_class" db:"order_class"`
}

// Movement is a dated stock movement (sale, consumption, transfer).
type Movement struct {
	ItemID       string       `json:"item_id" db:"item_id"`
	Date         time.Time    `json:"date" db:"date"`
	MovementType MovementType `json:"movement_type" db:"movement_type"`
	Class        string       `json:"class" db:"class"`
	Quantity     float64      `json:"quantity" db:"quantity"`
}

// Dataset holds every raw input the planning engine consumes.
type Dataset struct {
	Items       []ItemProfile          `json:"items"`
	Consumption []ConsumptionAggregate `json:"consumption"`
	Overrides   []HybridOverride       `json:"overrides"`
	Forecasts   []DemandForecast       `json:"forecasts"`
	Scheduled   []ScheduledEvent       `json:"scheduled"`
	Stock       []StockSnapshot        `json:"stock"`
	Production  []ActualProduction     `json:"production"`
	Movements   []Movement             `json:"movements"`
}

// Normalize rewrites every item identifier with NormalizeItemID so joins
// across sources line up.
func (d *Dataset) Normalize() {
	for i := range d.Items {
		d.Items[i].ID = NormalizeItemID(d.Items[i].ID)
	}
	for i := range d.Consumption {
		d.Consumption[i].ItemID = NormalizeItemID(d.Consumption[i].ItemID)
	}
	for i := range d.Overrides {
		d.Overrides[i].ItemID = NormalizeItemID(d.Overrides[i].ItemID)
	}
	for i := range d.Forecasts {
		d.Forecasts[i].ItemID = NormalizeItemID(d.Forecasts[i].ItemID)
	}
	for i := range d.Scheduled {
		d.Scheduled[i].ItemID = NormalizeItemID(d.Scheduled[i].ItemID)
	}
	for i := range d.Stock {
		d.Stock[i].ItemID = NormalizeItemID(d.Stock[i].ItemID)
	}
	for i := range d.Production {
		d.Production[i].ItemID = NormalizeItemID(d.Production[i].ItemID)
	}
	for i := range d.Movements {
		d.Movements[i].ItemID = NormalizeItemID(d.Movements[i].ItemID)
	}
}
