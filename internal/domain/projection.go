package domain

import "time"

// DayStatus classifies a projected balance against zero and safety stock.
type DayStatus string

const (
	DayHealthy  DayStatus = "healthy"
	DayWarning  DayStatus = "warning"
	DayCritical DayStatus = "critical"
)

// ClassifyBalance returns critical for psoh <= 0, warning for psoh up to and
// including the safety stock, healthy otherwise.
func ClassifyBalance(psoh, safetyStock float64) DayStatus {
	switch {
	case psoh <= 0:
		return DayCritical
	case psoh <= safetyStock:
		return DayWarning
	default:
		return DayHealthy
	}
}

// WarehouseBalance is one line of the opening stock breakdown.
type WarehouseBalance struct {
	Warehouse string  `json:"warehouse"`
	Quantity  float64 `json:"quantity"`
	Valid     bool    `json:"valid"`
	Included  bool    `json:"included"`
}

// ProjectionDay is one step of the projected stock ledger.
type ProjectionDay struct {
	Date            time.Time          `json:"date"`
	PSoH            float64            `json:"psoh"`
	SupplyIn        float64            `json:"supply_in"`
	SupplyBreakdown map[string]float64 `json:"supply_breakdown"`
	DemandOut       float64            `json:"demand_out"`
	DemandBreakdown map[string]float64 `json:"demand_breakdown"`
	Status          DayStatus          `json:"status"`
	ForecastCovered bool               `json:"forecast_covered"`
}

// WarningCode names a non-fatal condition attached to a derived result.
type WarningCode string

const (
	WarnInsufficientForecast WarningCode = "insufficient_forecast_coverage"
	WarnRefreshFailure       WarningCode = "refresh_failure"
	WarnComputationFault     WarningCode = "computation_fault"
)

// Warning is a non-fatal condition surfaced next to the result it affects.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
	ItemID  string      `json:"item_id,omitempty"`
	Date    *time.Time  `json:"date,omitempty"`
}

// Projection is the full result of one simulation run for one item.
type Projection struct {
	ItemID           string             `json:"item_id"`
	AsOf             time.Time          `json:"as_of"`
	Horizon          int                `json:"horizon"`
	SafetyStock      float64            `json:"safety_stock"`
	OpeningBalance   float64            `json:"opening_balance"`
	OpeningStatus    DayStatus          `json:"opening_status"`
	OpeningBreakdown []WarehouseBalance `json:"opening_breakdown"`
	Days             []ProjectionDay    `json:"days"`
	Warnings         []Warning          `json:"warnings,omitempty"`
}

// AlertType ranks projection alerts.
type AlertType string

const (
	AlertCritical  AlertType = "critical"
	AlertDelayRisk AlertType = "delay_risk"
	AlertWarning   AlertType = "warning"
)

// Priority orders alert types: critical first, then delay risk, then warning.
func (t AlertType) Priority() int {
	switch t {
	case AlertCritical:
		return 0
	case AlertDelayRisk:
		return 1
	case AlertWarning:
		return 2
	}
	return 9
}

// Alert is a projected stock problem for one item.
type Alert struct {
	ItemID    string    `json:"item_id"`
	Type      AlertType `json:"type"`
	Date      time.Time `json:"date"`
	PSoH      float64   `json:"psoh"`
	DaysUntil int       `json:"days_until"`
}
