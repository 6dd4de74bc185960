package domain

import "strings"

// DefaultLeadTimeDays is used when the item master has no usable lead time.
const DefaultLeadTimeDays = 25.0

// ItemProfile is the master-data view of a planned item.
type ItemProfile struct {
	ID                 string  `json:"id" db:"item_id"`
	Name               string  `json:"name" db:"name"`
	Category           string  `json:"category" db:"category"`
	Hierarchy1         string  `json:"hierarchy_1" db:"hierarchy_1"`
	GroupDescription   string  `json:"group_description" db:"group_description"`
	MaterialType       string  `json:"material_type" db:"material_type"`
	LeadTimeDays       float64 `json:"lead_time_days" db:"lead_time_days"`
	ServiceLevelTarget float64 `json:"service_level_target" db:"service_level_target"`
	DefaultADU         float64 `json:"default_adu" db:"default_adu"`
	UnitCost           float64 `json:"unit_cost" db:"unit_cost"`
}

// EffectiveLeadTime returns the lead time in days, falling back to
// DefaultLeadTimeDays when the master value is missing or not positive.
func (p ItemProfile) EffectiveLeadTime() float64 {
	if p.LeadTimeDays <= 0 {
		return DefaultLeadTimeDays
	}
	return p.LeadTimeDays
}

// EffectiveUnitCost returns the unit cost used to value demand, 1 when unknown.
func (p ItemProfile) EffectiveUnitCost() float64 {
	if p.UnitCost <= 0 {
		return 1
	}
	return p.UnitCost
}

// NormalizeItemID trims an item code and strips leading zeros from purely
// numeric codes so "000123" and "123" join across sources.
func NormalizeItemID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || !isDigits(id) {
		return id
	}
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
