package deviation

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

// KeyFunc maps an item onto the grouping key of a comparison.
type KeyFunc func(item domain.ItemProfile) string

// ByItem groups by the normalized item identifier.
func ByItem(item domain.ItemProfile) string { return item.ID }

// ByCategory groups by the item category, "UNCATEGORIZED" when blank.
func ByCategory(item domain.ItemProfile) string {
	if c := strings.TrimSpace(item.Category); c != "" {
		return c
	}
	return "UNCATEGORIZED"
}

// Sides extracts the plan and actual aggregates of kind from a dataset.
//
//	production:  scheduled supply events vs posted production
//	sales:       demand forecast vs sale movements
//	consumption: scheduled component consumption vs consumption movements
func Sides(kind domain.DeviationKind, ds *domain.Dataset, key KeyFunc) (plan, actual []domain.Aggregate, err error) {
	if key == nil {
		key = ByItem
	}
	items := make(map[string]domain.ItemProfile, len(ds.Items))
	for _, it := range ds.Items {
		items[it.ID] = it
	}
	keyOf := func(id string) string {
		it, ok := items[id]
		if !ok {
			it = domain.ItemProfile{ID: id}
		}
		return key(it)
	}

	switch kind {
	case domain.DeviationProduction:
		for _, ev := range ds.Scheduled {
			if ev.Direction == domain.DirectionSupply {
				plan = append(plan, domain.Aggregate{Key: keyOf(ev.ItemID), Month: ev.Date.Format("2006-01"), Quantity: ev.Quantity})
			}
		}
		for _, p := range ds.Production {
			actual = append(actual, domain.Aggregate{Key: keyOf(p.ItemID), Month: p.Date.Format("2006-01"), Quantity: p.Quantity})
		}
	case domain.DeviationSales:
		for _, f := range ds.Forecasts {
			plan = append(plan, domain.Aggregate{Key: keyOf(f.ItemID), Month: f.Month.Format("2006-01"), Quantity: f.Quantity})
		}
		actual = movementSide(ds.Movements, domain.MovementSale, keyOf)
	case domain.DeviationConsumption:
		for _, ev := range ds.Scheduled {
			if ev.Direction == domain.DirectionDemand {
				plan = append(plan, domain.Aggregate{Key: keyOf(ev.ItemID), Month: ev.Date.Format("2006-01"), Quantity: ev.Quantity})
			}
		}
		actual = movementSide(ds.Movements, domain.MovementConsumption, keyOf)
	default:
		return nil, nil, fmt.Errorf("unknown deviation kind %q", kind)
	}
	return plan, actual, nil
}

func movementSide(movs []domain.Movement, t domain.MovementType, keyOf func(string) string) []domain.Aggregate {
	out := make([]domain.Aggregate, 0)
	for _, m := range movs {
		if m.MovementType != t {
			continue
		}
		out = append(out, domain.Aggregate{Key: keyOf(m.ItemID), Month: m.Date.Format("2006-01"), Quantity: domain.DemandQuantity(m.Quantity)})
	}
	return out
}
