package projection

import (
	"sort"
	"time"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

// DelaySlipDays is how far the first scheduled receipt is pushed when
// testing for delay risk.
const DelaySlipDays = 3

// ScanAlerts projects every request and reports the first stockout, a
// delay risk, or the first safety stock breach per item. Alerts are sorted
// critical, delay risk, warning, then by days until the event.
func (s *Simulator) ScanAlerts(reqs []Request) []domain.Alert {
	alerts := make([]domain.Alert, 0)
	for _, req := range reqs {
		proj := s.Run(req)
		if a, ok := evaluate(proj); ok {
			alerts = append(alerts, a)
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		pi, pj := alerts[i].Type.Priority(), alerts[j].Type.Priority()
		if pi != pj {
			return pi < pj
		}
		if alerts[i].DaysUntil != alerts[j].DaysUntil {
			return alerts[i].DaysUntil < alerts[j].DaysUntil
		}
		return alerts[i].ItemID < alerts[j].ItemID
	})
	return alerts
}

func evaluate(p domain.Projection) (domain.Alert, bool) {
	var stockout, warning *domain.Alert

	mark := func(date time.Time, psoh float64) {
		days := int(date.Sub(p.AsOf).Hours() / 24)
		if psoh <= 0 && stockout == nil {
			stockout = &domain.Alert{ItemID: p.ItemID, Type: domain.AlertCritical, Date: date, PSoH: psoh, DaysUntil: days}
		}
		if psoh <= p.SafetyStock && warning == nil {
			warning = &domain.Alert{ItemID: p.ItemID, Type: domain.AlertWarning, Date: date, PSoH: psoh, DaysUntil: days}
		}
	}

	mark(p.AsOf, p.OpeningBalance)
	for _, d := range p.Days {
		mark(d.Date, d.PSoH)
	}

	switch {
	case stockout != nil:
		return *stockout, true
	case delayRisk(p):
		return domain.Alert{ItemID: p.ItemID, Type: domain.AlertDelayRisk, Date: p.AsOf}, true
	case warning != nil:
		return *warning, true
	}
	return domain.Alert{}, false
}

// delayRisk replays the ledger with the first receipt slipped by
// DelaySlipDays and reports whether the balance goes negative.
func delayRisk(p domain.Projection) bool {
	first := -1
	for i, d := range p.Days {
		if d.SupplyIn > 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return false
	}

	slipped := p.Days[first].SupplyIn
	psoh := p.OpeningBalance
	for i, d := range p.Days {
		supply := d.SupplyIn
		if i == first {
			supply -= slipped
		}
		if i == first+DelaySlipDays {
			supply += slipped
		}
		psoh = psoh + supply - d.DemandOut
		if psoh < 0 {
			return true
		}
	}
	return false
}
