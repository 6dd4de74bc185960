package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

// Snapshot is the immutable result of one recompute. It is published
// wholesale and never modified afterwards; derive a new one instead.
type Snapshot struct {
	Seq         uint64                     `json:"seq"`
	AsOf        time.Time                  `json:"as_of"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Stale       bool                       `json:"stale"`
	Plans       map[string]domain.ItemPlan `json:"plans"`
	Faults      []domain.ItemFault         `json:"faults,omitempty"`
	Warnings    []domain.Warning           `json:"warnings,omitempty"`
	// Dataset keeps the raw inputs for projections and deviation reports.
	Dataset *domain.Dataset `json:"dataset"`
}

// Item returns the plan of one item.
func (s *Snapshot) Item(id string) (domain.ItemPlan, error) {
	if s == nil {
		return domain.ItemPlan{}, domain.ErrSnapshotUnavailable
	}
	p, ok := s.Plans[domain.NormalizeItemID(id)]
	if !ok {
		return domain.ItemPlan{}, domain.ErrItemNotFound
	}
	return p, nil
}

// ItemIDs returns every planned item in ascending order.
func (s *Snapshot) ItemIDs() []string {
	ids := make([]string, 0, len(s.Plans))
	for id := range s.Plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Ordered returns the plans sorted by item ID.
func (s *Snapshot) Ordered() []domain.ItemPlan {
	out := make([]domain.ItemPlan, 0, len(s.Plans))
	for _, id := range s.ItemIDs() {
		out = append(out, s.Plans[id])
	}
	return out
}

// MarkStale returns a copy flagged stale with w appended. Plans and dataset
// are shared since neither is ever mutated.
func (s *Snapshot) MarkStale(w *domain.Warning) *Snapshot {
	cp := *s
	cp.Stale = true
	cp.Warnings = append(append([]domain.Warning(nil), s.Warnings...), nilSafe(w)...)
	return &cp
}

func nilSafe(w *domain.Warning) []domain.Warning {
	if w == nil {
		return nil
	}
	return []domain.Warning{*w}
}

// Summary aggregates the snapshot for the dashboard.
func (s *Snapshot) Summary() domain.PortfolioSummary {
	sum := domain.PortfolioSummary{
		TotalItems: len(s.Plans),
		Faults:     len(s.Faults),
		Stale:      s.Stale,
	}

	statusIdx := map[domain.HealthStatus]int{}
	for i, st := range []domain.HealthStatus{domain.HealthCritical, domain.HealthHealthy, domain.HealthExcess} {
		sum.StatusSummary = append(sum.StatusSummary, domain.StatusSummary{Status: st, Label: domain.HealthStatusLabel(st)})
		statusIdx[st] = i
	}
	zoneIdx := map[domain.Zone]int{}
	for i, z := range []domain.Zone{domain.ZoneRed, domain.ZoneYellow, domain.ZoneGreen} {
		sum.ZoneSummary = append(sum.ZoneSummary, domain.ZoneSummary{Zone: z})
		zoneIdx[z] = i
	}
	cellIdx := map[string]int{}
	for _, a := range []string{"A", "B", "C"} {
		for _, x := range []string{"X", "Y", "Z"} {
			cellIdx[a+x] = len(sum.SegmentMatrix)
			sum.SegmentMatrix = append(sum.SegmentMatrix, domain.SegmentCell{ABC: a, XYZ: x})
		}
	}

	var coverage float64
	withDemand := 0
	for _, p := range s.Plans {
		if i, ok := statusIdx[p.Health.Status]; ok {
			sum.StatusSummary[i].Count++
			sum.StatusSummary[i].TotalValue += p.Stock * p.Item.EffectiveUnitCost()
		}
		if i, ok := zoneIdx[p.Health.Zone]; ok {
			sum.ZoneSummary[i].Count++
		}
		if i, ok := cellIdx[p.Segment.ABC+p.Segment.XYZ]; ok {
			sum.SegmentMatrix[i].Count++
		}
		if math.IsInf(p.Health.CoverageDays, 1) {
			sum.NoDemandItems++
			continue
		}
		coverage += p.Health.CoverageDays
		withDemand++
	}
	if withDemand > 0 {
		sum.AvgCoverageDays = coverage / float64(withDemand)
	}
	return sum
}
