package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/ddmrp-planner/internal/cache"
	"github.com/andresuchdata/ddmrp-planner/internal/deviation"
	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/pipeline"
	"github.com/andresuchdata/ddmrp-planner/internal/projection"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// BufferWhatIf is the outcome of re-sizing a buffer with an alternate LTF.
type BufferWhatIf struct {
	ItemID  string               `json:"item_id"`
	Current domain.BufferProfile `json:"current"`
	Buffer  domain.BufferProfile `json:"buffer"`
	Health  domain.Health        `json:"health"`
}

// PlanningService answers queries against the published snapshot.
type PlanningService struct {
	refresher *pipeline.Refresher
	cache     cache.PageCache
	tracker   *projection.Tracker
	project   func(snap *pipeline.Snapshot, id string, horizon int, warehouses []string) (domain.Projection, error)
}

func NewPlanningService(refresher *pipeline.Refresher, cacheImpl cache.PageCache) *PlanningService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopPageCache()
	}
	return &PlanningService{
		refresher: refresher,
		cache:     cacheImpl,
		tracker:   projection.NewTracker(),
		project:   refresher.Engine().Project,
	}
}

func (s *PlanningService) snapshot() (*pipeline.Snapshot, error) {
	snap := s.refresher.Current()
	if snap == nil {
		return nil, domain.ErrSnapshotUnavailable
	}
	return snap, nil
}

// Snapshot returns the published snapshot.
func (s *PlanningService) Snapshot() (*pipeline.Snapshot, error) {
	return s.snapshot()
}

func (s *PlanningService) ListItems(ctx context.Context, filter domain.ItemFilter) (*domain.ItemPage, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	filter = normalizeFilter(filter)

	if page, ok, err := s.cache.GetItemPage(ctx, snap.Seq, filter); err == nil && ok {
		return page, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("planning: cache get item page failed")
	}

	page := paginate(filterPlans(snap.Ordered(), filter), filter)

	if err := s.cache.SetItemPage(ctx, snap.Seq, filter, page); err != nil {
		log.Warn().Err(err).Msg("planning: cache set item page failed")
	}
	return page, nil
}

func (s *PlanningService) GetItem(ctx context.Context, id string) (domain.ItemPlan, error) {
	snap, err := s.snapshot()
	if err != nil {
		return domain.ItemPlan{}, err
	}
	return snap.Item(id)
}

// SimulateBuffer runs a what-if with an alternate LTF without touching the
// published plan.
func (s *PlanningService) SimulateBuffer(ctx context.Context, id string, ltf float64) (*BufferWhatIf, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	plan, err := snap.Item(id)
	if err != nil {
		return nil, err
	}
	profile, health, err := s.refresher.Engine().SimulateBuffer(snap, id, ltf)
	if err != nil {
		return nil, err
	}
	return &BufferWhatIf{ItemID: plan.Item.ID, Current: plan.Buffer, Buffer: profile, Health: health}, nil
}

// GetProjection simulates one item. Requests sharing a non-empty session are
// last-request-wins: a request overtaken by a newer one for the same session
// returns domain.ErrStaleRequest instead of its result.
func (s *PlanningService) GetProjection(ctx context.Context, session, id string, horizon int, warehouses []string) (*domain.Projection, error) {
	var seq uint64
	if session != "" {
		seq = s.tracker.Begin(session)
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	p, err := s.project(snap, id, horizon, warehouses)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if session == "" {
		return &p, nil
	}

	var result *domain.Projection
	if !s.tracker.Commit(session, seq, func() { result = &p }) {
		log.Debug().Str("session", session).Str("item_id", id).Msg("planning: projection superseded")
		return nil, domain.ErrStaleRequest
	}
	return result, nil
}

func (s *PlanningService) GetAlerts(ctx context.Context, horizon int) ([]domain.Alert, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	alerts, err := s.refresher.Engine().Alerts(snap, horizon)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = make([]domain.Alert, 0)
	}
	return alerts, nil
}

func (s *PlanningService) GetSummary(ctx context.Context) (*domain.PortfolioSummary, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	if summary, ok, err := s.cache.GetSummary(ctx, snap.Seq); err == nil && ok {
		summary.Stale = snap.Stale
		return summary, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("planning: cache get summary failed")
	}

	summary := snap.Summary()
	if err := s.cache.SetSummary(ctx, snap.Seq, &summary); err != nil {
		log.Warn().Err(err).Msg("planning: cache set summary failed")
	}
	return &summary, nil
}

// GetDeviation compares plan and actuals. groupBy is "item" (default) or
// "category".
func (s *PlanningService) GetDeviation(ctx context.Context, kind domain.DeviationKind, month, groupBy string) (*domain.DeviationReport, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	key := deviation.ByItem
	if strings.EqualFold(groupBy, "category") {
		key = deviation.ByCategory
	}
	report, err := s.refresher.Engine().Deviation(snap, kind, month, key)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// RequestRefresh queues a background refresh.
func (s *PlanningService) RequestRefresh() pipeline.RefreshMetrics {
	s.refresher.Trigger()
	return s.refresher.Metrics()
}

// RefreshNow runs a refresh in the caller's goroutine. A refresh already in
// flight absorbs the request and is not an error.
func (s *PlanningService) RefreshNow(ctx context.Context) (pipeline.RefreshMetrics, error) {
	err := s.refresher.Refresh(ctx)
	if errors.Is(err, domain.ErrRefreshInProgress) {
		err = nil
	}
	if err == nil {
		if cerr := s.cache.InvalidateAll(ctx); cerr != nil {
			log.Warn().Err(cerr).Msg("planning: cache invalidate failed")
		}
	}
	return s.refresher.Metrics(), err
}

func (s *PlanningService) RefreshStatus() pipeline.RefreshMetrics {
	return s.refresher.Metrics()
}

// RefreshRuns lists recent refresh cycles, newest first.
func (s *PlanningService) RefreshRuns(ctx context.Context, limit int) ([]pipeline.RunRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.refresher.History(ctx, limit)
}

func normalizeFilter(f domain.ItemFilter) domain.ItemFilter {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	f.SortField = strings.ToLower(strings.TrimSpace(f.SortField))
	if f.SortField == "" {
		f.SortField = "item_id"
	}
	f.SortDirection = strings.ToLower(strings.TrimSpace(f.SortDirection))
	if f.SortDirection != "desc" {
		f.SortDirection = "asc"
	}
	f.Search = strings.ToLower(strings.TrimSpace(f.Search))
	return f
}

// filterPlans applies the filter and sort. plans is never modified.
func filterPlans(plans []domain.ItemPlan, f domain.ItemFilter) []domain.ItemPlan {
	out := make([]domain.ItemPlan, 0, len(plans))
	for _, p := range plans {
		if f.Status != "" && p.Health.Status != f.Status {
			continue
		}
		if f.Zone != "" && p.Health.Zone != f.Zone {
			continue
		}
		if f.ABC != "" && !strings.EqualFold(p.Segment.ABC, f.ABC) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(strings.TrimSpace(p.Item.Category), strings.TrimSpace(f.Category)) {
			continue
		}
		if f.Search != "" &&
			!strings.Contains(strings.ToLower(p.Item.ID), f.Search) &&
			!strings.Contains(strings.ToLower(p.Item.Name), f.Search) {
			continue
		}
		out = append(out, p)
	}

	less := sortKey(f.SortField)
	sort.SliceStable(out, func(i, j int) bool {
		if f.SortDirection == "desc" {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func sortKey(field string) func(a, b domain.ItemPlan) bool {
	byID := func(a, b domain.ItemPlan) bool { return a.Item.ID < b.Item.ID }
	numeric := func(v func(domain.ItemPlan) float64) func(a, b domain.ItemPlan) bool {
		return func(a, b domain.ItemPlan) bool {
			va, vb := v(a), v(b)
			if va == vb || (math.IsInf(va, 1) && math.IsInf(vb, 1)) {
				return byID(a, b)
			}
			return va < vb
		}
	}
	switch field {
	case "coverage":
		return numeric(func(p domain.ItemPlan) float64 { return p.Health.CoverageDays })
	case "adu":
		return numeric(func(p domain.ItemPlan) float64 { return p.Demand.ADUHybrid })
	case "stock":
		return numeric(func(p domain.ItemPlan) float64 { return p.Stock })
	default:
		return byID
	}
}

func paginate(plans []domain.ItemPlan, f domain.ItemFilter) *domain.ItemPage {
	total := len(plans)
	start := (f.Page - 1) * f.PageSize
	if start > total {
		start = total
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return &domain.ItemPage{
		Items:      plans[start:end],
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: (total + f.PageSize - 1) / f.PageSize,
	}
}
