package pipeline

import (
	"fmt"

	"github.com/andresuchdata/ddmrp-planner/internal/buffer"
	"github.com/andresuchdata/ddmrp-planner/internal/deviation"
	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/projection"
)

// ProjectionRequest builds the simulator request of one item from a
// snapshot. A zero horizon uses the configured default.
func (e *Engine) ProjectionRequest(s *Snapshot, itemID string, horizon int, warehouses []string) (projection.Request, error) {
	plan, err := s.Item(itemID)
	if err != nil {
		return projection.Request{}, err
	}
	_, inputs := groupByItem(datasetOf(s))
	in, ok := inputs[plan.Item.ID]
	if !ok {
		in = &itemInputs{}
	}
	return e.request(s, plan, in, horizon, warehouses), nil
}

func (e *Engine) request(s *Snapshot, plan domain.ItemPlan, in *itemInputs, horizon int, warehouses []string) projection.Request {
	if horizon <= 0 {
		horizon = e.cfg.DefaultHorizon
	}
	return projection.Request{
		ItemID:      plan.Item.ID,
		AsOf:        s.AsOf,
		Horizon:     horizon,
		Stock:       in.stock,
		Warehouses:  warehouses,
		SafetyStock: plan.Buffer.SafetyStock,
		Forecasts:   in.forecasts,
		Events:      in.events,
		FEIFactor:   plan.Demand.FEIFactor,
	}
}

// Project runs the daily projection of one item.
func (e *Engine) Project(s *Snapshot, itemID string, horizon int, warehouses []string) (domain.Projection, error) {
	req, err := e.ProjectionRequest(s, itemID, horizon, warehouses)
	if err != nil {
		return domain.Projection{}, err
	}
	return e.simulator.Run(req), nil
}

// Alerts scans every planned item over horizon with the default warehouse
// selection.
func (e *Engine) Alerts(s *Snapshot, horizon int) ([]domain.Alert, error) {
	if s == nil {
		return nil, domain.ErrSnapshotUnavailable
	}
	_, inputs := groupByItem(datasetOf(s))
	reqs := make([]projection.Request, 0, len(s.Plans))
	for _, plan := range s.Ordered() {
		in, ok := inputs[plan.Item.ID]
		if !ok {
			in = &itemInputs{}
		}
		reqs = append(reqs, e.request(s, plan, in, horizon, nil))
	}
	return e.simulator.ScanAlerts(reqs), nil
}

// SimulateBuffer re-sizes the buffer of one item with an alternate LTF. The
// snapshot is left untouched.
func (e *Engine) SimulateBuffer(s *Snapshot, itemID string, ltf float64) (domain.BufferProfile, domain.Health, error) {
	plan, err := s.Item(itemID)
	if err != nil {
		return domain.BufferProfile{}, domain.Health{}, err
	}
	profile := buffer.Simulate(plan.Buffer, ltf)
	return profile, buffer.Classify(plan.Stock, profile, e.cfg.Health), nil
}

// Deviation compares plan and actuals of kind for month (YYYY-MM). An empty
// month uses the snapshot's as-of month.
func (e *Engine) Deviation(s *Snapshot, kind domain.DeviationKind, month string, key deviation.KeyFunc) (domain.DeviationReport, error) {
	if s == nil {
		return domain.DeviationReport{}, domain.ErrSnapshotUnavailable
	}
	if month == "" {
		month = projection.MonthKey(s.AsOf)
	}
	plan, actual, err := deviation.Sides(kind, datasetOf(s), key)
	if err != nil {
		return domain.DeviationReport{}, fmt.Errorf("deviation %s: %w", kind, err)
	}
	return e.analyzer.Analyze(kind, month, plan, actual), nil
}

func datasetOf(s *Snapshot) *domain.Dataset {
	if s.Dataset == nil {
		return &domain.Dataset{}
	}
	return s.Dataset
}
