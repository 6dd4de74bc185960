// Package pipeline turns a raw dataset into a published planning snapshot.
package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/ddmrp-planner/internal/buffer"
	"github.com/andresuchdata/ddmrp-planner/internal/demand"
	"github.com/andresuchdata/ddmrp-planner/internal/deviation"
	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/projection"
	"github.com/andresuchdata/ddmrp-planner/internal/segment"
)

// Engine runs the derived pipeline. Every method is a pure function of its
// arguments; the engine itself only carries configuration and a sequence
// counter.
type Engine struct {
	cfg       Config
	estimator *demand.Estimator
	segments  *segment.Engine
	simulator *projection.Simulator
	analyzer  *deviation.Analyzer
	seq       atomic.Uint64

	// probe runs before each item is computed.
	probe func(itemID string)
}

// NewEngine creates an engine from cfg.
func NewEngine(cfg Config) *Engine {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.LTF <= 0 {
		cfg.LTF = buffer.DefaultLTF
	}
	if cfg.DefaultHorizon <= 0 {
		cfg.DefaultHorizon = projection.DefaultHorizon
	}
	return &Engine{
		cfg:       cfg,
		estimator: demand.NewEstimator(cfg.Demand),
		segments:  segment.NewEngine(cfg.Segment),
		simulator: projection.NewSimulator(cfg.Projection),
		analyzer:  deviation.NewAnalyzer(cfg.Deviation),
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// observe raises the sequence counter to at least seq so snapshots loaded
// from an earlier process never outrank new recomputes.
func (e *Engine) observe(seq uint64) {
	for {
		cur := e.seq.Load()
		if cur >= seq || e.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}

// itemInputs is the slice of the dataset belonging to one item.
type itemInputs struct {
	profile   domain.ItemProfile
	aggs      []domain.ConsumptionAggregate
	movements []domain.Movement
	override  *domain.HybridOverride
	stock     []domain.StockSnapshot
	forecasts []domain.DemandForecast
	events    []domain.ScheduledEvent
}

type itemResult struct {
	plan  domain.ItemPlan
	fault *domain.ItemFault
}

// Recompute derives a fresh snapshot from ds as of asOf. Items whose
// computation faults keep their plan from prev when there is one; the fault
// is reported in the snapshot either way. ds is normalized in place.
func (e *Engine) Recompute(ds *domain.Dataset, asOf time.Time, prev *Snapshot) *Snapshot {
	start := time.Now()
	if ds == nil {
		ds = &domain.Dataset{}
	}
	ds.Normalize()
	asOf = projection.Day(asOf)

	ids, inputs := groupByItem(ds)

	// 1. Per-item demand, buffer and health
	results := e.computeAll(ids, inputs, asOf)

	snap := &Snapshot{
		Seq:         e.seq.Add(1),
		AsOf:        asOf,
		GeneratedAt: time.Now().UTC(),
		Plans:       make(map[string]domain.ItemPlan, len(ids)),
		Dataset:     ds,
	}

	computed := make([]segment.Input, 0, len(ids))
	for i, id := range ids {
		r := results[i]
		if r.fault != nil {
			snap.Faults = append(snap.Faults, *r.fault)
			if old, err := prev.Item(id); err == nil {
				snap.Plans[id] = old
			}
			continue
		}
		snap.Plans[id] = r.plan
		computed = append(computed, segmentInput(r.plan, inputs[id].override))
	}

	// 2. Segmentation across the computed population
	segs, err := e.classify(computed)
	if err != nil {
		snap.Faults = append(snap.Faults, domain.ItemFault{ItemID: "*", Reason: err.Error()})
		for _, in := range computed {
			if old, err := prev.Item(in.ItemID); err == nil {
				p := snap.Plans[in.ItemID]
				p.Segment = old.Segment
				snap.Plans[in.ItemID] = p
			}
		}
	} else {
		for id, sg := range segs {
			p := snap.Plans[id]
			p.Segment = sg
			snap.Plans[id] = p
		}
	}

	for _, f := range snap.Faults {
		snap.Warnings = append(snap.Warnings, domain.Warning{
			Code:    domain.WarnComputationFault,
			Message: f.Reason,
			ItemID:  f.ItemID,
		})
	}

	log.Info().
		Uint64("seq", snap.Seq).
		Int("items", len(snap.Plans)).
		Int("faults", len(snap.Faults)).
		Dur("took", time.Since(start)).
		Msg("Recomputed planning snapshot")

	return snap
}

// computeAll fans the items out over a bounded worker pool. Results keep
// the order of ids.
func (e *Engine) computeAll(ids []string, inputs map[string]*itemInputs, asOf time.Time) []itemResult {
	results := make([]itemResult, len(ids))

	workerCount := e.cfg.WorkerCount
	if workerCount > len(ids) {
		workerCount = len(ids)
	}

	jobChan := make(chan int, len(ids))
	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobChan {
				plan, fault := e.computeItem(ids[i], inputs[ids[i]], asOf)
				results[i] = itemResult{plan: plan, fault: fault}
			}
		}()
	}
	for i := range ids {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	return results
}

func (e *Engine) computeItem(id string, in *itemInputs, asOf time.Time) (plan domain.ItemPlan, fault *domain.ItemFault) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("item_id", id).Interface("panic", r).Msg("Item computation failed")
			fault = &domain.ItemFault{ItemID: id, Reason: fmt.Sprint(r)}
		}
	}()
	if e.probe != nil {
		e.probe(id)
	}

	metrics := e.estimator.Estimate(demand.Input{
		AsOf:          asOf,
		Aggregates:    in.aggs,
		TrailingTotal: demand.TrailingTotal(in.movements, asOf, e.cfg.Demand.Consumption),
		DefaultADU:    in.profile.DefaultADU,
		Override:      in.override,
	})

	bin := buffer.Input{
		ADU:          metrics.ADUHybrid,
		LeadTimeDays: in.profile.EffectiveLeadTime(),
		CoV:          metrics.CoV,
		LTF:          e.cfg.LTF,
	}
	if in.override != nil {
		bin.SafetyStockOverride = in.override.SafetyStock
		bin.ROPOverride = in.override.ReorderPoint
	}
	profile := buffer.Compute(bin)

	stock, _ := projection.OpeningBalance(in.stock, nil)

	return domain.ItemPlan{
		Item:   in.profile,
		Demand: metrics,
		Buffer: profile,
		Stock:  stock,
		Health: buffer.Classify(stock, profile, e.cfg.Health),
	}, nil
}

func (e *Engine) classify(items []segment.Input) (segs map[string]domain.Segment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("segmentation: %v", r)
		}
	}()
	return e.segments.Classify(items), nil
}

func segmentInput(p domain.ItemPlan, ov *domain.HybridOverride) segment.Input {
	annual := p.Demand.ADUHybrid * 365
	return segment.Input{
		ItemID:        p.Item.ID,
		Value:         annual * p.Item.EffectiveUnitCost(),
		CoV:           p.Demand.CoV,
		AnnualDemand:  annual,
		Stock:         p.Stock,
		ActivePeriods: p.Demand.ActivePeriods,
		Override:      ov,
	}
}

// groupByItem splits ds per item. The planned population is every item in
// the master plus any item that only appears in consumption or overrides.
func groupByItem(ds *domain.Dataset) ([]string, map[string]*itemInputs) {
	inputs := make(map[string]*itemInputs, len(ds.Items))
	var ids []string
	get := func(id string, create bool) *itemInputs {
		if in, ok := inputs[id]; ok {
			return in
		}
		if !create || id == "" {
			return nil
		}
		in := &itemInputs{profile: domain.ItemProfile{ID: id}}
		inputs[id] = in
		ids = append(ids, id)
		return in
	}

	for _, it := range ds.Items {
		if in := get(it.ID, true); in != nil {
			in.profile = it
		}
	}
	for _, a := range ds.Consumption {
		if in := get(a.ItemID, true); in != nil {
			in.aggs = append(in.aggs, a)
		}
	}
	for i := range ds.Overrides {
		if in := get(ds.Overrides[i].ItemID, true); in != nil {
			ov := ds.Overrides[i]
			in.override = &ov
		}
	}
	for _, m := range ds.Movements {
		if in := get(m.ItemID, false); in != nil {
			in.movements = append(in.movements, m)
		}
	}
	for _, s := range ds.Stock {
		if in := get(s.ItemID, false); in != nil {
			in.stock = append(in.stock, s)
		}
	}
	for _, f := range ds.Forecasts {
		if in := get(f.ItemID, false); in != nil {
			in.forecasts = append(in.forecasts, f)
		}
	}
	for _, ev := range ds.Scheduled {
		if in := get(ev.ItemID, false); in != nil {
			in.events = append(in.events, ev)
		}
	}

	return ids, inputs
}
