package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

// Fetcher loads the raw planning dataset from an external store.
type Fetcher interface {
	Load(ctx context.Context) (*domain.Dataset, error)
}

// SnapshotStore persists the last published snapshot between processes.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context) (*Snapshot, error)
	SetSnapshot(ctx context.Context, snap *Snapshot) error
}

// Locker serializes refresh cycles across processes. Obtain returns
// domain.ErrRefreshInProgress when another process holds the lock.
type Locker interface {
	Obtain(ctx context.Context) (release func(context.Context) error, err error)
}

// Option configures a Refresher.
type Option func(*Refresher)

func WithStore(store SnapshotStore) Option { return func(r *Refresher) { r.store = store } }

func WithLocker(locker Locker) Option { return func(r *Refresher) { r.locker = locker } }

func WithRunLog(runLog RunLog) Option { return func(r *Refresher) { r.runLog = runLog } }

// WithClock overrides the as-of date source.
func WithClock(now func() time.Time) Option { return func(r *Refresher) { r.now = now } }

// Refresher owns the published snapshot. It loads a possibly stale copy
// from the store on warm-up, then replaces it on every successful refresh.
// At most one refresh runs at a time; triggers that arrive meanwhile are
// folded into a single follow-up run.
type Refresher struct {
	engine *Engine
	source Fetcher
	store  SnapshotStore
	locker Locker
	runLog RunLog
	now    func() time.Time

	current atomic.Pointer[Snapshot]
	guard   *semaphore.Weighted
	pending atomic.Bool

	mu      sync.Mutex
	metrics RefreshMetrics

	trigger chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// beforeRelease runs just before the guard is released; tests only.
	beforeRelease func()
}

// NewRefresher creates a refresher over engine and source.
func NewRefresher(engine *Engine, source Fetcher, opts ...Option) *Refresher {
	r := &Refresher{
		engine:  engine,
		source:  source,
		now:     time.Now,
		guard:   semaphore.NewWeighted(1),
		trigger: make(chan struct{}, 1),
		metrics: RefreshMetrics{Status: StatusPending},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Current returns the published snapshot, nil before the first one.
func (r *Refresher) Current() *Snapshot {
	return r.current.Load()
}

// Engine returns the engine the refresher recomputes with.
func (r *Refresher) Engine() *Engine {
	return r.engine
}

// Metrics returns a copy of the refresh counters.
func (r *Refresher) Metrics() RefreshMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

// Warm publishes the stored snapshot, marked stale, when nothing has been
// published yet.
func (r *Refresher) Warm(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	snap, err := r.store.GetSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("warm snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}
	r.engine.observe(snap.Seq)
	if r.current.CompareAndSwap(nil, snap.MarkStale(nil)) {
		log.Info().Uint64("seq", snap.Seq).Time("as_of", snap.AsOf).Msg("Warmed planning snapshot from cache")
	}
	return nil
}

// Refresh fetches, recomputes and publishes. It returns
// domain.ErrRefreshInProgress without waiting when a cycle is already
// running; that cycle then runs once more before returning.
func (r *Refresher) Refresh(ctx context.Context) error {
	if !r.guard.TryAcquire(1) {
		r.pending.Store(true)
		r.mu.Lock()
		r.metrics.Coalesced++
		r.mu.Unlock()
		return domain.ErrRefreshInProgress
	}

	for {
		err := r.runOnce(ctx)
		if ctx.Err() == nil && r.pending.CompareAndSwap(true, false) {
			log.Debug().Msg("Running coalesced refresh")
			continue
		}
		if r.beforeRelease != nil {
			r.beforeRelease()
		}
		r.guard.Release(1)

		// A trigger may have landed between the check and the release.
		if ctx.Err() != nil || !r.pending.Load() || !r.guard.TryAcquire(1) {
			return err
		}
		if !r.pending.CompareAndSwap(true, false) {
			r.guard.Release(1)
			return err
		}
		log.Debug().Msg("Running coalesced refresh")
	}
}

func (r *Refresher) runOnce(ctx context.Context) error {
	start := time.Now()
	r.setStatus(StatusProcessing)

	if r.locker != nil {
		release, err := r.locker.Obtain(ctx)
		if err != nil {
			r.setStatus(StatusCompleted)
			if errors.Is(err, domain.ErrRefreshInProgress) {
				log.Info().Msg("Refresh running in another process, skipping")
				return err
			}
			return r.fail(start, fmt.Errorf("obtain refresh lock: %w", err))
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Failed to release refresh lock")
			}
		}()
	}

	ds, err := r.source.Load(ctx)
	if err != nil {
		return r.fail(start, err)
	}

	snap := r.engine.Recompute(ds, r.now(), r.Current())
	if !r.publish(snap) {
		log.Warn().Uint64("seq", snap.Seq).Msg("Discarded superseded snapshot")
	}

	if r.store != nil {
		if err := r.store.SetSnapshot(ctx, snap); err != nil {
			log.Warn().Err(err).Msg("Failed to store planning snapshot")
		}
	}

	r.record(ctx, start, snap, nil)

	r.mu.Lock()
	r.metrics.Status = StatusCompleted
	r.metrics.Runs++
	r.metrics.LastDuration = time.Since(start)
	r.metrics.LastRefreshedAt = time.Now()
	r.metrics.LastError = ""
	r.mu.Unlock()
	return nil
}

// fail keeps the last snapshot, marks it stale and records the failure.
func (r *Refresher) fail(start time.Time, cause error) error {
	log.Error().Err(cause).Msg("Planning refresh failed")
	r.record(context.Background(), start, nil, cause)

	if prev := r.Current(); prev != nil {
		r.publish(prev.MarkStale(&domain.Warning{
			Code:    domain.WarnRefreshFailure,
			Message: cause.Error(),
		}))
	}

	r.mu.Lock()
	r.metrics.Status = StatusFailed
	r.metrics.Runs++
	r.metrics.Failures++
	r.metrics.LastDuration = time.Since(start)
	r.metrics.LastError = cause.Error()
	r.mu.Unlock()

	return fmt.Errorf("%w: %w", domain.ErrRefreshFailure, cause)
}

// record appends the cycle to the run log, if any.
func (r *Refresher) record(ctx context.Context, start time.Time, snap *Snapshot, cause error) {
	if r.runLog == nil {
		return
	}
	done := time.Now()
	run := &RunRecord{Status: StatusCompleted, StartedAt: start, CompletedAt: &done}
	if snap != nil {
		asOf := snap.AsOf
		run.Seq = int64(snap.Seq)
		run.AsOf = &asOf
		run.Items = len(snap.Plans)
		run.Faults = len(snap.Faults)
	}
	if cause != nil {
		run.Status = StatusFailed
		run.ErrorMessage = cause.Error()
	}
	if err := r.runLog.CreateRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("Failed to record refresh run")
	}
}

// History lists recent refresh cycles, newest first. It is empty when the
// run log cannot be queried.
func (r *Refresher) History(ctx context.Context, limit int) ([]RunRecord, error) {
	h, ok := r.runLog.(RunHistory)
	if !ok {
		return []RunRecord{}, nil
	}
	runs, err := h.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list refresh runs: %w", err)
	}
	return runs, nil
}

// publish swaps in snap unless a newer snapshot is already published.
func (r *Refresher) publish(snap *Snapshot) bool {
	for {
		cur := r.current.Load()
		if cur != nil && cur.Seq > snap.Seq {
			return false
		}
		if r.current.CompareAndSwap(cur, snap) {
			return true
		}
	}
}

func (r *Refresher) setStatus(s RefreshStatus) {
	r.mu.Lock()
	r.metrics.Status = s
	r.mu.Unlock()
}

// Trigger requests a refresh from the background loop without blocking.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Start runs the refresh loop until Stop or ctx is done. It refreshes once
// immediately, then on every interval tick and Trigger call.
func (r *Refresher) Start(ctx context.Context, interval time.Duration) {
	r.stopCh = make(chan struct{})
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		var tick <-chan time.Time
		if interval > 0 {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		r.refreshLogged(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			case <-tick:
				r.refreshLogged(ctx)
			case <-r.trigger:
				r.refreshLogged(ctx)
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("Planning refresher started")
}

// Stop ends the refresh loop and waits for it to exit.
func (r *Refresher) Stop() {
	if r.stopCh == nil {
		return
	}
	close(r.stopCh)
	r.wg.Wait()
	r.stopCh = nil
	log.Info().Msg("Planning refresher stopped")
}

func (r *Refresher) refreshLogged(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrRefreshInProgress) {
		log.Warn().Err(err).Msg("Scheduled refresh failed")
	}
}
