package service

import (
	"context"
	"log"
	"sync"
	"time"

	"barledger/backend/internal/analytics"
	"barledger/backend/internal/cache"
	"barledger/backend/internal/domain"
	"barledger/backend/internal/remote"
	"barledger/backend/internal/store"
)

// State is the Sync Coordinator's lifecycle position. Loading is re-entered
// on every force sync.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateOnline        State = "online"
	StateOffline       State = "offline"
)

// Engine owns the Record Store and is the only writer into it: user
// mutations come through the Submit* methods, remote changes through the
// push subscription it drains. Everything else reads snapshots.
type Engine struct {
	ledger  remote.Ledger
	offline cache.OfflineCache
	records *store.RecordStore

	// baseCtx bounds the push subscription. It lives as long as the
	// engine, independent of whatever context Start or ForceSync were
	// called with, so a startup deadline or a finished HTTP request can
	// never tear the stream down.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu           sync.Mutex
	state        State
	connectivity domain.Connectivity
	lastSyncedAt time.Time
	targets      domain.TargetConfig
	// generation invalidates in-flight fetches: a fetch result is applied
	// only if no newer Loading entry happened since it started.
	generation uint64

	subMu     sync.Mutex
	sub       remote.Subscription
	drainDone chan struct{}
	closed    bool

	closeOnce sync.Once
}

func New(ledger remote.Ledger, offline cache.OfflineCache) *Engine {
	e := &Engine{
		ledger:       ledger,
		offline:      offline,
		records:      store.New(),
		state:        StateUninitialized,
		connectivity: domain.ConnectivityOffline,
	}
	e.baseCtx, e.baseCancel = context.WithCancel(context.Background())
	e.records.SetOnChange(e.mirror)
	return e
}

// mirror persists every externally observable store change to the offline
// cache. Best-effort: a full cache is not a reason to bother the operator.
func (e *Engine) mirror(snapshot []domain.Sale) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.offline.SaveSales(ctx, snapshot); err != nil {
		log.Printf("[service] WARN: failed to mirror %d records to offline cache: %v", len(snapshot), err)
	}
}

// Start restores targets from the cache, runs the initial load, and
// establishes the push subscription. ctx bounds only the startup work; the
// subscription runs on the engine's own lifetime and survives any deadline
// on ctx.
func (e *Engine) Start(ctx context.Context) {
	if targets, ok, err := e.offline.LoadTargets(ctx); err != nil {
		log.Printf("[service] WARN: failed to load cached targets: %v", err)
	} else if ok {
		e.mu.Lock()
		e.targets = targets
		e.mu.Unlock()
	}

	e.load(ctx)
	e.ensureSubscription()
}

// ForceSync re-runs the Loading step and re-establishes the push
// subscription when the previous one is gone. Useful to climb back out of
// offline mode or to reconcile local-only records against the remote truth.
func (e *Engine) ForceSync(ctx context.Context) {
	e.load(ctx)
	e.ensureSubscription()
}

func (e *Engine) load(ctx context.Context) {
	e.mu.Lock()
	e.state = StateLoading
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	fetched, err := e.ledger.FetchAll(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		log.Printf("[service] discarding stale fetch result (superseded by a newer sync)")
		return
	}

	if err == nil {
		e.records.ReplaceAll(fetched)
		e.state = StateOnline
		e.connectivity = domain.ConnectivityOnline
		e.lastSyncedAt = time.Now().UTC()
		syncsTotal.WithLabelValues(syncOutcomeSuccess).Inc()
		log.Printf("[service] synced %d records from remote ledger", len(fetched))
		return
	}

	log.Printf("[service] remote fetch failed (%v), falling back to offline cache", err)
	cached, ok, cacheErr := e.offline.LoadSales(ctx)
	if cacheErr != nil {
		log.Printf("[service] WARN: offline cache read failed: %v", cacheErr)
	}
	if !ok {
		cached = nil
	}
	e.records.ReplaceAll(cached)
	e.state = StateOffline
	e.connectivity = domain.ConnectivityOffline
	syncsTotal.WithLabelValues(syncOutcomeFallback).Inc()
}

// ensureSubscription opens the push stream when none is live. A stream
// whose drain loop has exited is dead and gets replaced; a live one is
// kept, so at most one subscription exists at a time.
func (e *Engine) ensureSubscription() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.closed {
		return
	}
	if e.sub != nil {
		select {
		case <-e.drainDone:
			log.Printf("[service] push subscription died, re-establishing")
		default:
			return
		}
	}

	sub, err := e.ledger.Subscribe(e.baseCtx)
	if err != nil {
		// Connectivity keeps whatever the load decided; a missing stream
		// is recovered by the next force sync, not by flipping offline.
		log.Printf("[service] WARN: push subscription unavailable: %v", err)
		return
	}

	done := make(chan struct{})
	e.sub = sub
	e.drainDone = done
	go e.drain(sub, done)
}

// drain applies push events one at a time, in arrival order. It exits when
// the subscription closes its event channel.
func (e *Engine) drain(sub remote.Subscription, done chan struct{}) {
	defer close(done)
	events, errs := sub.Events(), sub.Errors()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.applyEvent(ev)
		case err := <-errs:
			// Stream problems are logged only; the current mode stands
			// until a fetch or mutation proves otherwise.
			log.Printf("[service] WARN: push subscription error: %v", err)
		}
	}
}

func (e *Engine) applyEvent(ev remote.ChangeEvent) {
	switch ev.Type {
	case remote.EventInsert, remote.EventUpdate:
		if ev.New == nil {
			log.Printf("[service] WARN: %s event without a new record, skipping", ev.Type)
			return
		}
		e.records.Upsert(*ev.New)
	case remote.EventDelete:
		if ev.Old == nil {
			log.Printf("[service] WARN: DELETE event without an old record, skipping")
			return
		}
		e.records.RemoveByID(ev.Old.ID)
	default:
		log.Printf("[service] WARN: unknown event type %q, skipping", ev.Type)
	}
}

// Close tears the session down. Safe to call more than once; the push
// subscription is cancelled exactly once and drained before returning, and
// no new subscription can be established afterwards.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.subMu.Lock()
		e.closed = true
		sub, done := e.sub, e.drainDone
		e.subMu.Unlock()

		e.baseCancel()
		if sub == nil {
			return
		}
		sub.Cancel()
		<-done
	})
}

// Snapshot returns the current records, newest first.
func (e *Engine) Snapshot() []domain.Sale {
	return e.records.Snapshot()
}

// Report recomputes all analytics for the current snapshot.
func (e *Engine) Report(now time.Time) domain.Report {
	e.mu.Lock()
	targets := e.targets
	e.mu.Unlock()
	return analytics.Compute(e.records.Snapshot(), targets, now)
}

func (e *Engine) Connectivity() domain.Connectivity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connectivity
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) LastSyncedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSyncedAt
}

func (e *Engine) Targets() domain.TargetConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.targets
}

// SetTargets stores the new configuration and mirrors it to the offline
// cache, best-effort.
func (e *Engine) SetTargets(ctx context.Context, targets domain.TargetConfig) {
	e.mu.Lock()
	e.targets = targets
	e.mu.Unlock()

	if err := e.offline.SaveTargets(ctx, targets); err != nil {
		log.Printf("[service] WARN: failed to mirror targets to offline cache: %v", err)
	}
}
