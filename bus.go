package xhab

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

var _ HealthChecker = (*Bus)(nil)

// Bus is the in-process publish/subscribe hub: unrelated subsystems
// (hardware gateways, the scripting engine, the HTTP layer, entity
// registries) exchange structured events through it without direct
// references to one another.
//
// Delivery is best-effort, at-most-once, in-memory, and scoped to one
// process. Messages are dispatched in strict publish order by a single
// dispatch goroutine; matched callbacks fan out to a worker pool, so
// delivery order across subscribers (and across messages for one
// subscriber) is unspecified.
type Bus struct {
	queue    *msgQueue
	registry *subRegistry
	history  *history
	pool     *callbackPool
	metrics  *busMetrics

	clock  xclock.Clock
	logger *xlog.Logger

	loopBackoff time.Duration

	baseCtx   context.Context
	cancel    context.CancelFunc
	loopDone  chan struct{}
	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

// Publish stamps the message with the current time and appends it to the
// dispatch queue, returning immediately. It never inspects subscriptions and
// never invokes a callback.
func (b *Bus) Publish(msg Message) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if msg == nil {
		return ErrNilMessage
	}

	b.metrics.published.Add(1)
	b.queue.enqueue(envelope{msg: msg, stamped: b.clock.Now()})
	return nil
}

// Subscribe registers a callback for messages matching filter and returns the
// effective uid. An empty uid gets a generated one; re-subscribing with an
// existing uid replaces the prior entry. An empty (non-nil) filter matches
// every message.
func (b *Bus) Subscribe(uid string, filter Message, cb Callback) (string, error) {
	if b.closed.Load() {
		return "", ErrBusClosed
	}
	if filter == nil {
		return "", ErrNilFilter
	}
	if cb == nil {
		return "", ErrNilCallback
	}

	if uid == "" {
		uid = uuid.NewString()
	}
	b.registry.upsert(&Subscription{UID: uid, Filter: filter, Callback: cb})
	return uid, nil
}

// Unsubscribe removes the subscription for uid. Removal is idempotent: an
// unknown uid is a no-op, not an error.
func (b *Bus) Unsubscribe(uid string) error {
	if uid == "" {
		return ErrEmptyUID
	}
	b.registry.remove(uid)
	return nil
}

// GetSubscribers returns a point-in-time list of {uid, filter} pairs.
func (b *Bus) GetSubscribers() []SubscriberInfo {
	return b.registry.infos()
}

// EnableHistory turns on history recording with the given cap, evicting
// oldest entries beyond it immediately if already enabled.
func (b *Bus) EnableHistory(max int) { b.history.enable(max) }

// DisableHistory stops recording; retained entries survive until cleared.
func (b *Bus) DisableHistory() { b.history.disable() }

// ClearHistory empties the history immediately, enabled or not.
func (b *Bus) ClearHistory() { b.history.clear() }

// GetHistory returns the retained entries in publish order, oldest first.
func (b *Bus) GetHistory() []HistoryEntry { return b.history.snapshot() }

// Start launches the single dispatch goroutine for the lifetime of the bus.
func (b *Bus) Start() error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if b.started.Swap(true) {
		return ErrBusAlreadyStarted
	}

	go b.dispatchLoop()
	return nil
}

// dispatchLoop drains the queue until the bus context is canceled. Shutdown
// aborts immediately rather than draining: queued messages are perishable
// live state, not a log worth replaying at teardown.
func (b *Bus) dispatchLoop() {
	defer close(b.loopDone)

	for {
		env, err := b.queue.dequeue(b.baseCtx)
		if err != nil {
			return
		}
		b.dispatchOne(env)
		b.metrics.processed.Add(1)
	}
}

// dispatchOne runs one dispatch iteration: record history, snapshot the
// registry, match, fan out. A failure here is not attributable to one
// subscriber (those are isolated in the pool), so it is recovered, logged,
// and followed by a short fixed backoff; the loop is self-healing and never
// fatal.
func (b *Bus) dispatchOne(env envelope) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.loopFaults.Add(1)
			b.logger.Error().
				Str("event", env.msg.Type()).
				Str("panic", fmt.Sprint(r)).
				Msg("xhab: dispatch fault (recovered), backing off")
			select {
			case <-time.After(b.loopBackoff):
			case <-b.baseCtx.Done():
			}
		}
	}()

	start := b.clock.Now()

	b.history.append(HistoryEntry{Message: env.msg, Timestamp: env.stamped})

	// Snapshot before fan-out: no lock is held during matching or callback
	// execution, and mutation never races iteration.
	for _, sub := range b.registry.snapshot() {
		if Match(env.msg, sub.Filter) {
			b.pool.submit(sub.UID, sub.Callback, env.msg)
		}
	}

	b.metrics.recordDispatchTime(b.clock.Since(start).Nanoseconds())
}

// Metrics returns a snapshot of the bus counters and gauges.
func (b *Bus) Metrics() Metrics {
	ps := b.pool.stats()
	return Metrics{
		Published:        b.metrics.published.Load(),
		Processed:        b.metrics.processed.Load(),
		CallbacksInvoked: ps.Invoked,
		CallbackPanics:   ps.Panicked,
		LoopFaults:       b.metrics.loopFaults.Load(),
		QueueDepth:       b.queue.depth(),
		PoolDepth:        ps.Queued,
		Subscribers:      b.registry.count(),
		AvgDispatchMs:    float64(b.metrics.dispatchNs.Load()) / 1e6,
	}
}

// HealthStatus indicates bus health for an external status reporter.
type HealthStatus struct {
	Status    string // "healthy", "degraded", "unhealthy"
	Metrics   Metrics
	Timestamp time.Time
	Message   string
}

// HealthChecker provides health status for production monitoring.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// Health reports bus health derived from lifecycle state and counters.
func (b *Bus) Health(_ context.Context) HealthStatus {
	now := time.Now()
	if b.closed.Load() {
		return HealthStatus{Status: "unhealthy", Timestamp: now, Message: "bus is closed"}
	}
	if !b.started.Load() {
		return HealthStatus{Status: "unhealthy", Timestamp: now, Message: "bus not started"}
	}

	m := b.Metrics()
	status := "healthy"
	if m.LoopFaults > 0 || (m.Published > 0 && m.CallbackPanics*20 > m.CallbacksInvoked) {
		status = "degraded"
	}
	return HealthStatus{Status: status, Metrics: m, Timestamp: now}
}

// Close stops the dispatch loop and shuts down the callback pool. Idempotent.
// A message being dispatched at cancellation time is abandoned; callbacks
// already handed to the pool are drained within the close timeout.
func (b *Bus) Close(ctx context.Context) error {
	var closeErr error

	b.closeOnce.Do(func() {
		b.closed.Store(true)
		b.cancel()

		if b.started.Load() {
			select {
			case <-b.loopDone:
			case <-ctx.Done():
				closeErr = ctx.Err()
			}
		}

		if err := b.pool.close(5 * time.Second); err != nil {
			b.logger.Warn().Err(err).Msg("xhab: callback pool shutdown timeout")
			closeErr = err
		}
	})

	return closeErr
}
