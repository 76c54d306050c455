package xhab

import "sync/atomic"

// busMetrics uses lock-free atomics: counters are bumped on the publish and
// dispatch hot paths and sampled by an external status reporter.
type busMetrics struct {
	published  atomic.Uint64 // messages accepted by Publish (inbound)
	processed  atomic.Uint64 // dispatch iterations completed (outbound)
	loopFaults atomic.Uint64 // recovered dispatch-loop failures
	dispatchNs atomic.Int64  // EMA of per-message dispatch time
}

// Metrics is a point-in-time snapshot of the bus counters and gauges.
type Metrics struct {
	// Published counts messages accepted by Publish. Monotonic.
	Published uint64
	// Processed counts completed dispatch iterations, one per message
	// regardless of how many callbacks it fanned out to. Monotonic.
	Processed uint64
	// CallbacksInvoked counts callback invocations started. Monotonic.
	CallbacksInvoked uint64
	// CallbackPanics counts recovered subscriber panics. Monotonic.
	CallbackPanics uint64
	// LoopFaults counts recovered dispatch-loop failures. Monotonic.
	LoopFaults uint64
	// QueueDepth is the current number of queued messages.
	QueueDepth int
	// PoolDepth is the current number of pending callback invocations.
	PoolDepth int
	// Subscribers is the current number of live subscriptions.
	Subscribers int
	// AvgDispatchMs is an exponential moving average of per-message dispatch
	// time (history append + snapshot + matching + pool hand-off).
	AvgDispatchMs float64
}

// recordDispatchTime folds one sample into the moving average.
func (m *busMetrics) recordDispatchTime(ns int64) {
	const alpha = 0.2 // 20% weight to the new sample
	current := m.dispatchNs.Load()
	if current == 0 {
		m.dispatchNs.Store(ns)
		return
	}
	m.dispatchNs.Store(int64(float64(ns)*alpha + float64(current)*(1-alpha)))
}
