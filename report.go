package xhab

import (
	"context"
	"sync"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// RateSample is one per-second observation of the bus counters, with derived
// inbound and processing rates.
type RateSample struct {
	At             time.Time
	InboundPerSec  float64
	ProcessPerSec  float64
	QueueDepth     int
	Subscribers    int
	CallbackPanics uint64
}

// Reporter samples the bus counters once per interval and derives rates for
// the hub's status surface. It only reads; the bus updates the counters as a
// side effect of Publish and of each dispatch iteration.
type Reporter struct {
	bus      *Bus
	logger   *xlog.Logger
	clock    xclock.Clock
	interval time.Duration

	mu   sync.Mutex
	last RateSample
}

// NewReporter creates a reporter over bus. A non-positive interval defaults
// to one second.
func NewReporter(bus *Bus, logger *xlog.Logger, clock xclock.Clock, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = time.Second
	}
	if clock == nil {
		clock = xclock.Default()
	}
	if logger == nil {
		logger = xlog.Default()
	}
	return &Reporter{bus: bus, logger: logger, clock: clock, interval: interval}
}

// Run samples until ctx is canceled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	prev := r.bus.Metrics()
	prevAt := r.clock.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := r.bus.Metrics()
			now := r.clock.Now()
			r.sample(prev, cur, prevAt, now)
			prev = cur
			prevAt = now
		}
	}
}

func (r *Reporter) sample(prev, cur Metrics, prevAt, now time.Time) {
	elapsed := now.Sub(prevAt).Seconds()
	if elapsed <= 0 {
		return
	}

	s := RateSample{
		At:             now,
		InboundPerSec:  float64(cur.Published-prev.Published) / elapsed,
		ProcessPerSec:  float64(cur.Processed-prev.Processed) / elapsed,
		QueueDepth:     cur.QueueDepth,
		Subscribers:    cur.Subscribers,
		CallbackPanics: cur.CallbackPanics,
	}

	r.mu.Lock()
	r.last = s
	r.mu.Unlock()

	r.logger.Debug().
		Float64("in_per_sec", s.InboundPerSec).
		Float64("proc_per_sec", s.ProcessPerSec).
		Float64("queue_depth", float64(s.QueueDepth)).
		Float64("subscribers", float64(s.Subscribers)).
		Msg("xhab: status sample")
}

// Last returns the most recent sample.
func (r *Reporter) Last() RateSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
