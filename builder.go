package xhab

import (
	"context"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

const (
	defaultPoolWorkers = 4
	defaultPoolBuffer  = 1024
	defaultLoopBackoff = time.Second
)

// BusBuilder constructs Bus instances (Builder pattern). The callback pool is
// an explicit, owned resource of the bus: its worker count and buffer are
// visible design parameters, not an implicit runtime service.
type BusBuilder struct {
	logger       *xlog.Logger
	clock        xclock.Clock
	poolWorkers  int
	poolBuffer   int
	historyLimit int
	loopBackoff  time.Duration
	baseCtx      context.Context
}

// NewBusBuilder returns a builder with production defaults.
func NewBusBuilder() *BusBuilder {
	return &BusBuilder{
		poolWorkers: defaultPoolWorkers,
		poolBuffer:  defaultPoolBuffer,
		loopBackoff: defaultLoopBackoff,
	}
}

// WithLogger injects a custom xlog logger.
func (bb *BusBuilder) WithLogger(l *xlog.Logger) *BusBuilder {
	bb.logger = l
	return bb
}

// WithClock injects a custom xclock clock.
func (bb *BusBuilder) WithClock(c xclock.Clock) *BusBuilder {
	bb.clock = c
	return bb
}

// WithPoolWorkers sets the number of callback pool workers.
func (bb *BusBuilder) WithPoolWorkers(n int) *BusBuilder {
	if n > 0 {
		bb.poolWorkers = n
	}
	return bb
}

// WithPoolBuffer sets the callback pool buffer size. When the buffer fills,
// dispatch blocks until a worker frees a slot; delivery is never dropped.
func (bb *BusBuilder) WithPoolBuffer(n int) *BusBuilder {
	if n > 0 {
		bb.poolBuffer = n
	}
	return bb
}

// WithHistory pre-enables the history buffer with the given cap.
func (bb *BusBuilder) WithHistory(max int) *BusBuilder {
	if max > 0 {
		bb.historyLimit = max
	}
	return bb
}

// WithLoopBackoff sets the pause after a recovered dispatch-loop fault.
func (bb *BusBuilder) WithLoopBackoff(d time.Duration) *BusBuilder {
	if d > 0 {
		bb.loopBackoff = d
	}
	return bb
}

// WithBaseContext sets the context the bus lifecycle derives from.
func (bb *BusBuilder) WithBaseContext(ctx context.Context) *BusBuilder {
	if ctx != nil {
		bb.baseCtx = ctx
	}
	return bb
}

// Build assembles the bus. The bus is not dispatching until Start is called.
func (bb *BusBuilder) Build() (*Bus, error) {
	clk := bb.clock
	if clk == nil {
		clk = xclock.Default()
	}
	lg := bb.logger
	if lg == nil {
		lg = xlog.Default()
	}
	base := bb.baseCtx
	if base == nil {
		base = context.Background()
	}

	ctx, cancel := context.WithCancel(base)

	b := &Bus{
		queue:       newMsgQueue(),
		registry:    newSubRegistry(),
		history:     &history{},
		pool:        newCallbackPool(ctx, bb.poolWorkers, bb.poolBuffer, lg),
		metrics:     &busMetrics{},
		clock:       clk,
		logger:      lg,
		loopBackoff: bb.loopBackoff,
		baseCtx:     ctx,
		cancel:      cancel,
		loopDone:    make(chan struct{}),
	}

	if bb.historyLimit > 0 {
		b.history.enable(bb.historyLimit)
	}

	return b, nil
}

// New constructs and starts a Bus via the Builder, returning a close func for
// convenience.
func New(init func(bb *BusBuilder)) (*Bus, func() error, error) {
	bb := NewBusBuilder()
	if init != nil {
		init(bb)
	}
	bus, err := bb.Build()
	if err != nil {
		return nil, nil, err
	}
	if err := bus.Start(); err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return bus.Close(context.Background()) }
	return bus, closeFn, nil
}
