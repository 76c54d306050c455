package xhab

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xlog"
)

// callbackPool executes subscriber callbacks decoupled from the dispatch
// loop, so a slow or blocked subscriber never stalls the bus or other
// subscribers.
//
// Unlike telemetry fan-out, delivery must not silently drop work: when the
// buffer is full, submit blocks the dispatch loop instead, trading throughput
// for exactly-once hand-off.
type callbackPool struct {
	jobs     chan callbackJob
	workers  int
	logger   *xlog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closed   atomic.Bool
	invoked  atomic.Uint64
	panicked atomic.Uint64
}

type callbackJob struct {
	uid string
	cb  Callback
	msg Message
}

// newCallbackPool starts a pool with the given worker count and buffer size.
func newCallbackPool(ctx context.Context, workers, bufferSize int, logger *xlog.Logger) *callbackPool {
	if workers < 1 {
		workers = 4
	}
	if bufferSize < 1 {
		bufferSize = 1024
	}

	poolCtx, cancel := context.WithCancel(ctx)
	p := &callbackPool{
		jobs:    make(chan callbackJob, bufferSize),
		workers: workers,
		logger:  logger,
		ctx:     poolCtx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// submit hands one callback invocation to the pool. Blocks when the buffer is
// full; returns false once the pool is shutting down.
func (p *callbackPool) submit(uid string, cb Callback, msg Message) bool {
	if p.closed.Load() {
		return false
	}
	select {
	case p.jobs <- callbackJob{uid: uid, cb: cb, msg: msg}:
		return true
	case <-p.ctx.Done():
		return false
	}
}

func (p *callbackPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			// Drain what was already accepted before exiting.
			for {
				select {
				case j := <-p.jobs:
					p.invoke(j)
				default:
					return
				}
			}
		case j := <-p.jobs:
			p.invoke(j)
		}
	}
}

// invoke runs one callback with per-invocation isolation: a panic is caught
// and logged with the owning subscription's uid, with no effect on other
// subscribers or on later deliveries to the same subscriber.
func (p *callbackPool) invoke(j callbackJob) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			if p.logger != nil {
				p.logger.Warn().
					Str("uid", j.uid).
					Str("event", j.msg.Type()).
					Msg("xhab: subscriber callback panic (recovered)")
			}
		}
	}()
	p.invoked.Add(1)
	j.cb(j.msg)
}

// close shuts the pool down, waiting up to timeout for in-flight callbacks.
func (p *callbackPool) close(timeout time.Duration) error {
	if p.closed.Swap(true) {
		return nil
	}

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrPoolShutdownTimeout
	}
}

// poolStats is telemetry about the callback pool.
type poolStats struct {
	Invoked  uint64
	Panicked uint64
	Queued   int
}

func (p *callbackPool) stats() poolStats {
	return poolStats{
		Invoked:  p.invoked.Load(),
		Panicked: p.panicked.Load(),
		Queued:   len(p.jobs),
	}
}
