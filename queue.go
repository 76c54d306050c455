package xhab

import (
	"context"
	"sync"
)

// msgQueue is the ordered hand-off buffer between arbitrary publisher
// goroutines and the single dispatch goroutine.
//
// Enqueue is a pure append and never blocks, which is why this is a grown
// slice under a mutex rather than a bounded channel: publishers must not
// suspend on a full buffer. The single consumer suspends on the wake channel
// while the queue is empty and is released by either a new enqueue or context
// cancellation.
type msgQueue struct {
	mu    sync.Mutex
	head  int
	items []envelope
	wake  chan struct{}
}

func newMsgQueue() *msgQueue {
	return &msgQueue{wake: make(chan struct{}, 1)}
}

// enqueue appends env at the tail and signals the consumer.
func (q *msgQueue) enqueue(env envelope) {
	q.mu.Lock()
	q.items = append(q.items, env)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
		// Consumer already has a pending wake; it will drain everything.
	}
}

// dequeue pops the oldest envelope, blocking while the queue is empty. It
// returns ctx.Err() once ctx is canceled, without consuming a message that
// arrived concurrently with cancellation.
func (q *msgQueue) dequeue(ctx context.Context) (envelope, error) {
	for {
		if err := ctx.Err(); err != nil {
			return envelope{}, err
		}

		q.mu.Lock()
		if q.head < len(q.items) {
			env := q.items[q.head]
			q.items[q.head] = envelope{}
			q.head++
			// Reclaim the consumed prefix once it dominates the backing
			// array, keeping pop amortized O(1).
			if q.head > 64 && q.head*2 >= len(q.items) {
				q.items = append(q.items[:0], q.items[q.head:]...)
				q.head = 0
			}
			q.mu.Unlock()
			return env, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return envelope{}, ctx.Err()
		case <-q.wake:
		}
	}
}

// depth reports the number of queued messages.
func (q *msgQueue) depth() int {
	q.mu.Lock()
	n := len(q.items) - q.head
	q.mu.Unlock()
	return n
}
