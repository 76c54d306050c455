package xhab

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReporterSamplesRates(t *testing.T) {
	bus := newTestBus(t, nil)

	_, err := bus.Subscribe("", Message{}, func(Message) {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewReporter(bus, nil, nil, 10*time.Millisecond)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(Message{"seq": i}))
	}

	waitFor(t, 2*time.Second, func() bool {
		s := r.Last()
		return !s.At.IsZero() && s.Subscribers == 1
	})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop on cancel")
	}
}

func TestReporterDerivesRatesFromDeltas(t *testing.T) {
	bus := newTestBus(t, nil)
	r := NewReporter(bus, nil, nil, time.Second)

	prev := Metrics{Published: 100, Processed: 90}
	cur := Metrics{Published: 150, Processed: 140, QueueDepth: 10, Subscribers: 2}
	now := time.Now()

	r.sample(prev, cur, now.Add(-time.Second), now)

	s := r.Last()
	require.InDelta(t, 50.0, s.InboundPerSec, 0.001)
	require.InDelta(t, 50.0, s.ProcessPerSec, 0.001)
	require.Equal(t, 10, s.QueueDepth)
	require.Equal(t, 2, s.Subscribers)
}
