package xhab

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryUpsertReplaces(t *testing.T) {
	r := newSubRegistry()
	first := func(Message) {}
	second := func(Message) {}

	r.upsert(&Subscription{UID: "a", Filter: Message{}, Callback: first})
	r.upsert(&Subscription{UID: "a", Filter: Message{"type": "x"}, Callback: second})

	if r.count() != 1 {
		t.Fatalf("expected 1 subscription, got %d", r.count())
	}
	snap := r.snapshot()
	if snap[0].Filter.Type() != "x" {
		t.Fatalf("replacement did not take: %v", snap[0].Filter)
	}
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	r := newSubRegistry()
	r.upsert(&Subscription{UID: "a", Filter: Message{}})

	r.remove("a")
	r.remove("a")
	r.remove("never-existed")

	if r.count() != 0 {
		t.Fatalf("expected empty registry, got %d", r.count())
	}
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	r := newSubRegistry()
	r.upsert(&Subscription{UID: "a", Filter: Message{}})

	snap := r.snapshot()
	r.remove("a")

	if len(snap) != 1 {
		t.Fatal("snapshot should be unaffected by later mutation")
	}
}

func TestRegistryInfosHideCallbacks(t *testing.T) {
	r := newSubRegistry()
	r.upsert(&Subscription{UID: "a", Filter: Message{"type": "x"}, Callback: func(Message) {}})

	infos := r.infos()
	if len(infos) != 1 || infos[0].UID != "a" || infos[0].Filter.Type() != "x" {
		t.Fatalf("unexpected infos: %+v", infos)
	}
}

func TestRegistryConcurrentMutation(t *testing.T) {
	r := newSubRegistry()
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.upsert(&Subscription{UID: fmt.Sprintf("sub-%d", i), Filter: Message{}})
		}(i)
	}
	// Snapshots race the writers without corruption.
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.snapshot()
		}()
	}
	wg.Wait()

	if r.count() != n {
		t.Fatalf("expected %d subscriptions, got %d", n, r.count())
	}
}
