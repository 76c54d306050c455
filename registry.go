package xhab

import "sync"

// subRegistry is the concurrent store of active subscriptions keyed by uid.
//
// All mutations and the dispatch-time snapshot are mutually exclusive via a
// short-held lock. The lock is never held while a callback executes, so a
// callback may reentrantly call Subscribe/Unsubscribe/Publish without
// deadlocking.
type subRegistry struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

func newSubRegistry() *subRegistry {
	return &subRegistry{subs: make(map[string]*Subscription)}
}

// upsert inserts or replaces the subscription stored under sub.UID.
func (r *subRegistry) upsert(sub *Subscription) {
	r.mu.Lock()
	r.subs[sub.UID] = sub
	r.mu.Unlock()
}

// remove deletes the subscription for uid. Unknown uids are a no-op.
func (r *subRegistry) remove(uid string) {
	r.mu.Lock()
	delete(r.subs, uid)
	r.mu.Unlock()
}

// snapshot returns a point-in-time copy of the subscription set. Dispatch
// iterates the copy so registry mutation never races fan-out.
func (r *subRegistry) snapshot() []*Subscription {
	r.mu.Lock()
	out := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	r.mu.Unlock()
	return out
}

// infos returns the introspection view of the subscription set.
func (r *subRegistry) infos() []SubscriberInfo {
	r.mu.Lock()
	out := make([]SubscriberInfo, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, SubscriberInfo{UID: s.UID, Filter: s.Filter})
	}
	r.mu.Unlock()
	return out
}

func (r *subRegistry) count() int {
	r.mu.Lock()
	n := len(r.subs)
	r.mu.Unlock()
	return n
}
