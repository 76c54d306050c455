package xhab

// Subscription is the durable pairing of a filter and a callback, identified
// by a uid. A uid names at most one live subscription at any instant;
// re-subscribing with an existing uid replaces the prior entry.
type Subscription struct {
	UID      string
	Filter   Message
	Callback Callback
}

// SubscriberInfo is the introspection view of a subscription. The callback is
// never exposed outside the bus.
type SubscriberInfo struct {
	UID    string
	Filter Message
}
