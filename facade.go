package xhab

import (
	"fmt"
	"sync"
)

var (
	defaultBus   *Bus
	defaultBusMu sync.Mutex
)

// Default returns the process-wide default Bus, building and starting one
// with production defaults on first use.
//
// Prefer an explicitly constructed, injected Bus; the default exists for the
// same reason the hub's collaborators sometimes need a reachable instance
// without threading it through every layer.
func Default() *Bus {
	defaultBusMu.Lock()
	defer defaultBusMu.Unlock()

	if defaultBus != nil {
		return defaultBus
	}

	bus, err := NewBusBuilder().Build()
	if err != nil {
		panic(fmt.Sprintf("xhab: failed to initialize default bus: %v", err))
	}
	if err := bus.Start(); err != nil {
		panic(fmt.Sprintf("xhab: failed to start default bus: %v", err))
	}
	defaultBus = bus
	return defaultBus
}

// SetDefault replaces the process-wide default Bus.
func SetDefault(b *Bus) {
	if b == nil {
		panic("xhab: SetDefault called with nil Bus")
	}
	defaultBusMu.Lock()
	defaultBus = b
	defaultBusMu.Unlock()
}

// Publish is the Facade using the default bus.
func Publish(msg Message) error {
	return Default().Publish(msg)
}

// Subscribe is the Facade using the default bus.
func Subscribe(uid string, filter Message, cb Callback) (string, error) {
	return Default().Subscribe(uid, filter, cb)
}

// Unsubscribe is the Facade using the default bus.
func Unsubscribe(uid string) error {
	return Default().Unsubscribe(uid)
}
