// Package entity holds the hub's device registry: the lifecycle-event
// publisher sitting on the other side of the bus from gateways and
// automation scripts. Every state change is announced as a conventionally
// typed bus message so unrelated subsystems can react without referencing
// the registry directly.
package entity

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trickstertwo/xhab"
)

// Publisher is the slice of the bus the registry needs. *xhab.Bus satisfies
// it; tests substitute a recorder.
type Publisher interface {
	Publish(msg xhab.Message) error
}

// Registry is a concurrent store of devices keyed by id. Mutations publish
// lifecycle events; publishing happens outside the registry lock so a bus
// subscriber may call back into the registry.
type Registry struct {
	bus Publisher

	mu      sync.Mutex
	devices map[string]*Device
}

// NewRegistry creates a registry publishing onto bus.
func NewRegistry(bus Publisher) *Registry {
	return &Registry{bus: bus, devices: make(map[string]*Device)}
}

// Add registers a device and returns its effective id, generating one when
// the caller supplies none. Devices start enabled.
func (r *Registry) Add(d Device) string {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Settings == nil {
		d.Settings = make(map[string]any)
	}
	d.Enabled = true

	r.mu.Lock()
	r.devices[d.ID] = &d
	r.mu.Unlock()

	r.publish(EventDeviceAdded, d.ID, xhab.Message{"name": d.Name})
	return d.ID
}

// Remove deletes a device. Unknown ids return NotFoundError.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	_, ok := r.devices[id]
	if ok {
		delete(r.devices, id)
	}
	r.mu.Unlock()

	if !ok {
		return notFound("device", id)
	}
	r.publish(EventDeviceRemoved, id, nil)
	return nil
}

// Get returns a copy of the device for id.
func (r *Registry) Get(id string) (Device, error) {
	r.mu.Lock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return Device{}, notFound("device", id)
	}
	out := d.clone()
	r.mu.Unlock()
	return out, nil
}

// List returns copies of all devices.
func (r *Registry) List() []Device {
	r.mu.Lock()
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d.clone())
	}
	r.mu.Unlock()
	return out
}

// SetEnabled flips the enabled flag, publishing enabled/disabled on an actual
// transition only.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	d, ok := r.devices[id]
	changed := ok && d.Enabled != enabled
	if changed {
		d.Enabled = enabled
	}
	r.mu.Unlock()

	if !ok {
		return notFound("device", id)
	}
	if changed {
		evt := EventDeviceEnabled
		if !enabled {
			evt = EventDeviceDisabled
		}
		r.publish(evt, id, nil)
	}
	return nil
}

// AddTag attaches a tag, publishing only when the tag was new.
func (r *Registry) AddTag(id, tag string) error {
	r.mu.Lock()
	d, ok := r.devices[id]
	added := ok && !d.hasTag(tag)
	if added {
		d.Tags = append(d.Tags, tag)
	}
	r.mu.Unlock()

	if !ok {
		return notFound("device", id)
	}
	if added {
		r.publish(EventTagAdded, id, xhab.Message{"tag": tag})
	}
	return nil
}

// RemoveTag detaches a tag, publishing only when the tag was present.
func (r *Registry) RemoveTag(id, tag string) error {
	r.mu.Lock()
	d, ok := r.devices[id]
	removed := false
	if ok {
		for i, t := range d.Tags {
			if t == tag {
				d.Tags = append(d.Tags[:i], d.Tags[i+1:]...)
				removed = true
				break
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return notFound("device", id)
	}
	if removed {
		r.publish(EventTagRemoved, id, xhab.Message{"tag": tag})
	}
	return nil
}

// SetSetting stores a setting value and announces the change.
func (r *Registry) SetSetting(id, key string, value any) error {
	r.mu.Lock()
	d, ok := r.devices[id]
	if ok {
		d.Settings[key] = value
	}
	r.mu.Unlock()

	if !ok {
		return notFound("device", id)
	}
	r.publish(EventSettingChanged, id, xhab.Message{"setting": key, "value": value})
	return nil
}

// SetStatus updates the device status, publishing on transition only.
func (r *Registry) SetStatus(id, status string) error {
	r.mu.Lock()
	d, ok := r.devices[id]
	changed := ok && d.Status != status
	var prev string
	if changed {
		prev = d.Status
		d.Status = status
	}
	r.mu.Unlock()

	if !ok {
		return notFound("device", id)
	}
	if changed {
		r.publish(EventStatusChanged, id, xhab.Message{"status": status, "previous": prev})
	}
	return nil
}

// ReportProperty announces a property value observed on the device, typically
// called by a gateway translating inbound wire traffic.
func (r *Registry) ReportProperty(id, property string, value any) error {
	r.mu.Lock()
	_, ok := r.devices[id]
	r.mu.Unlock()

	if !ok {
		return notFound("device", id)
	}
	r.publish(EventPropertyReported, id, xhab.Message{"property": property, "value": value})
	return nil
}

// RequestProperty asks whoever owns the device transport to read a property.
func (r *Registry) RequestProperty(id, property string) error {
	r.mu.Lock()
	_, ok := r.devices[id]
	r.mu.Unlock()

	if !ok {
		return notFound("device", id)
	}
	r.publish(EventPropertyRequested, id, xhab.Message{"property": property})
	return nil
}

// publish assembles the conventional message shape: the event type, the
// device id, and event-specific extras.
func (r *Registry) publish(eventType, id string, extra xhab.Message) {
	msg := xhab.Message{xhab.TypeKey: eventType, "device": id}
	for k, v := range extra {
		msg[k] = v
	}
	// Best-effort: a closed bus during shutdown is not the registry's problem.
	_ = r.bus.Publish(msg)
}
