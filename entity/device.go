package entity

// Event types published by the device registry. All follow the hub-wide
// "<domain>.event.<name>" convention; subscribers filter on the "type" key.
const (
	EventDeviceAdded       = "device.event.added"
	EventDeviceRemoved     = "device.event.removed"
	EventDeviceEnabled     = "device.event.enabled"
	EventDeviceDisabled    = "device.event.disabled"
	EventTagAdded          = "device.event.tag_added"
	EventTagRemoved        = "device.event.tag_removed"
	EventSettingChanged    = "device.event.setting_changed"
	EventStatusChanged     = "device.event.status_changed"
	EventPropertyReported  = "device.event.property_reported"
	EventPropertyRequested = "device.event.property_requested"
)

// Device is one registered hardware endpoint behind a gateway.
type Device struct {
	ID       string
	Name     string
	Enabled  bool
	Status   string
	Tags     []string
	Settings map[string]any
}

// clone returns an independent copy so registry internals never leak through
// Get while a mutation is in flight.
func (d *Device) clone() Device {
	out := *d
	out.Tags = append([]string(nil), d.Tags...)
	out.Settings = make(map[string]any, len(d.Settings))
	for k, v := range d.Settings {
		out.Settings[k] = v
	}
	return out
}

func (d *Device) hasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
