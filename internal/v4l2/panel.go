package v4l2

import (
	"fmt"
	"log"
	"sync"
)

// Panel tracks the control state of one open device: the ranges discovered
// at open time, the last value written or read per control, and which
// controls the device currently honors.
type Panel struct {
	dev         Device
	mu          sync.Mutex
	descriptors map[Control]*Descriptor
	values      map[Control]int32
}

// NewPanel queries every known control on dev to discover its range, then
// reads the current hardware value back so the starting state matches the
// device rather than assumed defaults. Controls the device does not expose
// are simply absent from the panel.
func NewPanel(dev Device) *Panel {
	p := &Panel{
		dev:         dev,
		descriptors: make(map[Control]*Descriptor),
		values:      make(map[Control]int32),
	}

	for _, c := range Controls() {
		info, err := dev.QueryControl(c)
		if err != nil {
			continue
		}
		p.descriptors[c] = &Descriptor{
			Control: c,
			Min:     info.Min,
			Max:     info.Max,
			Step:    info.Step,
			Default: info.Default,
			Active:  !info.Inactive(),
		}

		value, err := dev.GetControl(c)
		if err != nil {
			value = info.Default
		}
		p.values[c] = value
	}

	return p
}

// Available reports whether the device exposed the control at open time.
func (p *Panel) Available(c Control) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.descriptors[c]
	return ok
}

// Range returns the discovered descriptor for c without touching the device.
func (p *Panel) Range(c Control) (Descriptor, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.descriptors[c]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// Descriptors returns every available control's descriptor in declaration
// order, with the active flag re-read from the device.
func (p *Panel) Descriptors() []Descriptor {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refreshActiveLocked()

	out := make([]Descriptor, 0, len(p.descriptors))
	for _, c := range Controls() {
		if d, ok := p.descriptors[c]; ok {
			out = append(out, *d)
		}
	}
	return out
}

// Set writes value to the device without client-side range checks; the
// device decides whether the value is acceptable and a rejection leaves the
// cached value untouched. A successful write of the exposure mode
// re-evaluates every control's active state, since the mode changes which
// controls the device honors.
func (p *Panel) Set(c Control, value int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.descriptors[c]; !ok {
		return fmt.Errorf("%s: %w", c, ErrControlUnavailable)
	}
	if err := p.dev.SetControl(c, value); err != nil {
		return err
	}
	p.values[c] = value

	if c == ExposureMode {
		p.refreshActiveLocked()
	}
	return nil
}

// Value reads the control's current hardware value.
func (p *Panel) Value(c Control) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.descriptors[c]; !ok {
		return 0, fmt.Errorf("%s: %w", c, ErrControlUnavailable)
	}
	v, err := p.dev.GetControl(c)
	if err != nil {
		return 0, err
	}
	p.values[c] = v
	return v, nil
}

// Active reports whether the device currently honors the control. The flag
// is re-read on every call; a failed query counts as inactive, never as
// the previous state.
func (p *Panel) Active(c Control) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeLocked(c)
}

// RefreshActive re-reads the active flag of every available control.
func (p *Panel) RefreshActive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshActiveLocked()
}

func (p *Panel) activeLocked(c Control) bool {
	d, ok := p.descriptors[c]
	if !ok {
		return false
	}

	info, err := p.dev.QueryControl(c)
	if err != nil {
		d.Active = false
		return false
	}
	d.Active = !info.Inactive()
	return d.Active
}

func (p *Panel) refreshActiveLocked() {
	for _, c := range Controls() {
		if _, ok := p.descriptors[c]; ok {
			p.activeLocked(c)
		}
	}
}

// Values snapshots the current value of every available control, keyed by
// canonical name, for persistence. Values are re-read from the device so
// hardware-side drift (auto modes adjusting settings) is captured; a failed
// read falls back to the last value seen.
func (p *Panel) Values() ControlValues {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(ControlValues, len(p.values))
	for c := range p.descriptors {
		if v, err := p.dev.GetControl(c); err == nil {
			p.values[c] = v
		}
		out[c.String()] = p.values[c]
	}
	return out
}

// Apply writes a persisted value set to the device, best effort. Names
// outside the known set are ignored; device rejections are logged and
// skipped so one bad entry never blocks the rest.
func (p *Panel) Apply(values ControlValues) {
	for _, c := range Controls() {
		v, ok := values[c.String()]
		if !ok {
			continue
		}
		if err := p.Set(c, v); err != nil {
			log.Printf("Skipping persisted %s=%d: %v", c, v, err)
		}
	}
}
