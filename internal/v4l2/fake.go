package v4l2

import (
	"fmt"
	"sync"
)

// FakeDevice is an in-memory Device implementation for tests. It validates
// writes against configured ranges, and lets tests remove controls, flip
// inactive flags and inject query/get/set failures.
type FakeDevice struct {
	mu        sync.Mutex
	infos     map[Control]ControlInfo
	values    map[Control]int32
	failQuery map[Control]bool
	failGet   map[Control]bool
	failSet   map[Control]bool
	closed    bool
}

// NewFakeDevice returns a FakeDevice exposing every known control with a
// typical webcam range, each set to its default value.
func NewFakeDevice() *FakeDevice {
	f := &FakeDevice{
		infos:     make(map[Control]ControlInfo),
		values:    make(map[Control]int32),
		failQuery: make(map[Control]bool),
		failGet:   make(map[Control]bool),
		failSet:   make(map[Control]bool),
	}

	ranges := map[Control]ControlInfo{
		Brightness:            {Min: -64, Max: 64, Step: 1, Default: 0},
		Contrast:              {Min: 0, Max: 95, Step: 1, Default: 32},
		Saturation:            {Min: 0, Max: 100, Step: 1, Default: 55},
		Hue:                   {Min: -2000, Max: 2000, Step: 100, Default: 0},
		WhiteBalanceAuto:      {Min: 0, Max: 1, Step: 1, Default: 1},
		Gamma:                 {Min: 64, Max: 300, Step: 1, Default: 100},
		PowerLineFrequency:    {Min: 0, Max: 2, Step: 1, Default: PowerLine50Hz},
		Sharpness:             {Min: 0, Max: 7, Step: 1, Default: 2},
		BacklightCompensation: {Min: 0, Max: 1, Step: 1, Default: 0},
		ExposureMode:          {Min: 0, Max: 3, Step: 1, Default: ExposureAperturePriority},
	}
	for c, info := range ranges {
		info.Name = c.DisplayName()
		f.infos[c] = info
		f.values[c] = info.Default
	}

	return f
}

// Remove drops a control, simulating hardware that does not expose it.
func (f *FakeDevice) Remove(c Control) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.infos, c)
	delete(f.values, c)
}

// SetInactive flips the inactive flag reported for a control.
func (f *FakeDevice) SetInactive(c Control, inactive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, ok := f.infos[c]
	if !ok {
		return
	}
	if inactive {
		info.Flags |= flagInactive
	} else {
		info.Flags &^= flagInactive
	}
	f.infos[c] = info
}

// FailQuery makes QueryControl fail for the control.
func (f *FakeDevice) FailQuery(c Control, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failQuery[c] = fail
}

// FailGet makes GetControl fail for the control.
func (f *FakeDevice) FailGet(c Control, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet[c] = fail
}

// FailSet makes SetControl fail for the control.
func (f *FakeDevice) FailSet(c Control, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet[c] = fail
}

// StoredValue returns the value held by the fake hardware, bypassing the
// Device error paths.
func (f *FakeDevice) StoredValue(c Control) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[c]
}

// SetStoredValue seeds a hardware value without going through SetControl.
func (f *FakeDevice) SetStoredValue(c Control, value int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[c] = value
}

// QueryControl implements Device.
func (f *FakeDevice) QueryControl(c Control) (ControlInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ControlInfo{}, ErrClosed
	}
	if f.failQuery[c] {
		return ControlInfo{}, fmt.Errorf("query %s: injected failure", c)
	}
	info, ok := f.infos[c]
	if !ok {
		return ControlInfo{}, fmt.Errorf("query %s: %w", c, ErrControlUnavailable)
	}
	return info, nil
}

// GetControl implements Device.
func (f *FakeDevice) GetControl(c Control) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosed
	}
	if f.failGet[c] {
		return 0, fmt.Errorf("get %s: injected failure", c)
	}
	v, ok := f.values[c]
	if !ok {
		return 0, fmt.Errorf("get %s: %w", c, ErrControlUnavailable)
	}
	return v, nil
}

// SetControl implements Device. Values outside the configured range are
// rejected the way real hardware rejects them.
func (f *FakeDevice) SetControl(c Control, value int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if f.failSet[c] {
		return fmt.Errorf("set %s: injected failure", c)
	}
	info, ok := f.infos[c]
	if !ok {
		return fmt.Errorf("set %s: %w", c, ErrControlUnavailable)
	}
	if value < info.Min || value > info.Max {
		return fmt.Errorf("set %s: value %d out of range [%d, %d]", c, value, info.Min, info.Max)
	}
	f.values[c] = value
	return nil
}

// Close implements Device.
func (f *FakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
