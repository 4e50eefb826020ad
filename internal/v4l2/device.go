package v4l2

import "fmt"

// Device is the raw control channel to one open capture device.
type Device interface {
	// QueryControl reads the control's range, default value and flags.
	QueryControl(c Control) (ControlInfo, error)

	// GetControl reads the control's current value.
	GetControl(c Control) (int32, error)

	// SetControl writes a value. Range enforcement is the device's job;
	// this layer passes values through untouched.
	SetControl(c Control, value int32) error

	// Close releases the underlying handle. Safe to call more than once.
	Close() error
}

// DevicePath returns the device node path for a numeric capture index.
func DevicePath(index int) string {
	return fmt.Sprintf("/dev/video%d", index)
}
