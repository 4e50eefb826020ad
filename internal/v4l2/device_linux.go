//go:build linux

package v4l2

import (
	"bytes"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// device issues V4L2 control ioctls over an open file descriptor.
type device struct {
	mu   sync.Mutex
	fd   int
	open bool
	path string
}

// Open opens the V4L2 device node at path for control access.
func Open(path string) (Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &device{fd: fd, open: true, path: path}, nil
}

// QueryControl reads the control's range, default value and flags.
func (d *device) QueryControl(c Control) (ControlInfo, error) {
	if !c.Valid() {
		return ControlInfo{}, ErrUnknownControl
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ControlInfo{}, ErrClosed
	}

	q := queryCtrl{ID: c.CID()}
	if err := ioctl(d.fd, reqQueryCtrl, unsafe.Pointer(&q)); err != nil {
		return ControlInfo{}, fmt.Errorf("query %s: %w", c, err)
	}
	if q.Flags&flagDisabled != 0 {
		return ControlInfo{}, fmt.Errorf("query %s: %w", c, ErrControlUnavailable)
	}

	return ControlInfo{
		Min:     q.Minimum,
		Max:     q.Maximum,
		Step:    q.Step,
		Default: q.DefaultValue,
		Flags:   q.Flags,
		Name:    driverString(q.Name[:]),
	}, nil
}

// GetControl reads the control's current value.
func (d *device) GetControl(c Control) (int32, error) {
	if !c.Valid() {
		return 0, ErrUnknownControl
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return 0, ErrClosed
	}

	ctl := controlValue{ID: c.CID()}
	if err := ioctl(d.fd, reqGetCtrl, unsafe.Pointer(&ctl)); err != nil {
		return 0, fmt.Errorf("get %s: %w", c, err)
	}
	return ctl.Value, nil
}

// SetControl writes a value to the device. Out-of-range values are the
// device's to reject; the rejection is returned, never clamped away.
func (d *device) SetControl(c Control, value int32) error {
	if !c.Valid() {
		return ErrUnknownControl
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrClosed
	}

	ctl := controlValue{ID: c.CID(), Value: value}
	if err := ioctl(d.fd, reqSetCtrl, unsafe.Pointer(&ctl)); err != nil {
		return fmt.Errorf("set %s to %d: %w", c, value, err)
	}
	return nil
}

// Close releases the file descriptor. Calling Close on an already closed
// device is a no-op.
func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil
	}
	d.open = false
	return unix.Close(d.fd)
}

// ioctl issues one bounded control syscall.
func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// driverString trims a NUL-padded name reported by the driver.
func driverString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
