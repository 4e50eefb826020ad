// Package v4l2 provides device control access over the V4L2 ioctl protocol.
package v4l2

import "errors"

// Control identifies a hardware acquisition control on the capture device.
// The set is closed: controls a device exposes beyond these are ignored.
type Control int

// The full set of controls this system manages.
const (
	Brightness Control = iota
	Contrast
	Saturation
	Hue
	WhiteBalanceAuto
	Gamma
	PowerLineFrequency
	Sharpness
	BacklightCompensation
	ExposureMode
)

// PowerLineFrequency menu values.
const (
	PowerLineDisabled int32 = 0
	PowerLine50Hz     int32 = 1
	PowerLine60Hz     int32 = 2
)

// ExposureMode menu values.
const (
	ExposureAuto             int32 = 0
	ExposureManual           int32 = 1
	ExposureShutterPriority  int32 = 2
	ExposureAperturePriority int32 = 3
)

// V4L2 control ids from videodev2.h.
const (
	cidBrightness            uint32 = 0x00980900
	cidContrast              uint32 = 0x00980901
	cidSaturation            uint32 = 0x00980902
	cidHue                   uint32 = 0x00980903
	cidAutoWhiteBalance      uint32 = 0x0098090c
	cidGamma                 uint32 = 0x00980910
	cidPowerLineFrequency    uint32 = 0x00980918
	cidSharpness             uint32 = 0x0098091b
	cidBacklightCompensation uint32 = 0x0098091c
	cidExposureAuto          uint32 = 0x009a0901
)

// Control flag bits reported by VIDIOC_QUERYCTRL.
const (
	flagDisabled uint32 = 0x0001
	flagInactive uint32 = 0x0010
)

// Errors reported by the control layer.
var (
	// ErrClosed is returned when operating on a closed device.
	ErrClosed = errors.New("device is closed")
	// ErrUnknownControl is returned for controls outside the known set.
	ErrUnknownControl = errors.New("unknown control")
	// ErrControlUnavailable is returned when the device does not expose a control.
	ErrControlUnavailable = errors.New("control not available on device")
	// ErrUnsupported is returned on platforms without V4L2 support.
	ErrUnsupported = errors.New("v4l2 controls are not supported on this platform")
)

// controlSpec describes one control's naming and wire id.
type controlSpec struct {
	name    string
	display string
	cid     uint32
}

var controlSpecs = [...]controlSpec{
	Brightness:            {"Brightness", "Brightness", cidBrightness},
	Contrast:              {"Contrast", "Contrast", cidContrast},
	Saturation:            {"Saturation", "Saturation", cidSaturation},
	Hue:                   {"Hue", "Hue", cidHue},
	WhiteBalanceAuto:      {"WhiteBalanceAuto", "White Balance Auto", cidAutoWhiteBalance},
	Gamma:                 {"Gamma", "Gamma", cidGamma},
	PowerLineFrequency:    {"PowerLineFrequency", "Power Line Frequency", cidPowerLineFrequency},
	Sharpness:             {"Sharpness", "Sharpness", cidSharpness},
	BacklightCompensation: {"BacklightCompensation", "Backlight Compensation", cidBacklightCompensation},
	ExposureMode:          {"ExposureMode", "Exposure Mode", cidExposureAuto},
}

// Controls returns every known control in declaration order.
func Controls() []Control {
	out := make([]Control, len(controlSpecs))
	for i := range controlSpecs {
		out[i] = Control(i)
	}
	return out
}

// Valid reports whether c is one of the known controls.
func (c Control) Valid() bool {
	return c >= 0 && int(c) < len(controlSpecs)
}

// String returns the canonical name. It doubles as the persistence key.
func (c Control) String() string {
	if !c.Valid() {
		return "Unknown"
	}
	return controlSpecs[c].name
}

// DisplayName returns the operator-facing name.
func (c Control) DisplayName() string {
	if !c.Valid() {
		return "Unknown"
	}
	return controlSpecs[c].display
}

// CID returns the V4L2 numeric id for c.
func (c Control) CID() uint32 {
	if !c.Valid() {
		return 0
	}
	return controlSpecs[c].cid
}

// ControlByName maps a canonical name back to its Control.
func ControlByName(name string) (Control, bool) {
	for i := range controlSpecs {
		if controlSpecs[i].name == name {
			return Control(i), true
		}
	}
	return 0, false
}

// ControlInfo is the device's answer to a control query.
type ControlInfo struct {
	Min     int32
	Max     int32
	Step    int32
	Default int32
	Flags   uint32
	Name    string // name reported by the driver
}

// Inactive reports whether the device currently ignores the control.
func (i ControlInfo) Inactive() bool {
	return i.Flags&flagInactive != 0
}

// Disabled reports whether the control is permanently disabled.
func (i ControlInfo) Disabled() bool {
	return i.Flags&flagDisabled != 0
}

// Descriptor is the discovered shape of one control on an open device.
// Range fields are fixed for the lifetime of the open session; Active is
// re-evaluated whenever the control state may have changed.
type Descriptor struct {
	Control Control `json:"-"`
	Min     int32   `json:"min"`
	Max     int32   `json:"max"`
	Step    int32   `json:"step"`
	Default int32   `json:"default"`
	Active  bool    `json:"active"`
}

// ControlValues is a persisted value set, keyed by canonical control name.
type ControlValues map[string]int32
