package v4l2

// ioctl request codes for the user-control protocol, from videodev2.h.
// Each encodes _IOWR('V', nr, size): direction 3<<30 | size<<16 | 'V'<<8 | nr.
const (
	reqQueryCtrl uintptr = 0xc0445624 // VIDIOC_QUERYCTRL, 68-byte payload
	reqGetCtrl   uintptr = 0xc008561b // VIDIOC_G_CTRL, 8-byte payload
	reqSetCtrl   uintptr = 0xc008561c // VIDIOC_S_CTRL, 8-byte payload
)

// queryCtrl mirrors struct v4l2_queryctrl.
type queryCtrl struct {
	ID           uint32
	Type         uint32
	Name         [32]byte
	Minimum      int32
	Maximum      int32
	Step         int32
	DefaultValue int32
	Flags        uint32
	Reserved     [2]uint32
}

// controlValue mirrors struct v4l2_control.
type controlValue struct {
	ID    uint32
	Value int32
}
