//go:build !linux

package v4l2

// Open reports that control access requires a V4L2 device node.
func Open(path string) (Device, error) {
	return nil, ErrUnsupported
}
