//go:build !linux

package gpio

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// NewRealSource returns ErrUnsupported on non-Linux platforms.
func NewRealSource(chipName string) (*RealSource, error) {
	return nil, ErrUnsupported
}

// Watch is not implemented on non-Linux platforms.
func (r *RealSource) Watch(in Input, fn func()) error {
	return ErrUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealSource) Close() error {
	return nil
}
