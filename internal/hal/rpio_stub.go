//go:build !linux

package hal

// NewRPIO returns a Mock so that non-Linux builds satisfy the same
// construction call as the real backend; this daemon's real GPIO backend
// is Linux/go-rpio-only (rpio_linux.go), the same way the teacher's own
// HAL init falls back to a mock off its target architecture.
func NewRPIO() (*Mock, error) {
	return NewMock(), nil
}
