package hal

import "sync"

// Mock is an off-device GPIO backed by an in-memory pin table: Output
// records a pin's level, and Input returns the last level recorded for the
// pin, or the configurable DefaultInput for a pin never set. It carries
// no build tag -- any OS can construct one -- so tests exercising pure
// controller/motor/server/plugin logic never need real GPIO hardware,
// regardless of which OS runs them.
type Mock struct {
	mu     sync.Mutex
	levels map[int]bool
	// DefaultInput is the level Input returns for a pin that has never
	// been driven by Output. Defaults to false (low).
	DefaultInput bool
}

// NewMock returns a ready-to-use Mock GPIO.
func NewMock() *Mock {
	return &Mock{levels: make(map[int]bool)}
}

func (m *Mock) Setup(pin int, mode PinMode, pull PullMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.levels[pin]; !ok {
		m.levels[pin] = m.DefaultInput
	}
	return nil
}

func (m *Mock) Output(pin int, high bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[pin] = high
	return nil
}

func (m *Mock) Input(pin int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	level, ok := m.levels[pin]
	if !ok {
		return m.DefaultInput, nil
	}
	return level, nil
}

// WaitForEdge returns immediately. There is no physical signal to wait on
// off-device.
func (m *Mock) WaitForEdge(pin int, edge EdgeMode) error {
	return nil
}

func (m *Mock) Close() error {
	return nil
}
