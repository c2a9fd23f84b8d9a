//go:build linux

package hal

import (
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPIO is a GPIO backed by github.com/stianeikeland/go-rpio/v4, the
// teacher's own pick for direct /dev/gpiomem register access on a
// Raspberry Pi. Each pin is owned by exactly one Motor or plugin, so the
// mutex below only protects the pins map itself, not individual reads or
// writes.
type RPIO struct {
	mu     sync.Mutex
	pins   map[int]rpio.Pin
	modes  map[int]PinMode
}

// NewRPIO opens /dev/gpiomem and returns a ready-to-use GPIO.
func NewRPIO() (*RPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}
	return &RPIO{
		pins:  make(map[int]rpio.Pin),
		modes: make(map[int]PinMode),
	}, nil
}

func (r *RPIO) Setup(pin int, mode PinMode, pull PullMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := rpio.Pin(pin)
	switch mode {
	case Input:
		p.Input()
		switch pull {
		case PullUp:
			p.PullUp()
		case PullDown:
			p.PullDown()
		default:
			p.PullOff()
		}
	case Output:
		p.Output()
	}
	r.pins[pin] = p
	r.modes[pin] = mode
	return nil
}

func (r *RPIO) Output(pin int, high bool) error {
	r.mu.Lock()
	p, ok := r.pins[pin]
	r.mu.Unlock()
	if !ok {
		return errPinNotConfigured(pin)
	}
	if high {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (r *RPIO) Input(pin int) (bool, error) {
	r.mu.Lock()
	p, ok := r.pins[pin]
	r.mu.Unlock()
	if !ok {
		return false, errPinNotConfigured(pin)
	}
	return p.Read() == rpio.High, nil
}

// WaitForEdge polls the pin level until the requested transition is
// observed. go-rpio v4 exposes no blocking edge-wait primitive, so this
// mirrors the original GPIO.wait_for_edge contract (block until edge,
// cancellation out of scope) with a tight read loop.
func (r *RPIO) WaitForEdge(pin int, edge EdgeMode) error {
	r.mu.Lock()
	p, ok := r.pins[pin]
	r.mu.Unlock()
	if !ok {
		return errPinNotConfigured(pin)
	}

	last := p.Read()
	for {
		cur := p.Read()
		if cur != last {
			switch edge {
			case EdgeRising:
				if last == rpio.Low && cur == rpio.High {
					return nil
				}
			case EdgeFalling:
				if last == rpio.High && cur == rpio.Low {
					return nil
				}
			case EdgeBoth:
				return nil
			}
			last = cur
		}
	}
}

func (r *RPIO) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rpio.Close()
}
