// Package hal is the hardware abstraction boundary between the controller
// and the physical GPIO pins driving the two stepper motors. Every motor
// pin (PUL, DIR, ENBL) and every plugin pin is owned by exactly one caller,
// so the interface need not guard against concurrent writes to the same
// pin — only against concurrent writes to different pins racing in the
// underlying driver.
package hal

import "fmt"

// PinMode selects whether a pin is driven or read.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// PullMode selects the pin's idle bias when configured as Input.
type PullMode int

const (
	PullNone PullMode = iota
	PullUp
	PullDown
)

// EdgeMode selects which transition WaitForEdge blocks on.
type EdgeMode int

const (
	EdgeNone EdgeMode = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// GPIO is the narrow surface this daemon needs: pin setup, level output,
// level input, and edge-blocking. Cancellation of WaitForEdge is out of
// scope, matching spec.md's hardware-abstraction contract.
type GPIO interface {
	// Setup configures a pin's direction and, for inputs, its pull resistor.
	Setup(pin int, mode PinMode, pull PullMode) error
	// Output drives a pin high (true) or low (false). The pin must have
	// been configured with Setup(pin, Output, ...).
	Output(pin int, high bool) error
	// Input reads the current level of a pin configured with
	// Setup(pin, Input, ...).
	Input(pin int) (bool, error)
	// WaitForEdge blocks until the requested transition occurs on pin.
	WaitForEdge(pin int, edge EdgeMode) error
	// Close releases the underlying GPIO handle.
	Close() error
}

func errPinNotConfigured(pin int) error {
	return fmt.Errorf("hal: pin %d not configured", pin)
}
