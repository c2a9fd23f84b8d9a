// Package plugin gives the daemon's manual-control side accessories (az/alt
// jog buttons, an object-apply button, a tracking toggle button, a status
// LED) a concrete home as thin goroutine-based callers of the Controller's
// public interface -- the same role the original's GPIO-edge plugins
// played, now structurally expressed as Go types instead of dynamically
// loaded Python modules.
package plugin

import (
	"time"

	"go.uber.org/zap"

	"github.com/mir06/telescope-server/internal/hal"
)

// Controller is the narrow surface plugins call into. It matches
// *controller.Controller's public methods so this package never imports
// the controller package's internals, only the methods it actually uses.
type Controller interface {
	StartStopMotor(axis int, start bool, direction bool)
	ApplyObject()
	ToggleTracking()
	IsTracking() bool
}

// ButtonMapping pairs a GPIO pin with the (axis, direction) jog action it
// triggers while held, mirroring the original manual plugin's
// pin -> (motor, direction) table.
type ButtonMapping struct {
	Pin       int
	Axis      int
	Direction bool
}

// Default pin assignments for the single-button plugins, matching the
// rig these defaults were measured on.
const (
	DefaultApplyObjectPin = 10
	DefaultTrackPin       = 25
	DefaultStatusLEDPin   = 24
)

// DefaultButtonMappings reproduces the original rig's four jog buttons:
// left/right jog azimuth, up/down jog altitude.
func DefaultButtonMappings() []ButtonMapping {
	return []ButtonMapping{
		{Pin: 22, Axis: 0, Direction: false}, // left
		{Pin: 27, Axis: 0, Direction: true},  // right
		{Pin: 11, Axis: 1, Direction: false}, // up
		{Pin: 9, Axis: 1, Direction: true},   // down
	}
}

// ManualButtons polls a set of jog buttons in its own goroutine and drives
// Controller.StartStopMotor accordingly. It is constructed once at
// startup and runs for the process lifetime; it shares no mutable state
// with the controller beyond the method calls themselves.
type ManualButtons struct {
	log      *zap.Logger
	gpio     hal.GPIO
	ctrl     Controller
	mappings []ButtonMapping
	poll     time.Duration
}

// NewManualButtons configures the jog button pins as pulled-down inputs
// and returns a ManualButtons ready to Run.
func NewManualButtons(log *zap.Logger, g hal.GPIO, ctrl Controller, mappings []ButtonMapping) (*ManualButtons, error) {
	for _, m := range mappings {
		if err := g.Setup(m.Pin, hal.Input, hal.PullDown); err != nil {
			return nil, err
		}
	}
	return &ManualButtons{log: log, gpio: g, ctrl: ctrl, mappings: mappings, poll: 50 * time.Millisecond}, nil
}

// Run polls every mapped pin until stop is closed, starting or stopping
// the mapped axis/direction on each observed level change.
func (b *ManualButtons) Run(stop <-chan struct{}) {
	pressed := make([]bool, len(b.mappings))
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for i, m := range b.mappings {
				level, err := b.gpio.Input(m.Pin)
				if err != nil {
					continue
				}
				if level == pressed[i] {
					continue
				}
				pressed[i] = level
				b.ctrl.StartStopMotor(m.Axis, false, true)
				if level {
					b.log.Debug("manual start stop motor", zap.Int("axis", m.Axis), zap.Bool("direction", m.Direction))
					b.ctrl.StartStopMotor(m.Axis, true, m.Direction)
				}
			}
		}
	}
}

// ApplyObjectButton watches a single pin for a falling edge and calls
// Controller.ApplyObject each time it fires, mirroring the original
// manual plugin's object-apply button.
type ApplyObjectButton struct {
	log  *zap.Logger
	gpio hal.GPIO
	ctrl Controller
	pin  int
}

// NewApplyObjectButton configures pin as a pulled-up input.
func NewApplyObjectButton(log *zap.Logger, g hal.GPIO, ctrl Controller, pin int) (*ApplyObjectButton, error) {
	if err := g.Setup(pin, hal.Input, hal.PullUp); err != nil {
		return nil, err
	}
	return &ApplyObjectButton{log: log, gpio: g, ctrl: ctrl, pin: pin}, nil
}

// Run blocks waiting for falling edges on the pin until stop is closed.
func (a *ApplyObjectButton) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if err := a.gpio.WaitForEdge(a.pin, hal.EdgeFalling); err != nil {
			return
		}
		a.log.Debug("manual calibration")
		a.ctrl.ApplyObject()
		time.Sleep(500 * time.Millisecond)
	}
}

// TrackButton watches a single pin for a rising edge and calls
// Controller.ToggleTracking each time it fires.
type TrackButton struct {
	log  *zap.Logger
	gpio hal.GPIO
	ctrl Controller
	pin  int
}

// NewTrackButton configures pin as a pulled-down input.
func NewTrackButton(log *zap.Logger, g hal.GPIO, ctrl Controller, pin int) (*TrackButton, error) {
	if err := g.Setup(pin, hal.Input, hal.PullDown); err != nil {
		return nil, err
	}
	return &TrackButton{log: log, gpio: g, ctrl: ctrl, pin: pin}, nil
}

// Run blocks waiting for rising edges on the pin until stop is closed.
func (tb *TrackButton) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if err := tb.gpio.WaitForEdge(tb.pin, hal.EdgeRising); err != nil {
			return
		}
		tb.log.Debug("toggle tracking")
		tb.ctrl.ToggleTracking()
		time.Sleep(500 * time.Millisecond)
	}
}

// StatusLED blinks a status pin at a rate reflecting tracking state, the
// Go counterpart of the original's Led plugin (stripped of its
// wlan0-IP-address status branch, which has no equivalent in this
// daemon's deployment model).
type StatusLED struct {
	log  *zap.Logger
	gpio hal.GPIO
	ctrl Controller
	pin  int
}

// NewStatusLED configures pin as an output, initially low.
func NewStatusLED(log *zap.Logger, g hal.GPIO, ctrl Controller, pin int) (*StatusLED, error) {
	if err := g.Setup(pin, hal.Output, hal.PullNone); err != nil {
		return nil, err
	}
	return &StatusLED{log: log, gpio: g, ctrl: ctrl, pin: pin}, nil
}

// Run blinks the LED until stop is closed: fast when tracking, slower
// otherwise.
func (s *StatusLED) Run(stop <-chan struct{}) {
	on := false
	for {
		delay := 500 * time.Millisecond
		if s.ctrl.IsTracking() {
			delay = 125 * time.Millisecond
		}

		select {
		case <-stop:
			return
		case <-time.After(delay):
		}

		on = !on
		_ = s.gpio.Output(s.pin, on)
	}
}
