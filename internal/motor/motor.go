// Package motor drives a single stepper axis through a GPIO pulse train,
// shaping acceleration and braking with a cosine velocity ramp and keeping
// the running (angle, steps) state the controller and calibration
// estimator depend on.
package motor

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mir06/telescope-server/internal/hal"
)

// Pins is the PUL/DIR/ENBL triple a Motor owns exclusively.
type Pins struct {
	PUL  int
	DIR  int
	ENBL int
}

// Curve holds the velocity-ramp shaping parameters used to precompute
// accel_curve and brake_curve. Defaults mirror the original rig's constants.
type Curve struct {
	VEnd          float64 // top velocity reached at the end of the ramp, steps per second
	VStart        float64 // starting velocity at the beginning of the ramp, steps per second
	Skewness      float64
	AccelSteps    int
	SkewnessBrake float64
	BrakeSteps    int
}

// DefaultCurve returns the shaping parameters the original daemon shipped
// with: vend=8000 (Hz-ish constant), vstart=20, skewness=0.75,
// accel_steps=500, skewnessbra=0.9, bra_steps=500.
func DefaultCurve() Curve {
	return Curve{
		VEnd:          8000,
		VStart:        20,
		Skewness:      0.75,
		AccelSteps:    500,
		SkewnessBrake: 0.9,
		BrakeSteps:    500,
	}
}

// Motor is one stepper axis: pulse generator, angle/step bookkeeping, and
// bounds enforcement. All exported methods are safe to call from a single
// motion goroutine at a time; RequestStop and Enable may be called concurrently
// from any goroutine.
type Motor struct {
	log  *zap.Logger
	gpio hal.GPIO
	name string
	pins Pins

	minAngle, maxAngle float64
	positive           float64

	accelCurve []float64
	brakeCurve []float64
	brakeSteps int

	mu            sync.Mutex
	stepsPerRev   int
	angle         float64
	steps         int64
	minimum       float64
	maximum       float64
	enabled       bool
	defaultDelay  float64

	stop atomic.Bool
}

// New builds a Motor with the given name, pin triple, angular bounds,
// orientation, and velocity-curve shape, precomputing accel_curve and
// brake_curve at construction.
func New(log *zap.Logger, g hal.GPIO, name string, pins Pins, minAngle, maxAngle, positive float64, curve Curve) (*Motor, error) {
	if err := g.Setup(pins.PUL, hal.Output, hal.PullNone); err != nil {
		return nil, err
	}
	if err := g.Setup(pins.DIR, hal.Output, hal.PullNone); err != nil {
		return nil, err
	}
	if err := g.Setup(pins.ENBL, hal.Output, hal.PullNone); err != nil {
		return nil, err
	}

	m := &Motor{
		log:          log.With(zap.String("motor", name)),
		gpio:         g,
		name:         name,
		pins:         pins,
		minAngle:     minAngle,
		maxAngle:     maxAngle,
		positive:     positive,
		brakeSteps:   curve.BrakeSteps,
		enabled:      true,
		defaultDelay: 1.0 / curve.VEnd,
		minimum:      minAngle,
		maximum:      maxAngle,
	}
	m.stop.Store(true)

	m.accelCurve = buildCurve(curve.AccelSteps, curve.Skewness, curve.VEnd, curve.VStart)
	m.brakeCurve = buildCurve(curve.BrakeSteps, curve.SkewnessBrake, curve.VEnd, curve.VStart)

	return m, nil
}

func buildCurve(n int, skew, vend, vstart float64) []float64 {
	curve := make([]float64, n)
	for x := 0; x < n; x++ {
		s := math.Pow(float64(x), skew) / math.Pow(float64(n), skew)
		v := (0.5-0.5*math.Cos(s*math.Pi))*(vend-vstart) + vstart
		curve[x] = 1.0 / v
	}
	return curve
}

// SetStepsPerRev sets calibration and recomputes the brake-shrunk bounds.
// A value of 0 marks the axis uncalibrated.
func (m *Motor) SetStepsPerRev(spr int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stepsPerRev = spr
	if spr > 0 {
		shrink := 360.0 / float64(spr) * float64(m.brakeSteps)
		m.minimum = m.minAngle + shrink
		m.maximum = m.maxAngle - shrink
	} else {
		m.minimum = m.minAngle
		m.maximum = m.maxAngle
	}
}

// StepsPerRev returns the current calibration value.
func (m *Motor) StepsPerRev() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepsPerRev
}

// Calibrated reports whether steps_per_rev has been set to a usable value.
func (m *Motor) Calibrated() bool {
	return m.StepsPerRev() > 0
}

// Angle returns the current wrapped angle in degrees.
func (m *Motor) Angle() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.angle
}

// SetAngle forces the angle, wrapping into [0,360); a wrapped value outside
// [min_angle, max_angle] is ignored and the angle is left unchanged, as the
// original property setter did. Only legal
// to call while no motion goroutine is running on this axis.
func (m *Motor) SetAngle(value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value = math.Mod(value, 360)
	if value < 0 {
		value += 360
	}
	if value >= m.minAngle && value <= m.maxAngle {
		m.angle = value
	}
}

// Steps returns cumulative signed step count.
func (m *Motor) Steps() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps
}

// SetSteps forces the cumulative step counter. Only legal to call while no
// motion goroutine is running on this axis.
func (m *Motor) SetSteps(value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = value
}

// Enable drives the ENBL pin and records the enabled state move() checks.
func (m *Motor) Enable(enabled bool) error {
	m.mu.Lock()
	m.enabled = enabled
	m.mu.Unlock()
	return m.gpio.Output(m.pins.ENBL, enabled)
}

// Enabled reports the last value passed to Enable.
func (m *Motor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// RequestStop sets the cooperative cancellation flag; the running Step
// loop observes it at the next pulse boundary.
func (m *Motor) RequestStop() {
	m.stop.Store(true)
}

// Step emits n pulses in direction (true = forward / DIR high). It never
// returns an error: bound violations or a pending stop trigger an orderly
// Brake and the loop exits early.
func (m *Motor) Step(n int, direction bool) {
	if n <= 0 {
		return
	}
	m.stop.Store(false)
	if err := m.gpio.Output(m.pins.DIR, direction); err != nil {
		m.log.Debug("dir pin write failed", zap.Error(err))
	}

	sign := -1.0
	if direction {
		sign = 1.0
	}

	for i := 0; i < n; i++ {
		idx := i
		if rem := (n - 1) - i; rem < idx {
			idx = rem
		}
		stepDelay := m.defaultDelay
		if idx < len(m.accelCurve) {
			stepDelay = m.accelCurve[idx]
		}

		m.mu.Lock()
		angle := m.angle
		minimum := m.minimum
		maximum := m.maximum
		m.mu.Unlock()

		if m.stop.Load() || (angle <= minimum && !direction) || (angle >= maximum && direction) {
			m.log.Debug("braking", zap.Int("step", i), zap.Int("n", n), zap.Bool("direction", direction))
			m.Brake(stepDelay, direction)
			return
		}

		m.pulse(stepDelay)
		m.advance(sign)
	}
	m.stop.Store(true)
}

func (m *Motor) pulse(delay float64) {
	d := time.Duration(delay * float64(time.Second))
	_ = m.gpio.Output(m.pins.PUL, true)
	time.Sleep(d)
	_ = m.gpio.Output(m.pins.PUL, false)
	time.Sleep(d)
}

func (m *Motor) advance(sign float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps += int64(sign * m.positive)
	if m.stepsPerRev > 0 {
		m.angle += sign * m.positive * 360.0 / float64(m.stepsPerRev)
		m.angle = math.Mod(m.angle, 360)
		if m.angle < 0 {
			m.angle += 360
		}
	}
}

// Brake decelerates from current_delay by finding the closest index in
// brake_curve, emitting that many pulses with increasing delay, then
// emits the same count of pulses in the opposite direction to null
// residual motion. This double-pulse tail is a preserved source behavior,
// not a bug: reversing it would change the physical halt distance of
// every deployed rig.
func (m *Motor) Brake(currentDelay float64, direction bool) {
	m.stop.Store(false)

	accelIndex := closestIndex(m.brakeCurve, currentDelay)
	m.log.Debug("braking down within steps", zap.Int("steps", accelIndex))

	sign := -1.0
	if direction {
		sign = 1.0
	}
	for step := 0; step < accelIndex; step++ {
		stepDelay := m.brakeCurve[accelIndex-step-1]
		m.pulse(stepDelay)
		m.advance(sign)
	}

	m.Step(accelIndex, !direction)
	m.stop.Store(true)
}

func closestIndex(curve []float64, target float64) int {
	best := 0
	bestDiff := math.Inf(1)
	for i, v := range curve {
		diff := math.Abs(v - target)
		if diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}
	return best
}

// Move computes the shortest signed arc to targetAngle and issues the
// corresponding Step call. It is a no-op unless calibrated and enabled.
func (m *Motor) Move(targetAngle float64) {
	targetAngle = math.Mod(targetAngle, 360)
	if targetAngle < 0 {
		targetAngle += 360
	}

	m.mu.Lock()
	spr := m.stepsPerRev
	enabled := m.enabled
	angle := m.angle
	m.mu.Unlock()

	if spr <= 0 || !enabled {
		return
	}

	angleToMove := math.Mod(targetAngle-angle, 360)
	if angleToMove < 0 {
		angleToMove += 360
	}
	if angleToMove > 180 {
		angleToMove -= 360
	}

	steps := float64(spr) * angleToMove / 360.0
	n := int(math.Abs(math.Round(steps)))
	direction := m.positive*steps > 0

	m.Step(n, direction)
}

// Name returns the motor's identity string.
func (m *Motor) Name() string { return m.name }
