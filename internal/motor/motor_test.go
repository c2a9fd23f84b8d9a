package motor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mir06/telescope-server/internal/hal"
)

// fastCurve shrinks the default curve lengths so tests don't sleep for
// real accel/brake delays.
func fastCurve() Curve {
	c := DefaultCurve()
	c.VEnd = 1e6
	c.VStart = 1e6
	c.AccelSteps = 8
	c.BrakeSteps = 8
	return c
}

func newTestMotor(t *testing.T, minAngle, maxAngle, positive float64) *Motor {
	t.Helper()
	g := hal.NewMock()
	m, err := New(zap.NewNop(), g, "test", Pins{PUL: 1, DIR: 2, ENBL: 3}, minAngle, maxAngle, positive, fastCurve())
	require.NoError(t, err)
	return m
}

func TestStepWithoutBoundHitUpdatesStepsAndAngle(t *testing.T) {
	m := newTestMotor(t, -5, 365, 1)
	m.SetStepsPerRev(4000)
	m.SetAngle(10)
	m.SetSteps(0)

	m.Step(100, true)

	assert.EqualValues(t, 100, m.Steps())
	wantAngle := 10.0 + 100.0*360.0/4000.0
	assert.InDelta(t, wantAngle, m.Angle(), 1e-9)
}

func TestStepReverseDecrementsSteps(t *testing.T) {
	m := newTestMotor(t, -5, 365, 1)
	m.SetStepsPerRev(4000)
	m.SetAngle(90)
	m.SetSteps(0)

	m.Step(50, false)

	assert.EqualValues(t, -50, m.Steps())
}

func TestMoveShortestArc(t *testing.T) {
	// S3: steps_per_rev=4000, angle=10, move(350) -> delta=-20, steps=222, reverse.
	m := newTestMotor(t, -5, 365, 1)
	m.SetStepsPerRev(4000)
	m.SetAngle(10)
	m.SetSteps(0)

	m.Move(350)

	assert.EqualValues(t, -222, m.Steps())
}

func TestMoveAtMostHalfRevolution(t *testing.T) {
	m := newTestMotor(t, -5, 365, 1)
	spr := 4000
	m.SetStepsPerRev(spr)
	m.SetAngle(0)
	m.SetSteps(0)

	m.Move(180)

	maxPulses := (spr + 1) / 2
	assert.LessOrEqual(t, abs64(m.Steps()), int64(maxPulses))
}

func TestBoundsBrakeHaltsBeforeMax(t *testing.T) {
	// S6: altitude axis max_angle=90, approaching from 89.5 forward.
	brakeSteps := 8
	m := newTestMotor(t, 0, 90, 1)
	spr := 4000
	m.SetStepsPerRev(spr)
	m.SetAngle(89.5)
	m.SetSteps(0)

	m.Step(10000, true)

	shrink := 360.0 / float64(spr) * float64(brakeSteps)
	assert.LessOrEqual(t, m.Angle(), 90.0-shrink+1e-6)
}

func TestStopHaltsLoopPromptly(t *testing.T) {
	m := newTestMotor(t, -5, 365, 1)
	m.SetStepsPerRev(4000)
	m.SetAngle(0)
	m.SetSteps(0)

	done := make(chan struct{})
	go func() {
		m.Step(100000, true)
		close(done)
	}()

	m.RequestStop()
	<-done
}

func TestUncalibratedMoveIsNoop(t *testing.T) {
	m := newTestMotor(t, -5, 365, 1)
	m.SetAngle(0)
	m.SetSteps(0)

	m.Move(90)

	assert.EqualValues(t, 0, m.Steps())
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
