package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mir06/telescope-server/internal/ephemeris"
	"github.com/mir06/telescope-server/internal/hal"
	"github.com/mir06/telescope-server/internal/motor"
)

func fastCurve() motor.Curve {
	c := motor.DefaultCurve()
	c.VEnd = 1e6
	c.VStart = 1e6
	c.AccelSteps = 4
	c.BrakeSteps = 4
	return c
}

func newTestController(t *testing.T) (*Controller, *motor.Motor, *motor.Motor) {
	t.Helper()
	g := hal.NewMock()

	az, err := motor.New(zap.NewNop(), g, "Azimuth", motor.Pins{PUL: 1, DIR: 2, ENBL: 3}, -5, 365, 1, fastCurve())
	require.NoError(t, err)
	alt, err := motor.New(zap.NewNop(), g, "Altitude", motor.Pins{PUL: 4, DIR: 5, ENBL: 6}, 0, 90, -1, fastCurve())
	require.NoError(t, err)

	c := New(zap.NewNop(), ephemeris.New(), az, alt)
	return c, az, alt
}

func TestNewSeedsDefaultStepsPerRev(t *testing.T) {
	c, az, alt := newTestController(t)
	assert.Equal(t, defaultAzSPR, az.StepsPerRev())
	assert.Equal(t, defaultAltSPR, alt.StepsPerRev())
	assert.True(t, c.Calibrated())
}

func TestStartCalibrationSeedsAndResets(t *testing.T) {
	c, az, alt := newTestController(t)
	az.SetAngle(45)
	alt.SetAngle(30)

	c.StartCalibration()

	assert.Equal(t, calSeedSPR, az.StepsPerRev())
	assert.Equal(t, calSeedSPR, alt.StepsPerRev())
	assert.Equal(t, 0.0, az.Angle())
	assert.Equal(t, 0.0, alt.Angle())
	assert.Equal(t, 0, c.calib[AxisAzimuth].Count())
}

func TestStopCalibrationCommitsEstimate(t *testing.T) {
	c, az, alt := newTestController(t)

	c.calib[AxisAzimuth].Add(0, 0)
	c.calib[AxisAzimuth].Add(90, 1000)
	c.calib[AxisAltitude].Add(0, 0)
	c.calib[AxisAltitude].Add(90, 1000)

	c.StopCalibration()

	assert.Equal(t, 4000, az.StepsPerRev())
	assert.Equal(t, 4000, alt.StepsPerRev())
}

func TestSetObjectRejectsOutOfRangeID(t *testing.T) {
	c, _, _ := newTestController(t)
	assert.False(t, c.SetObject(100000))
}

func TestSetObjectSetsTarget(t *testing.T) {
	c, _, _ := newTestController(t)
	ok := c.SetObject(0)
	assert.True(t, ok)

	ra, dec, ok := c.getTarget()
	assert.True(t, ok)
	assert.GreaterOrEqual(t, ra, 0.0)
	assert.Less(t, ra, 24.0)
	assert.GreaterOrEqual(t, dec, -90.0)
}

func TestApplyObjectWithoutPendingIsNoop(t *testing.T) {
	c, az, _ := newTestController(t)
	before := az.Angle()

	c.ApplyObject()

	assert.Equal(t, before, az.Angle())
	assert.Equal(t, 0, c.calib[AxisAzimuth].Count())
}

func TestApplyObjectAppendsSamples(t *testing.T) {
	c, _, _ := newTestController(t)
	require.True(t, c.SetObject(0))

	c.ApplyObject()

	assert.Equal(t, 1, c.calib[AxisAzimuth].Count())
	assert.Equal(t, 1, c.calib[AxisAltitude].Count())
}

func TestMakeStepUpdatesSteps(t *testing.T) {
	c, az, alt := newTestController(t)
	// Start altitude inside its [0, 90] range so the reverse steps are not
	// cut short by the lower-bound brake.
	alt.SetAngle(45)

	c.MakeStep(10, -5)

	assert.EqualValues(t, 10, az.Steps())
	assert.EqualValues(t, 5, alt.Steps())
}

func TestToggleTrackingRequiresCalibration(t *testing.T) {
	g := hal.NewMock()
	az, err := motor.New(zap.NewNop(), g, "Azimuth", motor.Pins{PUL: 1, DIR: 2, ENBL: 3}, -5, 365, 1, fastCurve())
	require.NoError(t, err)
	alt, err := motor.New(zap.NewNop(), g, "Altitude", motor.Pins{PUL: 4, DIR: 5, ENBL: 6}, 0, 90, -1, fastCurve())
	require.NoError(t, err)
	c := New(zap.NewNop(), ephemeris.New(), az, alt)
	az.SetStepsPerRev(0)
	alt.SetStepsPerRev(0)

	c.ToggleTracking()

	assert.False(t, c.IsTracking())
}

func TestGotoStartsTrackingAndSecondGotoJoinsFirst(t *testing.T) {
	c, _, _ := newTestController(t)
	c.SetObserver(0.2, 0.8, 100)

	c.Goto(5.0, 30.0)
	assert.True(t, c.IsTracking())

	c.Goto(6.0, 30.0)
	assert.True(t, c.IsTracking())

	c.stopTracking()
	assert.False(t, c.IsTracking())
}

func TestGetStatusUnknownCode(t *testing.T) {
	c, _, _ := newTestController(t)
	assert.Equal(t, "status code 42 not defined", c.GetStatus(42))
}

func TestGetStatusCalibratedYesNo(t *testing.T) {
	c, az, alt := newTestController(t)
	assert.Contains(t, c.GetStatus(StatusCalibrated), "YES")

	az.SetStepsPerRev(0)
	alt.SetStepsPerRev(0)
	assert.Contains(t, c.GetStatus(StatusCalibrated), "NO")
}

func TestGetStatusRADecNoTarget(t *testing.T) {
	c, _, _ := newTestController(t)
	assert.Equal(t, "no target selected", c.GetStatus(StatusRADec))
}

func TestGetStatusTrackingMarksClientConnected(t *testing.T) {
	c, _, _ := newTestController(t)
	assert.False(t, c.ClientConnected())
	c.GetStatus(StatusTracking)
	assert.True(t, c.ClientConnected())
}

func TestStartStopMotorRederivesTargetWhenAllStopped(t *testing.T) {
	c, _, _ := newTestController(t)
	c.SetObserver(0.2, 0.8, 100)

	c.StartStopMotor(AxisAzimuth, true, true)
	time.Sleep(5 * time.Millisecond)
	c.StartStopMotor(AxisAzimuth, false, true)

	_, _, ok := c.getTarget()
	assert.True(t, ok)
}
