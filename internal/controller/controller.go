// Package controller orchestrates the two motor axes, the ephemeris
// adapter, and the calibration estimator: it is the place goto, current
// position, calibration, manual stepping, and tracking all live.
package controller

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mir06/telescope-server/internal/calibration"
	"github.com/mir06/telescope-server/internal/ephemeris"
	"github.com/mir06/telescope-server/internal/motor"
)

// Axis indices, matching spec: 0 = azimuth, 1 = altitude.
const (
	AxisAzimuth = 0
	AxisAltitude = 1
	numAxes      = 2
)

// Status codes for get_status, distinct from the wire codec's command
// mtypes -- these are the values carried inside a STATUS (99) request.
const (
	StatusLocation   = 1
	StatusRADec      = 2
	StatusAzAlt      = 3
	StatusCalibrated = 4
	StatusTracking   = 5
	StatusSPR        = 10
	StatusAzAngles   = 11
	StatusAltAngles  = 12
	StatusSightedObj = 13
	StatusCurrSteps  = 20
	StatusVisibleObj = 30
)

// defaultAzSPR and defaultAltSPR seed each axis at construction so the daemon starts
// in a roughly-usable state before calibration, matching the original
// rig's pre-measured constants.
const (
	defaultAzSPR  = 1293009
	defaultAltSPR = 1560660
	// calSeedSPR is the tentative value start_calibration seeds both axes
	// with so the operator can slew the mount during sighting without the
	// uncalibrated guard blocking motion.
	calSeedSPR = 1300000
)

// Controller owns the two Motors, the ephemeris adapter, per-axis
// calibration estimators, and the tracking/motion goroutine lifecycle.
type Controller struct {
	log *zap.Logger
	eph ephemeris.Ephemeris

	motors [numAxes]*motor.Motor
	calib  [numAxes]*calibration.Estimator

	mu        sync.Mutex
	observer  ephemeris.Observer
	targetRA  float64
	targetDec float64
	hasTarget bool

	objMu            sync.Mutex
	pendingObject    int
	hasPendingObject bool

	trackMu    sync.Mutex
	isTracking atomic.Bool
	trackDone  chan struct{}

	motionMu   sync.Mutex
	motionDone [numAxes]chan struct{}
	running    [numAxes]bool
	restart    [numAxes]bool

	connMu          sync.Mutex
	clientConnected bool
	connTimer       *time.Timer
}

// New builds a Controller from two already-constructed axis Motors (index
// 0 = azimuth, index 1 = altitude) and an ephemeris adapter, seeding each
// axis's steps_per_rev with the rig's pre-measured defaults.
func New(log *zap.Logger, eph ephemeris.Ephemeris, azimuth, altitude *motor.Motor) *Controller {
	c := &Controller{
		log:    log,
		eph:    eph,
		motors: [numAxes]*motor.Motor{azimuth, altitude},
		calib:  [numAxes]*calibration.Estimator{calibration.New(), calibration.New()},
	}
	c.motors[AxisAzimuth].SetStepsPerRev(defaultAzSPR)
	c.motors[AxisAltitude].SetStepsPerRev(defaultAltSPR)
	return c
}

// Calibrated reports whether both axes have a usable steps_per_rev.
func (c *Controller) Calibrated() bool {
	return c.motors[AxisAzimuth].Calibrated() && c.motors[AxisAltitude].Calibrated()
}

// IsTracking reports whether the tracking loop is currently running.
func (c *Controller) IsTracking() bool {
	return c.isTracking.Load()
}

func (c *Controller) setTarget(ra, dec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetRA = ra
	c.targetDec = dec
	c.hasTarget = true
}

func (c *Controller) getTarget() (ra, dec float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targetRA, c.targetDec, c.hasTarget
}

// SetObserver updates the observer location.
func (c *Controller) SetObserver(lonRad, latRad, elevM float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = ephemeris.Observer{LonRad: lonRad, LatRad: latRad, ElevM: elevM}
	c.log.Debug("set location", zap.Float64("lon", lonRad), zap.Float64("lat", latRad), zap.Float64("elev", elevM))
}

func (c *Controller) getObserver() ephemeris.Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.observer
}

// Goto sets the target (ra, dec) and restarts the tracking loop against
// it, joining any previously running tracking goroutine first.
func (c *Controller) Goto(raHours, decDeg float64) {
	c.log.Debug("goto", zap.Float64("ra", raHours), zap.Float64("dec", decDeg))
	c.setTarget(raHours, decDeg)
	c.stopTracking()
	c.startTracking()
}

// CurrentPos returns (ra, dec) derived from the motors' current angles.
func (c *Controller) CurrentPos() (raHours, decDeg float64) {
	az := c.motors[AxisAzimuth].Angle()
	alt := c.motors[AxisAltitude].Angle()
	ra, dec := c.eph.RADecOf(az, alt, c.getObserver(), time.Now())
	c.log.Debug("current pos", zap.Float64("ra", ra), zap.Float64("dec", dec))
	return ra, dec
}

// AzAlt returns the current motor angles directly, without the
// ephemeris round-trip CurrentPos applies -- used by callers that want
// the mount's raw pointing rather than a sky-coordinate derivation, such
// as the telemetry beacon.
func (c *Controller) AzAlt() (az, alt float64) {
	return c.motors[AxisAzimuth].Angle(), c.motors[AxisAltitude].Angle()
}

// StartCalibration stops tracking, clears both axes' sample lists, and
// seeds a tentative steps_per_rev so the mount can be slewed during
// sighting.
func (c *Controller) StartCalibration() {
	c.log.Debug("start calibration")
	c.stopTracking()

	for axis := 0; axis < numAxes; axis++ {
		c.calib[axis].Reset()
		c.motors[axis].SetAngle(0)
		c.motors[axis].SetSteps(0)
		c.motors[axis].SetStepsPerRev(calSeedSPR)
	}
}

// StopCalibration runs the §4.D estimator for each axis and, on success,
// commits the estimated steps_per_rev.
func (c *Controller) StopCalibration() {
	for axis := 0; axis < numAxes; axis++ {
		if spr, ok := c.calib[axis].Estimate(); ok {
			c.motors[axis].SetStepsPerRev(spr)
		}
	}
	c.log.Debug("steps per revolution",
		zap.Int("az", c.motors[AxisAzimuth].StepsPerRev()),
		zap.Int("alt", c.motors[AxisAltitude].StepsPerRev()))
}

// SetObject selects a catalog object as pending and sets the target to
// its (ra, dec), returning false if id is out of range.
func (c *Controller) SetObject(id int) bool {
	obj, ok := c.eph.Object(id)
	if !ok {
		c.log.Debug("could not set coordinates of object", zap.Int("id", id))
		return false
	}

	ra, dec := obj.RADec(time.Now())
	c.setTarget(ra, dec)

	c.objMu.Lock()
	c.pendingObject = id
	c.hasPendingObject = true
	c.objMu.Unlock()

	c.log.Debug("choose object", zap.String("name", obj.Name), zap.Float64("ra", ra), zap.Float64("dec", dec))
	return true
}

// ApplyObject forces the motor angles to the pending object's current
// (az, alt) and appends an (angle, steps) calibration sample for both
// axes. A no-op if no object is pending.
func (c *Controller) ApplyObject() {
	c.objMu.Lock()
	id, ok := c.pendingObject, c.hasPendingObject
	c.objMu.Unlock()
	if !ok {
		c.log.Error("no object has been chosen")
		return
	}

	obj, ok := c.eph.Object(id)
	if !ok {
		c.log.Error("no object has been chosen")
		return
	}

	now := time.Now()
	ra, dec := obj.RADec(now)
	az, alt := c.eph.ComputeAzAlt(ra, dec, c.getObserver(), now)

	c.motors[AxisAzimuth].SetAngle(az)
	c.motors[AxisAltitude].SetAngle(alt)

	for axis := 0; axis < numAxes; axis++ {
		c.calib[axis].Add(c.motors[axis].Angle(), c.motors[axis].Steps())
	}
	c.log.Debug("apply object", zap.String("name", obj.Name))
}

// MakeStep stops tracking, steps both axes by the given signed counts in
// sequence, rederives the target from the resulting angles, and restarts
// tracking if it was active.
func (c *Controller) MakeStep(azSteps, altSteps int16) {
	restart := c.IsTracking()
	c.stopTracking()

	c.log.Debug("step motors", zap.Int16("az", azSteps), zap.Int16("alt", altSteps))
	c.motors[AxisAzimuth].Step(int(abs16(azSteps)), azSteps > 0)
	c.motors[AxisAltitude].Step(int(abs16(altSteps)), altSteps > 0)

	if c.Calibrated() {
		c.rederiveTarget()
		if restart {
			c.startTracking()
		}
	}
}

func (c *Controller) rederiveTarget() {
	az := c.motors[AxisAzimuth].Angle()
	alt := c.motors[AxisAltitude].Angle()
	ra, dec := c.eph.RADecOf(az, alt, c.getObserver(), time.Now())
	c.setTarget(ra, dec)
}

func abs16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

// StartStopMotor starts or stops open-ended motion on one axis. Starting
// stops tracking first and remembers whether to resume it; stopping,
// once every axis has quiesced, rederives the target and resumes tracking
// if it had been active.
func (c *Controller) StartStopMotor(axis int, start bool, direction bool) {
	c.motors[axis].RequestStop()

	c.motionMu.Lock()
	c.running[axis] = false
	c.motionMu.Unlock()

	if start {
		c.motionMu.Lock()
		c.restart[axis] = c.IsTracking()
		c.running[axis] = true
		c.motionMu.Unlock()

		c.stopTracking()
		c.startMotor(axis, direction)
		return
	}

	if !c.Calibrated() {
		return
	}

	c.motionMu.Lock()
	anyRunning := c.running[AxisAzimuth] || c.running[AxisAltitude]
	anyRestart := c.restart[AxisAzimuth] || c.restart[AxisAltitude]
	c.motionMu.Unlock()

	if anyRunning {
		return
	}

	c.rederiveTarget()
	if anyRestart {
		c.startTracking()
	}
}

// startMotor joins any previous motion goroutine on axis and spawns a new
// one stepping indefinitely until RequestStop is observed.
func (c *Controller) startMotor(axis int, direction bool) {
	c.motionMu.Lock()
	prev := c.motionDone[axis]
	c.motionMu.Unlock()
	if prev != nil {
		<-prev
	}

	done := make(chan struct{})
	c.motionMu.Lock()
	c.motionDone[axis] = done
	c.motionMu.Unlock()

	go func() {
		defer close(done)
		c.motors[axis].Step(math.MaxInt32, direction)
	}()
}

// ToggleTracking flips tracking state; it is an error to start tracking
// while uncalibrated.
func (c *Controller) ToggleTracking() {
	if !c.Calibrated() {
		c.log.Error("cannot start tracking when not calibrated")
		return
	}
	if c.IsTracking() {
		c.stopTracking()
	} else {
		c.startTracking()
	}
}

// startTracking spawns the single tracking goroutine if it isn't already
// running.
func (c *Controller) startTracking() {
	c.trackMu.Lock()
	defer c.trackMu.Unlock()
	if c.isTracking.Load() {
		return
	}
	c.log.Debug("start tracking")
	c.isTracking.Store(true)
	done := make(chan struct{})
	c.trackDone = done
	go c.doTracking(done)
}

// stopTracking requests the tracking goroutine to exit and joins it.
func (c *Controller) stopTracking() {
	c.trackMu.Lock()
	if !c.isTracking.Load() {
		c.trackMu.Unlock()
		return
	}
	c.log.Debug("stop tracking")
	c.motors[AxisAzimuth].RequestStop()
	c.motors[AxisAltitude].RequestStop()
	c.isTracking.Store(false)
	done := c.trackDone
	c.trackMu.Unlock()

	if done != nil {
		<-done
	}

	c.motors[AxisAzimuth].RequestStop()
	c.motors[AxisAltitude].RequestStop()
}

// doTracking recomputes az/alt from the target every 100ms and moves both
// axes toward it in parallel, joining both before the next iteration.
// Any panic from the ephemeris call is recovered and stops tracking,
// mirroring the source's blanket exception handler.
func (c *Controller) doTracking(done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("tracking loop failed", zap.Any("panic", r))
			c.isTracking.Store(false)
		}
	}()

	for c.isTracking.Load() {
		ra, dec, ok := c.getTarget()
		if !ok {
			c.isTracking.Store(false)
			return
		}

		when := time.Now()
		az, alt := c.eph.ComputeAzAlt(ra, dec, c.getObserver(), when)

		var wg sync.WaitGroup
		wg.Add(numAxes)
		go func() { defer wg.Done(); c.motors[AxisAzimuth].Move(az) }()
		go func() { defer wg.Done(); c.motors[AxisAltitude].Move(alt) }()
		wg.Wait()

		time.Sleep(100 * time.Millisecond)
	}
}

// visibleObjects returns every catalog object currently above the
// horizon, as "<id>-<name>" pairs in catalog order.
func (c *Controller) visibleObjects() string {
	visible := c.eph.VisibleObjects(c.getObserver(), time.Now())
	out := ""
	for i, v := range visible {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%d-%s", v.ID, v.Name)
	}
	return out
}

// noteClientConnected marks a client active and (re)arms the 3-second
// inactivity decay timer; only the TRACKING status code does this, per
// the wire protocol's textual status table.
func (c *Controller) noteClientConnected() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.connTimer != nil {
		c.connTimer.Stop()
	}
	c.clientConnected = true
	c.connTimer = time.AfterFunc(3*time.Second, func() {
		c.connMu.Lock()
		c.clientConnected = false
		c.connMu.Unlock()
	})
}

// ClientConnected reports whether a client has issued a TRACKING status
// request within the last 3 seconds.
func (c *Controller) ClientConnected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.clientConnected
}

// GetStatus returns the textual status response for code, matching the
// wire protocol's fixed response shapes bit-exactly.
func (c *Controller) GetStatus(code int) string {
	switch code {
	case StatusLocation:
		obs := c.getObserver()
		return fmt.Sprintf("%s / %s / %s", sexagesimal(obs.LonRad*radToDeg), sexagesimal(obs.LatRad*radToDeg), fmt.Sprintf("%g", obs.ElevM))
	case StatusRADec:
		ra, dec, ok := c.getTarget()
		if !ok {
			return "no target selected"
		}
		return fmt.Sprintf("%s / %s", sexagesimal(ra*15), sexagesimal(dec))
	case StatusAzAlt:
		return fmt.Sprintf("%s / %s", sexagesimal(c.motors[AxisAzimuth].Angle()), sexagesimal(c.motors[AxisAltitude].Angle()))
	case StatusCalibrated:
		return fmt.Sprintf("calibrated: %s", yesNo(c.Calibrated()))
	case StatusTracking:
		c.noteClientConnected()
		return fmt.Sprintf("tracking: %s", yesNo(c.IsTracking()))
	case StatusSPR:
		return fmt.Sprintf("steps per revolution (az/alt): %d / %d", c.motors[AxisAzimuth].StepsPerRev(), c.motors[AxisAltitude].StepsPerRev())
	case StatusAzAngles:
		return fmt.Sprintf("angles/steps list for azimuth motor: %s", formatSamples(c.calib[AxisAzimuth].Samples()))
	case StatusAltAngles:
		return fmt.Sprintf("angles/steps list for altitude motor: %s", formatSamples(c.calib[AxisAltitude].Samples()))
	case StatusSightedObj:
		return fmt.Sprintf("%d", c.calib[AxisAzimuth].Count())
	case StatusCurrSteps:
		return fmt.Sprintf("current steps (az/alt): %d / %d", c.motors[AxisAzimuth].Steps(), c.motors[AxisAltitude].Steps())
	case StatusVisibleObj:
		return c.visibleObjects()
	default:
		return fmt.Sprintf("status code %d not defined", code)
	}
}

// formatSamples renders calibration samples as "[(angle, steps), ...]",
// the same bracketed-tuple-list shape the original's raw Python list
// produced in its status response.
func formatSamples(samples []calibration.Sample) string {
	out := "["
	for i, s := range samples {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("(%g, %d)", s.Angle, s.Steps)
	}
	return out + "]"
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

const radToDeg = 180 / math.Pi

// sexagesimal formats a decimal-degree value as "D:M:S", matching ephem's
// default angle string representation that the original textual status
// responses relied on.
func sexagesimal(deg float64) string {
	sign := ""
	if deg < 0 {
		sign = "-"
		deg = -deg
	}
	d := math.Floor(deg)
	rem := (deg - d) * 60
	m := math.Floor(rem)
	s := (rem - m) * 60
	return fmt.Sprintf("%s%d:%02d:%05.2f", sign, int(d), int(m), s)
}
