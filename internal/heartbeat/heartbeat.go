// Package heartbeat periodically logs a one-line liveness summary of the
// mount's state, using robfig/cron's "@every" interval triggers rather
// than a raw time.Ticker.
package heartbeat

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Controller is the slice of *controller.Controller the heartbeat needs
// to describe the mount's current state.
type Controller interface {
	AzAlt() (az, alt float64)
	IsTracking() bool
	Calibrated() bool
}

// Heartbeat logs a liveness line on a cron schedule.
type Heartbeat struct {
	log  *zap.Logger
	ctrl Controller
	cron *cron.Cron
}

// New builds a Heartbeat that fires every interval once Start is called.
// interval is expressed as a Go duration string and translated to cron's
// "@every" syntax.
func New(log *zap.Logger, ctrl Controller, interval string) (*Heartbeat, error) {
	h := &Heartbeat{log: log, ctrl: ctrl, cron: cron.New()}
	_, err := h.cron.AddFunc(fmt.Sprintf("@every %s", interval), h.beat)
	if err != nil {
		return nil, fmt.Errorf("heartbeat: invalid interval %q: %w", interval, err)
	}
	return h, nil
}

// Start begins the cron scheduler; it returns immediately and runs the
// beat in its own goroutine.
func (h *Heartbeat) Start() {
	h.cron.Start()
}

// Stop halts the scheduler and waits for any in-flight beat to finish.
func (h *Heartbeat) Stop() {
	<-h.cron.Stop().Done()
}

func (h *Heartbeat) beat() {
	az, alt := h.ctrl.AzAlt()
	h.log.Info("heartbeat",
		zap.Bool("tracking", h.ctrl.IsTracking()),
		zap.Bool("calibrated", h.ctrl.Calibrated()),
		zap.Float64("az", az),
		zap.Float64("alt", alt),
	)
}
