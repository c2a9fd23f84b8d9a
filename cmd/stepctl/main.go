// Command stepctl is a hardware smoke-test tool: it drives a single
// stepper motor axis directly through the HAL for some number of pulses,
// a bring-up tool that exercises the motor cosine-ramp driver end to end.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mir06/telescope-server/internal/hal"
	"github.com/mir06/telescope-server/internal/motor"
)

func main() {
	pulPin := flag.Int("pin", 15, "step (PUL) GPIO pin, BCM numbering")
	dirPin := flag.Int("dir-pin", 14, "direction (DIR) GPIO pin")
	enblPin := flag.Int("enbl-pin", 8, "enable (ENBL) GPIO pin")
	count := flag.Int("count", 200, "number of pulses to emit")
	reverse := flag.Bool("reverse", false, "step in the reverse direction")
	stepsPerRev := flag.Int("steps-per-rev", 0, "steps per revolution; 0 leaves the motor uncalibrated (no angle tracking)")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	gpio, err := hal.NewRPIO()
	if err != nil {
		log.Fatal("gpio init failed", zap.Error(err))
	}
	defer gpio.Close()

	pins := motor.Pins{PUL: *pulPin, DIR: *dirPin, ENBL: *enblPin}
	m, err := motor.New(log, gpio, "stepctl", pins, -5, 365, 1, motor.DefaultCurve())
	if err != nil {
		log.Fatal("motor init failed", zap.Error(err))
	}

	if *stepsPerRev > 0 {
		m.SetStepsPerRev(*stepsPerRev)
	}
	m.Enable(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("interrupted, requesting stop")
		m.RequestStop()
	}()

	fmt.Printf("stepctl: emitting %d pulses on pin %d (dir=%d, enbl=%d), reverse=%v\n", *count, *pulPin, *dirPin, *enblPin, *reverse)
	start := time.Now()
	m.Step(*count, !*reverse)
	fmt.Printf("stepctl: done in %s, angle=%.3f steps=%d\n", time.Since(start), m.Angle(), m.Steps())
}
