// Command telescoped is the telescope mount control daemon: it drives
// two stepper-motor axes over a TCP protocol compatible with planetarium
// clients such as Stellarium, tracks sky objects via a built-in low
// precision ephemeris, and supports manual GPIO button control.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mir06/telescope-server/internal/config"
	"github.com/mir06/telescope-server/internal/controller"
	"github.com/mir06/telescope-server/internal/ephemeris"
	"github.com/mir06/telescope-server/internal/hal"
	"github.com/mir06/telescope-server/internal/heartbeat"
	"github.com/mir06/telescope-server/internal/logger"
	"github.com/mir06/telescope-server/internal/motor"
	"github.com/mir06/telescope-server/internal/plugin"
	"github.com/mir06/telescope-server/internal/server"
	"github.com/mir06/telescope-server/internal/telemetry"
)

func main() {
	flags := pflag.NewFlagSet("telescoped", pflag.ExitOnError)
	configFile := flags.String("config", "", "path to a YAML config file")
	flags.String("host", "", "listen address (overrides config/env)")
	flags.Int("port", 0, "listen port (overrides config/env)")
	flags.String("controller", "", "controller identifier, logged at startup")
	flags.String("log-level", "", "log level: Debug, Info, Warn, Error")
	flags.String("log-file", "", "rotated log file path")
	flags.StringSlice("user-plugins", nil, "manual GPIO plugins to enable: buttons, apply-object, track, led")
	flags.Duration("heartbeat-interval", 0, "heartbeat log interval")
	flags.String("telemetry-mqtt-broker", "", "MQTT broker URL for the position beacon, e.g. tcp://host:1883")
	flags.String("telemetry-mqtt-topic", "", "MQTT topic for the position beacon")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telescoped: config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.LogFile = cfg.LogFile
	log, level, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telescoped: logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *configFile != "" {
		stopWatch, err := logger.WatchLevel(log, level, *configFile)
		if err != nil {
			log.Warn("log level hot-reload disabled", zap.Error(err))
		} else {
			defer stopWatch()
		}
	}

	log.Info("telescoped starting",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("controller", cfg.Controller),
	)

	gpio, err := hal.NewRPIO()
	if err != nil {
		log.Fatal("gpio init failed", zap.Error(err))
	}
	defer gpio.Close()

	curve := motor.Curve{
		VEnd:          cfg.Curve.VEnd,
		VStart:        cfg.Curve.VStart,
		Skewness:      cfg.Curve.Skewness,
		AccelSteps:    cfg.Curve.AccelSteps,
		SkewnessBrake: cfg.Curve.SkewnessBrake,
		BrakeSteps:    cfg.Curve.BrakeSteps,
	}

	azMotor, err := motor.New(log, gpio, "azimuth", motor.Pins{PUL: cfg.Pins.AzPUL, DIR: cfg.Pins.AzDIR, ENBL: cfg.Pins.AzENBL}, -5, 365, 1, curve)
	if err != nil {
		log.Fatal("azimuth motor init failed", zap.Error(err))
	}
	altMotor, err := motor.New(log, gpio, "altitude", motor.Pins{PUL: cfg.Pins.AltPUL, DIR: cfg.Pins.AltDIR, ENBL: cfg.Pins.AltENBL}, -5, 365, -1, curve)
	if err != nil {
		log.Fatal("altitude motor init failed", zap.Error(err))
	}

	eph := ephemeris.New()
	ctrl := controller.New(log, eph, azMotor, altMotor)

	stop := make(chan struct{})

	for _, name := range cfg.UserPlugins {
		startPlugin(log, gpio, ctrl, name, stop)
	}

	telCfg := telemetry.DefaultConfig()
	telCfg.Broker = cfg.Telemetry.MQTTBroker
	if cfg.Telemetry.MQTTTopic != "" {
		telCfg.Topic = cfg.Telemetry.MQTTTopic
	}
	beacon := telemetry.New(log, telCfg, ctrl)
	if beacon.Enabled() {
		go beacon.Run(stop)
	}

	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	hb, err := heartbeat.New(log, ctrl, interval.String())
	if err != nil {
		log.Fatal("heartbeat init failed", zap.Error(err))
	}
	hb.Start()
	defer hb.Stop()

	srv, err := server.New(log, ctrl, cfg.Addr())
	if err != nil {
		log.Fatal("server bind failed", zap.Error(err), zap.String("addr", cfg.Addr()))
	}
	go func() {
		if err := srv.Serve(); err != nil {
			log.Error("server stopped", zap.Error(err))
		}
	}()
	log.Info("listening", zap.String("addr", srv.Addr().String()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	close(stop)
	srv.Close()
}

// startPlugin wires up the one manual GPIO shim named by the operator.
// Unknown plugin names are logged and skipped rather than treated as
// fatal, so a typo in --user-plugins doesn't take down the daemon.
func startPlugin(log *zap.Logger, gpio hal.GPIO, ctrl plugin.Controller, name string, stop <-chan struct{}) {
	switch name {
	case "buttons":
		buttons, err := plugin.NewManualButtons(log, gpio, ctrl, plugin.DefaultButtonMappings())
		if err != nil {
			log.Warn("manual buttons plugin disabled", zap.Error(err))
			return
		}
		go buttons.Run(stop)
	case "apply-object":
		btn, err := plugin.NewApplyObjectButton(log, gpio, ctrl, plugin.DefaultApplyObjectPin)
		if err != nil {
			log.Warn("apply-object plugin disabled", zap.Error(err))
			return
		}
		go btn.Run(stop)
	case "track":
		btn, err := plugin.NewTrackButton(log, gpio, ctrl, plugin.DefaultTrackPin)
		if err != nil {
			log.Warn("track plugin disabled", zap.Error(err))
			return
		}
		go btn.Run(stop)
	case "led":
		led, err := plugin.NewStatusLED(log, gpio, ctrl, plugin.DefaultStatusLEDPin)
		if err != nil {
			log.Warn("status LED plugin disabled", zap.Error(err))
			return
		}
		go led.Run(stop)
	default:
		log.Warn("unknown user plugin, skipping", zap.String("name", name))
	}
}
