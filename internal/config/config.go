// Package config loads daemon configuration from, in increasing priority,
// compiled-in defaults, an optional YAML file, environment variables, and
// CLI flags, via a viper-backed precedence chain.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Pins is the compiled-in GPIO pin assignment for both axes, overridable
// per physical rig via the YAML config file.
type Pins struct {
	AzPUL, AzDIR, AzENBL    int
	AltPUL, AltDIR, AltENBL int
}

// Curve is the velocity-ramp shaping configuration, operator-tunable per
// rig rather than hardcoded into the Motor constructor.
type Curve struct {
	VEnd          float64
	VStart        float64
	Skewness      float64
	AccelSteps    int
	SkewnessBrake float64
	BrakeSteps    int
}

// Telemetry configures the optional MQTT position beacon. Empty Broker
// disables it.
type Telemetry struct {
	MQTTBroker string
	MQTTTopic  string
}

// Config is the daemon's complete runtime configuration.
type Config struct {
	Host               string
	Port               int
	Controller         string
	LogLevel           string
	LogFile            string
	UserPlugins        []string
	HeartbeatInterval  time.Duration
	Pins               Pins
	Curve              Curve
	Telemetry          Telemetry
}

// Addr returns the "host:port" listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load builds a Config by merging defaults, an optional YAML file at
// configPath (if non-empty and present), environment variables (HOST,
// PORT, CONTROLLER, LOGLEVEL, LOGFILE, USER_PLUGINS, ...), and any flags
// already parsed into flags.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	bindEnv(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	cfg := &Config{
		Host:              v.GetString("host"),
		Port:              v.GetInt("port"),
		Controller:        v.GetString("controller"),
		LogLevel:          v.GetString("log-level"),
		LogFile:           v.GetString("log-file"),
		UserPlugins:       v.GetStringSlice("user-plugins"),
		HeartbeatInterval: v.GetDuration("heartbeat-interval"),
		Pins: Pins{
			AzPUL:  v.GetInt("pins.az.pul"),
			AzDIR:  v.GetInt("pins.az.dir"),
			AzENBL: v.GetInt("pins.az.enbl"),
			AltPUL:  v.GetInt("pins.alt.pul"),
			AltDIR:  v.GetInt("pins.alt.dir"),
			AltENBL: v.GetInt("pins.alt.enbl"),
		},
		Curve: Curve{
			VEnd:          v.GetFloat64("curve.vend"),
			VStart:        v.GetFloat64("curve.vstart"),
			Skewness:      v.GetFloat64("curve.skewness"),
			AccelSteps:    v.GetInt("curve.accel_steps"),
			SkewnessBrake: v.GetFloat64("curve.skewness_brake"),
			BrakeSteps:    v.GetInt("curve.brake_steps"),
		},
		Telemetry: Telemetry{
			MQTTBroker: v.GetString("telemetry-mqtt-broker"),
			MQTTTopic:  v.GetString("telemetry-mqtt-topic"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 10000)
	v.SetDefault("controller", "")
	v.SetDefault("log-level", "Error")
	v.SetDefault("log-file", "/var/log/telescoped.log")
	v.SetDefault("user-plugins", []string{})
	v.SetDefault("heartbeat-interval", 30*time.Second)

	// Pin assignments from the rig these defaults were measured on.
	v.SetDefault("pins.az.pul", 15)
	v.SetDefault("pins.az.dir", 14)
	v.SetDefault("pins.az.enbl", 8)
	v.SetDefault("pins.alt.pul", 23)
	v.SetDefault("pins.alt.dir", 18)
	v.SetDefault("pins.alt.enbl", 7)

	v.SetDefault("curve.vend", 8000.0)
	v.SetDefault("curve.vstart", 20.0)
	v.SetDefault("curve.skewness", 0.75)
	v.SetDefault("curve.accel_steps", 500)
	v.SetDefault("curve.skewness_brake", 0.9)
	v.SetDefault("curve.brake_steps", 500)

	v.SetDefault("telemetry-mqtt-broker", "")
	v.SetDefault("telemetry-mqtt-topic", "telescope/position")
}

// bindEnv wires each key to its spec-mandated environment variable name;
// AutomaticEnv alone would require HOST, PORT etc. to match the dotted
// key names exactly, which doesn't hold for hyphenated or nested keys.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("host", "HOST")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("controller", "CONTROLLER")
	_ = v.BindEnv("log-level", "LOGLEVEL")
	_ = v.BindEnv("log-file", "LOGFILE")
	_ = v.BindEnv("user-plugins", "USER_PLUGINS")
}
