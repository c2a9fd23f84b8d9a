// Package telemetry publishes the mount's position to an MQTT broker once
// a second, mirroring the pattern EdgeFlow's mqtt_out node uses to publish
// a message body to a broker: build client options, connect lazily, and
// publish with a wait on the resulting token. The beacon is optional and
// stays disabled when no broker is configured.
package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Controller is the narrow slice of *controller.Controller the beacon
// needs: current sky coordinates, raw mount angles, and status flags.
type Controller interface {
	CurrentPos() (raHours, decDeg float64)
	AzAlt() (az, alt float64)
	IsTracking() bool
	Calibrated() bool
}

// Config configures the beacon. An empty Broker disables it entirely.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
	Interval time.Duration
}

// DefaultConfig returns the beacon's publish cadence and topic when the
// operator has not overridden them.
func DefaultConfig() Config {
	return Config{
		Topic:    "telescope/position",
		ClientID: "telescoped",
		Interval: time.Second,
	}
}

// position is the JSON payload published once per tick.
type position struct {
	RAHours    float64 `json:"ra_hours"`
	DecDeg     float64 `json:"dec_deg"`
	AzDeg      float64 `json:"az_deg"`
	AltDeg     float64 `json:"alt_deg"`
	Tracking   bool    `json:"tracking"`
	Calibrated bool    `json:"calibrated"`
}

// Beacon owns the MQTT client and the ticking goroutine that publishes
// mount position. A Beacon with an empty broker is a no-op: Run returns
// immediately.
type Beacon struct {
	log  *zap.Logger
	cfg  Config
	ctrl Controller

	mu        sync.Mutex
	client    mqtt.Client
	connected bool
}

// New builds a Beacon. It does not connect until Run is called.
func New(log *zap.Logger, cfg Config, ctrl Controller) *Beacon {
	return &Beacon{log: log, cfg: cfg, ctrl: ctrl}
}

// Enabled reports whether a broker was configured.
func (b *Beacon) Enabled() bool {
	return b.cfg.Broker != ""
}

// Run publishes position on cfg.Interval until stop is closed. Connect
// failures are logged and retried on the next tick rather than treated
// as fatal, since the beacon is a best-effort side channel.
func (b *Beacon) Run(stop <-chan struct{}) {
	if !b.Enabled() {
		return
	}

	interval := b.cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			b.disconnect()
			return
		case <-ticker.C:
			if err := b.publish(); err != nil {
				b.log.Debug("telemetry publish failed", zap.Error(err))
			}
		}
	}
}

func (b *Beacon) publish() error {
	if err := b.connect(); err != nil {
		return err
	}

	ra, dec := b.ctrl.CurrentPos()
	az, alt := b.ctrl.AzAlt()
	payload, err := json.Marshal(position{
		RAHours:    ra,
		DecDeg:     dec,
		AzDeg:      az,
		AltDeg:     alt,
		Tracking:   b.ctrl.IsTracking(),
		Calibrated: b.ctrl.Calibrated(),
	})
	if err != nil {
		return fmt.Errorf("telemetry: marshal: %w", err)
	}

	token := b.client.Publish(b.cfg.Topic, 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("telemetry: publish: %w", token.Error())
	}
	return nil
}

func (b *Beacon) connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(b.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		b.mu.Lock()
		b.connected = true
		b.mu.Unlock()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.mu.Lock()
		b.connected = false
		b.mu.Unlock()
		b.log.Warn("telemetry broker connection lost", zap.Error(err))
	})

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("telemetry: connect: %w", token.Error())
	}
	return nil
}

func (b *Beacon) disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil && b.connected {
		b.client.Disconnect(250)
		b.connected = false
	}
}
