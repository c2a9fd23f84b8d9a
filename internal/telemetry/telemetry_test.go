package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeController struct {
	ra, dec    float64
	az, alt    float64
	tracking   bool
	calibrated bool
}

func (f *fakeController) CurrentPos() (float64, float64) { return f.ra, f.dec }
func (f *fakeController) AzAlt() (float64, float64)       { return f.az, f.alt }
func (f *fakeController) IsTracking() bool                { return f.tracking }
func (f *fakeController) Calibrated() bool                { return f.calibrated }

func TestDisabledBeaconRunReturnsImmediately(t *testing.T) {
	b := New(zap.NewNop(), Config{}, &fakeController{})
	assert.False(t, b.Enabled())

	done := make(chan struct{})
	go func() {
		b.Run(make(chan struct{}))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for a disabled beacon")
	}
}

func TestEnabledReflectsBrokerConfig(t *testing.T) {
	b := New(zap.NewNop(), Config{Broker: "tcp://127.0.0.1:1883"}, &fakeController{})
	assert.True(t, b.Enabled())
}
