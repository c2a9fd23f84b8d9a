package heartbeat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeController struct {
	az, alt    float64
	tracking   bool
	calibrated bool
}

func (f *fakeController) AzAlt() (float64, float64) { return f.az, f.alt }
func (f *fakeController) IsTracking() bool           { return f.tracking }
func (f *fakeController) Calibrated() bool           { return f.calibrated }

func TestHeartbeatRejectsBadInterval(t *testing.T) {
	_, err := New(zap.NewNop(), &fakeController{}, "not-a-duration")
	assert.Error(t, err)
}

func TestHeartbeatLogsOnSchedule(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	h, err := New(log, &fakeController{tracking: true, calibrated: true, az: 10, alt: 20}, "50ms")
	require.NoError(t, err)

	h.Start()
	defer h.Stop()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("heartbeat").Len() > 0
	}, 2*time.Second, 10*time.Millisecond)
}
