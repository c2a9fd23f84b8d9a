package plugin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mir06/telescope-server/internal/hal"
)

type fakeController struct {
	startStopCalls [][3]int
	applyCount     int
	toggleCount    int
	tracking       bool
}

func (f *fakeController) StartStopMotor(axis int, start bool, direction bool) {
	s, d := 0, 0
	if start {
		s = 1
	}
	if direction {
		d = 1
	}
	f.startStopCalls = append(f.startStopCalls, [3]int{axis, s, d})
}

func (f *fakeController) ApplyObject()     { f.applyCount++ }
func (f *fakeController) ToggleTracking()  { f.toggleCount++ }
func (f *fakeController) IsTracking() bool { return f.tracking }

func TestManualButtonsStartsAndStopsOnLevelChange(t *testing.T) {
	mock := hal.NewMock()

	ctrl := &fakeController{}
	mappings := []ButtonMapping{{Pin: 22, Axis: 0, Direction: true}}
	b, err := NewManualButtons(zap.NewNop(), mock, ctrl, mappings)
	require.NoError(t, err)
	b.poll = time.Millisecond

	stop := make(chan struct{})
	go b.Run(stop)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, mock.Output(22, true))
	time.Sleep(10 * time.Millisecond)
	close(stop)

	require.GreaterOrEqual(t, len(ctrl.startStopCalls), 2)
}

func TestStatusLEDBlinksFasterWhileTracking(t *testing.T) {
	g := hal.NewMock()
	ctrl := &fakeController{tracking: true}

	led, err := NewStatusLED(zap.NewNop(), g, ctrl, 2)
	require.NoError(t, err)

	stop := make(chan struct{})
	go led.Run(stop)
	// While tracking the LED toggles every 125ms, so by 200ms it has been
	// switched on once; at the idle 500ms rate it would still be off.
	time.Sleep(200 * time.Millisecond)
	close(stop)

	level, err := g.Input(2)
	require.NoError(t, err)
	assert.True(t, level)
}
