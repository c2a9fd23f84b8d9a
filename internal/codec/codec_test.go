package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLocationFrame(t *testing.T) {
	// S1: msize=20, mtype=1 LOCATION, lon=2.0, lat=2.0, alt=100.0.
	frame := []byte{
		0x14, 0x00, 0x01, 0x00,
		0x00, 0x00, 0x00, 0x40,
		0x00, 0x00, 0x00, 0x40,
		0x00, 0x00, 0xC8, 0x42,
		0x00, 0x00, 0x00, 0x00,
	}

	cmd, err := Decode(frame)
	require.NoError(t, err)

	assert.Equal(t, MTypeLocation, cmd.Type)
	assert.InDelta(t, 2.0, cmd.LonRad, 1e-6)
	assert.InDelta(t, 2.0, cmd.LatRad, 1e-6)
	assert.InDelta(t, 100.0, cmd.ElevM, 1e-4)
}

func TestStellariumCoordinateConversion(t *testing.T) {
	// S2: ra_uint = 2^31 -> ra_h = 12.0; dec_int = -2^30 -> dec_deg = -90.0.
	assert.InDelta(t, 12.0, RAUintToHours(1<<31), 1e-9)
	assert.InDelta(t, -90.0, DecIntToDeg(-(1 << 30)), 1e-9)
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownMtype(t *testing.T) {
	frame := make([]byte, 20)
	frame[0] = 0x14
	frame[2] = 0xFF
	frame[3] = 0xFF
	_, err := Decode(frame)
	assert.Error(t, err)
}

func TestCommandRoundTrip(t *testing.T) {
	cases := []Command{
		{Type: MTypeStellarium, TimeMicros: 1234567890, RAUint: 1 << 30, DecInt: -(1 << 20)},
		{Type: MTypeLocation, LonRad: 1.5, LatRad: -0.75, ElevM: 250.25},
		{Type: MTypeStartCal},
		{Type: MTypeStopCal},
		{Type: MTypeMakeStep, AzSteps: -1234, AltSteps: 4321},
		{Type: MTypeStartMotor, MotorID: 1, Action: 0, Direction: 1},
		{Type: MTypeSetAngle, ObjectID: 7},
		{Type: MTypeToggleTrack},
		{Type: MTypeApplyObject},
		{Type: MTypeStatus, StatusCode: 20},
	}

	for _, want := range cases {
		encoded := Encode(want)
		require.Len(t, encoded, 20)

		got, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPositionFrameRoundTrip(t *testing.T) {
	want := PositionFrame{
		TimeMicros: 1700000000123456,
		RAUint:     RAHoursToUint(9.5),
		DecInt:     DecDegToInt(-33.25),
		Status:     0,
	}

	encoded := EncodePosition(want)
	require.Len(t, encoded, 24)

	got, err := DecodePosition(encoded)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
