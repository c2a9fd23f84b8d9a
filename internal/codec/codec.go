// Package codec packs and unpacks the daemon's fixed-size little-endian
// wire frames: 20-byte command frames from clients, and 24-byte
// Stellarium position frames sent back.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Message type codes, client-to-server.
const (
	MTypeStellarium   = 0
	MTypeLocation     = 1
	MTypeStartCal     = 2
	MTypeStopCal      = 3
	MTypeMakeStep     = 4
	MTypeStartMotor   = 5
	MTypeSetAngle     = 6
	MTypeToggleTrack  = 7
	MTypeApplyObject  = 8
	MTypeStatus       = 99
)

const (
	requestFrameSize  = 20
	responseFrameSize = 24
)

// Command is a tagged sum type over every client-to-server mtype. Only the
// field(s) relevant to Type are meaningful.
type Command struct {
	Type int

	// STELLARIUM (0)
	TimeMicros int64
	RAUint     uint32
	DecInt     int32

	// LOCATION (1)
	LonRad float32
	LatRad float32
	ElevM  float32

	// MAKE_STEP (4)
	AzSteps  int16
	AltSteps int16

	// START_MOT (5)
	MotorID   int16
	Action    int16
	Direction int16

	// SET_ANGLE (6)
	ObjectID int16

	// STATUS (99)
	StatusCode int16
}

// Decode parses a 20-byte request frame into a Command. It returns an
// error for a short buffer, a bad msize, or an unrecognized mtype --
// all of which are malformed-frame conditions per the server's error
// taxonomy.
func Decode(frame []byte) (Command, error) {
	if len(frame) < requestFrameSize {
		return Command{}, fmt.Errorf("codec: frame too short: %d bytes", len(frame))
	}

	msize := binary.LittleEndian.Uint16(frame[0:2])
	if msize != requestFrameSize {
		return Command{}, fmt.Errorf("codec: unexpected msize %d", msize)
	}

	mtype := binary.LittleEndian.Uint16(frame[2:4])
	payload := frame[4:20]

	cmd := Command{Type: int(mtype)}

	switch cmd.Type {
	case MTypeStellarium:
		cmd.TimeMicros = int64(binary.LittleEndian.Uint64(payload[0:8]))
		cmd.RAUint = binary.LittleEndian.Uint32(payload[8:12])
		cmd.DecInt = int32(binary.LittleEndian.Uint32(payload[12:16]))
	case MTypeLocation:
		cmd.LonRad = decodeFloat32(payload[0:4])
		cmd.LatRad = decodeFloat32(payload[4:8])
		cmd.ElevM = decodeFloat32(payload[8:12])
	case MTypeStartCal, MTypeStopCal, MTypeToggleTrack, MTypeApplyObject:
		// No payload.
	case MTypeMakeStep:
		cmd.AzSteps = int16(binary.LittleEndian.Uint16(payload[0:2]))
		cmd.AltSteps = int16(binary.LittleEndian.Uint16(payload[2:4]))
	case MTypeStartMotor:
		cmd.MotorID = int16(binary.LittleEndian.Uint16(payload[0:2]))
		cmd.Action = int16(binary.LittleEndian.Uint16(payload[2:4]))
		cmd.Direction = int16(binary.LittleEndian.Uint16(payload[4:6]))
	case MTypeSetAngle:
		cmd.ObjectID = int16(binary.LittleEndian.Uint16(payload[0:2]))
	case MTypeStatus:
		cmd.StatusCode = int16(binary.LittleEndian.Uint16(payload[0:2]))
	default:
		return Command{}, fmt.Errorf("codec: unknown mtype %d", mtype)
	}

	return cmd, nil
}

// Encode packs cmd back into a 20-byte request frame, the inverse of
// Decode for every mtype. Used by tests and by control clients that
// originate requests.
func Encode(cmd Command) []byte {
	frame := make([]byte, requestFrameSize)
	binary.LittleEndian.PutUint16(frame[0:2], requestFrameSize)
	binary.LittleEndian.PutUint16(frame[2:4], uint16(cmd.Type))
	payload := frame[4:20]

	switch cmd.Type {
	case MTypeStellarium:
		binary.LittleEndian.PutUint64(payload[0:8], uint64(cmd.TimeMicros))
		binary.LittleEndian.PutUint32(payload[8:12], cmd.RAUint)
		binary.LittleEndian.PutUint32(payload[12:16], uint32(cmd.DecInt))
	case MTypeLocation:
		encodeFloat32(payload[0:4], cmd.LonRad)
		encodeFloat32(payload[4:8], cmd.LatRad)
		encodeFloat32(payload[8:12], cmd.ElevM)
	case MTypeMakeStep:
		binary.LittleEndian.PutUint16(payload[0:2], uint16(cmd.AzSteps))
		binary.LittleEndian.PutUint16(payload[2:4], uint16(cmd.AltSteps))
	case MTypeStartMotor:
		binary.LittleEndian.PutUint16(payload[0:2], uint16(cmd.MotorID))
		binary.LittleEndian.PutUint16(payload[2:4], uint16(cmd.Action))
		binary.LittleEndian.PutUint16(payload[4:6], uint16(cmd.Direction))
	case MTypeSetAngle:
		binary.LittleEndian.PutUint16(payload[0:2], uint16(cmd.ObjectID))
	case MTypeStatus:
		binary.LittleEndian.PutUint16(payload[0:2], uint16(cmd.StatusCode))
	}

	return frame
}

// PositionFrame is the server-to-Stellarium 24-byte response: current
// local time and the mount's (ra, dec) in Stellarium's fixed-point units.
type PositionFrame struct {
	TimeMicros int64
	RAUint     uint32
	DecInt     int32
	Status     int32
}

// EncodePosition packs a 24-byte Stellarium position response.
func EncodePosition(p PositionFrame) []byte {
	frame := make([]byte, responseFrameSize)
	binary.LittleEndian.PutUint16(frame[0:2], responseFrameSize)
	binary.LittleEndian.PutUint16(frame[2:4], MTypeStellarium)
	binary.LittleEndian.PutUint64(frame[4:12], uint64(p.TimeMicros))
	binary.LittleEndian.PutUint32(frame[12:16], p.RAUint)
	binary.LittleEndian.PutUint32(frame[16:20], uint32(p.DecInt))
	binary.LittleEndian.PutUint32(frame[20:24], uint32(p.Status))
	return frame
}

// DecodePosition parses a 24-byte Stellarium position response. Present
// for round-trip testing and for a control client reading server frames.
func DecodePosition(frame []byte) (PositionFrame, error) {
	if len(frame) < responseFrameSize {
		return PositionFrame{}, fmt.Errorf("codec: position frame too short: %d bytes", len(frame))
	}
	return PositionFrame{
		TimeMicros: int64(binary.LittleEndian.Uint64(frame[4:12])),
		RAUint:     binary.LittleEndian.Uint32(frame[12:16]),
		DecInt:     int32(binary.LittleEndian.Uint32(frame[16:20])),
		Status:     int32(binary.LittleEndian.Uint32(frame[20:24])),
	}, nil
}

func decodeFloat32(b []byte) float32 {
	bits := binary.LittleEndian.Uint32(b)
	return math.Float32frombits(bits)
}

func encodeFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

// RAHoursToUint converts ra in hours (0..24) to Stellarium's u32 fixed-point.
func RAHoursToUint(raHours float64) uint32 {
	return uint32(math.Round(raHours * (2147483648.0 / 12.0)))
}

// RAUintToHours is the inverse of RAHoursToUint.
func RAUintToHours(raUint uint32) float64 {
	return float64(raUint) * (12.0 / 2147483648.0)
}

// DecDegToInt converts dec in degrees (-90..90) to Stellarium's i32
// fixed-point.
func DecDegToInt(decDeg float64) int32 {
	return int32(math.Round(decDeg * (1073741824.0 / 90.0)))
}

// DecIntToDeg is the inverse of DecDegToInt.
func DecIntToDeg(decInt int32) float64 {
	return float64(decInt) * (90.0 / 1073741824.0)
}
