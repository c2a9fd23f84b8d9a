// Package server implements the TCP protocol front end: one goroutine per
// connection, dispatching decoded command frames to a Controller and
// streaming Stellarium position frames when a connection is otherwise
// idle.
package server

import (
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/mir06/telescope-server/internal/codec"
	"github.com/mir06/telescope-server/internal/controller"
)

const (
	recvDeadline       = 10 * time.Millisecond
	stellariumInterval = 500 * time.Millisecond
	requestFrameBytes  = 160 / 8
)

// Server accepts TCP connections and dispatches command frames to a
// Controller.
type Server struct {
	log  *zap.Logger
	ctrl *controller.Controller
	ln   net.Listener
}

// New binds a TCP listener on addr ("host:port"). A bind failure is fatal
// per the daemon's error taxonomy -- the caller should exit non-zero.
func New(log *zap.Logger, ctrl *controller.Controller, addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{log: log, ctrl: ctrl, ln: ln}, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until the listener is closed, spawning one
// goroutine per connection. It returns the Accept error that ended the
// loop (nil after a clean Close).
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handle(conn)
	}
}

// Close stops accepting new connections. Already-running connection
// goroutines are daemon-style: abandoned on shutdown, not joined.
func (s *Server) Close() error {
	return s.ln.Close()
}

// handle runs one connection's request loop. Any panic is recovered so a
// single malformed frame or codec bug can never bring down the acceptor.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("connection handler panic", zap.Any("panic", r))
		}
	}()

	buf := make([]byte, requestFrameBytes)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(recvDeadline)); err != nil {
			return
		}

		n, err := conn.Read(buf)
		if err != nil {
			if isTimeout(err) {
				if !s.streamPosition(conn) {
					return
				}
				continue
			}
			// Any other read error (including EOF on a closed socket)
			// ends this connection's loop.
			return
		}

		if n < requestFrameBytes {
			continue
		}

		cmd, err := codec.Decode(buf[:n])
		if err != nil {
			s.log.Debug("malformed frame", zap.Error(err))
			return
		}

		s.dispatch(conn, cmd)

		if cmd.Type != codec.MTypeStellarium {
			break
		}
	}
}

// streamPosition sends one Stellarium position frame derived from the
// controller's current pointing, then sleeps 500ms as the idle-poll
// cadence. Send errors are swallowed and it always returns true; a dead
// connection is detected by the next read in handle, which ends the loop.
func (s *Server) streamPosition(conn net.Conn) bool {
	ra, dec := s.ctrl.CurrentPos()

	frame := codec.EncodePosition(codec.PositionFrame{
		TimeMicros: time.Now().UnixMicro(),
		RAUint:     codec.RAHoursToUint(ra),
		DecInt:     codec.DecDegToInt(dec),
		Status:     0,
	})

	if err := conn.SetWriteDeadline(time.Now().Add(recvDeadline)); err == nil {
		_, _ = conn.Write(frame)
	}

	time.Sleep(stellariumInterval)
	return true
}

// dispatch applies one decoded command to the controller. STATUS requests
// additionally write their textual response back to conn, best-effort,
// matching the original handler's bare socket.send of the status string.
func (s *Server) dispatch(conn net.Conn, cmd codec.Command) {
	switch cmd.Type {
	case codec.MTypeStellarium:
		ra := codec.RAUintToHours(cmd.RAUint)
		dec := codec.DecIntToDeg(cmd.DecInt)
		s.ctrl.Goto(ra, dec)
	case codec.MTypeLocation:
		s.ctrl.SetObserver(float64(cmd.LonRad), float64(cmd.LatRad), float64(cmd.ElevM))
	case codec.MTypeStartCal:
		s.ctrl.StartCalibration()
	case codec.MTypeStopCal:
		s.ctrl.StopCalibration()
	case codec.MTypeMakeStep:
		s.ctrl.MakeStep(cmd.AzSteps, cmd.AltSteps)
	case codec.MTypeStartMotor:
		s.ctrl.StartStopMotor(int(cmd.MotorID), cmd.Action != 0, cmd.Direction != 0)
	case codec.MTypeSetAngle:
		s.ctrl.SetObject(int(cmd.ObjectID))
	case codec.MTypeToggleTrack:
		s.ctrl.ToggleTracking()
	case codec.MTypeApplyObject:
		s.ctrl.ApplyObject()
	case codec.MTypeStatus:
		response := s.ctrl.GetStatus(int(cmd.StatusCode))
		if err := conn.SetWriteDeadline(time.Now().Add(recvDeadline)); err == nil {
			_, _ = conn.Write([]byte(response))
		}
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
