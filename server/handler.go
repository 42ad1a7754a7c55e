package server

import "errors"
import "io"
import "net"

import "github.com/google/uuid"

import "github.com/launix-de/kvdaemon/command"
import "github.com/launix-de/kvdaemon/connection"
import "github.com/launix-de/kvdaemon/frame"

// handle implements §4.5's handler task: read one frame, dispatch it as a
// Command, write the response, repeat; an orderly close ends the loop
// quietly, anything else logs and terminates the connection.
func (s *Server) handle(raw net.Conn) {
	conn := connection.New(raw)
	defer conn.Close()
	if s.maxFrameSize > 0 {
		conn.SetMaxFrameSize(s.maxFrameSize)
	}

	addr := conn.RemoteAddr().String()
	id := uuid.New().String()

	s.registry.add(addr, id)
	s.dashboard.setActiveSafe(s.registry.count())
	defer func() {
		s.registry.remove(addr)
		s.dashboard.setActiveSafe(s.registry.count())
	}()

	withConnID(id, func() {
		for {
			f, ok, err := conn.ReadFrame()
			if err != nil {
				if errors.Is(err, connection.ErrConnectionReset) || errors.Is(err, io.EOF) {
					logf("connection closed: %v", err)
				} else {
					logf("read error: %v", err)
				}
				return
			}
			if !ok {
				return
			}

			cmd, err := command.FromFrame(f)
			if err != nil {
				var protoErr *frame.ProtocolError
				if errors.As(err, &protoErr) {
					logf("protocol error, closing: %v", protoErr)
				} else {
					logf("command error, closing: %v", err)
				}
				return
			}

			if err := cmd.Apply(conn, s.engine); err != nil {
				logf("write error, closing: %v", err)
				return
			}
		}
	})
}
