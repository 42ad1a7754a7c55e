// Package connection turns a net.Conn into a frame-at-a-time duplex stream:
// it owns the read buffer, the incremental frame assembly over it, and a
// buffered writer that flushes once per frame.
package connection

import "bufio"
import "errors"
import "fmt"
import "io"
import "net"

import "github.com/launix-de/kvdaemon/frame"

const initialBufferCapacity = 4 * 1024

// ErrConnectionReset is returned by ReadFrame when the peer closes mid-frame
// (zero bytes read while the buffer still holds a partial frame).
var ErrConnectionReset = errors.New("connection reset by peer")

// Connection buffers reads off conn and assembles them into Frames, and
// writes Frames back out through a buffered writer that is flushed after
// every write.
type Connection struct {
	conn         net.Conn
	reader       io.Reader
	writer       *bufio.Writer
	buf          []byte // unconsumed bytes read so far
	maxFrameSize int    // 0 means unlimited
}

// New wraps conn. The read buffer starts at 4 KiB and grows as needed to fit
// larger frames; it never shrinks back down.
func New(conn net.Conn) *Connection {
	return &Connection{
		conn:   conn,
		reader: conn,
		writer: bufio.NewWriter(conn),
		buf:    make([]byte, 0, initialBufferCapacity),
	}
}

// SetMaxFrameSize bounds how large the read buffer may grow while assembling
// a single frame; once exceeded without a complete frame, ReadFrame fails
// with a *frame.ProtocolError instead of growing without limit. Zero (the
// default set by New) means unlimited.
func (c *Connection) SetMaxFrameSize(n int) {
	c.maxFrameSize = n
}

// RemoteAddr is a convenience passthrough used by the server for logging and
// the connection registry.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close releases the underlying socket.
func (c *Connection) Close() error { return c.conn.Close() }

// ReadFrame returns the next complete frame on the stream. It returns
// (Frame{}, false, nil) on an orderly close with no partial data buffered,
// and ErrConnectionReset if the peer closes mid-frame.
func (c *Connection) ReadFrame() (frame.Frame, bool, error) {
	for {
		if f, ok, err := c.tryParse(); err != nil {
			return frame.Frame{}, false, err
		} else if ok {
			return f, true, nil
		}

		if c.maxFrameSize > 0 && len(c.buf) >= c.maxFrameSize {
			return frame.Frame{}, false, &frame.ProtocolError{
				Msg: fmt.Sprintf("frame exceeds %d byte limit", c.maxFrameSize),
			}
		}

		n, err := c.fill()
		if n == 0 {
			if err != nil && err != io.EOF {
				return frame.Frame{}, false, err
			}
			if len(c.buf) == 0 {
				return frame.Frame{}, false, nil
			}
			return frame.Frame{}, false, ErrConnectionReset
		}
	}
}

// fill grows the buffer with whatever bytes are currently available, ensuring
// capacity first so repeated small reads on a large frame don't thrash.
func (c *Connection) fill() (int, error) {
	if len(c.buf) == cap(c.buf) {
		grown := make([]byte, len(c.buf), cap(c.buf)*2)
		copy(grown, c.buf)
		c.buf = grown
	}
	readInto := c.buf[len(c.buf):cap(c.buf)]
	n, err := c.reader.Read(readInto)
	c.buf = c.buf[:len(c.buf)+n]
	return n, err
}

func (c *Connection) tryParse() (frame.Frame, bool, error) {
	n, err := frame.Check(c.buf)
	if err != nil {
		if _, incomplete := err.(frame.Incomplete); incomplete {
			return frame.Frame{}, false, nil
		}
		return frame.Frame{}, false, err
	}

	f, parsedLen, err := frame.Parse(c.buf[:n])
	if err != nil {
		return frame.Frame{}, false, err
	}
	if parsedLen != n {
		return frame.Frame{}, false, fmt.Errorf("connection: check/parse length mismatch (%d != %d)", n, parsedLen)
	}

	remaining := len(c.buf) - n
	copy(c.buf, c.buf[n:])
	c.buf = c.buf[:remaining]

	return f, true, nil
}

// WriteFrame serializes f and flushes immediately, so every call leaves the
// wire in a consistent state even if the handler never calls WriteFrame
// again on this connection.
func (c *Connection) WriteFrame(f frame.Frame) error {
	if err := frame.EncodeTo(c.writer, f); err != nil {
		return err
	}
	return c.writer.Flush()
}
