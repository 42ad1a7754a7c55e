// Package client implements the typed request/response layer described in
// §4.6: a thin wrapper over a connection.Connection that mirrors the command
// layer's four operations.
package client

import "fmt"
import "net"

import "github.com/launix-de/kvdaemon/connection"
import "github.com/launix-de/kvdaemon/frame"

// Error wraps a server-reported error frame (-not found / -internal error).
type Error struct {
	Kind frame.ErrorKind
}

func (e *Error) Error() string { return e.Kind.String() }

// IsNotFound reports whether err is the server's "not found" response.
func IsNotFound(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == frame.NotFound
}

// Client is a connected session against a kvdaemon server.
type Client struct {
	conn *connection.Connection
}

// Connect dials addr and returns a ready-to-use Client.
func Connect(addr string) (*Client, error) {
	raw, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &Client{conn: connection.New(raw)}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) roundTrip(req frame.Frame) (frame.Frame, error) {
	if err := c.conn.WriteFrame(req); err != nil {
		return frame.Frame{}, fmt.Errorf("client: write: %w", err)
	}
	resp, ok, err := c.conn.ReadFrame()
	if err != nil {
		return frame.Frame{}, fmt.Errorf("client: read: %w", err)
	}
	if !ok {
		return frame.Frame{}, fmt.Errorf("client: server closed the connection")
	}
	return resp, nil
}

// Ping sends a PING and reports whether the server replied PONG.
func (c *Client) Ping() error {
	resp, err := c.roundTrip(frame.NewArray(frame.Simple("ping")))
	if err != nil {
		return err
	}
	if resp.Kind == frame.KindError {
		return &Error{Kind: resp.ErrKind}
	}
	if resp.Kind != frame.KindSimple || resp.Simple != "PONG" {
		return fmt.Errorf("client: unexpected ping response %+v", resp)
	}
	return nil
}

// Get fetches key. A miss is reported as *Error with Kind == frame.NotFound,
// checkable with IsNotFound.
func (c *Client) Get(key string) ([]byte, error) {
	resp, err := c.roundTrip(frame.NewArray(frame.Simple("get"), frame.Simple(key)))
	if err != nil {
		return nil, err
	}
	switch resp.Kind {
	case frame.KindBulk:
		return resp.Bulk, nil
	case frame.KindError:
		return nil, &Error{Kind: resp.ErrKind}
	default:
		return nil, fmt.Errorf("client: unexpected get response %+v", resp)
	}
}

// Set stores value under key.
func (c *Client) Set(key string, value []byte) error {
	resp, err := c.roundTrip(frame.NewArray(frame.Simple("set"), frame.Simple(key), frame.Bulk(value)))
	if err != nil {
		return err
	}
	if resp.Kind == frame.KindError {
		return &Error{Kind: resp.ErrKind}
	}
	if resp.Kind != frame.KindSimple || resp.Simple != "OK" {
		return fmt.Errorf("client: unexpected set response %+v", resp)
	}
	return nil
}

// Delete removes key. A miss is reported as *Error with Kind ==
// frame.NotFound.
func (c *Client) Delete(key string) error {
	resp, err := c.roundTrip(frame.NewArray(frame.Simple("delete"), frame.Simple(key)))
	if err != nil {
		return err
	}
	if resp.Kind == frame.KindError {
		return &Error{Kind: resp.ErrKind}
	}
	if resp.Kind != frame.KindSimple || resp.Simple != "OK" {
		return fmt.Errorf("client: unexpected delete response %+v", resp)
	}
	return nil
}
