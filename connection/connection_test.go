package connection

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/launix-de/kvdaemon/frame"
)

func pipePair(t *testing.T) (*Connection, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })
	return New(server), client
}

func TestWriteThenReadFrame(t *testing.T) {
	conn, client := pipePair(t)

	done := make(chan error, 1)
	go func() {
		done <- conn.WriteFrame(frame.NewArray(frame.Simple("set"), frame.Bulk([]byte("v"))))
	}()

	buf := make([]byte, 256)
	deadline := time.Now().Add(time.Second)
	client.SetReadDeadline(deadline)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, consumed, err := frame.Parse(buf[:n])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if consumed != n {
		t.Fatalf("consumed %d of %d bytes", consumed, n)
	}
	if got.Kind != frame.KindArray || len(got.Array) != 2 {
		t.Fatalf("unexpected frame: %+v", got)
	}
}

func TestReadFrameAcrossShortWrites(t *testing.T) {
	conn, client := pipePair(t)

	f := frame.NewArray(frame.Simple("ping"))
	var wire []byte
	wire = appendEncoded(t, wire, f)

	go func() {
		for _, b := range wire {
			client.Write([]byte{b})
		}
	}()

	got, ok, err := conn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !ok {
		t.Fatal("ReadFrame returned ok=false, want true")
	}
	if got.Kind != frame.KindArray || len(got.Array) != 1 {
		t.Fatalf("unexpected frame: %+v", got)
	}
}

func TestReadFrameOrderlyClose(t *testing.T) {
	conn, client := pipePair(t)
	client.Close()

	_, ok, err := conn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if ok {
		t.Fatal("ReadFrame returned ok=true on closed, empty stream")
	}
}

func TestReadFrameResetMidFrame(t *testing.T) {
	conn, client := pipePair(t)

	go func() {
		client.Write([]byte("*2\r\n+ping"))
		client.Close()
	}()

	_, _, err := conn.ReadFrame()
	if err != ErrConnectionReset {
		t.Fatalf("ReadFrame err = %v, want ErrConnectionReset", err)
	}
}

func TestReadFrameRejectsOversizedFrame(t *testing.T) {
	conn, client := pipePair(t)
	conn.SetMaxFrameSize(16)

	go func() {
		client.Write([]byte("$1000\r\n"))
		client.Write(make([]byte, 100))
	}()

	_, _, err := conn.ReadFrame()
	var protoErr *frame.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("ReadFrame err = %v, want *frame.ProtocolError", err)
	}
}

func appendEncoded(t *testing.T, dst []byte, f frame.Frame) []byte {
	t.Helper()
	var buf writerBuf
	if err := frame.EncodeTo(&buf, f); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return append(dst, buf...)
}

type writerBuf []byte

func (w *writerBuf) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
