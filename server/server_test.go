package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/launix-de/kvdaemon/connection"
	"github.com/launix-de/kvdaemon/engine"
	"github.com/launix-de/kvdaemon/frame"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	e, err := engine.Open(filepath.Join(dir, "store.dat"), engine.Options{})
	if err != nil {
		t.Fatalf("engine.Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	srv := New(e, Options{CompactInterval: time.Hour})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ready := make(chan struct{})
	go func() {
		for {
			if c, err := net.Dial("tcp", addr); err == nil {
				c.Close()
				close(ready)
				return
			}
		}
	}()

	go func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			t.Logf("ListenAndServe: %v", err)
		}
	}()

	deadline := time.After(2 * time.Second)
	select {
	case <-ready:
	case <-deadline:
		t.Fatal("server did not become reachable")
	}

	return addr
}

func TestServerPingGetSetDelete(t *testing.T) {
	addr := startTestServer(t)

	raw, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer raw.Close()
	conn := connection.New(raw)

	if err := conn.WriteFrame(frame.NewArray(frame.Simple("ping"))); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	resp, _, err := conn.ReadFrame()
	if err != nil || resp.Kind != frame.KindSimple || resp.Simple != "PONG" {
		t.Fatalf("ping resp = %+v err=%v", resp, err)
	}

	if err := conn.WriteFrame(frame.NewArray(frame.Simple("get"), frame.Simple("x"))); err != nil {
		t.Fatalf("write get: %v", err)
	}
	resp, _, err = conn.ReadFrame()
	if err != nil || resp.Kind != frame.KindError || resp.ErrKind != frame.NotFound {
		t.Fatalf("get-miss resp = %+v err=%v", resp, err)
	}

	setFrame := frame.NewArray(frame.Simple("set"), frame.Simple("x"), frame.Bulk([]byte("1")))
	if err := conn.WriteFrame(setFrame); err != nil {
		t.Fatalf("write set: %v", err)
	}
	resp, _, err = conn.ReadFrame()
	if err != nil || resp.Kind != frame.KindSimple || resp.Simple != "OK" {
		t.Fatalf("set resp = %+v err=%v", resp, err)
	}

	if err := conn.WriteFrame(frame.NewArray(frame.Simple("get"), frame.Simple("x"))); err != nil {
		t.Fatalf("write get: %v", err)
	}
	resp, _, err = conn.ReadFrame()
	if err != nil || resp.Kind != frame.KindBulk || string(resp.Bulk) != "1" {
		t.Fatalf("get resp = %+v err=%v", resp, err)
	}

	if err := conn.WriteFrame(frame.NewArray(frame.Simple("delete"), frame.Simple("x"))); err != nil {
		t.Fatalf("write delete: %v", err)
	}
	resp, _, err = conn.ReadFrame()
	if err != nil || resp.Kind != frame.KindSimple || resp.Simple != "OK" {
		t.Fatalf("delete resp = %+v err=%v", resp, err)
	}
}

func TestServerClosesConnectionOnProtocolError(t *testing.T) {
	addr := startTestServer(t)

	raw, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer raw.Close()

	if _, err := raw.Write([]byte("*1\r\n+bogus-command\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := raw.Read(buf)
	if n != 0 {
		t.Fatalf("server wrote a response to an unknown command: %q", buf[:n])
	}
	if err == nil {
		t.Fatal("expected connection to be closed after protocol error")
	}
}
