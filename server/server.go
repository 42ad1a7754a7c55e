// Package server implements the accept loop, per-connection handlers, and
// background compactor that sit in front of the storage engine.
package server

import "context"
import "fmt"
import "log"
import "net"
import "time"

import "github.com/dc0d/onexit"

import "github.com/launix-de/kvdaemon/command"

// Engine is everything the server needs from the storage layer: the request
// path (command.Store) plus the maintenance operation the compactor drives.
type Engine interface {
	command.Store
	Compact() error
}

// Archiver is the subset of archive.Archiver the server depends on, kept as
// an interface so tests and deployments without S3 access never import the
// AWS SDK.
type Archiver interface {
	UploadSnapshot(ctx context.Context, path string, at time.Time) error
}

// Options configures the optional, non-core parts of the runtime.
type Options struct {
	// CompactInterval is how often the background compactor runs. Defaults
	// to 20s if zero, per §4.5.
	CompactInterval time.Duration
	// DashboardAddr, if non-empty, starts a /stats websocket dashboard on
	// this address.
	DashboardAddr string
	// Archiver, if set, uploads a copy of DataPath after every successful
	// compaction. Failures are logged, never fatal.
	Archiver Archiver
	// DataPath is the engine's data file path, needed only to hand to
	// Archiver after compaction.
	DataPath string
	// MaxFrameSize bounds how large a single incoming frame may grow before
	// the connection is closed with a protocol error. Zero means unlimited.
	MaxFrameSize int
}

// Server owns a Listener and a Compactor, per §4.5, plus the optional
// connection registry and dashboard.
type Server struct {
	engine          Engine
	compactInterval time.Duration
	dashboardAddr   string
	dashboard       *dashboard
	registry        *registry
	archiver        Archiver
	dataPath        string
	maxFrameSize    int

	listener net.Listener
}

// New constructs a Server around engine. Call ListenAndServe to run it.
func New(engine Engine, opts Options) *Server {
	interval := opts.CompactInterval
	if interval <= 0 {
		interval = 20 * time.Second
	}

	s := &Server{
		engine:          engine,
		compactInterval: interval,
		dashboardAddr:   opts.DashboardAddr,
		registry:        newRegistry(),
		archiver:        opts.Archiver,
		dataPath:        opts.DataPath,
		maxFrameSize:    opts.MaxFrameSize,
	}
	if opts.DashboardAddr != "" {
		s.dashboard = newDashboard()
	}
	return s
}

// ListenAndServe binds addr and runs the accept loop until ctx is cancelled.
// On cancellation it stops accepting new connections, cancels the
// compactor, and returns once the listener is closed; in-flight handler
// goroutines drain on their own as their sockets hit EOF.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	s.listener = ln

	onexit.Register(func() {
		s.registry.logDraining()
	})

	go s.runCompactor(ctx)

	if s.dashboard != nil {
		go func() {
			if err := s.dashboard.serve(ctx, s.dashboardAddr); err != nil {
				log.Printf("server: dashboard stopped: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		s.registry.logDraining()
		ln.Close()
	}()

	log.Printf("server: listening on %s", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("server: accept: %w", err)
			}
		}
		go s.handle(conn)
	}
}
