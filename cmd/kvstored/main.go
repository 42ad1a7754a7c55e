// Command kvstored runs the kvdaemon server: accept loop, storage engine,
// background compactor, and the optional dashboard/backup/archive features.
package main

import "context"
import "fmt"
import "log"
import "os"
import "os/signal"
import "syscall"

import "github.com/launix-de/kvdaemon/archive"
import "github.com/launix-de/kvdaemon/config"
import "github.com/launix-de/kvdaemon/engine"
import "github.com/launix-de/kvdaemon/server"

func main() {
	cfg, err := config.ParseServerFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	e, err := engine.Open(cfg.DataPath, engine.Options{
		Backup: cfg.Backup,
		Watch:  cfg.Watch,
	})
	if err != nil {
		log.Fatalf("kvstored: opening %s: %v", cfg.DataPath, err)
	}
	defer e.Close()

	opts := server.Options{
		CompactInterval: cfg.CompactInterval,
		DashboardAddr:   cfg.DashboardAddr,
		DataPath:        cfg.DataPath,
		MaxFrameSize:    int(cfg.MaxFrameSize),
	}
	if cfg.S3Bucket != "" {
		archiver, err := archive.New(context.Background(), cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Printf("kvstored: archive disabled: %v", err)
		} else {
			opts.Archiver = archiver
		}
	}

	srv := server.New(e, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, cfg.Addr()); err != nil {
		log.Fatalf("kvstored: %v", err)
	}
}
