// Package config parses server and client configuration from flags, with an
// optional key=value file overlay. Sizes are human-readable strings parsed
// with docker/go-units (e.g. "64MiB"); durations use Go's duration syntax.
package config

import "bufio"
import "flag"
import "fmt"
import "os"
import "strings"
import "time"

import units "github.com/docker/go-units"

// Server holds everything the server binary needs to start the listener,
// the engine, and the optional dashboard.
type Server struct {
	Host            string
	Port            int
	DataPath        string
	CompactInterval time.Duration
	Backup          bool
	Watch           bool
	DashboardAddr   string
	S3Bucket        string
	S3Prefix        string
	MaxFrameSize    int64
}

// Addr is the host:port the listener binds.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ParseServerFlags parses args (typically os.Args[1:]) into a Server config.
// A preceding -config <file> flag, if present, is read first as a
// key=value overlay; explicit flags on the command line always win.
func ParseServerFlags(args []string) (Server, error) {
	fs := flag.NewFlagSet("kvstored", flag.ContinueOnError)

	file := fs.String("config", "", "optional key=value configuration file")
	host := fs.String("host", "127.0.0.1", "bind host")
	port := fs.Int("port", 6379, "bind port")
	data := fs.String("data", "store.dat", "data file path")
	compactInterval := fs.String("compact-interval", "20s", "compaction period, e.g. 20s, 1m")
	backup := fs.Bool("backup", true, "snapshot the data file before each compaction")
	watch := fs.Bool("watch", false, "log a warning if the data file changes externally")
	dashboard := fs.String("dashboard", "", "address to serve a /stats websocket dashboard on, empty disables it")
	s3Bucket := fs.String("s3-bucket", "", "optional S3 bucket to archive post-compaction snapshots to")
	s3Prefix := fs.String("s3-prefix", "", "key prefix within -s3-bucket")
	maxFrameSize := fs.String("max-frame-size", "64MiB", "reject a single frame larger than this, e.g. 64MiB")

	if err := fs.Parse(args); err != nil {
		return Server{}, err
	}

	overlay := map[string]string{}
	if *file != "" {
		var err error
		overlay, err = readOverlay(*file)
		if err != nil {
			return Server{}, fmt.Errorf("config: read %s: %w", *file, err)
		}
	}

	applyOverlayString(fs, overlay, "host", host)
	applyOverlayInt(fs, overlay, "port", port)
	applyOverlayString(fs, overlay, "data", data)
	applyOverlayString(fs, overlay, "compact-interval", compactInterval)
	applyOverlayBool(fs, overlay, "backup", backup)
	applyOverlayBool(fs, overlay, "watch", watch)
	applyOverlayString(fs, overlay, "dashboard", dashboard)
	applyOverlayString(fs, overlay, "s3-bucket", s3Bucket)
	applyOverlayString(fs, overlay, "s3-prefix", s3Prefix)
	applyOverlayString(fs, overlay, "max-frame-size", maxFrameSize)

	interval, err := parseDuration(*compactInterval)
	if err != nil {
		return Server{}, fmt.Errorf("config: compact-interval: %w", err)
	}

	frameSize, err := ParseSize(*maxFrameSize)
	if err != nil {
		return Server{}, fmt.Errorf("config: max-frame-size: %w", err)
	}

	return Server{
		Host:            *host,
		Port:            *port,
		DataPath:        *data,
		CompactInterval: interval,
		Backup:          *backup,
		Watch:           *watch,
		DashboardAddr:   *dashboard,
		S3Bucket:        *s3Bucket,
		S3Prefix:        *s3Prefix,
		MaxFrameSize:    frameSize,
	}, nil
}

// parseDuration accepts Go's native duration syntax (time.ParseDuration),
// e.g. "20s" or "5m".
func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

// ParseSize parses a human-readable byte size such as "64MiB" using
// go-units; backs the -max-frame-size flag.
func ParseSize(s string) (int64, error) {
	return units.RAMInBytes(s)
}

func readOverlay(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed line %q, want key=value", line)
		}
		result[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return result, scanner.Err()
}

// wasSet reports whether name was explicitly passed on the command line, as
// opposed to carrying its flag.Value default.
func wasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func applyOverlayString(fs *flag.FlagSet, overlay map[string]string, name string, dst *string) {
	if wasSet(fs, name) {
		return
	}
	if v, ok := overlay[name]; ok {
		*dst = v
	}
}

func applyOverlayInt(fs *flag.FlagSet, overlay map[string]string, name string, dst *int) {
	if wasSet(fs, name) {
		return
	}
	if v, ok := overlay[name]; ok {
		var parsed int
		if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil {
			*dst = parsed
		}
	}
}

func applyOverlayBool(fs *flag.FlagSet, overlay map[string]string, name string, dst *bool) {
	if wasSet(fs, name) {
		return
	}
	if v, ok := overlay[name]; ok {
		*dst = v == "true" || v == "1" || v == "yes"
	}
}
