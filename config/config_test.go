package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseServerFlagsDefaults(t *testing.T) {
	cfg, err := ParseServerFlags(nil)
	if err != nil {
		t.Fatalf("ParseServerFlags: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 6379 {
		t.Fatalf("cfg = %+v, want default host/port", cfg)
	}
	if cfg.CompactInterval != 20*time.Second {
		t.Fatalf("CompactInterval = %v, want 20s", cfg.CompactInterval)
	}
	if !cfg.Backup {
		t.Fatalf("Backup = %v, want true by default", cfg.Backup)
	}
	if cfg.MaxFrameSize != 64*1024*1024 {
		t.Fatalf("MaxFrameSize = %d, want 64MiB", cfg.MaxFrameSize)
	}
	if cfg.Addr() != "127.0.0.1:6379" {
		t.Fatalf("Addr() = %q", cfg.Addr())
	}
}

func TestParseServerFlagsOverridesDefaults(t *testing.T) {
	cfg, err := ParseServerFlags([]string{"-host", "0.0.0.0", "-port", "9999", "-backup=false", "-max-frame-size", "1MiB"})
	if err != nil {
		t.Fatalf("ParseServerFlags: %v", err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 9999 || cfg.Backup {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.MaxFrameSize != 1024*1024 {
		t.Fatalf("MaxFrameSize = %d, want 1MiB", cfg.MaxFrameSize)
	}
}

func TestParseServerFlagsFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kvstored.conf")
	contents := "host=10.0.0.1\nport=7000\nbackup=false\n# a comment\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := ParseServerFlags([]string{"-config", path})
	if err != nil {
		t.Fatalf("ParseServerFlags: %v", err)
	}
	if cfg.Host != "10.0.0.1" || cfg.Port != 7000 || cfg.Backup {
		t.Fatalf("cfg = %+v, want overlay values applied", cfg)
	}
}

func TestParseServerFlagsCommandLineWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kvstored.conf")
	if err := os.WriteFile(path, []byte("port=7000\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := ParseServerFlags([]string{"-config", path, "-port", "8888"})
	if err != nil {
		t.Fatalf("ParseServerFlags: %v", err)
	}
	if cfg.Port != 8888 {
		t.Fatalf("Port = %d, want command-line override 8888", cfg.Port)
	}
}

func TestParseSize(t *testing.T) {
	n, err := ParseSize("64MiB")
	if err != nil {
		t.Fatalf("ParseSize: %v", err)
	}
	if n != 64*1024*1024 {
		t.Fatalf("ParseSize(64MiB) = %d", n)
	}
}
