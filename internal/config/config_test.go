package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != DefaultHTTPAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultHTTPAddr)
	}
	if cfg.Origin.StreamingPort != DefaultStreamingPort {
		t.Errorf("Origin.StreamingPort = %d, want %d", cfg.Origin.StreamingPort, DefaultStreamingPort)
	}
	if cfg.Origin.VODApplication != "vod" {
		t.Errorf("Origin.VODApplication = %q, want vod", cfg.Origin.VODApplication)
	}
	if cfg.Storage.ContentRoot != DefaultContentRoot {
		t.Errorf("Storage.ContentRoot = %q, want %q", cfg.Storage.ContentRoot, DefaultContentRoot)
	}
	if cfg.Postgres.SSLMode != DefaultPGSSLMode {
		t.Errorf("Postgres.SSLMode = %q, want %q", cfg.Postgres.SSLMode, DefaultPGSSLMode)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
addr = ":9090"

[origin]
default_host = "203.0.113.9"
probe_timeout_seconds = 3

[storage]
max_upload_bytes = 1048576
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Origin.DefaultHost != "203.0.113.9" {
		t.Errorf("Origin.DefaultHost = %q", cfg.Origin.DefaultHost)
	}
	if cfg.Origin.ProbeTimeoutSeconds != 3 {
		t.Errorf("Origin.ProbeTimeoutSeconds = %d, want 3", cfg.Origin.ProbeTimeoutSeconds)
	}
	// untouched sections keep their defaults
	if cfg.Origin.PrimaryTimeoutSeconds != 30 {
		t.Errorf("Origin.PrimaryTimeoutSeconds = %d, want 30", cfg.Origin.PrimaryTimeoutSeconds)
	}
	if cfg.Storage.MaxUploadBytes != 1048576 {
		t.Errorf("Storage.MaxUploadBytes = %d", cfg.Storage.MaxUploadBytes)
	}
}
