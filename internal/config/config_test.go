package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Engine.StartupTimeout <= 0 {
		t.Fatalf("expected a positive default startup timeout")
	}
	if !cfg.Observability.Metrics.Enabled {
		t.Fatalf("expected metrics enabled by default")
	}
	if cfg.Store.Enabled || cfg.Queue.Enabled || cfg.GRPC.Enabled || cfg.Observability.Tracing.Enabled {
		t.Fatalf("expected optional collaborators disabled by default")
	}
}

func TestLoadFromFile_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mqi.json")
	body := `{"engine":{"executable_path":"/usr/bin/swipl","port":9999},"store":{"enabled":true,"dsn":"postgres://x"}}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Engine.ExecutablePath != "/usr/bin/swipl" || cfg.Engine.Port != 9999 {
		t.Fatalf("engine overrides not applied: %+v", cfg.Engine)
	}
	if !cfg.Store.Enabled || cfg.Store.DSN != "postgres://x" {
		t.Fatalf("store overrides not applied: %+v", cfg.Store)
	}
	// Untouched defaults should survive the overlay.
	if cfg.Engine.ShutdownGrace <= 0 {
		t.Fatalf("expected default shutdown grace to survive partial overlay")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PROLOG_PATH", "/opt/swipl/bin/swipl")
	t.Setenv("MQI_PORT", "4242")
	t.Setenv("MQI_USE_UNIX_SOCKET", "true")
	t.Setenv("MQI_STORE_DSN", "postgres://y")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Engine.ExecutablePath != "/opt/swipl/bin/swipl" {
		t.Fatalf("PROLOG_PATH not applied: %q", cfg.Engine.ExecutablePath)
	}
	if cfg.Engine.Port != 4242 {
		t.Fatalf("MQI_PORT not applied: %d", cfg.Engine.Port)
	}
	if !cfg.Engine.UseUnixSocket {
		t.Fatalf("MQI_USE_UNIX_SOCKET not applied")
	}
	if !cfg.Store.Enabled || cfg.Store.DSN != "postgres://y" {
		t.Fatalf("MQI_STORE_DSN not applied: %+v", cfg.Store)
	}
}
