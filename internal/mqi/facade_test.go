package mqi

import (
	"context"
	"testing"
	"time"

	"github.com/oriys/mqi/internal/engine"
	"github.com/oriys/mqi/internal/enginetest"
)

func TestClient_LaunchAndShutdownAll(t *testing.T) {
	dir := t.TempDir()
	ln, scriptPath, err := enginetest.WriteHandshakeScript(dir, "engine.sh", "secret", 10)
	if err != nil {
		t.Fatalf("WriteHandshakeScript: %v", err)
	}
	defer ln.Close()

	c := New(Config{})
	e, err := c.LaunchEngine(context.Background(), engine.Options{ExecutablePath: scriptPath, StartupTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("LaunchEngine: %v", err)
	}
	if e.ID() == "" {
		t.Fatalf("expected non-empty engine id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.ShutdownAll(ctx); err != nil {
		t.Fatalf("ShutdownAll: %v", err)
	}
}
