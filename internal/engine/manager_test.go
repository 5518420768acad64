package engine

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/oriys/mqi/internal/enginetest"
	"github.com/oriys/mqi/internal/mqierr"
)

func TestLaunch_ParsesHandshakeAndTerminates(t *testing.T) {
	dir := t.TempDir()
	ln, scriptPath, err := enginetest.WriteHandshakeScript(dir, "engine.sh", "s3cr3t", 10)
	if err != nil {
		t.Fatalf("WriteHandshakeScript: %v", err)
	}
	defer ln.Close()
	wantPort := ln.Addr().(*net.TCPAddr).Port

	e, err := Launch(context.Background(), Options{ExecutablePath: scriptPath, StartupTimeout: 2 * time.Second}, Deps{})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if e.Endpoint().Port != wantPort {
		t.Fatalf("endpoint port = %d, want %d", e.Endpoint().Port, wantPort)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if e.cmd.ProcessState == nil || e.cmd.ProcessState.Exited() == false {
		// On some platforms ProcessState timing is racy right after
		// Shutdown returns; give the OS a moment to reap.
		time.Sleep(100 * time.Millisecond)
	}
}

func TestLaunch_HandshakeTimeout(t *testing.T) {
	dir := t.TempDir()
	scriptPath, err := enginetest.WriteSilentScript(dir, "silent.sh", 10)
	if err != nil {
		t.Fatalf("WriteSilentScript: %v", err)
	}

	_, err = Launch(context.Background(), Options{ExecutablePath: scriptPath, StartupTimeout: 200 * time.Millisecond}, Deps{})
	if !mqierr.Is(err, mqierr.LaunchFailed) {
		t.Fatalf("err = %v, want LaunchFailed", err)
	}
}

func TestLaunch_MissingExecutable(t *testing.T) {
	_, err := Launch(context.Background(), Options{ExecutablePath: os.DevNull + "-does-not-exist"}, Deps{})
	if !mqierr.Is(err, mqierr.LaunchFailed) {
		t.Fatalf("err = %v, want LaunchFailed", err)
	}
}
