// Package enginetest provides a scripted stand-in for a real engine
// subprocess: a small shell script that prints handshake output on stdout,
// so engine.Launch can be exercised without requiring a real
// logic-programming engine binary on the test machine. The scripts do not
// speak the wire protocol; session behaviour is tested separately.
package enginetest

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// WriteHandshakeScript writes a shell script at dir/name that prints a TCP
// port (obtained by actually listening on one, so a real dial succeeds)
// and a fixed secret to stdout, then sleeps, mimicking the real engine's
// handshake output (spec.md §4.D) closely enough for engine.Launch tests
// that only exercise the handshake path, not live queries.
//
// The returned listener is the caller's to close; closing it before the
// script's sleep elapses is how tests simulate "handshake then exit".
func WriteHandshakeScript(dir, name, secret string, sleepSeconds int) (*net.TCPListener, string, error) {
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, "", fmt.Errorf("enginetest: listen: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	script := fmt.Sprintf("#!/bin/sh\necho %d\necho %s\nsleep %d\n", port, secret, sleepSeconds)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		ln.Close()
		return nil, "", fmt.Errorf("enginetest: write script: %w", err)
	}
	return ln, path, nil
}

// WriteSilentScript writes a script that never produces handshake output,
// for exercising engine.Launch's startup-timeout path.
func WriteSilentScript(dir, name string, sleepSeconds int) (string, error) {
	script := fmt.Sprintf("#!/bin/sh\nsleep %d\n", sleepSeconds)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		return "", fmt.Errorf("enginetest: write script: %w", err)
	}
	return path, nil
}

