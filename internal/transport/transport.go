// Package transport abstracts the byte-stream endpoint between the client
// and the engine (spec.md §4.C): a TCP loopback socket, a Unix domain
// socket, or (an expansion for the microVM-guest deployment case this
// corpus's teacher specializes in) an AF_VSOCK connection. All three are
// net.Conn underneath; this package only adds the dial-time restrictions
// and helpers the spec requires.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// Kind identifies which transport variant a Conn was dialed over.
type Kind string

const (
	KindTCP   Kind = "tcp"
	KindUnix  Kind = "unix"
	KindVsock Kind = "vsock"
)

// Endpoint describes where to reach a running engine.
type Endpoint struct {
	Kind Kind
	Port int    // KindTCP, KindVsock
	Path string // KindUnix
	CID  uint32 // KindVsock
}

// DialTCPLoopback connects to 127.0.0.1:port. It refuses any other address
// by construction: there is no parameter through which a caller can name a
// non-loopback host, matching spec.md §4.C's "MUST refuse to connect to
// non-loopback addresses".
func DialTCPLoopback(ctx context.Context, port int, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial tcp loopback %s: %w", addr, err)
	}
	return conn, nil
}

// DialUnix connects to a Unix domain socket path.
func DialUnix(ctx context.Context, path string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("transport: dial unix %s: %w", path, err)
	}
	return conn, nil
}

// WriteAll writes all of p to w, looping until the entire buffer is
// flushed or an error occurs. A frame is either fully written or the
// caller must treat the session as Broken (spec.md §4.C).
func WriteAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return fmt.Errorf("transport: short write: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// SetReadDeadline is a small helper so callers don't need to type-assert
// net.Conn themselves when applying the read timeout described in
// spec.md §5 (query timeout plus heartbeat slack).
func SetReadDeadline(conn net.Conn, d time.Duration) error {
	if d <= 0 {
		return conn.SetReadDeadline(time.Time{})
	}
	return conn.SetReadDeadline(time.Now().Add(d))
}
