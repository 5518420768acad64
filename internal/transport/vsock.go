package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/mdlayher/vsock"
)

// DialVsock connects to an engine reachable over AF_VSOCK, for the case
// (common in this corpus's domain) where the engine runs as a guest inside
// a microVM and is reached via its context ID rather than a loopback
// address. This is an addition beyond spec.md's core two transports (see
// SPEC_FULL.md §11) and is never used unless the host opts in via
// engine.Options.UseVsock.
func DialVsock(ctx context.Context, cid, port uint32, timeout time.Duration) (net.Conn, error) {
	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := vsock.Dial(cid, port, nil)
		resultCh <- dialResult{conn, err}
	}()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, fmt.Errorf("transport: dial vsock cid=%d port=%d: %w", cid, port, res.err)
		}
		return res.conn, nil
	case <-deadline:
		return nil, fmt.Errorf("transport: dial vsock cid=%d port=%d: timed out", cid, port)
	case <-ctx.Done():
		return nil, fmt.Errorf("transport: dial vsock cid=%d port=%d: %w", cid, port, ctx.Err())
	}
}
