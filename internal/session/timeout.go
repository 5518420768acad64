package session

import (
	"strconv"
	"time"
)

// Timeout represents the <timeout> argument of run/run_async/async_result
// requests (spec.md §6). It is preserved exactly as given rather than
// normalized — spec.md §9's Open Questions explicitly says default vs -1
// must be passed through unchanged.
type Timeout struct {
	unlimited bool
	isDefault bool
	seconds   float64
}

// DefaultTimeout asks the engine to use its configured default
// (query_timeout_seconds), encoded on the wire as "_".
func DefaultTimeout() Timeout { return Timeout{isDefault: true} }

// Unlimited disables the engine-side timeout, encoded on the wire as -1.
func Unlimited() Timeout { return Timeout{unlimited: true} }

// Seconds sets an explicit timeout in seconds.
func Seconds(s float64) Timeout { return Timeout{seconds: s} }

// WireString renders the timeout the way it appears in a request term.
func (t Timeout) WireString() string {
	switch {
	case t.isDefault:
		return "_"
	case t.unlimited:
		return "-1"
	default:
		return strconv.FormatFloat(t.seconds, 'g', -1, 64)
	}
}

// deadline returns the client's I/O read deadline: the query timeout plus a
// slack of 2x heartbeatInterval (spec.md §5: "query timeout plus slack,
// e.g. 2x heartbeat interval"). It returns (0, false) when the timeout is
// unlimited or default, meaning the caller imposes no I/O read deadline.
func (t Timeout) deadline(heartbeatInterval time.Duration) (time.Duration, bool) {
	if t.unlimited || t.isDefault {
		return 0, false
	}
	return time.Duration(t.seconds*float64(time.Second)) + 2*heartbeatInterval, true
}
