package engine

import "time"

// Options configures Launch (spec.md §4.D). Every field is optional; the
// zero value for each picks the documented default.
type Options struct {
	// ExecutablePath overrides engine discovery. Default: PROLOG_PATH if
	// set, otherwise search PATH for the name in DefaultExecutableName.
	ExecutablePath string

	// Port pins the TCP loopback port. Default: the engine picks a free one.
	// Ignored when UseUnixSocket is set.
	Port int

	// Password is the pre-shared secret. Default: the engine generates one
	// and reports it in the handshake output.
	Password string

	// UseUnixSocket selects the UDS transport instead of TCP loopback.
	UseUnixSocket bool

	// UnixSocketPath overrides the generated socket path. Only meaningful
	// when UseUnixSocket is set.
	UnixSocketPath string

	// QueryTimeoutSeconds is the engine's default per-query timeout.
	// Negative means unlimited. Zero means "use the engine's own default".
	QueryTimeoutSeconds float64

	// PendingConnections caps concurrent sessions the engine will accept.
	// Zero means "use the engine's own default".
	PendingConnections int

	// OutputFileName, if set, additionally appends the child's stdout/stderr
	// lines to this file once the handshake lines have been consumed from
	// the pipe. Either way the lines are kept in the engine's OutputCapture
	// for the process's lifetime.
	OutputFileName string

	// ExtraArgs appends additional engine-executable arguments verbatim,
	// after the flags this package derives from the other fields.
	ExtraArgs []string

	// StartupTimeout bounds how long Launch waits for the two handshake
	// lines before killing the child and failing with LaunchFailed.
	// Default: 5 seconds.
	StartupTimeout time.Duration

	// ShutdownGrace bounds how long a graceful quit is given to complete,
	// and how long SIGTERM is given before escalating to SIGKILL.
	// Default: 2 seconds (spec.md §4.D).
	ShutdownGrace time.Duration

	// UseVsock selects the AF_VSOCK transport instead of TCP loopback or a
	// Unix domain socket, for an engine running as a microVM guest reached
	// by its vsock context ID (SPEC_FULL.md §11). Mutually exclusive with
	// UseUnixSocket; TCP loopback framing is reused for the handshake, only
	// the dial and the resulting Endpoint.Kind differ.
	UseVsock bool

	// VsockCID is the guest's vsock context ID. Required when UseVsock is set.
	VsockCID uint32

	// VsockPort overrides the port reported by the handshake. Zero means
	// "use the port the engine reports on stdout", same as TCP loopback.
	VsockPort uint32
}

// DefaultExecutableName is the engine binary Launch searches PATH for when
// Options.ExecutablePath is empty and PROLOG_PATH is unset.
const DefaultExecutableName = "swipl"

func (o Options) startupTimeout() time.Duration {
	if o.StartupTimeout > 0 {
		return o.StartupTimeout
	}
	return 5 * time.Second
}

func (o Options) shutdownGrace() time.Duration {
	if o.ShutdownGrace > 0 {
		return o.ShutdownGrace
	}
	return 2 * time.Second
}
