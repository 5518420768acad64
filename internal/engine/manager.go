// Package engine implements the process lifecycle manager (spec component
// D): spawning the engine subprocess, negotiating the endpoint and shared
// secret from its handshake output, and guaranteeing termination on every
// exit path. Modeled on the teacher's internal/firecracker.Manager: a
// mutex-guarded child handle, a monitor goroutine watching it, and a
// graceful-then-SIGTERM-then-SIGKILL termination ladder.
package engine

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/oriys/mqi/internal/audit"
	"github.com/oriys/mqi/internal/frame"
	"github.com/oriys/mqi/internal/logging"
	"github.com/oriys/mqi/internal/metrics"
	"github.com/oriys/mqi/internal/mqierr"
	"github.com/oriys/mqi/internal/notify"
	"github.com/oriys/mqi/internal/session"
	"github.com/oriys/mqi/internal/tracing"
	"github.com/oriys/mqi/internal/transport"
	"golang.org/x/sys/unix"
)

// State is the engine handle's lifecycle state.
type State int

const (
	StateRunning State = iota
	StateStopped
)

// Engine is a live engine subprocess handle (spec.md §3 "Engine handle").
// At most one live Engine exists per spawned process.
type Engine struct {
	mu sync.Mutex

	id       string
	cmd      *exec.Cmd
	endpoint transport.Endpoint
	password string

	udsOwnedPath string // non-empty if this process created the socket file
	udsLockFile  *os.File
	state        State

	output *OutputCapture

	deps Deps

	shutdownGrace time.Duration

	monitorDone chan struct{}
}

// Deps carries the optional ambient collaborators an Engine reports to.
type Deps struct {
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
	Tracer   *tracing.Tracer
	Audit    *audit.Log
	Notifier *notify.Notifier
}

// Launch spawns the engine subprocess and blocks until its handshake lines
// have been read or StartupTimeout elapses (spec.md §4.D).
func Launch(ctx context.Context, opts Options, deps Deps) (*Engine, error) {
	execPath, err := resolveExecutable(opts.ExecutablePath)
	if err != nil {
		return nil, mqierr.Wrap(mqierr.LaunchFailed, err)
	}

	var udsPath string
	var udsLockFile *os.File
	if opts.UseUnixSocket {
		udsPath = opts.UnixSocketPath
		if udsPath == "" {
			dir, err := os.MkdirTemp("", "mqi-")
			if err != nil {
				return nil, mqierr.Wrap(mqierr.LaunchFailed, fmt.Errorf("create socket dir: %w", err))
			}
			udsPath = filepath.Join(dir, "mqi.sock")

			// Guard the generated socket directory against a second Launch
			// racing to reuse the same temp name (spec.md §4.D "filesystem
			// path owned ... by the same user").
			lockFile, lerr := os.OpenFile(filepath.Join(dir, ".lock"), os.O_CREATE|os.O_RDWR, 0600)
			if lerr == nil {
				if ferr := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); ferr == nil {
					udsLockFile = lockFile
				} else {
					lockFile.Close()
				}
			}
		}
	}

	args := buildArgs(opts, udsPath)
	cmd := exec.CommandContext(ctx, execPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, mqierr.Wrap(mqierr.LaunchFailed, fmt.Errorf("stdout pipe: %w", err))
	}
	cmd.Stderr = cmd.Stdout
	stdoutReader := bufio.NewReader(stdoutPipe)

	if err := cmd.Start(); err != nil {
		return nil, mqierr.Wrap(mqierr.LaunchFailed, fmt.Errorf("start engine: %w", err))
	}

	id := uuid.NewString()
	started := time.Now()
	capture := newOutputCapture()

	endpoint, handshakeSecret, err := readHandshake(stdoutReader, capture, opts.startupTimeout(), opts.UseUnixSocket, udsPath)
	if err == nil && opts.UseVsock {
		endpoint.Kind = transport.KindVsock
		endpoint.CID = opts.VsockCID
		if opts.VsockPort != 0 {
			endpoint.Port = int(opts.VsockPort)
		}
	}
	if err != nil {
		killProcessGroup(cmd)
		cmd.Wait()
		if udsLockFile != nil {
			udsLockFile.Close()
		}
		deps.Metrics.RecordHandshakeFailure()
		deps.Logger.Log(logging.Event{Kind: "engine", Name: "launch_failed", EngineID: id, Error: err.Error()})
		recordEngineEvent(deps.Audit, id, "launch_failed", err.Error())
		return nil, err
	}

	if opts.OutputFileName != "" {
		f, ferr := os.OpenFile(opts.OutputFileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if ferr == nil {
			capture.redirectTo(f)
		}
	}
	go capture.drain(stdoutReader)

	e := &Engine{
		id:            id,
		cmd:           cmd,
		endpoint:      endpoint,
		password:      handshakeSecret,
		udsOwnedPath:  udsOwnedPath(opts, udsPath),
		udsLockFile:   udsLockFile,
		state:         StateRunning,
		output:        capture,
		deps:          deps,
		shutdownGrace: opts.shutdownGrace(),
		monitorDone:   make(chan struct{}),
	}

	deps.Metrics.RecordEngineLaunched(time.Since(started))
	deps.Logger.Log(logging.Event{Kind: "engine", Name: "launched", EngineID: id})
	recordEngineEvent(deps.Audit, id, "launched", fmt.Sprintf("port=%d path=%s", endpoint.Port, endpoint.Path))

	go e.monitorProcess()

	return e, nil
}

// ID returns the engine handle's identifier, used for logging/correlation.
func (e *Engine) ID() string { return e.id }

// Endpoint returns the negotiated transport endpoint.
func (e *Engine) Endpoint() transport.Endpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.endpoint
}

// OpenSession dials the engine's endpoint and performs the password
// handshake, returning a ready-to-use Session (spec.md §4.F).
func (e *Engine) OpenSession(ctx context.Context) (*session.Session, error) {
	e.mu.Lock()
	state := e.state
	endpoint := e.endpoint
	password := e.password
	e.mu.Unlock()
	if state != StateRunning {
		return nil, mqierr.New(mqierr.SessionUnavailable, "engine is not running")
	}

	conn, err := dialEndpoint(ctx, endpoint, 5*time.Second)
	if err != nil {
		return nil, mqierr.Wrap(mqierr.TransportError, err)
	}

	return session.Open(ctx, conn, password, session.Deps{
		Logger:   e.deps.Logger,
		Metrics:  e.deps.Metrics,
		Tracer:   e.deps.Tracer,
		Audit:    e.deps.Audit,
		Notifier: e.deps.Notifier,
		EngineID: e.id,
	})
}

// Shutdown terminates the engine child (spec.md §4.D "Termination
// policy"): a graceful quit over a throw-away control connection, falling
// back to SIGTERM then SIGKILL. It always returns nil: neither a failed
// graceful attempt nor the child's exit status is reported.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopped
	endpoint := e.endpoint
	password := e.password
	e.mu.Unlock()

	e.attemptGracefulQuit(ctx, endpoint, password)

	if e.cmd.Process != nil {
		done := make(chan struct{})
		go func() { e.cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(e.shutdownGrace):
			unix.Kill(-e.cmd.Process.Pid, unix.SIGTERM)
			select {
			case <-done:
			case <-time.After(e.shutdownGrace):
				unix.Kill(-e.cmd.Process.Pid, unix.SIGKILL)
				<-done
			}
		}
	}

	if e.udsOwnedPath != "" {
		os.Remove(e.udsOwnedPath)
		if e.udsLockFile != nil {
			unix.Flock(int(e.udsLockFile.Fd()), unix.LOCK_UN)
			e.udsLockFile.Close()
			os.Remove(e.udsLockFile.Name())
		}
		os.Remove(filepath.Dir(e.udsOwnedPath))
	}
	e.output.close()
	e.deps.Logger.Log(logging.Event{Kind: "engine", Name: "shutdown", EngineID: e.id})
	recordEngineEvent(e.deps.Audit, e.id, "shutdown", "")
	return nil
}

func (e *Engine) attemptGracefulQuit(ctx context.Context, endpoint transport.Endpoint, password string) {
	conn, err := dialEndpoint(ctx, endpoint, 1*time.Second)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := transport.WriteAll(conn, frame.Encode(password)); err != nil {
		return
	}
	dec := frame.NewDecoder(conn)
	transport.SetReadDeadline(conn, 2*time.Second)
	if _, err := dec.ReadFrame(); err != nil {
		return
	}

	if err := transport.WriteAll(conn, frame.Encode("quit.")); err != nil {
		return
	}
	transport.SetReadDeadline(conn, 2*time.Second)
	dec.ReadFrame() // best-effort: true([[]]) ack, errors ignored per spec.md §4.D
}

// monitorProcess waits for the child and logs/records an unexpected exit
// (one not preceded by Shutdown), mirroring the teacher's
// internal/firecracker.Manager.monitorProcess.
func (e *Engine) monitorProcess() {
	defer close(e.monitorDone)
	err := e.cmd.Wait()

	e.mu.Lock()
	unexpected := e.state == StateRunning
	if unexpected {
		e.state = StateStopped
	}
	e.mu.Unlock()

	if unexpected {
		e.deps.Metrics.RecordEngineCrashed()
		e.deps.Logger.Log(logging.Event{Kind: "engine", Name: "crashed", EngineID: e.id, Error: fmt.Sprintf("%v", err)})
		recordEngineEvent(e.deps.Audit, e.id, "crashed", fmt.Sprintf("%v", err))
	}
}

// recordEngineEvent is a fire-and-forget audit write, detached from any
// caller context since the engine lifecycle outlives any one request: an
// audit sink outage must never block a launch or shutdown.
func recordEngineEvent(a *audit.Log, engineID, name, detail string) {
	if a == nil {
		return
	}
	go func() {
		_ = a.RecordEngineEvent(context.Background(), audit.EngineEvent{
			ID:       uuid.NewString(),
			EngineID: engineID,
			Name:     name,
			Detail:   detail,
		})
	}()
}

func dialEndpoint(ctx context.Context, endpoint transport.Endpoint, timeout time.Duration) (net.Conn, error) {
	switch endpoint.Kind {
	case transport.KindUnix:
		return transport.DialUnix(ctx, endpoint.Path, timeout)
	case transport.KindVsock:
		return transport.DialVsock(ctx, endpoint.CID, uint32(endpoint.Port), timeout)
	default:
		return transport.DialTCPLoopback(ctx, endpoint.Port, timeout)
	}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
}

func udsOwnedPath(opts Options, path string) string {
	if opts.UseUnixSocket && opts.UnixSocketPath == "" {
		return path
	}
	return ""
}

func resolveExecutable(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if p := os.Getenv("PROLOG_PATH"); p != "" {
		return p, nil
	}
	path, err := exec.LookPath(DefaultExecutableName)
	if err != nil {
		return "", fmt.Errorf("locate %s: %w (set engine_executable_path or PROLOG_PATH)", DefaultExecutableName, err)
	}
	return path, nil
}

func buildArgs(opts Options, udsPath string) []string {
	args := []string{"--quiet", "-g", "mqi_start", "-t", "halt", "--", "--write_connection_values=true"}
	if opts.UseUnixSocket {
		if udsPath != "" {
			args = append(args, "--unix_domain_socket="+udsPath)
		} else {
			args = append(args, "--unix_domain_socket")
		}
	} else if opts.Port != 0 {
		args = append(args, "--port="+strconv.Itoa(opts.Port))
	}
	if opts.Password != "" {
		args = append(args, "--password="+opts.Password)
	}
	if opts.QueryTimeoutSeconds != 0 {
		args = append(args, "--query_timeout="+strconv.FormatFloat(opts.QueryTimeoutSeconds, 'g', -1, 64))
	}
	if opts.PendingConnections != 0 {
		args = append(args, "--pending_connections="+strconv.Itoa(opts.PendingConnections))
	}
	args = append(args, opts.ExtraArgs...)
	return args
}

// readHandshake consumes stdout line by line until two non-empty lines
// have been read (spec.md §4.D "Handshake read"), tagging every line it
// sees into capture for diagnostics regardless of outcome. r is the single
// bufio.Reader wrapping the child's stdout pipe for its whole lifetime;
// readHandshake only ever consumes the two handshake lines from it and
// hands it back to the caller so OutputCapture.drain can keep reading from
// the exact point the handshake left off, with nothing buffered-and-lost
// in between.
func readHandshake(r *bufio.Reader, capture *OutputCapture, timeout time.Duration, useUnixSocket bool, udsPath string) (transport.Endpoint, string, error) {
	type lineResult struct {
		line string
		err  error
	}
	// Buffered to 2 so the reader goroutine can always deliver both lines
	// (or bail out on the first error) and return, even if the timeout
	// branch below has already stopped receiving — it never lingers past
	// the handshake.
	lines := make(chan lineResult, 2)
	go func() {
		collected := 0
		for collected < 2 {
			line, err := r.ReadString('\n')
			line = strings.TrimRight(line, "\r\n")
			if line != "" {
				collected++
				lines <- lineResult{line: line}
			}
			if err != nil {
				if collected < 2 {
					lines <- lineResult{err: err}
				}
				return
			}
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var collected []string
	for len(collected) < 2 {
		select {
		case res := <-lines:
			if res.err != nil {
				return transport.Endpoint{}, "", mqierr.New(mqierr.LaunchFailed, "engine exited before completing the handshake")
			}
			capture.appendLine("stdout", res.line)
			if res.line == "" {
				continue
			}
			collected = append(collected, res.line)
		case <-timer.C:
			return transport.Endpoint{}, "", mqierr.New(mqierr.LaunchFailed, "timed out waiting for engine handshake")
		}
	}

	endpointLine, secret := collected[0], collected[1]
	if secret == "" {
		return transport.Endpoint{}, "", mqierr.New(mqierr.LaunchFailed, "missing secret in handshake output")
	}
	if useUnixSocket {
		path := endpointLine
		if udsPath != "" {
			path = udsPath
		}
		return transport.Endpoint{Kind: transport.KindUnix, Path: path}, secret, nil
	}
	port, err := strconv.Atoi(endpointLine)
	if err != nil {
		return transport.Endpoint{}, "", mqierr.Newf(mqierr.LaunchFailed, "malformed port in handshake output: %q", endpointLine)
	}
	return transport.Endpoint{Kind: transport.KindTCP, Port: port}, secret, nil
}
