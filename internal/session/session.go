// Package session implements the per-connection query state machine
// (spec.md §4.E): handshake, synchronous run, asynchronous run, poll,
// cancel and close, enforcing the single-outstanding-request and
// terminal-state invariants from spec.md §3.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/oriys/mqi/internal/audit"
	"github.com/oriys/mqi/internal/frame"
	"github.com/oriys/mqi/internal/logging"
	"github.com/oriys/mqi/internal/metrics"
	"github.com/oriys/mqi/internal/mqierr"
	"github.com/oriys/mqi/internal/notify"
	"github.com/oriys/mqi/internal/term"
	"github.com/oriys/mqi/internal/tracing"
)

// State is one of the seven states from spec.md §3's Session invariant.
type State int

const (
	StateHandshaking State = iota
	StateIdle
	StateSyncPending
	StateAsyncRunning
	StateAsyncDraining
	StateClosed
	StateBroken
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateIdle:
		return "idle"
	case StateSyncPending:
		return "sync_pending"
	case StateAsyncRunning:
		return "async_running"
	case StateAsyncDraining:
		return "async_draining"
	case StateClosed:
		return "closed"
	case StateBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// heartbeatInterval is the engine's approximate heartbeat cadence while a
// synchronous query runs (spec.md §4.A); the client's read-deadline slack
// is derived from it (spec.md §5).
const heartbeatInterval = 2 * time.Second

// Deps carries the optional ambient collaborators a Session reports to.
// Every field may be left nil; logging.Logger and metrics.Metrics already
// no-op on a nil receiver.
type Deps struct {
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
	Tracer   *tracing.Tracer
	Audit    *audit.Log
	Notifier *notify.Notifier
	EngineID string // for log/metric correlation only
}

// Session is one client-initiated connection to the engine. It is not
// safe for concurrent use by multiple goroutines beyond the serialization
// its own mutex provides for enforcing the single-outstanding-request
// invariant — callers must not pipeline calls on one Session (spec.md §5).
type Session struct {
	mu      sync.Mutex
	id      string
	conn    net.Conn
	dec     *frame.Decoder
	state   State
	findAll bool
	deps    Deps
}

// Open dials nothing itself: it takes an already-connected stream, performs
// the password handshake (spec.md §6), and returns a Session in Idle state.
// On any handshake failure the connection is closed and (nil, err) is
// returned — there is no usable Session to hand back.
func Open(ctx context.Context, conn net.Conn, password string, deps Deps) (*Session, error) {
	s := &Session{
		id:    uuid.NewString(),
		conn:  conn,
		dec:   frame.NewDecoder(conn),
		state: StateHandshaking,
		deps:  deps,
	}

	if err := transportWrite(conn, frame.Encode(password)); err != nil {
		s.transitionLocked(StateBroken)
		conn.Close()
		s.deps.Metrics.RecordHandshakeFailure()
		return nil, mqierr.Wrap(mqierr.TransportError, err)
	}

	reply, err := s.readReplyWithDeadline(ctx, 5*time.Second)
	if err != nil {
		s.transitionLocked(StateBroken)
		conn.Close()
		s.deps.Metrics.RecordHandshakeFailure()
		return nil, err
	}

	if reply.Functor() != "true" {
		s.transitionLocked(StateBroken)
		conn.Close()
		s.deps.Metrics.RecordHandshakeFailure()
		s.log("handshake_rejected", "", "")
		return nil, mqierr.New(mqierr.AuthenticationFailed, "engine rejected the shared secret")
	}

	s.transitionLocked(StateIdle)
	s.deps.Metrics.RecordSessionOpened()
	s.log("handshake_ok", StateHandshaking.String(), StateIdle.String())
	return s, nil
}

// ID returns the session's identifier, used for logging/correlation only.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunSync issues a synchronous run(goal, timeout) request (spec.md §4.E).
func (s *Session) RunSync(ctx context.Context, goal string, timeout Timeout) (result QueryResult, err error) {
	ctx, span := s.deps.Tracer.StartSpan(ctx, "run_sync",
		attribute.String("session.id", s.id),
		attribute.String("timeout", timeout.WireString()),
	)
	defer func() { tracing.EndWithError(span, err) }()

	s.mu.Lock()
	if s.state == StateBroken || s.state == StateClosed {
		s.mu.Unlock()
		return QueryResult{}, mqierr.New(mqierr.SessionUnavailable, "session is "+s.state.String())
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return QueryResult{}, mqierr.New(mqierr.InvalidState, "run called while session is "+s.state.String())
	}
	s.state = StateSyncPending
	s.mu.Unlock()

	started := time.Now()
	req := fmt.Sprintf("run(%s, %s).", goal, timeout.WireString())
	if err := transportWrite(s.conn, frame.Encode(req)); err != nil {
		s.transition(StateSyncPending, StateBroken)
		return QueryResult{}, mqierr.Wrap(mqierr.TransportError, err)
	}

	deadline, hasDeadline := timeout.deadline(heartbeatInterval)
	var reply term.Term
	if hasDeadline {
		reply, err = s.readReplyWithDeadline(ctx, deadline)
	} else {
		reply, err = s.readReply(ctx)
	}
	if err != nil {
		s.transition(StateSyncPending, StateBroken)
		s.recordQuery("run_sync", goal, "transport_error", started)
		return QueryResult{}, err
	}

	switch {
	case reply.Functor() == "true" && reply.Arity() == 1:
		arg, _ := reply.Arg(0)
		sols, err := extractSolutions(arg)
		if err != nil {
			s.transition(StateSyncPending, StateBroken)
			s.recordQuery("run_sync", goal, "protocol_violation", started)
			return QueryResult{}, mqierr.Wrap(mqierr.ProtocolViolation, err)
		}
		s.transition(StateSyncPending, StateIdle)
		s.recordQuery("run_sync", goal, "solutions", started)
		return QueryResult{Kind: ResultSolutions, Solutions: sols}, nil

	case reply.IsAtom():
		if name, _ := reply.AsAtom(); name == "false" {
			s.transition(StateSyncPending, StateIdle)
			s.recordQuery("run_sync", goal, "false", started)
			return QueryResult{Kind: ResultFalse}, nil
		}
		s.transition(StateSyncPending, StateBroken)
		s.recordQuery("run_sync", goal, "protocol_violation", started)
		return QueryResult{}, mqierr.Newf(mqierr.ProtocolViolation, "unexpected atom reply %q", reply)

	case reply.Functor() == "exception" && reply.Arity() == 1:
		kind, _ := reply.Arg(0)
		if exceptionAtom(kind) == "connection_failed" {
			s.transition(StateSyncPending, StateBroken)
			s.recordQuery("run_sync", goal, "connection_failed", started)
			return QueryResult{}, mqierr.New(mqierr.TransportError, "engine reported connection_failed")
		}
		s.transition(StateSyncPending, StateIdle)
		errKind, out := classifyException(kind)
		s.recordQuery("run_sync", goal, out, started)
		return QueryResult{}, mqierr.WrapTerm(errKind, kind)

	default:
		s.transition(StateSyncPending, StateBroken)
		s.recordQuery("run_sync", goal, "protocol_violation", started)
		return QueryResult{}, mqierr.Newf(mqierr.ProtocolViolation, "unexpected reply %s", reply)
	}
}

// RunAsync issues run_async(goal, timeout, find_all) and waits only for the
// prompt ack, not for query completion (spec.md §4.E).
func (s *Session) RunAsync(ctx context.Context, goal string, timeout Timeout, findAll bool) (err error) {
	ctx, span := s.deps.Tracer.StartSpan(ctx, "run_async",
		attribute.String("session.id", s.id),
		attribute.String("timeout", timeout.WireString()),
		attribute.Bool("find_all", findAll),
	)
	defer func() { tracing.EndWithError(span, err) }()

	s.mu.Lock()
	if s.state == StateBroken || s.state == StateClosed {
		s.mu.Unlock()
		return mqierr.New(mqierr.SessionUnavailable, "session is "+s.state.String())
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return mqierr.New(mqierr.InvalidState, "run_async called while session is "+s.state.String())
	}
	s.mu.Unlock()

	req := fmt.Sprintf("run_async(%s, %s, %t).", goal, timeout.WireString(), findAll)
	if err := transportWrite(s.conn, frame.Encode(req)); err != nil {
		s.transition(StateIdle, StateBroken)
		return mqierr.Wrap(mqierr.TransportError, err)
	}

	reply, err := s.readReplyWithDeadline(ctx, 5*time.Second)
	if err != nil {
		s.transition(StateIdle, StateBroken)
		return err
	}

	if reply.Functor() == "true" {
		s.mu.Lock()
		s.findAll = findAll
		s.state = StateAsyncRunning
		s.mu.Unlock()
		s.log("state_transition", StateIdle.String(), StateAsyncRunning.String())
		return nil
	}
	if reply.Functor() == "exception" && reply.Arity() == 1 {
		kind, _ := reply.Arg(0)
		errKind, _ := classifyException(kind)
		return mqierr.WrapTerm(errKind, kind)
	}
	s.transition(StateIdle, StateBroken)
	return mqierr.Newf(mqierr.ProtocolViolation, "unexpected run_async ack %s", reply)
}

// Poll issues async_result(wait) (spec.md §4.E).
func (s *Session) Poll(ctx context.Context, wait Timeout) (result PollResult, err error) {
	ctx, span := s.deps.Tracer.StartSpan(ctx, "poll",
		attribute.String("session.id", s.id),
	)
	defer func() { tracing.EndWithError(span, err) }()
	defer func() {
		if err == nil && result.Outcome != PollNotReady {
			s.notifyResultReady()
		}
	}()

	s.mu.Lock()
	state := s.state
	findAll := s.findAll
	s.mu.Unlock()
	if state != StateAsyncRunning && state != StateAsyncDraining {
		if state == StateBroken || state == StateClosed {
			return PollResult{}, mqierr.New(mqierr.SessionUnavailable, "session is "+state.String())
		}
		return PollResult{}, mqierr.New(mqierr.InvalidState, "poll called while session is "+state.String())
	}

	req := fmt.Sprintf("async_result(%s).", wait.WireString())
	if err := transportWrite(s.conn, frame.Encode(req)); err != nil {
		s.transition(state, StateBroken)
		return PollResult{}, mqierr.Wrap(mqierr.TransportError, err)
	}

	deadline, hasDeadline := wait.deadline(heartbeatInterval)
	var reply term.Term
	if hasDeadline {
		reply, err = s.readReplyWithDeadline(ctx, deadline)
	} else {
		reply, err = s.readReply(ctx)
	}
	if err != nil {
		s.transition(state, StateBroken)
		return PollResult{}, err
	}

	switch {
	case reply.Functor() == "true" && reply.Arity() == 1:
		arg, _ := reply.Arg(0)
		sols, err := extractSolutions(arg)
		if err != nil {
			s.transition(state, StateBroken)
			return PollResult{}, mqierr.Wrap(mqierr.ProtocolViolation, err)
		}
		if findAll {
			s.transition(state, StateAsyncDraining)
		}
		return PollResult{Outcome: PollSolution, Solutions: sols}, nil

	case reply.IsAtom():
		if name, _ := reply.AsAtom(); name == "false" {
			// A bare "false" means the query has no (further) solutions,
			// the same failure run_sync reports as ResultFalse — it is not
			// a zero-length solution batch, so it is reported as PollNoMore
			// rather than an empty PollSolution, same as the engine's own
			// "no_more_results" exception below.
			s.transition(state, StateIdle)
			return PollResult{Outcome: PollNoMore}, nil
		}
		s.transition(state, StateBroken)
		return PollResult{}, mqierr.Newf(mqierr.ProtocolViolation, "unexpected atom reply %q", reply)

	case reply.Functor() == "exception" && reply.Arity() == 1:
		kind, _ := reply.Arg(0)
		atom := exceptionAtom(kind)
		switch atom {
		case "result_not_available":
			return PollResult{Outcome: PollNotReady}, nil
		case "connection_failed":
			s.transition(state, StateBroken)
			return PollResult{}, mqierr.New(mqierr.TransportError, "engine reported connection_failed")
		case "no_more_results":
			s.transition(state, StateIdle)
			return PollResult{Outcome: PollNoMore}, nil
		default:
			errKind, _ := classifyException(kind)
			s.transition(state, StateIdle)
			return PollResult{Outcome: PollTerminal, Err: mqierr.WrapTerm(errKind, kind)}, nil
		}

	default:
		s.transition(state, StateBroken)
		return PollResult{}, mqierr.Newf(mqierr.ProtocolViolation, "unexpected poll reply %s", reply)
	}
}

// Cancel issues cancel_async (spec.md §4.E). It does not by itself change
// state; the outcome of the cancellation is only observable via subsequent
// Poll calls.
func (s *Session) Cancel(ctx context.Context) (err error) {
	ctx, span := s.deps.Tracer.StartSpan(ctx, "cancel", attribute.String("session.id", s.id))
	defer func() { tracing.EndWithError(span, err) }()

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	switch state {
	case StateHandshaking, StateSyncPending, StateClosed, StateBroken:
		if state == StateBroken || state == StateClosed {
			return mqierr.New(mqierr.SessionUnavailable, "session is "+state.String())
		}
		return mqierr.New(mqierr.InvalidState, "cancel called while session is "+state.String())
	}

	if err := transportWrite(s.conn, frame.Encode("cancel_async.")); err != nil {
		s.transition(state, StateBroken)
		return mqierr.Wrap(mqierr.TransportError, err)
	}
	reply, err := s.readReplyWithDeadline(ctx, 5*time.Second)
	if err != nil {
		s.transition(state, StateBroken)
		return err
	}
	if reply.Functor() == "true" {
		return nil
	}
	if reply.Functor() == "exception" && reply.Arity() == 1 {
		kind, _ := reply.Arg(0)
		if exceptionAtom(kind) == "no_query" {
			return mqierr.New(mqierr.NoQuery, "no async query outstanding")
		}
		errKind, _ := classifyException(kind)
		return mqierr.WrapTerm(errKind, kind)
	}
	s.transition(state, StateBroken)
	return mqierr.Newf(mqierr.ProtocolViolation, "unexpected cancel ack %s", reply)
}

// Close ends the session (spec.md §4.E). It never returns an error to the
// caller on a transport-level failure during the close handshake itself —
// scoped resource release must not raise on normal scope exit (spec.md §9)
// — it simply closes the underlying connection and marks the session
// Closed either way.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	state := s.state
	if state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if state != StateBroken {
		if err := transportWrite(s.conn, frame.Encode("close.")); err == nil {
			_, _ = s.readReplyWithDeadline(ctx, 2*time.Second)
		}
	}

	s.transition(state, StateClosed)
	s.conn.Close()
	return nil
}

func (s *Session) transition(from, to State) {
	s.mu.Lock()
	s.state = to
	s.mu.Unlock()
	s.log("state_transition", from.String(), to.String())
	s.deps.Metrics.RecordStateChange(from.String(), to.String())
}

func (s *Session) transitionLocked(to State) {
	s.state = to
}

// notifyResultReady best-effort-signals any cross-process waiters on this
// session's ID that a poll just surfaced a result, so they can stop their
// own retry loop instead of polling on a fixed interval.
func (s *Session) notifyResultReady() {
	if s.deps.Notifier == nil {
		return
	}
	go s.deps.Notifier.Notify(context.Background(), s.id)
}

func (s *Session) log(event, from, to string) {
	s.deps.Logger.Log(logging.Event{
		Kind:      "session",
		Name:      event,
		EngineID:  s.deps.EngineID,
		SessionID: s.id,
		From:      from,
		To:        to,
	})
}

func (s *Session) recordQuery(kind, goal, outcome string, started time.Time) {
	elapsed := time.Since(started)
	s.deps.Metrics.RecordQuery(kind, outcome, elapsed)
	if s.deps.Audit == nil {
		return
	}
	// Best-effort and detached from the caller's context: an audit sink
	// outage must never slow down or fail a query the engine already
	// answered.
	go func() {
		_ = s.deps.Audit.RecordQueryEvent(context.Background(), audit.QueryEvent{
			ID:         uuid.NewString(),
			EngineID:   s.deps.EngineID,
			SessionID:  s.id,
			Op:         kind,
			Goal:       goal,
			Outcome:    outcome,
			DurationMs: elapsed.Milliseconds(),
		})
	}()
}

// readReply reads one frame (absorbing heartbeats) and decodes it as a
// Term, watching ctx for cancellation.
func (s *Session) readReply(ctx context.Context) (term.Term, error) {
	return s.readReplyWithDeadline(ctx, 0)
}

// readReplyWithDeadline is like readReply but additionally imposes an I/O
// read deadline derived from the query timeout plus heartbeat slack
// (spec.md §5). A deadline of 0 means no explicit deadline beyond ctx.
func (s *Session) readReplyWithDeadline(ctx context.Context, deadline time.Duration) (term.Term, error) {
	if deadline > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(deadline))
		defer s.conn.SetReadDeadline(time.Time{})
	}

	stop := watchContext(ctx, s.conn)
	defer stop()

	payload, err := s.dec.ReadFrame()
	if err != nil {
		if errors.Is(err, frame.ErrMalformedFrame) {
			s.deps.Metrics.RecordFrameDecodeError()
			return term.Term{}, mqierr.Wrap(mqierr.MalformedFrame, err)
		}
		return term.Term{}, mqierr.Wrap(mqierr.TransportError, err)
	}
	t, err := term.Decode([]byte(payload))
	if err != nil {
		return term.Term{}, mqierr.Wrap(mqierr.ProtocolViolation, err)
	}
	return t, nil
}

// watchContext aborts a blocked conn.Read by forcing an immediate deadline
// if ctx is cancelled before the read completes (spec.md §5: "the transport
// read path must periodically check a cancellation token"). The returned
// func must be called once the read finishes to stop the watcher.
func watchContext(ctx context.Context, conn net.Conn) func() {
	if ctx == nil || ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()
	return func() { close(done) }
}

func transportWrite(conn net.Conn, data []byte) error {
	for len(data) > 0 {
		n, err := conn.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// exceptionAtom extracts the bare atom name from an exception(...) argument
// when it is one, or "" when it is a compound (an "arbitrary exception").
func exceptionAtom(t term.Term) string {
	if name, ok := t.AsAtom(); ok {
		return name
	}
	return ""
}

// classifyException maps an exception(...) argument to the corresponding
// closed ErrorKind (spec.md §7).
func classifyException(t term.Term) (mqierr.Kind, string) {
	switch exceptionAtom(t) {
	case "time_limit_exceeded":
		return mqierr.TimeoutExceeded, "timeout_exceeded"
	case "cancel_goal":
		return mqierr.Cancelled, "cancelled"
	case "no_query":
		return mqierr.NoQuery, "no_query"
	case "no_more_results":
		return mqierr.NoMoreResults, "no_more_results"
	default:
		return mqierr.QueryException, "query_exception"
	}
}
