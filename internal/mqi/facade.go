// Package mqi is the public facade (spec component F): the host-facing
// surface that wires together the process manager and session layers
// behind the small vocabulary spec.md §4.F names — launch_engine,
// open_session, run/run_async/poll/cancel/close, shutdown.
package mqi

import (
	"context"
	"sync"

	"github.com/oriys/mqi/internal/audit"
	"github.com/oriys/mqi/internal/engine"
	"github.com/oriys/mqi/internal/logging"
	"github.com/oriys/mqi/internal/metrics"
	"github.com/oriys/mqi/internal/notify"
	"github.com/oriys/mqi/internal/session"
	"github.com/oriys/mqi/internal/tracing"
)

// Client is the top-level entry point a host application constructs once.
// It owns the optional ambient collaborators and a registry of engines it
// has launched, so ShutdownAll can fan out on host exit.
type Client struct {
	mu       sync.Mutex
	logger   *logging.Logger
	metrics  *metrics.Metrics
	tracer   *tracing.Tracer
	audit    *audit.Log
	notifier *notify.Notifier
	engines  map[string]*engine.Engine
}

// Config selects the ambient collaborators a Client reports to. A zero
// Config is valid and yields a Client that neither logs, traces, audits,
// notifies, nor exports metrics.
type Config struct {
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
	Tracer   *tracing.Tracer
	Audit    *audit.Log
	Notifier *notify.Notifier
}

// New constructs a Client.
func New(cfg Config) *Client {
	return &Client{
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
		audit:    cfg.Audit,
		notifier: cfg.Notifier,
		engines:  make(map[string]*engine.Engine),
	}
}

// LaunchEngine spawns and hands back an engine handle (spec.md §4.D/§4.F).
func (c *Client) LaunchEngine(ctx context.Context, opts engine.Options) (*engine.Engine, error) {
	e, err := engine.Launch(ctx, opts, engine.Deps{Logger: c.logger, Metrics: c.metrics, Tracer: c.tracer, Audit: c.audit, Notifier: c.notifier})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.engines[e.ID()] = e
	c.mu.Unlock()
	return e, nil
}

// OpenSession opens a new session against a previously launched engine
// (spec.md §4.F "Engine::open_session").
func (c *Client) OpenSession(ctx context.Context, e *engine.Engine) (*session.Session, error) {
	return e.OpenSession(ctx)
}

// ShutdownEngine terminates one engine and removes it from the registry.
func (c *Client) ShutdownEngine(ctx context.Context, e *engine.Engine) error {
	c.mu.Lock()
	delete(c.engines, e.ID())
	c.mu.Unlock()
	return e.Shutdown(ctx)
}

// ShutdownAll terminates every engine this Client has launched and not yet
// shut down, for use at host-process exit. Errors are collected but do not
// stop remaining shutdowns from being attempted.
func (c *Client) ShutdownAll(ctx context.Context) error {
	c.mu.Lock()
	remaining := make([]*engine.Engine, 0, len(c.engines))
	for _, e := range c.engines {
		remaining = append(remaining, e)
	}
	c.engines = make(map[string]*engine.Engine)
	c.mu.Unlock()

	var firstErr error
	for _, e := range remaining {
		if err := e.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run is the synchronous query convenience (spec.md §4.F "Session::run").
func Run(ctx context.Context, s *session.Session, goal string, timeout session.Timeout) (session.QueryResult, error) {
	return s.RunSync(ctx, goal, timeout)
}

// RunAsync starts an asynchronous query (spec.md §4.F "Session::run_async").
func RunAsync(ctx context.Context, s *session.Session, goal string, timeout session.Timeout, findAll bool) error {
	return s.RunAsync(ctx, goal, timeout, findAll)
}

// Poll retrieves the next asynchronous outcome (spec.md §4.F "Session::poll").
func Poll(ctx context.Context, s *session.Session, wait session.Timeout) (session.PollResult, error) {
	return s.Poll(ctx, wait)
}

// Cancel best-effort-cancels the outstanding async query (spec.md §4.F).
func Cancel(ctx context.Context, s *session.Session) error {
	return s.Cancel(ctx)
}

// Close ends a session (spec.md §4.F "Session::close").
func Close(ctx context.Context, s *session.Session) error {
	return s.Close(ctx)
}
