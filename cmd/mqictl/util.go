package main

import (
	"context"
	"fmt"

	"github.com/oriys/mqi/internal/audit"
	"github.com/oriys/mqi/internal/config"
	"github.com/oriys/mqi/internal/engine"
	"github.com/oriys/mqi/internal/logging"
	"github.com/oriys/mqi/internal/metrics"
	"github.com/oriys/mqi/internal/mqi"
	"github.com/oriys/mqi/internal/notify"
	"github.com/oriys/mqi/internal/tracing"
)

// loadConfig builds a config.Config the way daemonCmd in the teacher's
// cmd/nova does: a JSON file overlaying DefaultConfig, then an env overlay,
// then a profile overlay if --profile was given.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}
	config.LoadFromEnv(cfg)

	if profileName != "" {
		p, err := loadProfile(profileName)
		if err != nil {
			return nil, err
		}
		p.applyTo(cfg)
	}
	return cfg, nil
}

// toolchain bundles the ambient collaborators built for one CLI invocation
// and their combined teardown, mirroring the shape daemonCmd assembles
// inline before constructing its executor.
type toolchain struct {
	client    *mqi.Client
	logger    *logging.Logger
	metrics   *metrics.Metrics
	tracer    *tracing.Tracer
	tracerEnd func(context.Context) error
	audit     *audit.Log
	notifier  *notify.Notifier
}

func buildToolchain(ctx context.Context, cfg *config.Config) (*toolchain, error) {
	logger := logging.New(cfg.Observability.Logging.Console)
	if cfg.Observability.Logging.FilePath != "" {
		if err := logger.SetOutput(cfg.Observability.Logging.FilePath); err != nil {
			return nil, fmt.Errorf("init logging: %w", err)
		}
	}

	var m *metrics.Metrics
	if cfg.Observability.Metrics.Enabled {
		m = metrics.New()
	}

	tracer, tracerEnd, err := tracing.Init(ctx, cfg.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	var auditLog *audit.Log
	if cfg.Store.Enabled {
		auditLog, err = audit.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("init audit store: %w", err)
		}
	}

	var notifier *notify.Notifier
	if cfg.Queue.Enabled {
		notifier = notify.Open(cfg.Queue.Addr, cfg.Queue.DB)
	}

	client := mqi.New(mqi.Config{
		Logger:   logger,
		Metrics:  m,
		Tracer:   tracer,
		Audit:    auditLog,
		Notifier: notifier,
	})

	return &toolchain{
		client:    client,
		logger:    logger,
		metrics:   m,
		tracer:    tracer,
		tracerEnd: tracerEnd,
		audit:     auditLog,
		notifier:  notifier,
	}, nil
}

func (t *toolchain) Close(ctx context.Context) {
	_ = t.client.ShutdownAll(ctx)
	if t.audit != nil {
		t.audit.Close()
	}
	if t.notifier != nil {
		t.notifier.Close()
	}
	if t.tracerEnd != nil {
		_ = t.tracerEnd(ctx)
	}
	t.logger.Close()
}

// engineOptions turns the config's EngineConfig into engine.Options,
// following the same field-for-field mapping config.go documents against
// engine.Options.
func engineOptions(ec config.EngineConfig) engine.Options {
	return engine.Options{
		ExecutablePath:      ec.ExecutablePath,
		Port:                ec.Port,
		Password:            ec.Password,
		UseUnixSocket:       ec.UseUnixSocket,
		UnixSocketPath:      ec.UnixSocketPath,
		QueryTimeoutSeconds: ec.QueryTimeoutSeconds,
		PendingConnections:  ec.PendingConnections,
		OutputFileName:      ec.OutputFileName,
		StartupTimeout:      ec.StartupTimeout,
		ShutdownGrace:       ec.ShutdownGrace,
		UseVsock:            ec.UseVsock,
		VsockCID:            ec.VsockCID,
		VsockPort:           ec.VsockPort,
	}
}
