// Package audit is an optional Postgres-backed audit log for engine
// lifecycle and query events, modeled on the teacher's
// internal/store.PostgresStore: a pgxpool.Pool, an ensureSchema step run
// once at construction, and narrow upsert/insert methods per record kind.
// A nil *Log is a safe no-op so embedding the client never forces a
// database dependency on a host application.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryEvent is one row of the query audit trail: one session call and its
// outcome. The session package writes rows for run_sync calls only.
type QueryEvent struct {
	ID         string
	EngineID   string
	SessionID  string
	Op         string // "run_sync"
	Goal       string
	Outcome    string // "solutions", "false", "timeout_exceeded", "cancelled", ...
	DurationMs int64
	At         time.Time
}

// EngineEvent is one row of the engine lifecycle audit trail.
type EngineEvent struct {
	ID       string
	EngineID string
	Name     string // "launched", "launch_failed", "crashed", "shutdown"
	Detail   string
	At       time.Time
}

// Log is a Postgres-backed sink for QueryEvent and EngineEvent records. The
// zero value is not usable; construct with Open.
type Log struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and ensures the audit schema exists, mirroring
// the teacher's NewPostgresStore (ping-then-ensureSchema) sequencing.
func Open(ctx context.Context, dsn string) (*Log, error) {
	if dsn == "" {
		return nil, fmt.Errorf("audit: postgres DSN is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: create postgres pool: %w", err)
	}
	l := &Log{pool: pool}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: ping postgres: %w", err)
	}
	if err := l.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the pool. A nil *Log is a no-op.
func (l *Log) Close() {
	if l == nil || l.pool == nil {
		return
	}
	l.pool.Close()
}

func (l *Log) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS mqi_engine_events (
			id TEXT PRIMARY KEY,
			engine_id TEXT NOT NULL,
			name TEXT NOT NULL,
			detail TEXT,
			at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mqi_engine_events_engine_id ON mqi_engine_events(engine_id)`,
		`CREATE TABLE IF NOT EXISTS mqi_query_events (
			id TEXT PRIMARY KEY,
			engine_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			op TEXT NOT NULL,
			goal TEXT,
			outcome TEXT NOT NULL,
			duration_ms BIGINT NOT NULL,
			at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mqi_query_events_session_id ON mqi_query_events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_mqi_query_events_at ON mqi_query_events(at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("audit: ensure schema: %w", err)
		}
	}
	return nil
}

// RecordEngineEvent appends one engine lifecycle row. A nil *Log is a
// no-op so callers do not need to branch on whether auditing is enabled.
func (l *Log) RecordEngineEvent(ctx context.Context, e EngineEvent) error {
	if l == nil {
		return nil
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO mqi_engine_events (id, engine_id, name, detail, at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.EngineID, e.Name, e.Detail, e.At)
	if err != nil {
		return fmt.Errorf("audit: record engine event: %w", err)
	}
	return nil
}

// RecordQueryEvent appends one query audit row. A nil *Log is a no-op.
func (l *Log) RecordQueryEvent(ctx context.Context, q QueryEvent) error {
	if l == nil {
		return nil
	}
	if q.At.IsZero() {
		q.At = time.Now()
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO mqi_query_events (id, engine_id, session_id, op, goal, outcome, duration_ms, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, q.ID, q.EngineID, q.SessionID, q.Op, q.Goal, q.Outcome, q.DurationMs, q.At)
	if err != nil {
		return fmt.Errorf("audit: record query event: %w", err)
	}
	return nil
}

// RecentQueryEvents returns the most recent query audit rows for one
// session, newest first. A nil *Log returns no rows.
func (l *Log) RecentQueryEvents(ctx context.Context, sessionID string, limit int) ([]QueryEvent, error) {
	if l == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx, `
		SELECT id, engine_id, session_id, op, goal, outcome, duration_ms, at
		FROM mqi_query_events
		WHERE session_id = $1
		ORDER BY at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent query events: %w", err)
	}
	defer rows.Close()

	var events []QueryEvent
	for rows.Next() {
		var q QueryEvent
		if err := rows.Scan(&q.ID, &q.EngineID, &q.SessionID, &q.Op, &q.Goal, &q.Outcome, &q.DurationMs, &q.At); err != nil {
			return nil, fmt.Errorf("audit: scan query event: %w", err)
		}
		events = append(events, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: recent query events rows: %w", err)
	}
	return events, nil
}
