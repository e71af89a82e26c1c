// Package transport is the SQL-execution collaborator the pipeline is
// built against: a single run_sql(project, sql, read_only) call that
// either returns rows or a transport error. The introspector talks to a
// *pgxpool.Pool directly through its own narrower Querier interface; this
// package owns opening that pool and the generic collaborator used by the
// pipeline's migration-execution leg and by ad hoc diagnostic queries.
package transport

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

// DefaultTimeout bounds a single run_sql call. ConnectTimeout bounds
// opening the pool. Both come from the documented transport timeout
// defaults (120s / 15s).
const (
	DefaultTimeout = 120 * time.Second
	ConnectTimeout = 15 * time.Second
)

// Pool wraps a pgxpool.Pool so callers outside this package never import
// pgx directly; it satisfies ir.Querier as-is.
type Pool struct {
	*pgxpool.Pool
}

// Connect opens a pooled connection to dsn and verifies it with a ping,
// both bounded by ConnectTimeout. The returned Pool must be closed by the
// caller once the pipeline invocation using it is done.
func Connect(ctx context.Context, dsn string) (*Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("transport: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transport: ping: %w", err)
	}
	return &Pool{pool}, nil
}

// Row is one result row from a read_only run_sql call, column name to
// decoded value.
type Row map[string]any

// RunSQL is the run_sql(project, sql, read_only) collaborator: it executes
// sqlText as a single batch against pool, bounded by DefaultTimeout.
// readOnly selects the code path — a read executes via Query and decodes
// every row; a write executes via Exec and returns no rows. pgx runs a
// semicolon-separated, argument-free batch like this through the simple
// query protocol, so a generated migration script with many statements
// runs as one round trip.
func RunSQL(ctx context.Context, pool *Pool, sqlText string, readOnly bool) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	if readOnly {
		rows, err := pool.Query(ctx, sqlText)
		if err != nil {
			return nil, fmt.Errorf("transport: query: %w", err)
		}
		defer rows.Close()

		var out []Row
		fields := rows.FieldDescriptions()
		for rows.Next() {
			vals, err := rows.Values()
			if err != nil {
				return nil, fmt.Errorf("transport: decode row: %w", err)
			}
			row := make(Row, len(fields))
			for i, f := range fields {
				row[string(f.Name)] = vals[i]
			}
			out = append(out, row)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("transport: rows: %w", err)
		}
		return out, nil
	}

	if _, err := pool.Exec(ctx, sqlText); err != nil {
		return nil, fmt.Errorf("transport: exec: %w", err)
	}
	return nil, nil
}

// ValidateDSN does a lightweight sanity check of a postgres:// DSN without
// standing up a pool: open (parses the DSN, no I/O) then ping (one
// round trip). Used by the CLI to fail fast on an obviously malformed
// --url before the pipeline ever runs. Uses database/sql + lib/pq rather
// than pgxpool, since a one-shot check has no need for pooling.
func ValidateDSN(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("transport: invalid dsn: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("transport: dsn unreachable: %w", err)
	}
	return nil
}
