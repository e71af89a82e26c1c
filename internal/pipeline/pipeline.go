// Package pipeline orchestrates the introspector, parser, differ, and
// generator into the three end-user operations: Pull, Push, and Render.
// It owns the only two concurrency boundaries the core exposes (the
// introspector's internal query fan-out, which it doesn't touch, and the
// remote-introspect ∥ local-parse race inside Push) and is the sole point
// where IntrospectionError, ParseError, MigrationError, and
// ConfirmationRequired can surface.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pgschema/pgschema/internal/defaults"
	"github.com/pgschema/pgschema/internal/diff"
	"github.com/pgschema/pgschema/internal/generator"
	"github.com/pgschema/pgschema/internal/ir"
	"github.com/pgschema/pgschema/internal/logger"
	"github.com/pgschema/pgschema/internal/transport"
)

// Pipeline binds a connection pool and an ignore overlay to the four
// analytical components. DbSchema values it builds are never mutated
// after construction, so two Pull calls against the same project within a
// Pipeline's lifetime are safe to run back to back.
type Pipeline struct {
	pool   *transport.Pool
	ignore *defaults.IgnoreConfig
	schema string // default schema for statements that omit one, e.g. "public"
}

// New binds a Pipeline to an already-open pool. ignore may be nil.
func New(pool *transport.Pool, ignore *defaults.IgnoreConfig, defaultSchema string) *Pipeline {
	if defaultSchema == "" {
		defaultSchema = "public"
	}
	return &Pipeline{pool: pool, ignore: ignore, schema: defaultSchema}
}

// Pull introspects the remote database and renders it as a canonical
// schema.sql: Introspect(remote) -> Diff(empty, remote) -> Generator::full.
// The Diff(empty, remote) leg is only there to reuse the generator's
// dependency ordering guarantees through the same code path EmitFull
// already exercises directly, so Pull calls EmitFull on the introspected
// schema without an intermediate diff.
func (p *Pipeline) Pull(ctx context.Context, targetSchemas []string) (string, error) {
	schema, err := p.introspect(ctx, targetSchemas)
	if err != nil {
		return "", err
	}
	return generator.EmitFull(schema), nil
}

// PullSplit is Pull's split-file form; the pull command writes these to disk.
func (p *Pipeline) PullSplit(ctx context.Context, targetSchemas []string) ([]generator.File, error) {
	schema, err := p.introspect(ctx, targetSchemas)
	if err != nil {
		return nil, err
	}
	return generator.EmitSplit(schema), nil
}

// Render parses local DDL text and splits it into the numbered split files
// (empty ones omitted): Parser::parse(local) -> Generator::split.
func (p *Pipeline) Render(localSQL string) ([]generator.File, error) {
	schema, err := p.parse(localSQL)
	if err != nil {
		return nil, err
	}
	return generator.EmitSplit(schema), nil
}

// PushResult carries the outcome of a successful Push, including a fresh
// fingerprint of the schema that is now live so the caller can pass it
// as a later Push's knownFingerprint.
type PushResult struct {
	SQL         string
	Fingerprint Fingerprint
}

// Push synchronizes the remote database to match localSQL:
// Introspect(remote) ∥ Parser::parse(local) -> Diff(remote, local) ->
// Generator::diff -> run_sql. The remote introspection and the local parse
// run concurrently; if either fails, the other's result is discarded and
// the first error wins.
//
// If the resulting diff is destructive and force is false, Push returns
// *ConfirmationRequired without touching the transport; the caller
// re-invokes with force=true once the user has confirmed. knownFingerprint
// is compared with the fingerprint of the freshly introspected remote and a
// match is only logged: Push always introspects the remote and never reuses
// a cached schema.
func (p *Pipeline) Push(ctx context.Context, localSQL string, targetSchemas []string, force bool, knownFingerprint Fingerprint) (*PushResult, error) {
	var remote, local *ir.DbSchema

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.introspect(gctx, targetSchemas)
		if err != nil {
			return err
		}
		remote = s
		return nil
	})
	g.Go(func() error {
		s, err := p.parse(localSQL)
		if err != nil {
			return err
		}
		local = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	remoteFP, err := Compute(remote)
	if err != nil {
		return nil, err
	}
	if knownFingerprint.Equal(remoteFP) {
		logger.Get().Debug("pipeline: remote fingerprint unchanged", "fingerprint", remoteFP.String())
	}

	d := diff.Diff(remote, local)
	if d.IsEmpty() {
		return &PushResult{SQL: "", Fingerprint: remoteFP}, nil
	}
	if d.IsDestructive() && !force {
		return nil, &ConfirmationRequired{Summary: d.Summarize()}
	}

	sql := generator.EmitDiff(d)
	if _, err := transport.RunSQL(ctx, p.pool, sql, false); err != nil {
		return nil, &MigrationError{SQL: sql, Cause: err}
	}

	newFP, err := Compute(local)
	if err != nil {
		return nil, err
	}
	return &PushResult{SQL: sql, Fingerprint: newFP}, nil
}

// DryRun computes and returns the migration script Push would execute,
// without ever calling the transport — the --dry-run leg of push.
func (p *Pipeline) DryRun(ctx context.Context, localSQL string, targetSchemas []string) (string, *diff.SchemaDiff, error) {
	var remote, local *ir.DbSchema

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.introspect(gctx, targetSchemas)
		if err != nil {
			return err
		}
		remote = s
		return nil
	})
	g.Go(func() error {
		s, err := p.parse(localSQL)
		if err != nil {
			return err
		}
		local = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	d := diff.Diff(remote, local)
	return generator.EmitDiff(d), d, nil
}

func (p *Pipeline) introspect(ctx context.Context, targetSchemas []string) (*ir.DbSchema, error) {
	insp := ir.NewInspector(p.pool, p)
	schema, err := insp.Introspect(ctx, targetSchemas)
	if err != nil {
		return nil, fmt.Errorf("pipeline: introspect: %w", err)
	}
	return schema, nil
}

func (p *Pipeline) parse(sql string) (*ir.DbSchema, error) {
	parser := ir.NewParser(p.schema)
	schema, err := parser.ParseSQL(sql)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse: %w", err)
	}
	return schema, nil
}

// IsExcludedSchema satisfies ir.IgnoreFilter, folding the pipeline's
// optional overlay on top of the built-in defaults catalog.
func (p *Pipeline) IsExcludedSchema(schema string) bool {
	return p.ignore.IsExcludedSchema(schema)
}
