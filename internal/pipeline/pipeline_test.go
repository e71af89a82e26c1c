package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pgschema/pgschema/internal/ir"
	"github.com/pgschema/pgschema/internal/transport"
)

func TestFingerprint_EqualRequiresNonEmptyHash(t *testing.T) {
	var a, b Fingerprint
	assert.False(t, a.Equal(b), "two zero-value fingerprints are never considered equal")

	schema := ir.New()
	fp, err := Compute(schema)
	require.NoError(t, err)
	assert.True(t, fp.Equal(fp))
	assert.NotEmpty(t, fp.String())
}

func TestRender_SplitsIntoExpectedFiles(t *testing.T) {
	p := New(nil, nil, "public")
	files, err := p.Render(`
		CREATE TABLE users (id uuid PRIMARY KEY, name text NOT NULL);
		CREATE TABLE orders (id uuid PRIMARY KEY, user_id uuid REFERENCES users(id));
	`)
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "04_tables.sql")
	assert.Contains(t, names, "07_foreign_keys.sql")
	assert.NotContains(t, names, "01_roles.sql", "a schema with no roles omits that file")
}

func TestPipeline_PullPushRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("pipeline_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := transport.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	p := New(pool, nil, "public")

	local := `CREATE TABLE widgets (id uuid PRIMARY KEY, name text NOT NULL);`
	res, err := p.Push(ctx, local, []string{"public"}, false, Fingerprint{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `CREATE TABLE "public"."widgets"`)

	dump, err := p.Pull(ctx, []string{"public"})
	require.NoError(t, err)
	assert.Contains(t, dump, `CREATE TABLE "public"."widgets"`)

	res2, err := p.Push(ctx, local, []string{"public"}, false, Fingerprint{})
	require.NoError(t, err)
	assert.Empty(t, res2.SQL, "pushing the same schema twice produces no further changes")
}

func TestPipeline_PushDestructiveWithoutForce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("pipeline_test2"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := transport.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	p := New(pool, nil, "public")

	_, err = p.Push(ctx, `CREATE TABLE widgets (id uuid PRIMARY KEY);`, []string{"public"}, false, Fingerprint{})
	require.NoError(t, err)

	_, err = p.Push(ctx, ``, []string{"public"}, false, Fingerprint{})
	var confirm *ConfirmationRequired
	require.ErrorAs(t, err, &confirm)
	assert.NotEmpty(t, confirm.Summary)
}
