package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Help(t *testing.T) {
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	RootCmd.SetArgs([]string{"--help"})

	require.NoError(t, RootCmd.Execute())
	assert.Contains(t, buf.String(), "Declarative PostgreSQL schema sync")
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	var names []string
	for _, c := range RootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{"pull", "push", "render", "diff", "version"} {
		assert.Contains(t, names, expected)
	}
}

func TestResolveURL_PrefersFlagOverEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	dbURL = "postgres://flag/db"
	defer func() { dbURL = "" }()

	got, err := resolveURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag/db", got)
}

func TestResolveURL_FallsBackToEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	dbURL = ""

	got, err := resolveURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", got)
}

func TestResolveURL_ErrorsWhenNeitherSet(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	dbURL = ""

	_, err := resolveURL()
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "--url"))
}
