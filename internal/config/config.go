// Package config resolves the local filesystem layout a project keeps its
// declarative schema in: a single schema.sql, or the nine-file split form,
// under one of two conventional directories.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// PrimaryPath is where Pull writes a freshly generated schema.sql, and the
// first place Push, Diff and Render look for one.
const PrimaryPath = "supabase/schemas/schema.sql"

// FallbackPath is consulted only if PrimaryPath doesn't exist, for projects
// that predate the schemas/ subdirectory convention.
const FallbackPath = "supabase/schema.sql"

// SplitFileNames is the fixed, lexicographically-ordered set of files the
// generator's split form writes. The order here is also dependency order:
// concatenating the files in this sequence reproduces a single schema.sql.
var SplitFileNames = []string{
	"00_extensions.sql",
	"01_roles.sql",
	"02_types.sql",
	"03_sequences.sql",
	"04_tables.sql",
	"05_views.sql",
	"06_functions.sql",
	"07_foreign_keys.sql",
	"08_comments.sql",
}

// ResolveSchemaPath returns the local schema file Push should read: the
// primary path if present, else the fallback, else an error naming both
// candidates so the user knows exactly what to create.
func ResolveSchemaPath(root string) (string, error) {
	primary := filepath.Join(root, PrimaryPath)
	if _, err := os.Stat(primary); err == nil {
		return primary, nil
	}
	fallback := filepath.Join(root, FallbackPath)
	if _, err := os.Stat(fallback); err == nil {
		return fallback, nil
	}
	return "", fmt.Errorf("config: no schema file found at %q or %q", primary, fallback)
}

// SplitDir is the directory split files are read from and written to: the
// parent directory of PrimaryPath.
func SplitDir(root string) string {
	return filepath.Join(root, filepath.Dir(PrimaryPath))
}

// IsSplit reports whether root's project is using the nine-file split form
// rather than a single schema.sql: true if at least one of the numbered
// split files exists in SplitDir.
func IsSplit(root string) bool {
	dir := SplitDir(root)
	for _, name := range SplitFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
