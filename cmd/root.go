// Package cmd wires the pull/push/render/diff/version subcommands onto a
// cobra root, binding the flags documented for the CLI onto an
// internal/pipeline.Pipeline for each invocation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgschema/internal/color"
	"github.com/pgschema/pgschema/internal/defaults"
	"github.com/pgschema/pgschema/internal/logger"
	"github.com/pgschema/pgschema/internal/transport"
	"github.com/pgschema/pgschema/internal/version"
)

// Flags shared by every subcommand that talks to a database or reads a
// local schema file.
var (
	dbURL    string
	schema   string
	file     string
	force    bool
	debug    bool
	noColor  bool
	dryRun   bool
)

var RootCmd = &cobra.Command{
	Use:   "pgschema",
	Short: "Declarative PostgreSQL schema sync for Supabase projects",
	Long: fmt.Sprintf(`pgschema pulls a database's live schema into schema.sql,
and pushes schema.sql back as a dependency-ordered migration.

Version: %s (%s)

Use "pgschema [command] --help" for more information about a command.`,
		version.Version(), version.Platform()),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&dbURL, "url", "", "Postgres connection string (defaults to $DATABASE_URL)")
	RootCmd.PersistentFlags().StringVar(&schema, "schema", "public", "Target schema namespace")
	RootCmd.PersistentFlags().StringVar(&file, "file", "", "schema.sql path override")
	RootCmd.PersistentFlags().BoolVar(&force, "force", false, "Bypass confirmation for destructive changes")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	RootCmd.AddCommand(pullCmd)
	RootCmd.AddCommand(pushCmd)
	RootCmd.AddCommand(renderCmd)
	RootCmd.AddCommand(diffCmd)
	RootCmd.AddCommand(versionCmd)
}

func setupLogger() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger.SetGlobal(slog.New(handler), debug)
}

// colorizer returns a Color honoring --no-color on top of the NO_COLOR/TERM
// environment check internal/color already performs.
func colorizer() *color.Color {
	return color.New(!noColor)
}

// resolveURL prefers the --url flag, falling back to DATABASE_URL so a
// bare connection string can live in a .env file.
func resolveURL() (string, error) {
	if dbURL != "" {
		return dbURL, nil
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("no database URL: pass --url or set DATABASE_URL")
}

// loadIgnore reads the optional .pgsyncignore overlay from the current
// directory. A missing file is not an error.
func loadIgnore() (*defaults.IgnoreConfig, error) {
	return defaults.LoadIgnoreFile()
}

func dieOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, colorizer().Destroy(err.Error()))
	os.Exit(1)
}

// mustValidateURL fails fast on an obviously unreachable --url before the
// pipeline stands up a pool.
func mustValidateURL(dsn string) {
	if err := transport.ValidateDSN(dsn); err != nil {
		dieOnError(err)
	}
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
