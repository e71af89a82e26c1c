package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgschema/internal/config"
	"github.com/pgschema/pgschema/internal/logger"
	"github.com/pgschema/pgschema/internal/pipeline"
	"github.com/pgschema/pgschema/internal/transport"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Migrate the database to match a local schema.sql",
	RunE:  runPush,
}

func init() {
	pushCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the migration script without applying it")
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	path := file
	if path == "" {
		resolved, err := config.ResolveSchemaPath(".")
		if err != nil {
			return err
		}
		path = resolved
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("push: read %s: %w", path, err)
	}

	dsn, err := resolveURL()
	if err != nil {
		return err
	}
	mustValidateURL(dsn)

	pool, err := transport.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	ignore, err := loadIgnore()
	if err != nil {
		return fmt.Errorf("push: load ignore overlay: %w", err)
	}
	p := pipeline.New(pool, ignore, schema)

	if dryRun {
		sql, d, err := p.DryRun(ctx, string(raw), []string{schema})
		if err != nil {
			return err
		}
		printSummary(d.Summarize())
		if sql != "" {
			fmt.Println()
			fmt.Println(sql)
		}
		return nil
	}

	res, err := p.Push(ctx, string(raw), []string{schema}, force, pipeline.Fingerprint{})
	if err != nil {
		var confirm *pipeline.ConfirmationRequired
		if errors.As(err, &confirm) {
			printSummary(confirm.Summary)
			fmt.Fprintln(os.Stderr, colorizer().Change("destructive changes detected; re-run with --force to apply"))
			os.Exit(1)
		}
		return err
	}

	if res.SQL == "" {
		fmt.Println(colorizer().Cyan("no changes"))
		return nil
	}
	logger.Get().Info("push: applied migration", "fingerprint", res.Fingerprint.String())
	fmt.Println(colorizer().Add("migration applied"))
	fmt.Println(res.SQL)
	return nil
}

func printSummary(lines []string) {
	c := colorizer()
	for _, line := range lines {
		switch {
		case len(line) > 0 && line[0] == '+':
			fmt.Println(c.Add(line))
		case len(line) > 0 && line[0] == '-':
			fmt.Println(c.Destroy(line))
		default:
			fmt.Println(c.Change(line))
		}
	}
}
