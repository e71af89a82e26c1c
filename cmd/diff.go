package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pgschema/pgschema/internal/config"
	"github.com/pgschema/pgschema/internal/diff"
	"github.com/pgschema/pgschema/internal/pipeline"
	"github.com/pgschema/pgschema/internal/transport"
)

var diffSummary bool

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show the migration plan between the database and a local schema.sql",
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffSummary, "summary", false, "Render a per-category change count table instead of the full script")
}

func runDiff(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("diff: read %s: %w", path, err)
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
		return fmt.Errorf("diff: load ignore overlay: %w", err)
	}
	p := pipeline.New(pool, ignore, schema)

	sql, d, err := p.DryRun(ctx, string(raw), []string{schema})
	if err != nil {
		return err
	}

	if diffSummary {
		renderSummaryTable(d)
		return nil
	}

	printSummary(d.Summarize())
	if sql != "" {
		fmt.Println()
		fmt.Println(sql)
	}
	return nil
}

// renderSummaryTable groups a diff's changes by category and action into a
// table, the `diff --summary` leg.
func renderSummaryTable(d *diff.SchemaDiff) {
	counts := map[diff.Category]map[diff.Action]int{}
	for _, c := range d.Changes {
		if counts[c.Category] == nil {
			counts[c.Category] = map[diff.Action]int{}
		}
		counts[c.Category][c.Action]++
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Category", "Create", "Update", "Replace", "Drop"})
	for _, category := range []diff.Category{
		diff.CategoryRole, diff.CategoryExtension, diff.CategoryEnum, diff.CategoryCompositeType,
		diff.CategoryDomain, diff.CategorySequence, diff.CategoryFunction, diff.CategoryTable,
		diff.CategoryColumn, diff.CategoryCheck, diff.CategoryForeignKey, diff.CategoryIndex,
		diff.CategoryTrigger, diff.CategoryPolicy, diff.CategoryRLS, diff.CategoryView, diff.CategoryComment,
	} {
		by, ok := counts[category]
		if !ok {
			continue
		}
		table.Append([]string{
			string(category),
			fmt.Sprintf("%d", by[diff.ActionCreate]),
			fmt.Sprintf("%d", by[diff.ActionUpdate]),
			fmt.Sprintf("%d", by[diff.ActionReplace]),
			fmt.Sprintf("%d", by[diff.ActionDrop]),
		})
	}
	table.Render()
}
