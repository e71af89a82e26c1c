package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgschema/internal/config"
	"github.com/pgschema/pgschema/internal/generator"
	"github.com/pgschema/pgschema/internal/logger"
	"github.com/pgschema/pgschema/internal/pipeline"
	"github.com/pgschema/pgschema/internal/transport"
)

var pullSplit bool

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Introspect the database and write it as schema.sql",
	RunE:  runPull,
}

func init() {
	pullCmd.Flags().BoolVar(&pullSplit, "split", false, "Write the nine-file split form instead of a single schema.sql")
}

func runPull(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

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
		return fmt.Errorf("pull: load ignore overlay: %w", err)
	}

	p := pipeline.New(pool, ignore, schema)

	if pullSplit {
		files, err := p.PullSplit(ctx, []string{schema})
		if err != nil {
			return err
		}
		return writeSplitFiles(files)
	}

	sql, err := p.Pull(ctx, []string{schema})
	if err != nil {
		return err
	}

	target := file
	if target == "" {
		target = config.PrimaryPath
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("pull: create %s: %w", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, []byte(sql), 0o644); err != nil {
		return fmt.Errorf("pull: write %s: %w", target, err)
	}

	logger.Get().Info("pull: wrote schema", "path", target, "bytes", len(sql))
	fmt.Println(colorizer().Add(fmt.Sprintf("wrote %s", target)))
	return nil
}

func writeSplitFiles(files []generator.File) error {
	dir := config.SplitDir(".")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("pull: create %s: %w", dir, err)
	}
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, []byte(f.SQL), 0o644); err != nil {
			return fmt.Errorf("pull: write %s: %w", path, err)
		}
	}
	logger.Get().Info("pull: wrote split schema", "dir", dir, "files", len(files))
	fmt.Println(colorizer().Add(fmt.Sprintf("wrote %d files to %s", len(files), dir)))
	return nil
}
