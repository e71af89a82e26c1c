package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgschema/internal/config"
	"github.com/pgschema/pgschema/internal/logger"
	"github.com/pgschema/pgschema/internal/pipeline"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Split a local schema.sql into the nine numbered files, without touching a database",
	RunE:  runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	path := file
	if path == "" {
		root, err := config.ResolveSchemaPath(".")
		if err != nil {
			return err
		}
		path = root
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("render: read %s: %w", path, err)
	}

	p := pipeline.New(nil, nil, schema)
	files, err := p.Render(string(raw))
	if err != nil {
		return err
	}

	dir := config.SplitDir(".")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("render: create %s: %w", dir, err)
	}
	for _, f := range files {
		out := filepath.Join(dir, f.Name)
		if err := os.WriteFile(out, []byte(f.SQL), 0o644); err != nil {
			return fmt.Errorf("render: write %s: %w", out, err)
		}
	}

	logger.Get().Info("render: split schema", "source", path, "dir", dir, "files", len(files))
	fmt.Println(colorizer().Add(fmt.Sprintf("wrote %d files to %s", len(files), dir)))
	return nil
}
