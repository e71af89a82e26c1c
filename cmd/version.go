package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgschema/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pgschema %s %s (commit %s, built %s)\n",
			version.Version(), version.Platform(), version.GetGitCommit(), version.GetBuildDate())
	},
}
