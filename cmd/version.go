package cmd

import (
	"runtime"

	"github.com/huangsam/propensity/schema"
	"github.com/spf13/cobra"
)

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of propensity.",
	Long: `Display version information including build details.

Shows:
- Release version
- Git commit hash
- Build timestamp
- Model file format version
- Go runtime version`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("propensity CLI\n")
		cmd.Printf("  Version: %s\n", version)
		cmd.Printf("  Commit:  %s\n", commit)
		cmd.Printf("  Built:   %s\n", date)
		cmd.Printf("  Models:  v%d\n", schema.CurrentModelSchemaVersion)
		cmd.Printf("  Runtime: %s\n", runtime.Version())
	},
}
