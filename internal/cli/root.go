package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the erc-checker command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "erc-checker",
		Short: "Check reproduced research papers against their originals",
		Long: `erc-checker compares the original and the reproduced HTML rendering of an
Executable Research Compendium: the visible text word by word and every
embedded image pixel by pixel. It can save an annotated diff document and
the result metadata.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
