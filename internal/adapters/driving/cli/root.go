// Package cli provides the mirrornote-prompt command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/zukiwong/mirrornote-prompt/internal/logger"
)

// version is injected by Execute.
var version = "dev"

// Persistent flag values.
var (
	flagVerbose    bool
	flagDataDir    string
	flagConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "mirrornote-prompt",
	Short: "Prompt configuration and template management for MirrorNote",
	Long: `mirrornote-prompt manages the prompt configuration used to generate
journal replies: it keeps templates updated from the remote configuration
service, persists them locally with backups, and renders prompts from
emotion entries.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.mirrornote/data)")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "settings file (default ~/.mirrornote/settings.toml)")
}

// Execute runs the CLI with the given build version.
func Execute(buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}
	return rootCmd.Execute()
}
