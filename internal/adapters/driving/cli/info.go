package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the active configuration",
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.coordinator.Initialize(ctx); err != nil {
		return fmt.Errorf("initialise: %w", err)
	}

	info := a.coordinator.ConfigInfo()
	cmd.Printf("Version:    %s\n", info.Version)
	if !info.LastUpdate.IsZero() {
		cmd.Printf("Modified:   %s\n", info.LastUpdate.Format("2006-01-02 15:04:05"))
	}
	cmd.Printf("Languages:  %s\n", strings.Join(info.Languages, ", "))
	cmd.Printf("Tones:      %s\n", strings.Join(info.Tones, ", "))
	cmd.Printf("Templates:  %d\n", info.TemplateCount)
	cmd.Printf("Status:     %s\n", info.Status)
	cmd.Printf("Data dir:   %s\n", a.dataDir)
	return nil
}
