package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch and activate the latest remote configuration",
	RunE:  runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.coordinator.Initialize(ctx); err != nil {
		return fmt.Errorf("initialise: %w", err)
	}

	cmd.Println("Checking for configuration updates...")
	state, err := a.coordinator.UpdateFromRemote(ctx)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	info := a.coordinator.ConfigInfo()
	cmd.Printf("Update %s. Active configuration: %s (%d templates)\n",
		state, info.Version, info.TemplateCount)
	return nil
}
