package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zukiwong/mirrornote-prompt/internal/core/services"
)

var flagClearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored configuration and backups",
	Long: `Removes the active configuration and every backup from local storage.
The next run falls back to the built-in default configuration until a
remote update succeeds.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&flagClearYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if !flagClearYes {
		cmd.Print("Delete all stored configuration? [y/N] ")
		var answer string
		fmt.Fscanln(cmd.InOrStdin(), &answer)
		if answer != "y" && answer != "Y" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	ctx := context.Background()
	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	store := services.NewConfigStore(a.blobs)
	if err := store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear configuration: %w", err)
	}

	cmd.Println("Stored configuration cleared.")
	return nil
}
