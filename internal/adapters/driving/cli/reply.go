package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
)

var replyCmd = &cobra.Command{
	Use:   "reply",
	Short: "Generate a reply for an emotion entry",
	Long: `Reads an emotion entry as JSON from --entry or stdin, renders the
prompt, and asks the generation backend for a reply. Requires a
generation API key in settings or OPENAI_API_KEY.`,
	RunE: runReply,
}

func init() {
	replyCmd.Flags().StringVar(&flagTone, "tone", string(domain.DefaultTone), "reply tone (warm, healing, rational)")
	replyCmd.Flags().StringVar(&flagLang, "lang", string(domain.DefaultLanguage), "entry language (zh, en)")
	replyCmd.Flags().StringVar(&flagEntryFile, "entry", "", "entry JSON file (default stdin)")
	rootCmd.AddCommand(replyCmd)
}

func runReply(cmd *cobra.Command, _ []string) error {
	entry, err := readEntry(cmd.InOrStdin())
	if err != nil {
		return err
	}

	tone := domain.Tone(flagTone)
	if !tone.IsValid() {
		return fmt.Errorf("unknown tone %q", flagTone)
	}
	lang := domain.Language(flagLang)
	if !lang.IsValid() {
		return fmt.Errorf("unknown language %q", flagLang)
	}

	ctx := context.Background()
	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.reply == nil {
		return errors.New("no generation API key configured")
	}

	if err := a.coordinator.Initialize(ctx); err != nil {
		return fmt.Errorf("initialise: %w", err)
	}

	text, err := a.reply.GenerateReply(ctx, entry, tone, lang)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}

	cmd.Println(text)
	return nil
}
