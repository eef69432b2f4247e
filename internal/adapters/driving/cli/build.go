package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driving"
)

var (
	flagTone       string
	flagLang       string
	flagNoProfile  bool
	flagEntryFile  string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the reply prompt for an emotion entry",
	Long: `Reads an emotion entry as JSON from --entry or stdin and prints the
rendered prompt. Useful for inspecting what a given configuration and
entry produce before any generation happens.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&flagTone, "tone", string(domain.DefaultTone), "reply tone (warm, healing, rational)")
	buildCmd.Flags().StringVar(&flagLang, "lang", string(domain.DefaultLanguage), "entry language (zh, en)")
	buildCmd.Flags().BoolVar(&flagNoProfile, "no-personalization", false, "skip the user profile lookup")
	buildCmd.Flags().StringVar(&flagEntryFile, "entry", "", "entry JSON file (default stdin)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
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

	if err := a.coordinator.Initialize(ctx); err != nil {
		return fmt.Errorf("initialise: %w", err)
	}

	opts := driving.DefaultBuildOptions()
	if flagNoProfile {
		opts.IncludePersonalization = false
	}

	prompt, err := a.coordinator.BuildPrompt(ctx, entry, tone, lang, opts)
	if err != nil {
		return fmt.Errorf("build prompt: %w", err)
	}

	cmd.Println(prompt)
	return nil
}

// readEntry decodes the entry JSON from --entry or the given reader.
func readEntry(stdin io.Reader) (*domain.EmotionEntry, error) {
	var data []byte
	var err error
	if flagEntryFile != "" {
		data, err = os.ReadFile(flagEntryFile)
		if err != nil {
			return nil, fmt.Errorf("read entry file: %w", err)
		}
	} else {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read entry from stdin: %w", err)
		}
	}

	var entry domain.EmotionEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	return &entry, nil
}
