package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/promptlens/promptlens/internal/analysis"
	"github.com/promptlens/promptlens/internal/engine"
	"github.com/promptlens/promptlens/internal/history"
	"github.com/promptlens/promptlens/internal/imaging"
	"github.com/promptlens/promptlens/internal/prompt"
	"github.com/promptlens/promptlens/internal/store"
	"github.com/promptlens/promptlens/internal/vlm"
)

// loadPromptSet resolves the prompt set from either a YAML file or a
// named set in the store. Exactly one source must be given.
func loadPromptSet(ctx context.Context, setFile, setName string) (*prompt.Set, error) {
	switch {
	case setFile != "" && setName != "":
		return nil, errors.New("--set and --from-store are mutually exclusive")
	case setFile != "":
		return prompt.LoadSetFile(setFile)
	case setName != "":
		db, err := openStore(ctx)
		if err != nil {
			return nil, err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		return db.LoadPromptSet(ctx, setName)
	default:
		return nil, errors.New("a prompt set is required: pass --set <file> or --from-store <name>")
	}
}

// buildModelClient constructs the chat-completions client from the
// loaded configuration.
func buildModelClient() *vlm.Client {
	client := vlm.NewClient(cfg.Model.Endpoint, cfg.Model.APIKey, cfg.Model.Model)
	client.Timeout = cfg.Model.Timeout
	if cfg.Model.MaxTokens > 0 {
		maxTokens := cfg.Model.MaxTokens
		client.MaxTokens = &maxTokens
	}
	if cfg.Model.Temperature > 0 {
		temperature := cfg.Model.Temperature
		client.Temperature = &temperature
	}
	return client
}

// buildEngine wires the model client, image source, and history store
// around the given prompt set.
func buildEngine(set *prompt.Set) (*engine.Engine, error) {
	forest, err := set.Forest()
	if err != nil {
		return nil, err
	}

	client := buildModelClient()
	images := imaging.NewFileSource(cfg.Imaging.MaxEdge)

	eng := engine.New(client, forest, history.NewStore(), images)
	return eng, nil
}

// cliProgress prints run progress to stderr so stdout stays parseable.
type cliProgress struct{}

func (cliProgress) Step(current, total int) {
	fmt.Fprintf(os.Stderr, "\r[%d/%d] prompts completed", current, total)
	if current >= total {
		fmt.Fprintln(os.Stderr)
	}
}

func (cliProgress) ImageDone(imageID string, status analysis.Status) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", imageID, status)
}

// archiveResults persists every history entry produced by the run.
func archiveResults(ctx context.Context, db *store.Store, eng *engine.Engine, imageIDs []string) error {
	for _, imageID := range imageIDs {
		for _, p := range eng.Forest.All() {
			for _, result := range eng.History.History(imageID, p.ID) {
				if err := db.ArchiveResult(ctx, imageID, p.ID, result); err != nil {
					return fmt.Errorf("archive result for %s/%s: %w", imageID, p.ID, err)
				}
			}
		}
	}
	return nil
}
