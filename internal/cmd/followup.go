package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/promptlens/promptlens/internal/analysis"
)

var followupCmd = &cobra.Command{
	Use:   "followup <image> <prompt-id> <question>...",
	Short: "Ask a follow-up question on a completed text prompt",
	Long: `Continue the conversation of a text prompt that already has a
successful answer for the given image. The full prior exchange is
replayed so the model keeps its context.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runFollowup,
}

func init() {
	rootCmd.AddCommand(followupCmd)

	followupCmd.Flags().String("set", "", "prompt set YAML file")
	followupCmd.Flags().String("from-store", "", "prompt set name stored in the database")
}

func runFollowup(cmd *cobra.Command, args []string) error {
	setFile, err := cmd.Flags().GetString("set")
	if err != nil {
		return err
	}
	setName, err := cmd.Flags().GetString("from-store")
	if err != nil {
		return err
	}

	imageID := args[0]
	promptID := args[1]
	question := strings.TrimSpace(strings.Join(args[2:], " "))
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	ctx := cmd.Context()

	set, err := loadPromptSet(ctx, setFile, setName)
	if err != nil {
		return err
	}

	eng, err := buildEngine(set)
	if err != nil {
		return err
	}

	// A follow-up needs an existing successful answer. Run the prompt
	// first so the conversation has its opening exchange.
	if err := eng.RunOne(ctx, promptID, imageID); err != nil {
		return err
	}
	if latest, ok := eng.History.Latest(imageID, promptID); !ok || latest.Status != analysis.StatusSuccess {
		return fmt.Errorf("prompt %q has no successful result for %s", promptID, imageID)
	}

	if err := eng.SendFollowUp(ctx, promptID, imageID, question); err != nil {
		return err
	}

	latest, ok := eng.History.Latest(imageID, promptID)
	if !ok {
		return fmt.Errorf("no result recorded for %s/%s", imageID, promptID)
	}

	for _, turn := range latest.Conversation {
		fmt.Printf("Q: %s\nA: %s\n\n", turn.Question, turn.Answer)
	}

	return nil
}
