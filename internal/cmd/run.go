package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/promptlens/promptlens/internal/observability"
	"github.com/promptlens/promptlens/internal/output"
)

var runCmd = &cobra.Command{
	Use:   "run <image>...",
	Short: "Run pending prompts against images",
	Long: `Run every pending prompt of the selected set against the given
images. Children of completed prompts run automatically when their
trigger condition holds.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("set", "", "prompt set YAML file")
	runCmd.Flags().String("from-store", "", "prompt set name stored in the database")
	runCmd.Flags().String("prompt", "", "run only this prompt id (and its children)")
	runCmd.Flags().String("output", "table", "Output format: table, json, markdown")
	runCmd.Flags().Bool("archive", false, "persist results to the store")
}

func runRun(cmd *cobra.Command, args []string) error {
	setFile, err := cmd.Flags().GetString("set")
	if err != nil {
		return err
	}
	setName, err := cmd.Flags().GetString("from-store")
	if err != nil {
		return err
	}
	promptID, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return err
	}
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}
	archive, err := cmd.Flags().GetBool("archive")
	if err != nil {
		return err
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
	eng.Progress = cliProgress{}

	if promptID != "" {
		if _, ok := eng.Forest.Get(promptID); !ok {
			return fmt.Errorf("prompt %q not found in set %q", promptID, set.Name)
		}
		for _, imageID := range args {
			if err := eng.RunOne(ctx, promptID, imageID); err != nil {
				observability.CLILogger.Warn("Prompt run failed",
					zap.String("image", imageID),
					zap.String("prompt", promptID),
					zap.Error(err))
			}
		}
	} else {
		statuses, err := eng.RunForAllImages(ctx, args)
		if err != nil && len(statuses) == 0 {
			return err
		}
	}

	reports := make([]*output.ImageReport, 0, len(args))
	for _, imageID := range args {
		reports = append(reports, output.BuildImageReport(eng.Forest, eng.History, imageID, eng.ImageStatus(imageID)))
	}

	rendered, err := output.FormatReportList(format, reports)
	if err != nil {
		return err
	}
	fmt.Println(rendered)

	if archive {
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		if err := archiveResults(ctx, db, eng, args); err != nil {
			return err
		}
	}

	return nil
}
