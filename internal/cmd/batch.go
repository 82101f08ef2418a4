package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/promptlens/promptlens/internal/output"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run prompts against images listed in a file",
	Long:  "Read image paths from file (one per line) and run all pending prompts against each",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("set", "", "prompt set YAML file")
	batchCmd.Flags().String("from-store", "", "prompt set name stored in the database")
	batchCmd.Flags().String("output", "table", "Output format: table, json, markdown")
	batchCmd.Flags().Bool("archive", false, "persist results to the store")
}

func runBatch(cmd *cobra.Command, args []string) error {
	setFile, err := cmd.Flags().GetString("set")
	if err != nil {
		return err
	}
	setName, err := cmd.Flags().GetString("from-store")
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

	imageIDs, err := readBatchImages(args[0])
	if err != nil {
		return err
	}
	if len(imageIDs) == 0 {
		return errors.New("no image paths found in batch file")
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

	statuses, err := eng.RunForAllImages(ctx, imageIDs)
	if err != nil && len(statuses) == 0 {
		return err
	}

	reports := make([]*output.ImageReport, 0, len(imageIDs))
	for _, imageID := range imageIDs {
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

		if err := archiveResults(ctx, db, eng, imageIDs); err != nil {
			return err
		}
	}

	return nil
}

func readBatchImages(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close() // nolint:errcheck // read-only file

	var images []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		images = append(images, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	return images, nil
}
