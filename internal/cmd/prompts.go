package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptlens/promptlens/internal/prompt"
	"github.com/promptlens/promptlens/internal/store"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage stored prompt sets",
}

var promptsPushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Save a prompt set YAML file to the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsPush,
}

var promptsPullCmd = &cobra.Command{
	Use:   "pull <name>",
	Short: "Print a stored prompt set as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsPull,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored prompt sets",
	Args:  cobra.NoArgs,
	RunE:  runPromptsList,
}

var promptsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored prompt set",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsDelete,
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.AddCommand(promptsPushCmd)
	promptsCmd.AddCommand(promptsPullCmd)
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsDeleteCmd)

	promptsPushCmd.Flags().String("name", "", "store under this name (defaults to the set's own name)")
	promptsPullCmd.Flags().StringP("output", "o", "", "write YAML to this file instead of stdout")
}

func runPromptsPush(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}

	set, err := prompt.LoadSetFile(args[0])
	if err != nil {
		return err
	}
	if name != "" {
		set.Name = name
	}
	if set.Name == "" {
		return errors.New("prompt set has no name: pass --name")
	}

	ctx := cmd.Context()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	if err := db.SavePromptSet(ctx, set); err != nil {
		return err
	}

	fmt.Printf("saved prompt set %q (%d prompts)\n", set.Name, len(set.Prompts))
	return nil
}

func runPromptsPull(cmd *cobra.Command, args []string) error {
	outPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	set, err := db.LoadPromptSet(ctx, args[0])
	if err != nil {
		if errors.Is(err, store.ErrSetNotFound) {
			return fmt.Errorf("prompt set %q not found", args[0])
		}
		return err
	}

	data, err := set.Marshal()
	if err != nil {
		return err
	}

	if outPath != "" {
		return os.WriteFile(outPath, data, 0o644)
	}

	fmt.Print(string(data))
	return nil
}

func runPromptsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	names, err := db.ListPromptSets(ctx)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Println("no prompt sets stored")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runPromptsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	if err := db.DeletePromptSet(ctx, args[0]); err != nil {
		if errors.Is(err, store.ErrSetNotFound) {
			return fmt.Errorf("prompt set %q not found", args[0])
		}
		return err
	}

	fmt.Printf("deleted prompt set %q\n", args[0])
	return nil
}
