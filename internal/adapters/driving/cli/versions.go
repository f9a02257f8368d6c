package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/margin-cli/internal/core/services"
)

var (
	versionsPrompt string
	versionsJSON   bool
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Manage the version history",
	Long: `List, show and select saved versions of a prompt-history entry.
Versions are append-only: selecting an old version moves the pointer,
nothing is rewritten.`,
	RunE: runVersionsList,
}

var versionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved versions",
	RunE:  runVersionsList,
}

var versionsShowCmd = &cobra.Command{
	Use:   "show [version-id]",
	Short: "Show a version with its highlights",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsShow,
}

var versionsSelectCmd = &cobra.Command{
	Use:   "select [version-id]",
	Short: "Select a version and print its prompt text",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsSelect,
}

func init() {
	versionsCmd.PersistentFlags().StringVar(&versionsPrompt, "prompt", "default", "prompt-history entry id")
	versionsCmd.PersistentFlags().BoolVar(&versionsJSON, "json", false, "output as JSON")
	versionsCmd.AddCommand(versionsListCmd)
	versionsCmd.AddCommand(versionsShowCmd)
	versionsCmd.AddCommand(versionsSelectCmd)
	rootCmd.AddCommand(versionsCmd)
}

// loadVersionManager builds a manager over the durable store.
func loadVersionManager(cmd *cobra.Command) (*services.Versions, error) {
	if versionStore == nil {
		return nil, errors.New("version store not initialised")
	}
	versions := services.NewVersions(versionsPrompt, versionStore)
	if err := versions.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return versions, nil
}

func runVersionsList(cmd *cobra.Command, _ []string) error {
	versions, err := loadVersionManager(cmd)
	if err != nil {
		return err
	}

	list := versions.List()
	if versionsJSON {
		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	if len(list) == 0 {
		cmd.Println("No versions saved.")
		return nil
	}
	selected := versions.Selected()
	for i := range list {
		mark := " "
		if list[i].VersionID == selected {
			mark = "*"
		}
		spans := 0
		if list[i].Highlights != nil {
			spans = len(list[i].Highlights.Spans)
		}
		cmd.Printf("%s %s  %s  %s  %d spans\n", mark, list[i].VersionID,
			list[i].Timestamp.Format("2006-01-02 15:04"), list[i].Label, spans)
	}
	return nil
}

func runVersionsShow(cmd *cobra.Command, args []string) error {
	if versionStore == nil {
		return errors.New("version store not initialised")
	}
	ver, err := versionStore.GetVersion(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("loading version: %w", err)
	}

	if versionsJSON {
		data, err := json.MarshalIndent(ver, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("%s (%s)\n", ver.Label, ver.VersionID)
	cmd.Printf("Saved: %s\n", ver.Timestamp.Format("2006-01-02 15:04:05"))
	cmd.Printf("Signature: %.16s\n", ver.Signature)
	cmd.Println()
	cmd.Println(ver.Prompt)
	if ver.Highlights != nil && len(ver.Highlights.Spans) > 0 {
		cmd.Println()
		cmd.Printf("%d highlighted spans:\n", len(ver.Highlights.Spans))
		for i := range ver.Highlights.Spans {
			s := &ver.Highlights.Spans[i]
			cmd.Printf("  [%d-%d] %-10s %q\n", s.Start, s.End, s.Category, s.Quote)
		}
	}
	return nil
}

func runVersionsSelect(cmd *cobra.Command, args []string) error {
	versions, err := loadVersionManager(cmd)
	if err != nil {
		return err
	}

	ver, err := versions.SelectVersion(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Selected %s (%s)\n", ver.Label, ver.VersionID)
	cmd.Println(ver.Prompt)
	return nil
}
