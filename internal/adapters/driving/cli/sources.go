package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inklet-labs/inklet/internal/core/domain"
)

var (
	sourcesLimit  int
	sourcesOffset int
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage ingested sources",
	Long:  `List, inspect or delete ingested sources.`,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested sources",
	Args:  cobra.NoArgs,
	RunE:  runSourcesList,
}

var sourcesShowCmd = &cobra.Command{
	Use:   "show [source-id]",
	Short: "Show source details",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesShow,
}

var sourcesDeleteCmd = &cobra.Command{
	Use:   "delete [source-id]",
	Short: "Delete a source and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesDelete,
}

func init() {
	sourcesListCmd.Flags().IntVarP(&sourcesLimit, "limit", "n", 20, "maximum number of sources")
	sourcesListCmd.Flags().IntVar(&sourcesOffset, "offset", 0, "number of sources to skip")

	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesShowCmd)
	sourcesCmd.AddCommand(sourcesDeleteCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := ensureServices(ctx); err != nil {
		return err
	}

	sources, err := ingestService.List(ctx, sourcesLimit, sourcesOffset)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("No sources ingested yet.")
		return nil
	}

	for _, src := range sources {
		cmd.Printf("  %s  %s\n", src.ID, describeSource(src))
	}
	return nil
}

func runSourcesShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureServices(ctx); err != nil {
		return err
	}

	src, err := ingestService.Get(ctx, args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("source %s not found", args[0])
		}
		return fmt.Errorf("get source: %w", err)
	}

	cmd.Printf("ID:      %s\n", src.ID)
	cmd.Printf("Title:   %s\n", src.Title)
	cmd.Printf("Type:    %s\n", src.ContentType)
	if src.PageCount > 0 {
		cmd.Printf("Pages:   %d\n", src.PageCount)
	}
	cmd.Printf("Ready:   %t\n", src.Ready)
	cmd.Printf("Created: %s\n", src.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runSourcesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureServices(ctx); err != nil {
		return err
	}

	if err := ingestService.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}

func describeSource(src domain.Source) string {
	title := src.Title
	if title == "" {
		title = "(untitled)"
	}
	state := ""
	if !src.Ready {
		state = "  [ingesting]"
	}
	return fmt.Sprintf("%s  %s%s", src.ContentType, title, state)
}
