package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driving"
)

var (
	ingestID   string
	ingestType string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a note or document into the engine",
	Long: `Reads a text file, normalises it and stores it as searchable chunks.

Extracted PDF text with form-feed page breaks is detected automatically
and keeps its page numbers; pass --type to override the detection.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "re-ingest over an existing source id")
	ingestCmd.Flags().StringVarP(&ingestType, "type", "t", "", "content type: note or pdf")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureServices(ctx); err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	content := string(raw)

	contentType, err := resolveContentType(ingestType, content)
	if err != nil {
		return err
	}

	req := driving.IngestRequest{
		SourceID:    ingestID,
		Content:     content,
		ContentType: contentType,
	}
	if contentType == domain.ContentTypePDF {
		req.Pages = pagesFromFormFeeds(content)
	}

	src, err := ingestService.Ingest(ctx, req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	title := src.Title
	if title == "" {
		title = "(untitled)"
	}
	cmd.Printf("Ingested %s\n", src.ID)
	cmd.Printf("  Title: %s\n", title)
	if src.PageCount > 0 {
		cmd.Printf("  Pages: %d\n", src.PageCount)
	}
	return nil
}

func resolveContentType(flag, content string) (domain.ContentType, error) {
	switch flag {
	case "":
		if strings.ContainsRune(content, '\f') {
			return domain.ContentTypePDF, nil
		}
		return domain.ContentTypeNote, nil
	case string(domain.ContentTypeNote):
		return domain.ContentTypeNote, nil
	case string(domain.ContentTypePDF):
		return domain.ContentTypePDF, nil
	default:
		return "", fmt.Errorf("unknown content type %q", flag)
	}
}

// pagesFromFormFeeds builds the page table for extracted PDF text.
// Page N+1 begins just past the Nth form feed.
func pagesFromFormFeeds(content string) []domain.PageBoundary {
	pages := []domain.PageBoundary{{Number: 1, StartOffset: 0}}
	for i, r := range content {
		if r == '\f' {
			pages = append(pages, domain.PageBoundary{
				Number:      len(pages) + 1,
				StartOffset: i + 1,
			})
		}
	}
	return pages
}
