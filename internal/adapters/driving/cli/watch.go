package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inklet-labs/inklet/internal/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and ingest changed notes",
	Long: `Watches a directory for Markdown and text files and keeps them
ingested. Existing files are ingested on startup; afterwards every
save re-ingests the file under a stable source id. Runs until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureServices(ctx); err != nil {
		return err
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("watch %s: %w", args[0], err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", args[0])
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watcher.New(ingestService, args[0], watchDebounce)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	cmd.Println("Watch stopped.")
	return nil
}
