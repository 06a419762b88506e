package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/tuicore/internal/tracestore"
)

var traceReplayStorePath string

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect persisted turn traces",
}

var traceReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a persisted SQLite turn trace as JSON lines",
	Long: `Reads every turn trace row from the store (default: the path configured
under tracing.store_path) and prints it as JSON, one row per line, for
offline debugging and golden-trace regression comparison.`,
	RunE: runTraceReplay,
}

func init() {
	traceReplayCmd.Flags().StringVar(&traceReplayStorePath, "store", "", "path to the turn-trace SQLite database")
	traceCmd.AddCommand(traceReplayCmd)
	rootCmd.AddCommand(traceCmd)
}

func runTraceReplay(cmd *cobra.Command, args []string) error {
	path := traceReplayStorePath
	if path == "" {
		path = cfg.Tracing.StorePath
	}
	if path == "" {
		return fmt.Errorf("no tracestore path configured: pass --store or set tracing.store_path")
	}

	store, err := tracestore.Open(path)
	if err != nil {
		return fmt.Errorf("opening tracestore: %w", err)
	}
	defer store.Close()

	rows, err := store.Replay(context.Background())
	if err != nil {
		return fmt.Errorf("reading turn traces: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding turn trace: %w", err)
		}
	}
	return nil
}
