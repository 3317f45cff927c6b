package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/planflat/internal/config"
	"github.com/harrison/planflat/internal/display"
	"github.com/harrison/planflat/internal/flatten"
	"github.com/harrison/planflat/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded dump runs",
		Long: `Show recent dump runs from the history database, newest first.

With --files, print the relative path -> flat name mapping of one run.
A unique prefix of the run id is enough.

Examples:
  planflat history
  planflat history --plan 7-auth --limit 5
  planflat history --files 0f8fad5b`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().String("plan", "", "Only show runs of this plan")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to show (0 = all)")
	cmd.Flags().String("files", "", "Show the file mapping of this run id")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dbPath, err := config.GetHistoryDBPath(cfg.History.DBPath)
	if err != nil {
		return err
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if runID, _ := cmd.Flags().GetString("files"); runID != "" {
		files, err := store.Files(ctx, runID)
		if err != nil {
			return err
		}
		mappings := make([]flatten.Mapping, len(files))
		for i, f := range files {
			mappings[i] = flatten.Mapping{RelativePath: f.RelativePath, FlatName: f.FlatName}
		}
		display.MappingTable(out, mappings)
		return nil
	}

	planName, _ := cmd.Flags().GetString("plan")
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Recent(ctx, planName, limit)
	if err != nil {
		return err
	}
	display.RunTable(out, runs)
	return nil
}
