package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/history"
	"github.com/xkilldash9x/gridpilot/internal/observability"
)

// newHistoryCmd creates the `history` command listing recent task runs.
func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Lists recent task runs and their step outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			cfg := activeConfig()

			limit, _ := cmd.Flags().GetInt("limit")
			verbose, _ := cmd.Flags().GetBool("steps")

			workspace := cfg.Executor.WorkspaceDir
			if workspace == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				workspace = wd
			}

			hist, err := history.Open(filepath.Join(workspace, cfg.Store.HistoryDB), logger)
			if err != nil {
				return fmt.Errorf("failed to open history database: %w", err)
			}
			defer func() {
				if err := hist.Close(); err != nil {
					logger.Warn("Error closing history store", zap.Error(err))
				}
			}()

			tasks, err := hist.RecentTasks(limit)
			if err != nil {
				return fmt.Errorf("failed to load task history: %w", err)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tSTATUS\tSTEPS\tREQUEST")
			for _, task := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					task.StartedAt.Format("2006-01-02 15:04:05"),
					task.Status,
					len(task.Steps),
					task.Request)
				if verbose {
					for _, step := range task.Steps {
						detail := step.Detail
						if step.Coordinate != "" {
							detail += " @" + step.Coordinate
						}
						fmt.Fprintf(w, "\t  %s\t%s\t%s\n", step.Kind, step.Outcome, detail)
					}
				}
			}
			return w.Flush()
		},
	}

	historyCmd.Flags().IntP("limit", "n", 10, "Maximum number of tasks to list.")
	historyCmd.Flags().Bool("steps", false, "Also list the steps of each task.")
	return historyCmd
}
