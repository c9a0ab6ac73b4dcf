package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/grid"
	"github.com/xkilldash9x/gridpilot/internal/observability"
	"github.com/xkilldash9x/gridpilot/internal/screen"
	"github.com/xkilldash9x/gridpilot/internal/verify"
)

// newClickCmd creates the `click` command, a supervised single click used
// to calibrate the grid against a live screen.
func newClickCmd() *cobra.Command {
	clickCmd := &cobra.Command{
		Use:   "click [description...]",
		Short: "Resolves a description to a grid cell and performs one supervised click",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := activeConfig()
			description := strings.Join(args, " ")

			components, err := initializeTaskComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown()

			snap, err := screen.Take(components.Capturer)
			if err != nil {
				return fmt.Errorf("failed to capture the screen: %w", err)
			}
			composited, err := snap.CompositedPNG()
			if err != nil {
				return err
			}

			var coord grid.Coordinate
			if cell, _ := cmd.Flags().GetString("cell"); cell != "" {
				coord, err = grid.Parse(cell)
				if err != nil {
					return fmt.Errorf("invalid cell %q: %w", cell, err)
				}
			} else {
				// The model resolves the description against the gridded frame.
				coord, err = components.Planner.ResolveClickTarget(ctx, description, composited)
				if err != nil {
					return fmt.Errorf("failed to resolve %q: %w", description, err)
				}
			}

			annotated, err := screen.AnnotateTarget(snap.Raw, coord, components.Executor.Table())
			if err != nil {
				return err
			}
			png, err := screen.EncodePNG(annotated)
			if err != nil {
				return err
			}
			if _, err := components.Store.SaveScreenshot("click_target", png); err != nil {
				logger.Warn("Failed to persist click-target screenshot", zap.Error(err))
			}

			if skip, _ := cmd.Flags().GetBool("no-approve"); !skip {
				approval, err := components.Verifier.ApproveClick(ctx, description, png)
				if err != nil {
					return fmt.Errorf("approval failed: %w", err)
				}
				if approval != verify.ApprovalApprove {
					return fmt.Errorf("click at %s not approved: %s", coord, approval)
				}
			}

			if err := components.Executor.ClickAt(ctx, coord); err != nil {
				return fmt.Errorf("click at %s failed: %w", coord, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Clicked %s for %q\n", coord, description)
			return nil
		},
	}

	clickCmd.Flags().String("cell", "", "Click a literal grid cell (e.g. 'ah20') instead of resolving the description.")
	clickCmd.Flags().Bool("no-approve", false, "Skip the model approval of the annotated target.")
	return clickCmd
}
