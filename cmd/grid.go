package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/grid"
	"github.com/xkilldash9x/gridpilot/internal/observability"
	"github.com/xkilldash9x/gridpilot/internal/screen"
	"github.com/xkilldash9x/gridpilot/internal/store"
)

// newGridCmd creates the `grid` command. It renders the click-test
// calibration image and writes the markers file without touching a live
// display, so it also works headless.
func newGridCmd() *cobra.Command {
	gridCmd := &cobra.Command{
		Use:   "grid",
		Short: "Renders the grid calibration image and writes the cell markers file",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			cfg := activeConfig()

			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			output, _ := cmd.Flags().GetString("output")

			// Explicit flags win; otherwise prefer the real display
			// geometry when one is attached.
			if !cmd.Flags().Changed("width") && !cmd.Flags().Changed("height") {
				if capturer, err := screen.NewRobotgoCapturer(); err == nil {
					width, height = capturer.Size()
					logger.Info("Using live display geometry",
						zap.Int("width", width), zap.Int("height", height))
				}
			}

			img, err := screen.RenderClickTest(width, height)
			if err != nil {
				return fmt.Errorf("failed to render click test: %w", err)
			}
			png, err := screen.EncodePNG(img)
			if err != nil {
				return err
			}

			workspace := cfg.Executor.WorkspaceDir
			if workspace == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				workspace = wd
			}

			st, err := store.New(afero.NewOsFs(), workspace, cfg.Store, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize artifact store: %w", err)
			}

			table, err := grid.NewPositionTable(width, height)
			if err != nil {
				return err
			}
			if err := st.SaveMarkers(markersFromTable(table)); err != nil {
				return fmt.Errorf("failed to write markers: %w", err)
			}

			if output == "" {
				path, err := st.SaveScreenshot("click_test", png)
				if err != nil {
					return err
				}
				output = path
			} else {
				if err := os.WriteFile(output, png, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Calibration image: %s\n", output)
			fmt.Fprintf(cmd.OutOrStdout(), "Cell markers: %s\n", filepath.Join(workspace, cfg.Store.MarkersFile))
			return nil
		},
	}

	gridCmd.Flags().Int("width", 1920, "Screen width in pixels. When set it overrides the live display geometry.")
	gridCmd.Flags().Int("height", 1080, "Screen height in pixels. When set it overrides the live display geometry.")
	gridCmd.Flags().StringP("output", "o", "", "Output path for the calibration PNG. Defaults to the screenshots directory.")
	return gridCmd
}
