package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/agent"
	"github.com/xkilldash9x/gridpilot/internal/config"
	"github.com/xkilldash9x/gridpilot/internal/executor"
	"github.com/xkilldash9x/gridpilot/internal/grid"
	"github.com/xkilldash9x/gridpilot/internal/history"
	"github.com/xkilldash9x/gridpilot/internal/llmclient"
	"github.com/xkilldash9x/gridpilot/internal/observability"
	"github.com/xkilldash9x/gridpilot/internal/planner"
	"github.com/xkilldash9x/gridpilot/internal/safety"
	"github.com/xkilldash9x/gridpilot/internal/screen"
	"github.com/xkilldash9x/gridpilot/internal/store"
	"github.com/xkilldash9x/gridpilot/internal/troubleshoot"
	"github.com/xkilldash9x/gridpilot/internal/verify"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [request...]",
		Short: "Runs a natural-language automation task against the live desktop",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := activeConfig()
			request := strings.Join(args, " ")

			components, err := initializeTaskComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize task components: %w", err)
			}
			defer components.Shutdown()

			logger.Info("Starting task",
				zap.String("request", request),
				zap.Int("max_steps", cfg.Agent.MaxSteps),
				zap.Bool("stop_key", cfg.Agent.StopKeyEnabled))

			// Arm the panic stop key so the user can abort a misbehaving run.
			taskCtx, release := components.StopListener.Arm(ctx)
			defer release()

			worker := agent.NewWorker(components.Orchestrator, cfg.Agent.UpdateQueueSize, logger)
			worker.Start(taskCtx, request)

			for u := range worker.Updates() {
				switch u.Kind {
				case agent.UpdateProgress:
					if u.Step != nil {
						line := fmt.Sprintf("  [%s] %s", u.Step.Outcome, u.Step.Step.Raw)
						if u.Step.Err != "" {
							line += " (" + u.Step.Err + ")"
						}
						fmt.Fprintln(cmd.OutOrStdout(), line)
					}
				case agent.UpdateError:
					fmt.Fprintln(cmd.ErrOrStderr(), u.Line)
				default:
					fmt.Fprintln(cmd.OutOrStdout(), u.Line)
				}
			}
			result := <-worker.Result()

			fmt.Fprintf(cmd.OutOrStdout(), "\nTask %s after %d step(s). Task ID: %s\n",
				result.Status, len(result.Steps), result.ID)

			switch result.Status {
			case agent.TaskCompleted:
				return nil
			case agent.TaskCancelled:
				if errors.Is(taskCtx.Err(), context.Canceled) {
					return fmt.Errorf("task aborted by user signal")
				}
				return fmt.Errorf("task cancelled")
			case agent.TaskPartial:
				return fmt.Errorf("step cap reached before the task completed")
			default:
				return fmt.Errorf("task aborted")
			}
		},
	}
	return runCmd
}

// taskComponents holds the initialized services behind one task run.
type taskComponents struct {
	Store        *store.Store
	History      *history.Store
	Capturer     screen.Capturer
	Executor     *executor.Executor
	Planner      *planner.Planner
	Verifier     *verify.Engine
	Orchestrator *agent.Orchestrator
	StopListener *safety.StopListener
}

// Shutdown closes everything that holds a resource.
func (tc *taskComponents) Shutdown() {
	if tc.History != nil {
		if err := tc.History.Close(); err != nil {
			observability.GetLogger().Warn("Error closing history store", zap.Error(err))
		}
	}
}

// initializeTaskComponents handles dependency injection for the live
// commands (run, click). Everything real lives behind interfaces so the
// agent tests never touch a display or the network.
func initializeTaskComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*taskComponents, error) {
	components := &taskComponents{}

	// 1. Workspace and artifact store.
	workspace := cfg.Executor.WorkspaceDir
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		workspace = wd
	}
	cfg.Executor.WorkspaceDir = workspace

	st, err := store.New(afero.NewOsFs(), workspace, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}
	components.Store = st

	// 2. Task history database.
	hist, err := history.Open(filepath.Join(workspace, cfg.Store.HistoryDB), logger)
	if err != nil {
		return components, fmt.Errorf("failed to open history database: %w", err)
	}
	components.History = hist

	// 3. Screen capture and the position table for its geometry.
	capturer, err := screen.NewRobotgoCapturer()
	if err != nil {
		return components, fmt.Errorf("failed to initialize screen capture: %w", err)
	}
	components.Capturer = capturer

	width, height := capturer.Size()
	table, err := grid.NewPositionTable(width, height)
	if err != nil {
		return components, fmt.Errorf("failed to build position table: %w", err)
	}
	reconcileMarkers(st, table, logger)

	// 4. OS-level executor.
	components.Executor = executor.New(cfg.Executor, table, logger)

	// 5. Model transport, shared by the planner and verifier roles.
	apiKey, err := config.APIKeyFromEnv()
	if err != nil {
		return components, err
	}
	client, err := llmclient.NewGeminiClient(ctx, apiKey, cfg.LLM, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	// 6. Planner and verifier share the transport; only the prompts differ.
	components.Planner = planner.New(client, st, logger)
	components.Verifier = verify.New(client, st, logger)

	// 7. Orchestrator.
	components.Orchestrator = agent.NewOrchestrator(
		cfg.Agent,
		components.Planner,
		components.Verifier,
		components.Executor,
		capturer,
		troubleshoot.New(logger),
		st,
		hist,
		logger,
	)

	// 8. Panic stop key.
	components.StopListener = safety.New(cfg.Agent.StopKeyEnabled, "esc", logger)

	return components, nil
}

// reconcileMarkers reloads the markers file written by a previous run
// and rewrites it when the display geometry changed since.
func reconcileMarkers(st *store.Store, table *grid.PositionTable, logger *zap.Logger) {
	current := markersFromTable(table)

	saved, err := st.LoadMarkers()
	if err != nil {
		logger.Warn("Failed to load grid markers, rewriting", zap.Error(err))
	} else if len(saved) == len(current) && saved["aa01"] == current["aa01"] && saved["bn40"] == current["bn40"] {
		logger.Debug("Grid markers match the current geometry", zap.Int("cells", len(saved)))
		return
	}

	if err := st.SaveMarkers(current); err != nil {
		logger.Warn("Failed to write grid markers", zap.Error(err))
	}
}

// markersFromTable flattens the position table into the markers.json
// shape consumed by external tooling.
func markersFromTable(table *grid.PositionTable) map[string]store.Marker {
	markers := make(map[string]store.Marker, grid.Size*grid.Size)
	for _, coord := range grid.All() {
		if pt, ok := table.Lookup(coord); ok {
			markers[coord.String()] = store.Marker{X: pt.X, Y: pt.Y}
		}
	}
	return markers
}
