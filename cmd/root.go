// -- cmd/root.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/config"
	"github.com/xkilldash9x/gridpilot/internal/observability"
)

var (
	cfgFile string

	// appConfig is populated in PersistentPreRunE and read by subcommands.
	appConfig *config.Config
)

// NewRootCommand builds a pristine root command. A fresh instance per
// invocation keeps flag state from leaking between executions.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gridpilot",
		Short: "Gridpilot drives the macOS UI from natural-language requests.",
		Long: `Gridpilot overlays a labelled grid on the screen, asks a multimodal
model to plan discrete actions (type, click, hotkey, terminal), executes
them at the OS level, and verifies each step against before/after
screenshots.`,
		// Version is dynamically set at build time. See cmd/version.go.
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v); err != nil {
				return err
			}

			var cfg config.Config
			if err := v.Unmarshal(&cfg); err != nil {
				// Fall back to a basic logger so the failure is visible.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "gridpilot"})
				return fmt.Errorf("failed to unmarshal config: %w", err)
			}
			appConfig = &cfg

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Info("Starting gridpilot", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "workspace directory for artifacts and terminal commands")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newRunCmd(),
		newClickCmd(),
		newGridCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command with a signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}

// activeConfig returns the configuration resolved in PersistentPreRunE,
// falling back to defaults when a command runs without it (tests).
func activeConfig() *config.Config {
	if appConfig != nil {
		return appConfig
	}
	return config.NewDefaultConfig()
}

// initializeConfig reads in the config file and GRIDPILOT_* env variables.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("GRIDPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlag("executor.workspace_dir", cmd.Root().PersistentFlags().Lookup("workspace")); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars.
	}
	return nil
}
