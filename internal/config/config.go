// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Executor ExecutorConfig `mapstructure:"executor" yaml:"executor"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
}

// LoggerConfig controls the zap logger and its file sink.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMConfig configures the Gemini transport used by both the planner and the
// verifier roles. The API key is never read from the config file; it comes
// from the environment only (see APIKeyFromEnv).
type LLMConfig struct {
	Model       string        `mapstructure:"model" yaml:"model"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// MaxElapsed bounds the total retry window around one generation call.
	MaxElapsed time.Duration `mapstructure:"max_elapsed" yaml:"max_elapsed"`
}

// ExecutorConfig holds the timing knobs for OS-level actions. The delays are
// deliberate settle times between an action and its visual effect.
type ExecutorConfig struct {
	WorkspaceDir      string        `mapstructure:"workspace_dir" yaml:"workspace_dir"`
	TypeDelay         time.Duration `mapstructure:"type_delay" yaml:"type_delay"`
	ActionDelay       time.Duration `mapstructure:"action_delay" yaml:"action_delay"`
	AnimationDelay    time.Duration `mapstructure:"animation_delay" yaml:"animation_delay"`
	WaitDelay         time.Duration `mapstructure:"wait_delay" yaml:"wait_delay"`
	ClickRetries      int           `mapstructure:"click_retries" yaml:"click_retries"`
	ClickRetryBackoff time.Duration `mapstructure:"click_retry_backoff" yaml:"click_retry_backoff"`
	CommandTimeout    time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	// PortRangeStart/End bound the probe range used when a planned command
	// binds a fixed network port.
	PortRangeStart int `mapstructure:"port_range_start" yaml:"port_range_start"`
	PortRangeEnd   int `mapstructure:"port_range_end" yaml:"port_range_end"`
}

// AgentConfig bounds the step orchestrator.
type AgentConfig struct {
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	MaxSteps          int           `mapstructure:"max_steps" yaml:"max_steps"`
	VerificationDelay time.Duration `mapstructure:"verification_delay" yaml:"verification_delay"`
	UpdateQueueSize   int           `mapstructure:"update_queue_size" yaml:"update_queue_size"`
	StopKeyEnabled    bool          `mapstructure:"stop_key_enabled" yaml:"stop_key_enabled"`
}

// StoreConfig locates the write-only audit artifacts.
type StoreConfig struct {
	ResponsesDir   string `mapstructure:"responses_dir" yaml:"responses_dir"`
	ScreenshotsDir string `mapstructure:"screenshots_dir" yaml:"screenshots_dir"`
	MarkersFile    string `mapstructure:"markers_file" yaml:"markers_file"`
	HistoryDB      string `mapstructure:"history_db" yaml:"history_db"`
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with static defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "gridpilot")
	v.SetDefault("logger.log_file", "gridpilot.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- LLM --
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.max_elapsed", "2m")

	// -- Executor --
	v.SetDefault("executor.workspace_dir", "")
	v.SetDefault("executor.type_delay", "50ms")
	v.SetDefault("executor.action_delay", "100ms")
	v.SetDefault("executor.animation_delay", "500ms")
	v.SetDefault("executor.wait_delay", "1s")
	v.SetDefault("executor.click_retries", 3)
	v.SetDefault("executor.click_retry_backoff", "300ms")
	v.SetDefault("executor.command_timeout", "60s")
	v.SetDefault("executor.port_range_start", 8000)
	v.SetDefault("executor.port_range_end", 8100)

	// -- Agent --
	v.SetDefault("agent.max_retries", 3)
	v.SetDefault("agent.max_steps", 20)
	v.SetDefault("agent.verification_delay", "200ms")
	v.SetDefault("agent.update_queue_size", 256)
	v.SetDefault("agent.stop_key_enabled", true)

	// -- Store --
	v.SetDefault("store.responses_dir", "responses")
	v.SetDefault("store.screenshots_dir", "screenshots")
	v.SetDefault("store.markers_file", "markers.json")
	v.SetDefault("store.history_db", "gridpilot.db")
}

// APIKeyFromEnv resolves the Gemini API key. GRIDPILOT_LLM_API_KEY wins;
// GEMINI_API_KEY is accepted for compatibility with the Google tooling.
// The key is required for any command that talks to the model.
func APIKeyFromEnv() (string, error) {
	for _, name := range []string{"GRIDPILOT_LLM_API_KEY", "GEMINI_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("no API key found: set GRIDPILOT_LLM_API_KEY or GEMINI_API_KEY")
}
