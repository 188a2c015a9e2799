package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt is used when the config sets none.
const DefaultSystemPrompt = "You are a coding assistant working in the user's repository. " +
	"Use the provided tools to read, search, and modify files; prefer small, verifiable changes. " +
	"When a task has several steps, track them with the task tools."

// Defaults returns the stock configuration.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{
			Kind:   "openai",
			APIKey: "${OPENAI_API_KEY}",
		},
		Agent: AgentConfig{
			Model:          "gpt-4o-mini",
			MaxTokens:      4096,
			Temperature:    0.7,
			MaxRounds:      25,
			RequestTimeout: 120 * time.Second,
			ToolTimeout:    60 * time.Second,
			TokenBudget:    128000,
			PruneThreshold: 0.7,
			MaxHistory:     50,
			ShrinkFactor:   2,
			SystemPrompt:   DefaultSystemPrompt,
		},
		Session: SessionConfig{
			Store: "file",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "pretty",
		},
		Tools: ToolsConfig{
			EnableGit:    true,
			EnableSyntax: true,
			EnableTasks:  true,
		},
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables expand to empty so a missing key fails loudly at the
// provider instead of being sent literally.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// Load reads the config file at path, merges it over the defaults, and
// applies AIDE_* environment overrides. A missing file yields defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			expandSensitive(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitive(&cfg)
	return cfg, nil
}

// applyDefaults refills fields a sparse config file zeroed out.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Provider.Kind == "" {
		cfg.Provider.Kind = def.Provider.Kind
	}
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = def.Agent.Model
	}
	if cfg.Agent.MaxTokens == 0 {
		cfg.Agent.MaxTokens = def.Agent.MaxTokens
	}
	if cfg.Agent.MaxRounds == 0 {
		cfg.Agent.MaxRounds = def.Agent.MaxRounds
	}
	if cfg.Agent.RequestTimeout == 0 {
		cfg.Agent.RequestTimeout = def.Agent.RequestTimeout
	}
	if cfg.Agent.ToolTimeout == 0 {
		cfg.Agent.ToolTimeout = def.Agent.ToolTimeout
	}
	if cfg.Agent.TokenBudget == 0 {
		cfg.Agent.TokenBudget = def.Agent.TokenBudget
	}
	if cfg.Agent.PruneThreshold == 0 {
		cfg.Agent.PruneThreshold = def.Agent.PruneThreshold
	}
	if cfg.Agent.MaxHistory == 0 {
		cfg.Agent.MaxHistory = def.Agent.MaxHistory
	}
	if cfg.Agent.ShrinkFactor == 0 {
		cfg.Agent.ShrinkFactor = def.Agent.ShrinkFactor
	}
	if cfg.Agent.SystemPrompt == "" {
		cfg.Agent.SystemPrompt = def.Agent.SystemPrompt
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = def.Session.Store
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

// applyEnvOverrides reads AIDE_* variables over the file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AIDE_PROVIDER"); v != "" {
		cfg.Provider.Kind = v
	}
	if v := os.Getenv("AIDE_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("AIDE_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("AIDE_MODEL"); v != "" {
		cfg.Agent.Model = v
	}
	if v := os.Getenv("AIDE_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Agent.MaxRounds = n
		}
	}
	if v := os.Getenv("AIDE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("AIDE_SESSION_DIR"); v != "" {
		cfg.Session.Dir = v
	}
}

// expandSensitive resolves ${ENV_VAR} references in credential fields.
func expandSensitive(cfg *Config) {
	cfg.Provider.APIKey = expandEnvVars(cfg.Provider.APIKey)
}

// SessionDir returns the configured session directory or the default
// under the user's home.
func (c Config) SessionDir() string {
	if c.Session.Dir != "" {
		return c.Session.Dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aide/sessions"
	}
	return home + "/.aide/sessions"
}
