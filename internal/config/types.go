// Package config loads the assistant's YAML configuration with
// environment overrides.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Agent    AgentConfig    `yaml:"agent"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tools    ToolsConfig    `yaml:"tools"`
}

// ProviderConfig selects and configures the completion backend.
type ProviderConfig struct {
	// Kind is "openai" for the direct HTTP provider or "gollm" for the
	// SDK-backed one.
	Kind    string `yaml:"kind"`
	BaseURL string `yaml:"base_url"`
	// APIKey supports ${ENV_VAR} references.
	APIKey string `yaml:"api_key"`
	// Backend names the gollm backend ("openai", "anthropic", ...).
	Backend string `yaml:"backend"`
}

// AgentConfig tunes the tool-call loop and the conversation.
type AgentConfig struct {
	Model          string        `yaml:"model"`
	MaxTokens      int           `yaml:"max_tokens"`
	Temperature    float64       `yaml:"temperature"`
	MaxRounds      int           `yaml:"max_rounds"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ToolTimeout    time.Duration `yaml:"tool_timeout"`
	TokenBudget    int           `yaml:"token_budget"`
	PruneThreshold float64       `yaml:"prune_threshold"`
	MaxHistory     int           `yaml:"max_history"`
	ShrinkFactor   int           `yaml:"shrink_factor"`
	SystemPrompt   string        `yaml:"system_prompt"`
}

// SessionConfig selects the persistence backend.
type SessionConfig struct {
	// Store is "file" or "sqlite".
	Store string `yaml:"store"`
	// Dir holds session files or the sqlite database.
	Dir string `yaml:"dir"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is "pretty" or "json".
	Format string `yaml:"format"`
}

// ToolsConfig toggles optional tool groups and overrides output limits.
type ToolsConfig struct {
	EnableGit    bool           `yaml:"enable_git"`
	EnableSyntax bool           `yaml:"enable_syntax"`
	EnableTasks  bool           `yaml:"enable_tasks"`
	WorkingDir   string         `yaml:"working_dir"`
	OutputLimits map[string]int `yaml:"output_limits"`
}
