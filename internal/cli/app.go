package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/aidekit/aide/internal/agent"
	"github.com/aidekit/aide/internal/config"
	"github.com/aidekit/aide/internal/llm"
	"github.com/aidekit/aide/internal/logging"
	"github.com/aidekit/aide/internal/store"
	"github.com/aidekit/aide/internal/tools"
)

// configPath resolves the config file location: the --config flag, then
// AIDE_CONFIG, then ~/.aide/config.yaml.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("AIDE_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".aide", "config.yaml")
}

func newLogger(level, format string) *logging.Logger {
	if format == "json" {
		return logging.New(os.Stderr, level)
	}
	return logging.New(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}

// buildProvider constructs the completion client from the provider
// section of the config.
func buildProvider(cfg config.Config) (*llm.Client, error) {
	switch cfg.Provider.Kind {
	case "", "openai":
		if cfg.Provider.APIKey == "" {
			return nil, fmt.Errorf("no API key configured; set provider.api_key or OPENAI_API_KEY")
		}
		p := llm.NewOpenAIProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey)
		return llm.NewClient(llm.WithProvider(p), llm.WithDefaultProvider(p.Name())), nil
	case "gollm":
		backend := cfg.Provider.Backend
		if backend == "" {
			backend = "openai"
		}
		p, err := llm.NewGollmProvider(backend,
			llm.WithGollmAPIKey(cfg.Provider.APIKey),
			llm.WithGollmModel(cfg.Agent.Model),
		)
		if err != nil {
			return nil, err
		}
		return llm.NewClient(llm.WithProvider(p), llm.WithDefaultProvider(p.Name())), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
}

// buildStore constructs the session store from config.
func buildStore(cfg config.Config, log *logging.Logger) (store.SessionStore, error) {
	switch cfg.Session.Store {
	case "", "file":
		return store.NewFileStore(cfg.SessionDir(), log)
	case "sqlite":
		return store.OpenSQLite(filepath.Join(cfg.SessionDir(), "sessions.db"), log)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

// agentConfig maps the config file's agent section onto loop tunables.
func agentConfig(cfg config.Config) agent.Config {
	return agent.Config{
		Model:            cfg.Agent.Model,
		MaxTokens:        cfg.Agent.MaxTokens,
		Temperature:      cfg.Agent.Temperature,
		MaxRounds:        cfg.Agent.MaxRounds,
		RequestTimeout:   cfg.Agent.RequestTimeout,
		ToolTimeout:      cfg.Agent.ToolTimeout,
		TokenBudget:      cfg.Agent.TokenBudget,
		PruneThreshold:   cfg.Agent.PruneThreshold,
		MaxHistory:       cfg.Agent.MaxHistory,
		ShrinkFactor:     cfg.Agent.ShrinkFactor,
		ToolOutputLimits: cfg.Tools.OutputLimits,
	}
}

// retryingCompleter retries transient endpoint failures around the
// routed client. The loop itself never retries; this wraps it only when
// the user opts in with --retries.
type retryingCompleter struct {
	inner  agent.Completer
	policy llm.RetryPolicy
}

func (c *retryingCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return llm.Retry(ctx, c.policy, func(ctx context.Context) (*llm.Response, error) {
		return c.inner.Complete(ctx, req)
	})
}

func withRetries(client agent.Completer, retries int, log *logging.Logger) agent.Completer {
	if retries <= 0 {
		return client
	}
	policy := llm.DefaultRetryPolicy()
	policy.MaxRetries = retries
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("retrying request")
	}
	return &retryingCompleter{inner: client, policy: policy}
}

// buildAgent wires the provider, tools, and conversation into a ready
// Agent. retries > 0 wraps the endpoint client with backoff.
func buildAgent(cfg config.Config, log *logging.Logger, retries int, opts ...agent.Option) (*agent.Agent, error) {
	client, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	a := agent.New(withRetries(client, retries, log), agentConfig(cfg), log, opts...)
	a.SetSystemPrompt(cfg.Agent.SystemPrompt)

	env := tools.NewLocal(cfg.Tools.WorkingDir)
	tools.RegisterCore(a.Registry(), env)
	if cfg.Tools.EnableGit {
		tools.RegisterGit(a.Registry(), env)
	}
	if cfg.Tools.EnableSyntax {
		tools.RegisterSyntax(a.Registry(), env)
	}
	if cfg.Tools.EnableTasks {
		agent.RegisterTaskTools(a.Registry(), a.Tasks())
	}

	log.Debug().
		Int("tools", a.Registry().Count()).
		Str("model", cfg.Agent.Model).
		Msg("agent ready")
	return a, nil
}
