package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/aidekit/aide/internal/agent"
)

// gitSubcommands is the allow-list of git operations exposed to the
// model. Everything else is rejected before reaching the shell.
var gitSubcommands = map[string]bool{
	"status": true,
	"diff":   true,
	"log":    true,
	"show":   true,
	"branch": true,
	"add":    true,
	"commit": true,
}

// RegisterGit wires the git tool into reg.
func RegisterGit(reg *agent.ToolRegistry, env Environment) {
	reg.Register(agent.Registration{
		Name:        "git",
		Description: "Run a git operation: status, diff, log, show, branch, add, or commit.",
		Schema: agent.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"subcommand": map[string]any{
					"type":        "string",
					"description": "Git operation to run",
					"enum":        []string{"status", "diff", "log", "show", "branch", "add", "commit"},
				},
				"args":    strProp("Extra arguments, e.g. a path for diff or -n 5 for log"),
				"message": strProp("Commit message, required for commit"),
			},
			Required: []string{"subcommand"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return runGit(ctx, env,
				gjson.GetBytes(args, "subcommand").String(),
				gjson.GetBytes(args, "args").String(),
				gjson.GetBytes(args, "message").String(),
			)
		},
	})
}

func runGit(ctx context.Context, env Environment, sub, extra, message string) (any, error) {
	if !gitSubcommands[sub] {
		return nil, fmt.Errorf("unsupported git subcommand %q", sub)
	}
	if sub == "commit" && strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("commit requires a message")
	}

	cmd := "git " + sub
	if sub == "commit" {
		cmd += " -m " + shellQuote(message)
	}
	if extra != "" {
		cmd += " " + extra
	}

	res, err := env.Run(ctx, cmd, "", nil)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("git %s exited %d: %s", sub, res.ExitCode, strings.TrimSpace(res.Combined()))
	}
	return res.Combined(), nil
}

// shellQuote single-quotes s for the shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
