package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/aidekit/aide/internal/agent"
)

// syntaxCheckers maps file extensions to the command that validates
// them. %s is replaced with the quoted path.
var syntaxCheckers = map[string]string{
	".go":   "gofmt -e %s > /dev/null",
	".py":   "python3 -m py_compile %s",
	".js":   "node --check %s",
	".mjs":  "node --check %s",
	".sh":   "sh -n %s",
	".bash": "bash -n %s",
	".yaml": "python3 -c 'import sys,yaml; yaml.safe_load(open(sys.argv[1]))' %s",
	".yml":  "python3 -c 'import sys,yaml; yaml.safe_load(open(sys.argv[1]))' %s",
}

// SyntaxReport is the structured result of a syntax check.
type SyntaxReport struct {
	Path   string `json:"path"`
	Valid  bool   `json:"valid"`
	Detail string `json:"detail,omitempty"`
}

// RegisterSyntax wires the syntax_check tool into reg.
func RegisterSyntax(reg *agent.ToolRegistry, env Environment) {
	reg.Register(agent.Registration{
		Name:        "syntax_check",
		Description: "Check a file for syntax errors. Supports Go, Python, JavaScript, shell, JSON, and YAML by extension.",
		Schema: agent.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": strProp("File to check"),
			},
			Required: []string{"path"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return checkSyntax(ctx, env, gjson.GetBytes(args, "path").String())
		},
	})
}

func checkSyntax(ctx context.Context, env Environment, path string) (any, error) {
	if !env.FileExists(path) {
		return nil, fmt.Errorf("no such file: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		content, err := env.ReadRaw(path)
		if err != nil {
			return nil, err
		}
		report := SyntaxReport{Path: path, Valid: json.Valid([]byte(content))}
		if !report.Valid {
			report.Detail = "invalid JSON"
		}
		return report, nil
	}

	tmpl, ok := syntaxCheckers[ext]
	if !ok {
		return nil, fmt.Errorf("no syntax checker for %q files", ext)
	}

	res, err := env.Run(ctx, fmt.Sprintf(tmpl, shellQuote(path)), "", nil)
	if err != nil {
		return nil, err
	}

	report := SyntaxReport{Path: path, Valid: res.ExitCode == 0}
	if !report.Valid {
		report.Detail = strings.TrimSpace(res.Combined())
	}
	return report, nil
}
