package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/aidekit/aide/internal/agent"
)

func strProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func intProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

// RegisterCore wires the file, shell, and search tools into reg, all
// executing through env.
func RegisterCore(reg *agent.ToolRegistry, env Environment) {
	reg.Register(agent.Registration{
		Name:        "read_file",
		Description: "Read a file with line numbers. Supports a 1-based line offset and a line limit.",
		Schema: agent.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"path":   strProp("File path, relative to the working directory or absolute"),
				"offset": intProp("1-based first line to read"),
				"limit":  intProp("Maximum number of lines"),
			},
			Required: []string{"path"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return env.ReadFile(
				gjson.GetBytes(args, "path").String(),
				int(gjson.GetBytes(args, "offset").Int()),
				int(gjson.GetBytes(args, "limit").Int()),
			)
		},
	})

	reg.Register(agent.Registration{
		Name:        "write_file",
		Description: "Write content to a file, creating it and any parent directories if needed.",
		Schema: agent.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"path":    strProp("File path"),
				"content": strProp("Full file content"),
			},
			Required: []string{"path", "content"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			path := gjson.GetBytes(args, "path").String()
			content := gjson.GetBytes(args, "content").String()
			if err := env.WriteFile(path, content); err != nil {
				return nil, err
			}
			return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
		},
	})

	reg.Register(agent.Registration{
		Name:        "edit_file",
		Description: "Replace an exact string in a file. old_string must appear exactly once unless replace_all is true.",
		Schema: agent.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"path":        strProp("File path"),
				"old_string":  strProp("Exact text to replace"),
				"new_string":  strProp("Replacement text"),
				"replace_all": map[string]any{"type": "boolean", "description": "Replace every occurrence"},
			},
			Required: []string{"path", "old_string", "new_string"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return editFile(env,
				gjson.GetBytes(args, "path").String(),
				gjson.GetBytes(args, "old_string").String(),
				gjson.GetBytes(args, "new_string").String(),
				gjson.GetBytes(args, "replace_all").Bool(),
			)
		},
	})

	reg.Register(agent.Registration{
		Name:        "list_dir",
		Description: "List the entries of a directory.",
		Schema: agent.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": strProp("Directory path; defaults to the working directory"),
			},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			path := gjson.GetBytes(args, "path").String()
			if path == "" {
				path = "."
			}
			return env.ListDir(path)
		},
	})

	reg.Register(agent.Registration{
		Name:        "shell",
		Description: "Run a shell command in the working directory and return stdout, stderr, and the exit code.",
		Schema: agent.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"command":     strProp("Shell command line"),
				"working_dir": strProp("Directory to run in; defaults to the working directory"),
			},
			Required: []string{"command"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return env.Run(ctx,
				gjson.GetBytes(args, "command").String(),
				gjson.GetBytes(args, "working_dir").String(),
				nil,
			)
		},
	})

	reg.Register(agent.Registration{
		Name:        "grep",
		Description: "Search file contents for a regular expression. Returns matching lines with file and line number.",
		Schema: agent.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"pattern":          strProp("Regular expression"),
				"path":             strProp("File or directory to search; defaults to the working directory"),
				"glob":             strProp("Filter files by glob, e.g. *.go"),
				"case_insensitive": map[string]any{"type": "boolean"},
			},
			Required: []string{"pattern"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return env.Search(ctx,
				gjson.GetBytes(args, "pattern").String(),
				gjson.GetBytes(args, "path").String(),
				SearchOptions{
					GlobFilter:      gjson.GetBytes(args, "glob").String(),
					CaseInsensitive: gjson.GetBytes(args, "case_insensitive").Bool(),
				},
			)
		},
	})

	reg.Register(agent.Registration{
		Name:        "glob",
		Description: "Find files matching a glob pattern.",
		Schema: agent.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"pattern": strProp("Glob pattern, e.g. **/*.go"),
				"path":    strProp("Directory to match under; defaults to the working directory"),
			},
			Required: []string{"pattern"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return env.Glob(
				gjson.GetBytes(args, "pattern").String(),
				gjson.GetBytes(args, "path").String(),
			)
		},
	})
}

func editFile(env Environment, path, oldStr, newStr string, replaceAll bool) (any, error) {
	if oldStr == "" {
		return nil, fmt.Errorf("old_string must not be empty")
	}
	content, err := env.ReadRaw(path)
	if err != nil {
		return nil, err
	}

	count := strings.Count(content, oldStr)
	switch {
	case count == 0:
		return nil, fmt.Errorf("old_string not found in %s", path)
	case count > 1 && !replaceAll:
		return nil, fmt.Errorf("old_string appears %d times in %s; pass replace_all or add context", count, path)
	}

	var updated string
	replaced := count
	if replaceAll {
		updated = strings.ReplaceAll(content, oldStr, newStr)
	} else {
		updated = strings.Replace(content, oldStr, newStr, 1)
		replaced = 1
	}
	if err := env.WriteFile(path, updated); err != nil {
		return nil, err
	}
	return fmt.Sprintf("replaced %d occurrence(s) in %s", replaced, path), nil
}
