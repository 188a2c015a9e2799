// Package tools provides the local tools the model can call: file
// access, shell execution, search, git, and syntax checking. Everything
// runs through an Environment so hosts and tests can substitute where
// the operations land.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// RunResult is the outcome of a shell command.
type RunResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMs int64  `json:"duration_ms"`
}

// Combined returns stdout and stderr joined for display.
func (r RunResult) Combined() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	default:
		return r.Stdout + "\n" + r.Stderr
	}
}

// Entry is one directory listing row.
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// SearchOptions configures Search.
type SearchOptions struct {
	GlobFilter      string
	CaseInsensitive bool
	MaxPerFile      int
}

// Environment abstracts where tool operations execute.
type Environment interface {
	ReadFile(path string, offset, limit int) (string, error)
	ReadRaw(path string) (string, error)
	WriteFile(path, content string) error
	FileExists(path string) bool
	ListDir(path string) ([]Entry, error)

	Run(ctx context.Context, command, workingDir string, extraEnv map[string]string) (*RunResult, error)

	Search(ctx context.Context, pattern, path string, opts SearchOptions) (string, error)
	Glob(pattern, path string) ([]string, error)

	WorkingDir() string
}

// secretSuffixes mark environment variables that never reach spawned
// commands.
var secretSuffixes = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// alwaysPassEnv are passed through even when their name looks sensitive.
var alwaysPassEnv = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
	"GOPATH": true, "GOROOT": true,
	"XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true, "XDG_CACHE_HOME": true,
}

func isSecretEnv(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range secretSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

func filteredEnviron() []string {
	var out []string
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if alwaysPassEnv[name] || !isSecretEnv(name) {
			out = append(out, kv)
		}
	}
	return out
}

// Local executes tools on the local machine, rooted at a working
// directory. Relative paths resolve against it; absolute paths pass
// through.
type Local struct {
	root string
}

// NewLocal creates a Local environment. An empty root means the current
// directory.
func NewLocal(root string) *Local {
	if root == "" {
		root, _ = os.Getwd()
	}
	return &Local{root: root}
}

// WorkingDir returns the root directory.
func (l *Local) WorkingDir() string { return l.root }

func (l *Local) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.root, path)
}

// ReadFile reads a file, numbering lines so the model can reference
// them. offset is 1-based; limit <= 0 means the rest of the file.
func (l *Local) ReadFile(path string, offset, limit int) (string, error) {
	data, err := os.ReadFile(l.resolve(path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	start := 0
	if offset > 1 {
		start = offset - 1
	}
	if start >= len(lines) {
		return "", nil
	}
	end := len(lines)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&sb, "%d | %s\n", i+1, lines[i])
	}
	return sb.String(), nil
}

// ReadRaw reads a file without line numbering, for edits.
func (l *Local) ReadRaw(path string) (string, error) {
	data, err := os.ReadFile(l.resolve(path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile writes content, creating parent directories as needed.
func (l *Local) WriteFile(path, content string) error {
	resolved := l.resolve(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FileExists reports whether path exists.
func (l *Local) FileExists(path string) bool {
	_, err := os.Stat(l.resolve(path))
	return err == nil
}

// ListDir lists one level of a directory.
func (l *Local) ListDir(path string) ([]Entry, error) {
	entries, err := os.ReadDir(l.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		row := Entry{Name: e.Name(), IsDir: e.IsDir()}
		if info, err := e.Info(); err == nil {
			row.Size = info.Size()
		}
		out = append(out, row)
	}
	return out, nil
}

// Run executes a shell command under ctx. The environment is filtered of
// secret-looking variables; extraEnv entries are appended verbatim. The
// process runs in its own group so a timeout kills its children too.
func (l *Local) Run(ctx context.Context, command, workingDir string, extraEnv map[string]string) (*RunResult, error) {
	if workingDir == "" {
		workingDir = l.root
	} else {
		workingDir = l.resolve(workingDir)
	}

	shell, shellArg := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		shell, shellArg = "cmd.exe", "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = workingDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	env := filteredEnviron()
	for k, v := range extraEnv {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	res := &RunResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: elapsed.Milliseconds(),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			res.TimedOut = true
			res.ExitCode = -1
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("run %q: %w", command, err)
		}
	}
	return res, nil
}

// Search greps for pattern under path, preferring ripgrep when present.
func (l *Local) Search(ctx context.Context, pattern, path string, opts SearchOptions) (string, error) {
	if path == "" {
		path = l.root
	} else {
		path = l.resolve(path)
	}

	rg, err := exec.LookPath("rg")
	if err != nil {
		return l.searchWithGrep(ctx, pattern, path, opts)
	}

	args := []string{pattern, path, "--line-number", "--no-heading"}
	if opts.CaseInsensitive {
		args = append(args, "-i")
	}
	if opts.GlobFilter != "" {
		args = append(args, "--glob", opts.GlobFilter)
	}
	if opts.MaxPerFile > 0 {
		args = append(args, "--max-count", fmt.Sprintf("%d", opts.MaxPerFile))
	}

	cmd := exec.CommandContext(ctx, rg, args...)
	cmd.Dir = l.root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	// rg exits 1 on no matches; empty output is the answer.
	_ = cmd.Run()
	return stdout.String(), nil
}

func (l *Local) searchWithGrep(ctx context.Context, pattern, path string, opts SearchOptions) (string, error) {
	args := []string{"-rn", pattern, path}
	if opts.CaseInsensitive {
		args = append([]string{"-i"}, args...)
	}
	cmd := exec.CommandContext(ctx, "grep", args...)
	cmd.Dir = l.root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run()
	return stdout.String(), nil
}

// Glob matches pattern under path, returning paths relative to the root
// where possible.
func (l *Local) Glob(pattern, path string) ([]string, error) {
	if path == "" {
		path = l.root
	} else {
		path = l.resolve(path)
	}

	matches, err := filepath.Glob(filepath.Join(path, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		if rel, err := filepath.Rel(l.root, m); err == nil {
			out[i] = rel
		} else {
			out[i] = m
		}
	}
	return out, nil
}
