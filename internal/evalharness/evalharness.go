package evalharness

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoResults means the tool finished without writing the results file.
var ErrNoResults = errors.New("no results file written")

// EnvironmentKeys locate the installed build tool's targets and SDKs.
var EnvironmentKeys = []string{
	"CSharpCoreTargetsPath",
	"VisualBasicCoreTargetsPath",
	"MSBuildSDKsPath",
	"DOTNET_MSBUILD_SDK_RESOLVER_SDKS_DIR",
}

// DiscoverEnvironment returns KEY=VALUE pairs for the EnvironmentKeys set in
// the current environment.
func DiscoverEnvironment() []string {
	var env []string
	for _, key := range EnvironmentKeys {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	return env
}

// ToolError is a failed tool run. Output is the combined tool output.
type ToolError struct {
	Tool     string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s exited with code %d: %v\n%s", e.Tool, e.ExitCode, e.Err, e.Output)
	}
	return fmt.Sprintf("%s: %v\n%s", e.Tool, e.Err, e.Output)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Runner evaluates projects with an external build tool. The tool runs in
// the project directory with the project path and a target switch appended
// to Args. It inherits the environment, so the EnvironmentKeys reach it
// without being listed in Env.
type Runner struct {
	Tool string
	Args []string
	// Env holds KEY=VALUE overrides applied after the inherited environment.
	Env []string
	// Dir is where project directories are created; empty means the
	// system temp directory.
	Dir string
}

func NewRunner(tool string, args ...string) *Runner {
	return &Runner{
		Tool: tool,
		Args: args,
	}
}

// Evaluate writes a project setting properties, runs the tool on it and
// returns the value of each expression in order.
func (r *Runner) Evaluate(ctx context.Context, properties map[string]string, expressions []string) ([]string, error) {
	project := Project{Properties: properties, Expressions: expressions}
	content, err := project.Render()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(r.Dir, "evalharness-")
	if err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}
	defer os.RemoveAll(dir)

	projectPath := filepath.Join(dir, "eval-"+uuid.NewString()+".proj")
	if err := os.WriteFile(projectPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("write project: %w", err)
	}

	args := append(append([]string{}, r.Args...), projectPath, "-target:"+TargetName)
	cmd := exec.CommandContext(ctx, r.Tool, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)

	output, err := cmd.CombinedOutput()
	slog.Debug("Ran build tool",
		"tool", r.Tool,
		"project", projectPath,
		"env", DiscoverEnvironment(),
		"overrides", r.Env,
		"output", string(output),
	)
	if err != nil {
		toolErr := &ToolError{Tool: r.Tool, Output: string(output), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		}
		return nil, toolErr
	}

	data, err := os.ReadFile(filepath.Join(dir, ResultsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &ToolError{Tool: r.Tool, Output: string(output), Err: ErrNoResults}
	}
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	values := parseResults(string(data))
	if len(values) != len(expressions) {
		return nil, fmt.Errorf("expected %d values, got %d", len(expressions), len(values))
	}
	return values, nil
}

func parseResults(data string) []string {
	data = strings.TrimRight(data, "\r\n")
	if data == "" {
		return nil
	}
	lines := strings.Split(data, "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == EmptyValue {
			line = ""
		}
		lines[i] = line
	}
	return lines
}

// Case is one independent evaluation.
type Case struct {
	Properties  map[string]string
	Expressions []string
}

// EvaluateAll evaluates cases concurrently, at most limit at a time (the
// CPU count when limit < 1). Results are in case order; the first failure
// cancels the rest.
func (r *Runner) EvaluateAll(ctx context.Context, cases []Case, limit int) ([][]string, error) {
	if limit < 1 {
		limit = runtime.NumCPU()
	}

	results := make([][]string, len(cases))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range cases {
		g.Go(func() error {
			values, err := r.Evaluate(ctx, c.Properties, c.Expressions)
			if err != nil {
				return fmt.Errorf("case %d: %w", i, err)
			}
			results[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
