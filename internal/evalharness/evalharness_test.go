package evalharness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake build tool is a shell script")
	}
	path := filepath.Join(t.TempDir(), "fake-build")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestProject_Render(t *testing.T) {
	project := Project{
		Properties:  map[string]string{"TargetFramework": "net8.0", "Configuration": "Debug"},
		Expressions: []string{"$(Configuration)", "$(OutputPath)"},
	}

	content, err := project.Render()
	require.NoError(t, err)
	out := string(content)

	assert.True(t, strings.HasPrefix(out, "<Project>"))
	assert.Less(t, strings.Index(out, "<Configuration>Debug</Configuration>"), strings.Index(out, "<TargetFramework>net8.0</TargetFramework>"))
	assert.Contains(t, out, `<Target Name="EvaluateExpressions">`)
	assert.Contains(t, out, "<_EvaluatedValue0>$(Configuration)</_EvaluatedValue0>")
	assert.Contains(t, out, "<_EvaluatedValue1>$(OutputPath)</_EvaluatedValue1>")
	assert.Contains(t, out, "%EMPTY%")
	assert.Equal(t, 2, strings.Count(out, "<WriteLinesToFile "))
	assert.Contains(t, out, `<Delete Files="results.txt">`)
}

func TestProject_RenderInvalidName(t *testing.T) {
	_, err := Project{Properties: map[string]string{"not a name": "x"}}.Render()
	assert.Error(t, err)
}

func TestDiscoverEnvironment(t *testing.T) {
	for _, key := range EnvironmentKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("MSBuildSDKsPath", "/sdk")
	t.Setenv("CSharpCoreTargetsPath", "/targets/csharp")

	assert.Equal(t, []string{"CSharpCoreTargetsPath=/targets/csharp", "MSBuildSDKsPath=/sdk"}, DiscoverEnvironment())
}

func TestRunner_Evaluate(t *testing.T) {
	tool := fakeTool(t, `echo "evaluating $1 $2"
test -f "$1" || exit 9
printf '%s\n' "$MSBuildSDKsPath" '%EMPTY%' "$FAKE_VALUE" > results.txt
`)
	t.Setenv("FAKE_VALUE", "inherited")
	runner := &Runner{Tool: tool, Env: []string{"MSBuildSDKsPath=/sdk", "FAKE_VALUE=x"}}

	values, err := runner.Evaluate(context.Background(),
		map[string]string{"Configuration": "Release"},
		[]string{"$(MSBuildSDKsPath)", "$(Empty)", "$(Fake)"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"/sdk", "", "x"}, values)
}

func TestNewRunner(t *testing.T) {
	t.Setenv("MSBuildSDKsPath", "/sdk")
	runner := NewRunner("dotnet", "msbuild")

	assert.Equal(t, "dotnet", runner.Tool)
	assert.Equal(t, []string{"msbuild"}, runner.Args)
	// discovered keys are inherited, not copied into the overrides
	assert.Empty(t, runner.Env)
}

func TestRunner_EvaluateInherits(t *testing.T) {
	tool := fakeTool(t, `printf '%s\n' "$MSBuildSDKsPath" > results.txt
`)
	t.Setenv("MSBuildSDKsPath", "/inherited/sdk")

	values, err := NewRunner(tool).Evaluate(context.Background(), nil, []string{"$(MSBuildSDKsPath)"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/inherited/sdk"}, values)
}

func TestRunner_EvaluateErrors(t *testing.T) {
	t.Run("tool fails", func(t *testing.T) {
		runner := &Runner{Tool: fakeTool(t, "echo boom >&2\nexit 3\n")}
		_, err := runner.Evaluate(context.Background(), nil, []string{"$(A)"})

		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, 3, toolErr.ExitCode)
		assert.Contains(t, toolErr.Output, "boom")
	})

	t.Run("no results", func(t *testing.T) {
		runner := &Runner{Tool: fakeTool(t, "echo nothing\n")}
		_, err := runner.Evaluate(context.Background(), nil, []string{"$(A)"})

		assert.True(t, errors.Is(err, ErrNoResults))
		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Contains(t, toolErr.Output, "nothing")
	})

	t.Run("value count mismatch", func(t *testing.T) {
		runner := &Runner{Tool: fakeTool(t, "echo one > results.txt\n")}
		_, err := runner.Evaluate(context.Background(), nil, []string{"$(A)", "$(B)"})
		assert.ErrorContains(t, err, "expected 2 values, got 1")
	})

	t.Run("missing tool", func(t *testing.T) {
		runner := &Runner{Tool: filepath.Join(t.TempDir(), "no-such-tool")}
		_, err := runner.Evaluate(context.Background(), nil, nil)
		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Zero(t, toolErr.ExitCode)
	})
}

func TestRunner_EvaluateAll(t *testing.T) {
	tool := fakeTool(t, `grep -o '<Configuration>[A-Za-z]*' "$1" | cut -d'>' -f2 > results.txt
`)
	runner := &Runner{Tool: tool}

	cases := []Case{
		{Properties: map[string]string{"Configuration": "Debug"}, Expressions: []string{"$(Configuration)"}},
		{Properties: map[string]string{"Configuration": "Release"}, Expressions: []string{"$(Configuration)"}},
		{Properties: map[string]string{"Configuration": "Custom"}, Expressions: []string{"$(Configuration)"}},
	}

	results, err := runner.EvaluateAll(context.Background(), cases, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Debug"}, {"Release"}, {"Custom"}}, results)

	cases = append(cases, Case{Expressions: []string{"$(Configuration)"}})
	_, err = runner.EvaluateAll(context.Background(), cases, 0)
	assert.ErrorContains(t, err, "case 3")
}

func TestParseResults(t *testing.T) {
	assert.Nil(t, parseResults(""))
	assert.Nil(t, parseResults("\n"))
	assert.Equal(t, []string{"a", "", "c"}, parseResults("a\r\n%EMPTY%\r\nc\r\n"))
}
