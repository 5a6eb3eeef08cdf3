package release_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	releasecmd "github.com/temirov/caddybuild/cmd/cli/release"
	"github.com/temirov/caddybuild/internal/execshell"
	"github.com/temirov/caddybuild/internal/release"
	pathutils "github.com/temirov/caddybuild/internal/utils/path"
)

type scriptedRunner struct {
	capturedOutputs map[string]string
	executedSpecs   []string
}

func (runner *scriptedRunner) ShellExec(executionContext context.Context, spec execshell.CommandSpec) error {
	runner.executedSpecs = append(runner.executedSpecs, spec.String())
	return nil
}

func (runner *scriptedRunner) RunCheckError(executionContext context.Context, spec execshell.CommandSpec) (string, error) {
	return runner.capturedOutputs[spec.String()], nil
}

type recordingExporter struct {
	exports map[string]string
}

func (exporter *recordingExporter) Export(name string, value string) error {
	exporter.exports[name] = value
	return nil
}

func TestReleaseCommandDryRun(testInstance *testing.T) {
	requestedDirectories := []string{}
	buildRunner := &scriptedRunner{capturedOutputs: map[string]string{"./caddy version": "v2.9.9 h1:stale="}}
	repositoryRunner := &scriptedRunner{capturedOutputs: map[string]string{"git tag --list": "v2.8.4"}}
	exporter := &recordingExporter{exports: map[string]string{}}

	builder := releasecmd.CommandBuilder{
		ConfigurationProvider: release.DefaultConfiguration,
		RunnerProvider: func(workingDirectory string) (release.ShellRunner, error) {
			requestedDirectories = append(requestedDirectories, workingDirectory)
			if len(requestedDirectories) == 1 {
				return buildRunner, nil
			}
			return repositoryRunner, nil
		},
		Exporter: exporter,
		EnvironmentLookup: func(name string) (string, bool) {
			environment := map[string]string{"GITHUB_REPOSITORY": "builder/naiveproxy-server-build", "REPO_PARENT": "~/checkout"}
			value, exists := environment[name]
			return value, exists
		},
		HomeExpander: pathutils.NewHomeExpanderWithProvider(func() (string, error) {
			return "/home/builder", nil
		}),
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	var output bytes.Buffer
	command.SetOut(&output)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"--dry-run", "--dry-run-version", "v2.8.4 h1:abc=", "--ref", "main", "--plugin", "github.com/mholt/caddy-l4"})
	require.NoError(testInstance, command.ExecuteContext(context.Background()))

	require.Equal(testInstance, []string{".", "/home/builder/checkout"}, requestedDirectories)
	require.Empty(testInstance, buildRunner.executedSpecs)
	require.Empty(testInstance, repositoryRunner.executedSpecs)
	require.Empty(testInstance, exporter.exports)

	summary := output.String()
	require.Contains(testInstance, summary, "tag: v2.8.4-1\n")
	require.Contains(testInstance, summary, "version: v2.8.4 h1:abc=\n")
	require.Contains(testInstance, summary, "download: https://github.com/builder/naiveproxy-server-build/releases/download/v2.8.4-1/caddy\n")
	require.Contains(testInstance, summary, "planned: xcaddy build --with github.com/mholt/caddy-l4\n")
	require.Contains(testInstance, summary, "planned: ./caddy version\n")
	require.Contains(testInstance, summary, "planned: git pull --rebase origin main\n")
	require.Contains(testInstance, summary, "planned: git push origin v2.8.4-1\n")
}

func TestReleaseCommandRequiresRepository(testInstance *testing.T) {
	builder := releasecmd.CommandBuilder{
		RunnerProvider: func(workingDirectory string) (release.ShellRunner, error) {
			return &scriptedRunner{}, nil
		},
		EnvironmentLookup: func(name string) (string, bool) {
			return "", false
		},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"--dry-run"})
	executionError := command.ExecuteContext(context.Background())

	var settingError release.MissingSettingError
	require.ErrorAs(testInstance, executionError, &settingError)
	require.Equal(testInstance, "repository", settingError.Setting)
}

func TestReleaseCommandRejectsArgumentsAndMissingRunner(testInstance *testing.T) {
	withoutRunner := releasecmd.CommandBuilder{}
	command, buildError := withoutRunner.Build()
	require.NoError(testInstance, buildError)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{})
	require.ErrorIs(testInstance, command.ExecuteContext(context.Background()), releasecmd.ErrRunnerNotConfigured)

	command.SetArgs([]string{"unexpected"})
	require.Error(testInstance, command.ExecuteContext(context.Background()))
}
