package shellrun_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/caddybuild/internal/execshell"
	"github.com/temirov/caddybuild/internal/shellrun"
)

type recordingExecutor struct {
	result          execshell.ExecutionResult
	executionError  error
	recordedSpecs   []execshell.CommandSpec
	recordedOptions []execshell.ExecutionOptions
}

func (executor *recordingExecutor) Execute(executionContext context.Context, spec execshell.CommandSpec, options execshell.ExecutionOptions) (execshell.ExecutionResult, error) {
	executor.recordedSpecs = append(executor.recordedSpecs, spec)
	executor.recordedOptions = append(executor.recordedOptions, options)
	return executor.result, executor.executionError
}

func TestNewRunnerRequiresExecutor(testInstance *testing.T) {
	runner, creationError := shellrun.NewRunner(nil, nil, shellrun.Settings{})
	require.Nil(testInstance, runner)
	require.ErrorIs(testInstance, creationError, shellrun.ErrExecutorNotConfigured)
}

func TestRunnerCallShapes(testInstance *testing.T) {
	failure := execshell.CommandFailedError{Command: execshell.ShellCommand{Spec: execshell.ShellLine("git push")}, ExitCode: 1, Output: "rejected"}

	testCases := []struct {
		name                string
		executionError      error
		invoke              func(runner *shellrun.Runner) (string, error)
		expectedCapture     bool
		expectedOutput      string
		expectedDiagnostics string
	}{
		{
			name: "shell_exec_success",
			invoke: func(runner *shellrun.Runner) (string, error) {
				return "", runner.ShellExec(context.Background(), execshell.ShellLine("git push"))
			},
			expectedCapture:     false,
			expectedDiagnostics: "==> git push\n",
		},
		{
			name:           "shell_exec_failure",
			executionError: failure,
			invoke: func(runner *shellrun.Runner) (string, error) {
				return "", runner.ShellExec(context.Background(), execshell.ShellLine("git push"))
			},
			expectedCapture:     false,
			expectedDiagnostics: "==> git push\n!!! git push failed with exit code 1: rejected\n",
		},
		{
			name: "run_check_error_success",
			invoke: func(runner *shellrun.Runner) (string, error) {
				return runner.RunCheckError(context.Background(), execshell.ShellLine("git push"))
			},
			expectedCapture:     true,
			expectedOutput:      "done",
			expectedDiagnostics: "",
		},
		{
			name:           "run_check_error_failure",
			executionError: failure,
			invoke: func(runner *shellrun.Runner) (string, error) {
				return runner.RunCheckError(context.Background(), execshell.ShellLine("git push"))
			},
			expectedCapture:     true,
			expectedOutput:      "done",
			expectedDiagnostics: "!!! git push failed with exit code 1: rejected\n",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingExecutor{result: execshell.ExecutionResult{Output: "done"}, executionError: testCase.executionError}
			var diagnostics bytes.Buffer
			runner, creationError := shellrun.NewRunner(executor, &diagnostics, shellrun.Settings{Timeout: time.Minute})
			require.NoError(testInstance, creationError)

			output, invokeError := testCase.invoke(runner)
			if testCase.executionError != nil {
				require.Equal(testInstance, testCase.executionError, invokeError)
			} else {
				require.NoError(testInstance, invokeError)
			}

			require.Equal(testInstance, testCase.expectedOutput, output)
			require.Equal(testInstance, testCase.expectedDiagnostics, diagnostics.String())
			require.Len(testInstance, executor.recordedOptions, 1)
			require.True(testInstance, executor.recordedOptions[0].CheckStatus)
			require.Equal(testInstance, testCase.expectedCapture, executor.recordedOptions[0].CaptureOutput)
			require.Equal(testInstance, time.Minute, executor.recordedOptions[0].Timeout)
		})
	}
}

func TestRunnerInDirectoryDoesNotMutateParent(testInstance *testing.T) {
	executor := &recordingExecutor{}
	runner, creationError := shellrun.NewRunner(executor, nil, shellrun.Settings{WorkingDirectory: "/build"})
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, runner.InDirectory("/repo").ShellExec(context.Background(), execshell.ShellLine("git add README.md")))
	require.NoError(testInstance, runner.ShellExec(context.Background(), execshell.ShellLine("chmod +x ./caddy")))

	require.Equal(testInstance, "/repo", executor.recordedOptions[0].WorkingDirectory)
	require.Equal(testInstance, "/build", executor.recordedOptions[1].WorkingDirectory)
}
