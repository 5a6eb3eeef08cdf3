//go:build !windows

package execshell_test

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/temirov/caddybuild/internal/execshell"
)

const (
	testProcessTimeoutConstant      = 100 * time.Millisecond
	testTerminationDeadlineConstant = 5 * time.Second
	testDrainTimeoutConstant        = 300 * time.Millisecond
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("sink closed")
}

func newTestOSExecutor(testInstance *testing.T, options ...execshell.ExecutorOption) *execshell.Executor {
	testInstance.Helper()
	executor, creationError := execshell.NewOSExecutor(options...)
	require.NoError(testInstance, creationError)
	return executor
}

func TestOSExecutorScenarios(testInstance *testing.T) {
	testCases := []struct {
		name             string
		spec             execshell.CommandSpec
		options          execshell.ExecutionOptions
		expectedOutput   string
		expectedExitCode int
	}{
		{
			name:             "echo_captured",
			spec:             execshell.ShellLine("echo hello"),
			options:          execshell.ExecutionOptions{CaptureOutput: true},
			expectedOutput:   "hello",
			expectedExitCode: 0,
		},
		{
			name:             "shell_exit_code",
			spec:             execshell.ShellLine("exit 3"),
			options:          execshell.ExecutionOptions{UseShell: true, CheckStatus: false},
			expectedOutput:   "",
			expectedExitCode: 3,
		},
		{
			name:             "merged_streams",
			spec:             execshell.ShellLine("echo out; echo err 1>&2"),
			options:          execshell.ExecutionOptions{UseShell: true, CaptureOutput: true},
			expectedOutput:   "out\nerr",
			expectedExitCode: 0,
		},
		{
			name:             "quoted_tokens_stay_whole",
			spec:             execshell.ShellLine(`printf "%s|" "a b" c`),
			options:          execshell.ExecutionOptions{CaptureOutput: true},
			expectedOutput:   "a b|c|",
			expectedExitCode: 0,
		},
		{
			name:             "standard_input_delivered",
			spec:             execshell.ArgumentVector("cat"),
			options:          execshell.ExecutionOptions{CaptureOutput: true}.WithInput("from stdin\n"),
			expectedOutput:   "from stdin",
			expectedExitCode: 0,
		},
		{
			name:             "stdin_reader_delivered",
			spec:             execshell.ArgumentVector("cat"),
			options:          execshell.ExecutionOptions{CaptureOutput: true, Stdin: strings.NewReader("reader")},
			expectedOutput:   "reader",
			expectedExitCode: 0,
		},
		{
			name:             "environment_and_directory",
			spec:             execshell.ShellLine(`echo "$BUILD_TAG" && pwd`),
			options:          execshell.ExecutionOptions{UseShell: true, CaptureOutput: true, WorkingDirectory: "/", EnvironmentVariables: map[string]string{"BUILD_TAG": "v2.8.4-1"}},
			expectedOutput:   "v2.8.4-1\n/",
			expectedExitCode: 0,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := newTestOSExecutor(testInstance)
			result, executionError := executor.Execute(context.Background(), testCase.spec, testCase.options)
			require.NoError(testInstance, executionError)
			require.Equal(testInstance, testCase.expectedOutput, result.Output)
			require.Equal(testInstance, testCase.expectedExitCode, result.ExitCode)
		})
	}
}

func TestOSExecutorPassthroughLeavesOutputEmpty(testInstance *testing.T) {
	var passthroughOutput bytes.Buffer
	executor := newTestOSExecutor(testInstance, execshell.WithPassthroughWriters(&passthroughOutput, &passthroughOutput))

	result, executionError := executor.Execute(context.Background(), execshell.ShellLine("echo visible"), execshell.ExecutionOptions{CheckStatus: true})
	require.NoError(testInstance, executionError)
	require.Empty(testInstance, result.Output)
	require.Equal(testInstance, "visible\n", passthroughOutput.String())
}

func TestOSExecutorFailingPassthroughKeepsExitStatus(testInstance *testing.T) {
	executor := newTestOSExecutor(testInstance, execshell.WithPassthroughWriters(failingWriter{}, failingWriter{}))

	result, executionError := executor.Execute(context.Background(), execshell.ShellLine("echo hi"), execshell.ExecutionOptions{CheckStatus: true})
	require.NoError(testInstance, executionError)
	require.True(testInstance, result.Launched())
	require.Equal(testInstance, 0, result.ExitCode)
	require.ErrorContains(testInstance, result.StreamError, "sink closed")
}

func TestOSExecutorTimeoutDuringOutputDrain(testInstance *testing.T) {
	executor := newTestOSExecutor(testInstance)

	options := execshell.ExecutionOptions{UseShell: true, CaptureOutput: true, CheckStatus: true, Timeout: testDrainTimeoutConstant}
	result, executionError := executor.Execute(context.Background(), execshell.ShellLine("echo ready; sleep 3 & exit 0"), options)
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, 0, result.ExitCode)
	require.Equal(testInstance, "ready", result.Output)
	require.NoError(testInstance, result.StreamError)
}

func TestOSExecutorLaunchFailure(testInstance *testing.T) {
	executor := newTestOSExecutor(testInstance)

	_, checkedError := executor.Execute(context.Background(), execshell.ArgumentVector("nonexistent-binary-xyz"), execshell.ExecutionOptions{CheckStatus: true})
	require.Error(testInstance, checkedError)
	require.IsType(testInstance, execshell.CommandExecutionError{}, checkedError)
	require.ErrorIs(testInstance, checkedError, exec.ErrNotFound)

	result, uncheckedError := executor.Execute(context.Background(), execshell.ArgumentVector("nonexistent-binary-xyz"), execshell.ExecutionOptions{CaptureOutput: true})
	require.NoError(testInstance, uncheckedError)
	require.Equal(testInstance, execshell.LaunchFailureExitCode, result.ExitCode)
	require.Contains(testInstance, result.Output, "nonexistent-binary-xyz")
	require.False(testInstance, result.Launched())
}

func TestOSExecutorTimeoutKillsProcess(testInstance *testing.T) {
	testCases := []struct {
		name    string
		spec    execshell.CommandSpec
		options execshell.ExecutionOptions
	}{
		{
			name:    "direct_sleep",
			spec:    execshell.ShellLine("sleep 10"),
			options: execshell.ExecutionOptions{Timeout: testProcessTimeoutConstant},
		},
		{
			name:    "shell_child_holding_pipe",
			spec:    execshell.ShellLine("echo started; sleep 10; echo finished"),
			options: execshell.ExecutionOptions{UseShell: true, CaptureOutput: true, Timeout: testProcessTimeoutConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := newTestOSExecutor(testInstance)

			startedAt := time.Now()
			_, executionError := executor.Execute(context.Background(), testCase.spec, testCase.options)
			elapsed := time.Since(startedAt)

			var timeoutError execshell.CommandTimeoutError
			require.True(testInstance, errors.As(executionError, &timeoutError))
			require.ErrorIs(testInstance, executionError, context.DeadlineExceeded)
			require.Less(testInstance, elapsed, testTerminationDeadlineConstant)
			require.Positive(testInstance, timeoutError.ProcessIdentifier)
			require.NotContains(testInstance, timeoutError.PartialOutput, "finished")

			signalError := unix.Kill(timeoutError.ProcessIdentifier, 0)
			require.ErrorIs(testInstance, signalError, unix.ESRCH)
		})
	}
}

func TestOSExecutorParentCancellation(testInstance *testing.T) {
	executor := newTestOSExecutor(testInstance)
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, executionError := executor.Execute(cancelledContext, execshell.ShellLine("sleep 10"), execshell.ExecutionOptions{})
	require.Error(testInstance, executionError)
	require.IsType(testInstance, execshell.CommandTimeoutError{}, executionError)
	require.ErrorIs(testInstance, executionError, context.Canceled)
}

func TestOSExecutorParentCancellationWhileRunning(testInstance *testing.T) {
	testCases := []struct {
		name    string
		spec    execshell.CommandSpec
		options execshell.ExecutionOptions
	}{
		{
			name:    "direct_sleep",
			spec:    execshell.ArgumentVector("sleep", "10"),
			options: execshell.ExecutionOptions{},
		},
		{
			name:    "shell_child_holding_pipe",
			spec:    execshell.ShellLine("sleep 10; echo finished"),
			options: execshell.ExecutionOptions{UseShell: true, CaptureOutput: true},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := newTestOSExecutor(testInstance)
			runContext, cancel := context.WithCancel(context.Background())
			defer cancel()
			cancelTimer := time.AfterFunc(testProcessTimeoutConstant, cancel)
			defer cancelTimer.Stop()

			startedAt := time.Now()
			_, executionError := executor.Execute(runContext, testCase.spec, testCase.options)
			elapsed := time.Since(startedAt)

			var timeoutError execshell.CommandTimeoutError
			require.ErrorAs(testInstance, executionError, &timeoutError)
			require.ErrorIs(testInstance, executionError, context.Canceled)
			require.Contains(testInstance, executionError.Error(), "was interrupted")
			require.Less(testInstance, elapsed, testTerminationDeadlineConstant)
			require.NotContains(testInstance, timeoutError.PartialOutput, "finished")

			signalError := unix.Kill(timeoutError.ProcessIdentifier, 0)
			require.ErrorIs(testInstance, signalError, unix.ESRCH)
		})
	}
}
