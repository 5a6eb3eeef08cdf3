//go:build !windows

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/temirov/caddybuild/cmd/cli/execute"
	"github.com/temirov/caddybuild/internal/execshell"
)

const (
	testSignalDelayConstant         = 200 * time.Millisecond
	testTerminationDeadlineConstant = 5 * time.Second
)

type execReportFixture struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
	Launched bool   `json:"launched"`
}

func runApplication(testInstance *testing.T, arguments ...string) (string, error) {
	testInstance.Helper()
	isolateUserConfiguration(testInstance)

	application := NewApplication()
	var output bytes.Buffer
	application.rootCommand.SetOut(&output)
	application.rootCommand.SetErr(io.Discard)
	application.rootCommand.SetArgs(append([]string{"--log-level", "error"}, arguments...))
	executionError := application.rootCommand.ExecuteContext(context.Background())
	return output.String(), executionError
}

func TestApplicationExecRunsProcesses(testInstance *testing.T) {
	testCases := []struct {
		name           string
		arguments      []string
		expectedReport execReportFixture
	}{
		{
			name:           "command_line",
			arguments:      []string{"exec", "--output", "json", "printf '%s' 'hello world'"},
			expectedReport: execReportFixture{Command: "printf '%s' 'hello world'", Output: "hello world", Launched: true},
		},
		{
			name:           "argument_vector_with_environment",
			arguments:      []string{"exec", "--output", "json", "--env", "CADDYBUILD_TEST_VALUE=42", "--", "sh", "-c", "echo $CADDYBUILD_TEST_VALUE"},
			expectedReport: execReportFixture{Command: "sh -c echo $CADDYBUILD_TEST_VALUE", Output: "42", Launched: true},
		},
		{
			name:           "standard_input",
			arguments:      []string{"exec", "--output", "json", "--input", "piped", "cat"},
			expectedReport: execReportFixture{Command: "cat", Output: "piped", Launched: true},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			output, executionError := runApplication(testInstance, testCase.arguments...)
			require.NoError(testInstance, executionError)

			var report execReportFixture
			require.NoError(testInstance, json.Unmarshal([]byte(output), &report))
			require.Equal(testInstance, testCase.expectedReport, report)
		})
	}
}

func TestApplicationExecReportsExitStatus(testInstance *testing.T) {
	output, executionError := runApplication(testInstance, "exec", "--shell", "echo failing; exit 3")
	require.Equal(testInstance, "failing\n", output)

	var statusError execute.ExitStatusError
	require.ErrorAs(testInstance, executionError, &statusError)
	require.Equal(testInstance, 3, statusError.ExitCode())
}

func TestApplicationTerminationSignalKillsRunningProcess(testInstance *testing.T) {
	isolateUserConfiguration(testInstance)
	signalContext, stopSignals := newSignalContext(context.Background())
	defer stopSignals()

	application := NewApplication()
	application.rootCommand.SetOut(io.Discard)
	application.rootCommand.SetErr(io.Discard)
	application.rootCommand.SetArgs([]string{"--log-level", "error", "exec", "--shell", "sleep 10; echo finished"})

	signalTimer := time.AfterFunc(testSignalDelayConstant, func() {
		_ = unix.Kill(os.Getpid(), unix.SIGTERM)
	})
	defer signalTimer.Stop()

	startedAt := time.Now()
	executionError := application.rootCommand.ExecuteContext(signalContext)
	require.Less(testInstance, time.Since(startedAt), testTerminationDeadlineConstant)

	var timeoutError execshell.CommandTimeoutError
	require.ErrorAs(testInstance, executionError, &timeoutError)
	require.ErrorIs(testInstance, executionError, context.Canceled)
	require.ErrorIs(testInstance, unix.Kill(timeoutError.ProcessIdentifier, 0), unix.ESRCH)
}
