//go:build !windows

package execshell_test

import (
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/caddybuild/internal/execshell"
)

func TestPosixPlatformResolveCommand(testInstance *testing.T) {
	testCases := []struct {
		name               string
		spec               execshell.CommandSpec
		useShell           bool
		expectedExecutable string
		expectedArguments  []string
	}{
		{
			name:               "shell_line_split",
			spec:               execshell.ShellLine(`git commit -m "Update README.md"`),
			expectedExecutable: "git",
			expectedArguments:  []string{"commit", "-m", "Update README.md"},
		},
		{
			name:               "shell_line_through_shell",
			spec:               execshell.ShellLine("exit 3"),
			useShell:           true,
			expectedExecutable: "/bin/sh",
			expectedArguments:  []string{"-c", "exit 3"},
		},
		{
			name:               "argument_vector_direct",
			spec:               execshell.ArgumentVector("chmod", "+x", "./caddy"),
			expectedExecutable: "chmod",
			expectedArguments:  []string{"+x", "./caddy"},
		},
		{
			name:               "argument_vector_through_shell",
			spec:               execshell.ArgumentVector("echo", "hello world"),
			useShell:           true,
			expectedExecutable: "/bin/sh",
			expectedArguments:  []string{"-c", "echo 'hello world'"},
		},
	}

	platform := execshell.PosixPlatform{}
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			resolved, resolveError := platform.ResolveCommand(testCase.spec, testCase.useShell)
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedExecutable, resolved.Executable)
			require.Equal(testInstance, testCase.expectedArguments, resolved.Arguments)
		})
	}
}

func TestPosixPlatformIgnoresWindowHint(testInstance *testing.T) {
	platform := execshell.PosixPlatform{}
	hiddenProcess := exec.Command("true")
	visibleProcess := exec.Command("true")

	platform.PrepareProcess(hiddenProcess, execshell.ResolvedCommand{Executable: "true"}, false)
	platform.PrepareProcess(visibleProcess, execshell.ResolvedCommand{Executable: "true"}, true)

	require.Equal(testInstance, hiddenProcess.SysProcAttr, visibleProcess.SysProcAttr)
	require.True(testInstance, hiddenProcess.SysProcAttr.Setpgid)
	require.Equal(testInstance, "posix", execshell.NewPlatform().Name())
}

func TestPosixPlatformProcessGroupByInput(testInstance *testing.T) {
	pipeReader, pipeWriter, pipeError := os.Pipe()
	require.NoError(testInstance, pipeError)
	defer pipeReader.Close()
	defer pipeWriter.Close()

	testCases := []struct {
		name  string
		input io.Reader
	}{
		{name: "no_input"},
		{name: "reader_input", input: strings.NewReader("data")},
		{name: "pipe_input", input: pipeReader},
	}

	platform := execshell.PosixPlatform{}
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			process := exec.Command("cat")
			process.Stdin = testCase.input
			platform.PrepareProcess(process, execshell.ResolvedCommand{Executable: "cat"}, false)
			require.True(testInstance, process.SysProcAttr.Setpgid)
		})
	}
}

func TestPosixPlatformTerminatesProcessOutsideGroup(testInstance *testing.T) {
	process := exec.Command("sleep", "10")
	require.NoError(testInstance, process.Start())

	platform := execshell.PosixPlatform{}
	require.NoError(testInstance, platform.TerminateProcess(process.Process))

	waitError := process.Wait()
	var exitError *exec.ExitError
	require.ErrorAs(testInstance, waitError, &exitError)
	require.False(testInstance, exitError.Exited())
	require.ErrorIs(testInstance, platform.TerminateProcess(process.Process), os.ErrProcessDone)
}
