package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"time"
)

const (
	environmentAssignmentSeparatorConstant = "="
	environmentAssignmentTemplateConstant  = "%s%s%s"
	processWaitDelayConstant               = 2 * time.Second
	killedProcessExitCodeConstant          = -1
)

// ProcessRequest is the fully resolved launch request handed to a CommandRunner.
type ProcessRequest struct {
	Command              ResolvedCommand
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	CaptureOutput        bool
	PassthroughOutput    io.Writer
	PassthroughError     io.Writer
	StandardInput        io.Reader
	ShowWindow           bool
	Timeout              time.Duration
}

// ProcessOutcome reports what happened to a launched process.
type ProcessOutcome struct {
	ProcessIdentifier int
	CapturedOutput    []byte
	ExitCode          int
	Duration          time.Duration
	// TerminationCause is set when the process was killed because its context ended.
	TerminationCause error
	// StreamError is set when the process ran but copying one of its streams failed.
	StreamError error
}

// CommandRunner launches a process and waits for it. Implementations return StartError
// when the process never started and must not return before the process is reaped.
// Once the process has started, failures are reported through ProcessOutcome.
type CommandRunner interface {
	Run(executionContext context.Context, request ProcessRequest) (ProcessOutcome, error)
}

// OSCommandRunner executes commands using the operating system facilities.
type OSCommandRunner struct {
	platform Platform
}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner(platform Platform) (*OSCommandRunner, error) {
	if platform == nil {
		return nil, ErrPlatformNotConfigured
	}
	return &OSCommandRunner{platform: platform}, nil
}

// Run starts the process, waits for it, and kills it when the timeout or parent context expires.
func (runner *OSCommandRunner) Run(executionContext context.Context, request ProcessRequest) (ProcessOutcome, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	runContext := executionContext
	cancelRun := context.CancelFunc(func() {})
	if request.Timeout > 0 {
		runContext, cancelRun = context.WithTimeout(executionContext, request.Timeout)
	}
	defer cancelRun()

	if contextError := runContext.Err(); contextError != nil {
		return ProcessOutcome{ExitCode: killedProcessExitCodeConstant, TerminationCause: contextError}, nil
	}

	executable := exec.CommandContext(runContext, request.Command.Executable, request.Command.Arguments...)

	if len(request.WorkingDirectory) > 0 {
		executable.Dir = request.WorkingDirectory
	}

	if len(request.EnvironmentVariables) > 0 {
		mergedEnvironment := append([]string{}, os.Environ()...)
		for environmentKey, environmentValue := range request.EnvironmentVariables {
			mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentAssignmentTemplateConstant, environmentKey, environmentAssignmentSeparatorConstant, environmentValue))
		}
		executable.Env = mergedEnvironment
	}

	var captureBuffer bytes.Buffer
	if request.CaptureOutput {
		executable.Stdout = &captureBuffer
		executable.Stderr = &captureBuffer
	} else {
		executable.Stdout = request.PassthroughOutput
		executable.Stderr = request.PassthroughError
	}

	if request.StandardInput != nil {
		executable.Stdin = request.StandardInput
	}

	runner.platform.PrepareProcess(executable, request.Command, request.ShowWindow)
	var terminated atomic.Bool
	executable.Cancel = func() error {
		terminated.Store(true)
		return runner.platform.TerminateProcess(executable.Process)
	}
	executable.WaitDelay = processWaitDelayConstant

	startedAt := time.Now()
	if startError := executable.Start(); startError != nil {
		return ProcessOutcome{}, StartError{Cause: startError}
	}

	waitError := executable.Wait()
	outcome := ProcessOutcome{
		ProcessIdentifier: executable.Process.Pid,
		CapturedOutput:    captureBuffer.Bytes(),
		Duration:          time.Since(startedAt),
	}

	// Cancel runs only while the process is alive. A context expiring during the
	// WaitDelay drain leaves the exit status intact.
	if terminated.Load() {
		outcome.ExitCode = killedProcessExitCodeConstant
		outcome.TerminationCause = runContext.Err()
		return outcome, nil
	}

	if executable.ProcessState == nil {
		return outcome, waitError
	}
	outcome.ExitCode = executable.ProcessState.ExitCode()

	exitError := &exec.ExitError{}
	if waitError != nil && !errors.As(waitError, &exitError) && !errors.Is(waitError, exec.ErrWaitDelay) {
		outcome.StreamError = waitError
	}
	return outcome, nil
}
