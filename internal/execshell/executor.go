package execshell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"

	"github.com/google/uuid"
)

// ExecutorOption customizes an Executor.
type ExecutorOption func(executor *Executor)

// WithPlatform overrides the platform capabilities used for argument resolution.
func WithPlatform(platform Platform) ExecutorOption {
	return func(executor *Executor) {
		if platform != nil {
			executor.platform = platform
		}
	}
}

// WithOutputDecoder overrides the decoding chain.
func WithOutputDecoder(decoder OutputDecoder) ExecutorOption {
	return func(executor *Executor) {
		executor.decoder = decoder
	}
}

// WithEventObserver registers an observer for lifecycle events.
func WithEventObserver(observer CommandEventObserver) ExecutorOption {
	return func(executor *Executor) {
		if observer != nil {
			executor.observer = observer
		}
	}
}

// WithPassthroughWriters sets where uncaptured output goes. Both default to the process console.
func WithPassthroughWriters(outputWriter io.Writer, errorWriter io.Writer) ExecutorOption {
	return func(executor *Executor) {
		if outputWriter != nil {
			executor.passthroughOutput = outputWriter
		}
		if errorWriter != nil {
			executor.passthroughError = errorWriter
		}
	}
}

// Executor runs one command to completion per call. It keeps no state between calls and is
// safe for concurrent use when its runner is.
type Executor struct {
	runner            CommandRunner
	platform          Platform
	decoder           OutputDecoder
	observer          CommandEventObserver
	passthroughOutput io.Writer
	passthroughError  io.Writer
}

// NewExecutor wires an executor around the provided runner.
func NewExecutor(runner CommandRunner, options ...ExecutorOption) (*Executor, error) {
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &Executor{
		runner:            runner,
		platform:          NewPlatform(),
		decoder:           DefaultOutputDecoder(),
		observer:          noopCommandEventObserver{},
		passthroughOutput: os.Stdout,
		passthroughError:  os.Stderr,
	}
	for _, option := range options {
		if option != nil {
			option(executor)
		}
	}
	return executor, nil
}

// NewOSExecutor builds an executor backed by OSCommandRunner for the running platform.
func NewOSExecutor(options ...ExecutorOption) (*Executor, error) {
	platform := NewPlatform()
	runner, runnerError := NewOSCommandRunner(platform)
	if runnerError != nil {
		return nil, runnerError
	}
	return NewExecutor(runner, append([]ExecutorOption{WithPlatform(platform)}, options...)...)
}

// Execute runs the command described by spec.
//
// Configuration problems fail with ConfigurationError before anything is launched.
// Timeouts fail with CommandTimeoutError regardless of CheckStatus. With CheckStatus set,
// launch failures return CommandExecutionError and non-zero exits return CommandFailedError;
// without it, a launch failure becomes a result with LaunchFailureExitCode and the error
// text as output, and non-zero exits are returned as data. A process that ran but whose
// output could not be delivered keeps its exit status and reports ExecutionResult.StreamError.
func (executor *Executor) Execute(executionContext context.Context, spec CommandSpec, options ExecutionOptions) (ExecutionResult, error) {
	if spec.IsZero() {
		return ExecutionResult{}, ConfigurationError{Kind: ConfigurationErrorKindEmptyCommand, Message: emptyCommandMessageConstant}
	}
	if validationError := options.validate(); validationError != nil {
		return ExecutionResult{}, validationError
	}

	resolvedCommand, resolutionError := executor.platform.ResolveCommand(spec, options.UseShell)
	if resolutionError != nil {
		return ExecutionResult{}, resolutionError
	}

	request := ProcessRequest{
		Command:              resolvedCommand,
		WorkingDirectory:     options.WorkingDirectory,
		EnvironmentVariables: options.EnvironmentVariables,
		CaptureOutput:        options.CaptureOutput,
		PassthroughOutput:    executor.passthroughOutput,
		PassthroughError:     executor.passthroughError,
		ShowWindow:           options.ShowWindow,
		Timeout:              options.Timeout,
	}
	switch {
	case options.StandardInput != nil:
		request.StandardInput = bytes.NewReader(options.StandardInput)
	case options.Stdin != nil:
		request.StandardInput = options.Stdin
	}

	shellCommand := ShellCommand{
		ExecutionID:      uuid.NewString(),
		Spec:             spec,
		Resolved:         resolvedCommand,
		WorkingDirectory: options.WorkingDirectory,
	}

	executor.observer.CommandStarted(shellCommand)
	outcome, runError := executor.runner.Run(executionContext, request)

	if runError != nil {
		var startError StartError
		if !errors.As(runError, &startError) {
			waitError := CommandWaitError{Command: shellCommand, Cause: runError}
			executor.observer.CommandExecutionFailed(shellCommand, waitError)
			return ExecutionResult{}, waitError
		}
		executionError := CommandExecutionError{Command: shellCommand, Cause: runError}
		executor.observer.CommandExecutionFailed(shellCommand, executionError)
		if options.CheckStatus {
			return ExecutionResult{}, executionError
		}
		return ExecutionResult{
			Output:      runError.Error(),
			ExitCode:    LaunchFailureExitCode,
			LaunchError: executionError,
		}, nil
	}

	if outcome.TerminationCause != nil {
		timeoutError := CommandTimeoutError{
			Command:           shellCommand,
			Timeout:           options.Timeout,
			ProcessIdentifier: outcome.ProcessIdentifier,
			PartialOutput:     executor.decoder.Decode(StripTrailingNewline(outcome.CapturedOutput)),
			Cause:             outcome.TerminationCause,
		}
		executor.observer.CommandExecutionFailed(shellCommand, timeoutError)
		return ExecutionResult{}, timeoutError
	}

	result := ExecutionResult{ExitCode: outcome.ExitCode, Duration: outcome.Duration, StreamError: outcome.StreamError}
	if options.CaptureOutput {
		result.Output = executor.decoder.Decode(StripTrailingNewline(outcome.CapturedOutput))
	}
	executor.observer.CommandCompleted(shellCommand, result)

	if options.CheckStatus && result.ExitCode != 0 {
		return result, CommandFailedError{Command: shellCommand, ExitCode: result.ExitCode, Output: result.Output}
	}
	return result, nil
}
