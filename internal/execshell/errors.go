package execshell

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	commandRunnerNotConfiguredMessageConstant   = "command runner not configured"
	platformNotConfiguredMessageConstant        = "platform capabilities not configured"
	configurationErrorTemplateConstant          = "invalid command configuration (%s): %s"
	configurationErrorWithCauseTemplateConstant = "invalid command configuration (%s): %s: %s"
	invalidTokenMessageTemplateConstant         = "argument %d has unsupported type %T"
	emptyCommandMessageConstant                 = "command is empty"
	conflictingInputMessageConstant             = "standard input data cannot be combined with a standard input reader"
	negativeTimeoutMessageTemplateConstant      = "timeout must not be negative: %s"
	commandExecutionErrorTemplateConstant       = "%s could not be started: %s"
	commandWaitErrorTemplateConstant            = "%s could not be awaited: %s"
	commandTimeoutErrorTemplateConstant         = "%s timed out after %s"
	commandInterruptedErrorTemplateConstant     = "%s was interrupted: %s"
	commandFailedErrorTemplateConstant          = "%s failed with exit code %d"
	commandFailedWithOutputTemplateConstant     = "%s failed with exit code %d: %s"
	processStartFailedMessageConstant           = "process start failed"
)

var (
	// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
	// ErrPlatformNotConfigured indicates a nil Platform was supplied.
	ErrPlatformNotConfigured = errors.New(platformNotConfiguredMessageConstant)
)

// ConfigurationErrorKind classifies configuration failures.
type ConfigurationErrorKind string

// Configuration error kinds.
const (
	ConfigurationErrorKindInvalidToken       ConfigurationErrorKind = "invalid_token"
	ConfigurationErrorKindInvalidCommandLine ConfigurationErrorKind = "invalid_command_line"
	ConfigurationErrorKindEmptyCommand       ConfigurationErrorKind = "empty_command"
	ConfigurationErrorKindConflictingInput   ConfigurationErrorKind = "conflicting_input"
	ConfigurationErrorKindInvalidTimeout     ConfigurationErrorKind = "invalid_timeout"
)

// ConfigurationError reports an invalid CommandSpec or conflicting ExecutionOptions.
// It is returned before any process is launched and regardless of CheckStatus.
type ConfigurationError struct {
	Kind    ConfigurationErrorKind
	Message string
	Cause   error
}

// Error describes the configuration problem.
func (configurationError ConfigurationError) Error() string {
	if configurationError.Cause == nil {
		return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Kind, configurationError.Message)
	}
	return fmt.Sprintf(configurationErrorWithCauseTemplateConstant, configurationError.Kind, configurationError.Message, configurationError.Cause)
}

// Unwrap exposes the underlying cause.
func (configurationError ConfigurationError) Unwrap() error {
	return configurationError.Cause
}

// CommandExecutionError reports a process that could not be started.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the launch failure.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, executionError.Command.Label(), executionError.Cause)
}

// Unwrap exposes the operating system error so errors.Is(err, exec.ErrNotFound) keeps working.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// CommandWaitError reports a runner failure after the process had started, when no exit
// status is available. It is returned regardless of CheckStatus.
type CommandWaitError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the wait failure.
func (waitError CommandWaitError) Error() string {
	return fmt.Sprintf(commandWaitErrorTemplateConstant, waitError.Command.Label(), waitError.Cause)
}

// Unwrap exposes the runner error.
func (waitError CommandWaitError) Unwrap() error {
	return waitError.Cause
}

// CommandTimeoutError reports a process that was killed after exceeding its timeout
// or after its parent context was cancelled. PartialOutput holds whatever was captured
// before termination.
type CommandTimeoutError struct {
	Command           ShellCommand
	Timeout           time.Duration
	ProcessIdentifier int
	PartialOutput     string
	Cause             error
}

// Error describes the timeout.
func (timeoutError CommandTimeoutError) Error() string {
	if timeoutError.Cause != nil && !errors.Is(timeoutError.Cause, context.DeadlineExceeded) {
		return fmt.Sprintf(commandInterruptedErrorTemplateConstant, timeoutError.Command.Label(), timeoutError.Cause)
	}
	return fmt.Sprintf(commandTimeoutErrorTemplateConstant, timeoutError.Command.Label(), timeoutError.Timeout)
}

// Unwrap exposes the context error that triggered termination.
func (timeoutError CommandTimeoutError) Unwrap() error {
	return timeoutError.Cause
}

// CommandFailedError reports a process that ran and exited with a non-zero status.
type CommandFailedError struct {
	Command  ShellCommand
	ExitCode int
	Output   string
}

// Error describes the failure.
func (failedError CommandFailedError) Error() string {
	if len(failedError.Output) == 0 {
		return fmt.Sprintf(commandFailedErrorTemplateConstant, failedError.Command.Label(), failedError.ExitCode)
	}
	return fmt.Sprintf(commandFailedWithOutputTemplateConstant, failedError.Command.Label(), failedError.ExitCode, failedError.Output)
}

// StartError is returned by CommandRunner implementations when the process never started.
type StartError struct {
	Cause error
}

// Error returns the operating system message unchanged.
func (startError StartError) Error() string {
	if startError.Cause == nil {
		return processStartFailedMessageConstant
	}
	return startError.Cause.Error()
}

// Unwrap exposes the operating system error.
func (startError StartError) Unwrap() error {
	return startError.Cause
}
