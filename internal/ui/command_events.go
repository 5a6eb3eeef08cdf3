package ui

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/caddybuild/internal/execshell"
)

const (
	commandStartedMessageTemplateConstant          = "Running %s"
	commandCompletedMessageTemplateConstant        = "Completed %s"
	commandFailedExitCodeMessageTemplateConstant   = "%s failed with exit code %d"
	commandExecutionFailureMessageTemplateConstant = "%s failed: %s"
	commandTimedOutMessageTemplateConstant         = "%s timed out after %s"
	commandLabelTemplateConstant                   = "%s%s"
	workingDirectorySuffixTemplateConstant         = " (in %s)"
	outputSuffixTemplateConstant                   = ": %s"
	unknownFailureMessageConstant                  = "unknown error"
	emptyStringConstant                            = ""
	structuredStartedMessageConstant               = "command started"
	structuredCompletedMessageConstant             = "command completed"
	structuredFailedMessageConstant                = "command execution failed"
	logFieldExecutionIDConstant                    = "execution_id"
	logFieldCommandConstant                        = "command"
	logFieldExecutableConstant                     = "executable"
	logFieldArgumentsConstant                      = "arguments"
	logFieldWorkingDirectoryConstant               = "working_directory"
	logFieldExitCodeConstant                       = "exit_code"
	logFieldDurationConstant                       = "duration"
	logFieldOutputBytesConstant                    = "output_bytes"
	logFieldStreamErrorConstant                    = "stream_error"
	logFieldLaunchedConstant                       = "launched"
	maximumOutputSuffixLengthConstant              = 200
)

// CommandEventFormatter builds human-readable messages for command lifecycle events.
type CommandEventFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandEventFormatter) BuildStartedMessage(command execshell.ShellCommand) string {
	return fmt.Sprintf(commandStartedMessageTemplateConstant, formatter.formatCommandLabel(command))
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandEventFormatter) BuildSuccessMessage(command execshell.ShellCommand) string {
	return fmt.Sprintf(commandCompletedMessageTemplateConstant, formatter.formatCommandLabel(command))
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandEventFormatter) BuildFailureMessage(command execshell.ShellCommand, result execshell.ExecutionResult) string {
	baseMessage := fmt.Sprintf(commandFailedExitCodeMessageTemplateConstant, formatter.formatCommandLabel(command), result.ExitCode)
	return baseMessage + formatter.formatOutputSuffix(result.Output)
}

// BuildExecutionFailureMessage formats launch failures and timeouts.
func (formatter CommandEventFormatter) BuildExecutionFailureMessage(command execshell.ShellCommand, failure error) string {
	var timeoutError execshell.CommandTimeoutError
	if errors.As(failure, &timeoutError) && timeoutError.Timeout > 0 {
		return fmt.Sprintf(commandTimedOutMessageTemplateConstant, formatter.formatCommandLabel(command), timeoutError.Timeout)
	}

	failureMessage := unknownFailureMessageConstant
	var executionError execshell.CommandExecutionError
	switch {
	case errors.As(failure, &executionError) && executionError.Cause != nil:
		failureMessage = executionError.Cause.Error()
	case failure != nil:
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(commandExecutionFailureMessageTemplateConstant, formatter.formatCommandLabel(command), failureMessage)
}

func (formatter CommandEventFormatter) formatCommandLabel(command execshell.ShellCommand) string {
	return fmt.Sprintf(commandLabelTemplateConstant, command.Label(), formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandEventFormatter) formatWorkingDirectorySuffix(command execshell.ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

// formatOutputSuffix keeps only the last line of output, which is where tools print the reason.
func (formatter CommandEventFormatter) formatOutputSuffix(output string) string {
	trimmedOutput := strings.TrimSpace(output)
	if len(trimmedOutput) == 0 {
		return emptyStringConstant
	}
	if lastLineIndex := strings.LastIndex(trimmedOutput, "\n"); lastLineIndex >= 0 {
		trimmedOutput = strings.TrimSpace(trimmedOutput[lastLineIndex+1:])
	}
	if len(trimmedOutput) > maximumOutputSuffixLengthConstant {
		trimmedOutput = trimmedOutput[:maximumOutputSuffixLengthConstant]
	}
	return fmt.Sprintf(outputSuffixTemplateConstant, trimmedOutput)
}

// ConsoleCommandEventLogger renders command lifecycle events using a zap logger configured for human-readable output.
type ConsoleCommandEventLogger struct {
	logger    *zap.Logger
	formatter CommandEventFormatter
}

// NewConsoleCommandEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleCommandEventLogger(logger *zap.Logger) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleCommandEventLogger{logger: logger, formatter: CommandEventFormatter{}}
}

// CommandStarted implements execshell.CommandEventObserver by logging command start notifications.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildStartedMessage(command))
}

// CommandCompleted implements execshell.CommandEventObserver by logging command completion notifications.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	if result.ExitCode == 0 {
		eventLogger.logger.Info(eventLogger.formatter.BuildSuccessMessage(command))
		return
	}
	eventLogger.logger.Warn(eventLogger.formatter.BuildFailureMessage(command, result))
}

// CommandExecutionFailed implements execshell.CommandEventObserver by logging launch failures and timeouts.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.formatter.BuildExecutionFailureMessage(command, failure))
}

// StructuredCommandEventLogger records command lifecycle events as structured zap fields.
type StructuredCommandEventLogger struct {
	logger *zap.Logger
}

// NewStructuredCommandEventLogger constructs a structured event logger.
func NewStructuredCommandEventLogger(logger *zap.Logger) *StructuredCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StructuredCommandEventLogger{logger: logger}
}

// CommandStarted implements execshell.CommandEventObserver.
func (eventLogger *StructuredCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Debug(structuredStartedMessageConstant, append(
		commandFields(command),
		zap.String(logFieldExecutableConstant, command.Resolved.Executable),
		zap.Strings(logFieldArgumentsConstant, command.Resolved.Arguments),
	)...)
}

// CommandCompleted implements execshell.CommandEventObserver.
func (eventLogger *StructuredCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(structuredCompletedMessageConstant, append(
		commandFields(command),
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
		zap.Duration(logFieldDurationConstant, result.Duration),
		zap.Int(logFieldOutputBytesConstant, len(result.Output)),
		zap.NamedError(logFieldStreamErrorConstant, result.StreamError),
	)...)
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
func (eventLogger *StructuredCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	var executionError execshell.CommandExecutionError
	eventLogger.logger.Error(structuredFailedMessageConstant, append(
		commandFields(command),
		zap.Bool(logFieldLaunchedConstant, !errors.As(failure, &executionError)),
		zap.Error(failure),
	)...)
}

func commandFields(command execshell.ShellCommand) []zap.Field {
	fields := []zap.Field{
		zap.String(logFieldExecutionIDConstant, command.ExecutionID),
		zap.String(logFieldCommandConstant, command.Label()),
	}
	if len(command.WorkingDirectory) > 0 {
		fields = append(fields, zap.String(logFieldWorkingDirectoryConstant, command.WorkingDirectory))
	}
	return fields
}
