package execute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/temirov/caddybuild/internal/execshell"
	"github.com/temirov/caddybuild/internal/utils/flags"
	pathutils "github.com/temirov/caddybuild/internal/utils/path"
)

const (
	commandUseConstant                    = "exec [flags] -- <command> [arguments...]"
	commandShortDescriptionConstant       = "Run one command through the command executor"
	commandLongDescriptionConstant        = "exec runs a command line (single argument) or an argument vector (several arguments) and reports its decoded output and exit status."
	executorNotConfiguredMessageConstant  = "command executor not configured"
	commandExecutionErrorTemplateConstant = "exec failed: %w"
	renderErrorTemplateConstant           = "unable to render result: %w"
	exitStatusErrorTemplateConstant       = "command exited with status %d"
	flagShellNameConstant                 = "shell"
	flagShellUsageConstant                = "Interpret the command through the system shell"
	flagCaptureNameConstant               = "capture"
	flagCaptureUsageConstant              = "Capture merged stdout and stderr instead of passing them through"
	flagShowWindowNameConstant            = "show-window"
	flagShowWindowUsageConstant           = "Allow a console window to appear (Windows only)"
	flagInputNameConstant                 = "input"
	flagInputUsageConstant                = "Text written to the command's standard input"
	flagStdinNameConstant                 = "stdin"
	flagStdinUsageConstant                = "Forward this process's standard input to the command"
	flagTimeoutNameConstant               = "timeout"
	flagTimeoutUsageConstant              = "Kill the command after this duration (0 disables)"
	flagCheckNameConstant                 = "check"
	flagCheckUsageConstant                = "Fail when the command exits non-zero or cannot be started"
	flagDirectoryNameConstant             = "dir"
	flagDirectoryUsageConstant            = "Working directory for the command"
	flagEnvironmentNameConstant           = "env"
	flagEnvironmentUsageConstant          = "Extra environment variables as KEY=VALUE (repeatable)"
	flagOutputNameConstant                = "output"
	flagOutputUsageConstant               = "Result rendering"
	outputFormatTextConstant              = "text"
	outputFormatJSONConstant              = "json"
	outputFormatYAMLConstant              = "yaml"
	jsonIndentConstant                    = "  "
	yamlIndentConstant                    = 2
)

var (
	// ErrExecutorNotConfigured indicates the builder has no executor provider.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

	outputFormats = []string{outputFormatTextConstant, outputFormatJSONConstant, outputFormatYAMLConstant}
)

// CommandExecutor runs a single command.
type CommandExecutor interface {
	Execute(executionContext context.Context, spec execshell.CommandSpec, options execshell.ExecutionOptions) (execshell.ExecutionResult, error)
}

// ExecutorProvider builds an executor passing uncaptured output through to the given writers.
type ExecutorProvider func(standardOutput io.Writer, standardError io.Writer) (CommandExecutor, error)

// Configuration supplies defaults for flags left unset.
type Configuration struct {
	Timeout time.Duration
}

// ConfigurationProvider returns the current exec configuration.
type ConfigurationProvider func() Configuration

// ExitStatusError reports a command that ran and exited non-zero without --check.
type ExitStatusError struct {
	Status int
}

// Error describes the exit status.
func (statusError ExitStatusError) Error() string {
	return fmt.Sprintf(exitStatusErrorTemplateConstant, statusError.Status)
}

// ExitCode is the status the CLI process should exit with.
func (statusError ExitStatusError) ExitCode() int {
	return statusError.Status
}

// CommandBuilder assembles the exec command.
type CommandBuilder struct {
	ExecutorProvider      ExecutorProvider
	ConfigurationProvider ConfigurationProvider
	HomeExpander          *pathutils.HomeExpander
}

type invocation struct {
	spec         execshell.CommandSpec
	options      execshell.ExecutionOptions
	outputFormat string
}

type executionReport struct {
	Command     string `json:"command" yaml:"command"`
	ExitCode    int    `json:"exit_code" yaml:"exit_code"`
	Output      string `json:"output" yaml:"output"`
	Launched    bool   `json:"launched" yaml:"launched"`
	LaunchError string `json:"launch_error,omitempty" yaml:"launch_error,omitempty"`
	StreamError string `json:"stream_error,omitempty" yaml:"stream_error,omitempty"`
	Duration    string `json:"duration" yaml:"duration"`
}

// Build constructs the exec command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.run,
	}

	command.Flags().Bool(flagShellNameConstant, false, flagShellUsageConstant)
	command.Flags().Bool(flagCaptureNameConstant, true, flagCaptureUsageConstant)
	command.Flags().Bool(flagShowWindowNameConstant, false, flagShowWindowUsageConstant)
	command.Flags().String(flagInputNameConstant, "", flagInputUsageConstant)
	command.Flags().Bool(flagStdinNameConstant, false, flagStdinUsageConstant)
	command.Flags().Duration(flagTimeoutNameConstant, 0, flagTimeoutUsageConstant)
	command.Flags().Bool(flagCheckNameConstant, false, flagCheckUsageConstant)
	command.Flags().String(flagDirectoryNameConstant, "", flagDirectoryUsageConstant)
	command.Flags().StringToString(flagEnvironmentNameConstant, nil, flagEnvironmentUsageConstant)
	command.Flags().String(flagOutputNameConstant, outputFormatTextConstant, flags.FormatChoiceUsage(outputFormatTextConstant, outputFormats, flagOutputUsageConstant))

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	parsedInvocation, parseError := builder.parseInvocation(command, arguments)
	if parseError != nil {
		return parseError
	}

	if builder.ExecutorProvider == nil {
		return ErrExecutorNotConfigured
	}
	executor, executorError := builder.ExecutorProvider(command.OutOrStdout(), command.ErrOrStderr())
	if executorError != nil {
		return executorError
	}

	result, executionError := executor.Execute(command.Context(), parsedInvocation.spec, parsedInvocation.options)
	if executionError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, executionError)
	}

	if renderError := renderResult(command.OutOrStdout(), parsedInvocation, result); renderError != nil {
		return fmt.Errorf(renderErrorTemplateConstant, renderError)
	}

	if result.ExitCode != 0 {
		return ExitStatusError{Status: result.ExitCode}
	}
	return nil
}

func (builder *CommandBuilder) parseInvocation(command *cobra.Command, arguments []string) (invocation, error) {
	commandFlags := command.Flags()

	outputValue, _ := commandFlags.GetString(flagOutputNameConstant)
	outputFormat, outputError := flags.ParseChoice(flagOutputNameConstant, outputValue, outputFormats)
	if outputError != nil {
		return invocation{}, outputError
	}

	useShell, _ := commandFlags.GetBool(flagShellNameConstant)
	captureOutput, _ := commandFlags.GetBool(flagCaptureNameConstant)
	showWindow, _ := commandFlags.GetBool(flagShowWindowNameConstant)
	checkStatus, _ := commandFlags.GetBool(flagCheckNameConstant)
	workingDirectory, _ := commandFlags.GetString(flagDirectoryNameConstant)
	environmentVariables, _ := commandFlags.GetStringToString(flagEnvironmentNameConstant)
	if len(environmentVariables) == 0 {
		environmentVariables = nil
	}

	timeout, _ := commandFlags.GetDuration(flagTimeoutNameConstant)
	if !commandFlags.Changed(flagTimeoutNameConstant) && builder.ConfigurationProvider != nil {
		timeout = builder.ConfigurationProvider().Timeout
	}

	options := execshell.ExecutionOptions{
		UseShell:             useShell,
		CaptureOutput:        captureOutput,
		ShowWindow:           showWindow,
		Timeout:              timeout,
		CheckStatus:          checkStatus,
		WorkingDirectory:     builder.HomeExpander.Expand(workingDirectory),
		EnvironmentVariables: environmentVariables,
	}
	if commandFlags.Changed(flagInputNameConstant) {
		inputValue, _ := commandFlags.GetString(flagInputNameConstant)
		options = options.WithInput(inputValue)
	}
	if forwardStandardInput, _ := commandFlags.GetBool(flagStdinNameConstant); forwardStandardInput {
		options.Stdin = command.InOrStdin()
	}

	spec := execshell.ArgumentVector(arguments...)
	if len(arguments) == 1 {
		spec = execshell.ShellLine(arguments[0])
	}

	return invocation{spec: spec, options: options, outputFormat: outputFormat}, nil
}

func renderResult(writer io.Writer, parsedInvocation invocation, result execshell.ExecutionResult) error {
	if parsedInvocation.outputFormat == outputFormatTextConstant {
		if len(result.Output) == 0 {
			return nil
		}
		_, writeError := fmt.Fprintln(writer, result.Output)
		return writeError
	}

	report := executionReport{
		Command:  parsedInvocation.spec.String(),
		ExitCode: result.ExitCode,
		Output:   result.Output,
		Launched: result.Launched(),
		Duration: result.Duration.String(),
	}
	if result.LaunchError != nil {
		report.LaunchError = result.LaunchError.Error()
	}
	if result.StreamError != nil {
		report.StreamError = result.StreamError.Error()
	}

	if parsedInvocation.outputFormat == outputFormatJSONConstant {
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", jsonIndentConstant)
		return encoder.Encode(report)
	}

	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(report); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}
