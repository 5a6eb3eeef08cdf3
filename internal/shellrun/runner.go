package shellrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/temirov/caddybuild/internal/execshell"
	"github.com/temirov/caddybuild/internal/utils"
)

const (
	executorNotConfiguredMessageConstant = "command executor not configured"
	runningMarkerTemplateConstant        = "==> %s\n"
	failureMarkerTemplateConstant        = "!!! %s\n"
)

// ErrExecutorNotConfigured indicates the runner was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// CommandExecutor is the subset of execshell.Executor used by Runner.
type CommandExecutor interface {
	Execute(executionContext context.Context, spec execshell.CommandSpec, options execshell.ExecutionOptions) (execshell.ExecutionResult, error)
}

// Settings are applied to every command a Runner starts.
type Settings struct {
	Timeout              time.Duration
	WorkingDirectory     string
	EnvironmentVariables map[string]string
}

// Runner wraps an executor with the checked convenience call shapes.
type Runner struct {
	executor         CommandExecutor
	diagnosticWriter io.Writer
	settings         Settings
}

// NewRunner constructs a Runner writing diagnostic markers to diagnosticWriter.
// A nil writer discards markers.
func NewRunner(executor CommandExecutor, diagnosticWriter io.Writer, settings Settings) (*Runner, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if diagnosticWriter == nil {
		diagnosticWriter = io.Discard
	}
	return &Runner{
		executor:         executor,
		diagnosticWriter: utils.NewFlushingWriter(diagnosticWriter),
		settings:         settings,
	}, nil
}

// InDirectory returns a copy of the runner that starts commands in workingDirectory.
func (runner *Runner) InDirectory(workingDirectory string) *Runner {
	scopedRunner := *runner
	scopedRunner.settings.WorkingDirectory = workingDirectory
	return &scopedRunner
}

// ShellExec runs the command with its output passed through to the console and a checked status.
func (runner *Runner) ShellExec(executionContext context.Context, spec execshell.CommandSpec) error {
	runner.writeMarker(runningMarkerTemplateConstant, spec)
	_, executionError := runner.executor.Execute(executionContext, spec, runner.options(false))
	if executionError != nil {
		runner.writeMarker(failureMarkerTemplateConstant, executionError)
		return executionError
	}
	return nil
}

// RunCheckError runs the command with captured output and a checked status, returning the output.
func (runner *Runner) RunCheckError(executionContext context.Context, spec execshell.CommandSpec) (string, error) {
	result, executionError := runner.executor.Execute(executionContext, spec, runner.options(true))
	if executionError != nil {
		runner.writeMarker(failureMarkerTemplateConstant, executionError)
		return result.Output, executionError
	}
	return result.Output, nil
}

func (runner *Runner) options(captureOutput bool) execshell.ExecutionOptions {
	return execshell.ExecutionOptions{
		CaptureOutput:        captureOutput,
		CheckStatus:          true,
		Timeout:              runner.settings.Timeout,
		WorkingDirectory:     runner.settings.WorkingDirectory,
		EnvironmentVariables: runner.settings.EnvironmentVariables,
	}
}

func (runner *Runner) writeMarker(template string, value any) {
	fmt.Fprintf(runner.diagnosticWriter, template, value)
}
