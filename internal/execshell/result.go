package execshell

import "time"

// LaunchFailureExitCode is reported when a launch failure is downgraded to a result.
const LaunchFailureExitCode = 2

// ExecutionResult captures the decoded output and exit status of one execution.
type ExecutionResult struct {
	// Output holds the merged, decoded output with at most one trailing newline removed.
	Output string
	// ExitCode is the operating system status, or LaunchFailureExitCode when the process never ran.
	ExitCode int
	// LaunchError is set only when a launch failure was downgraded because CheckStatus was false.
	LaunchError error
	// Duration is the wall time between start and exit.
	Duration time.Duration
	// StreamError is set when the process ran but its output could not be delivered,
	// for example when a passthrough writer failed. ExitCode still holds the real status.
	StreamError error
}

// Launched reports whether the process actually ran.
func (result ExecutionResult) Launched() bool {
	return result.LaunchError == nil
}

// ShellCommand identifies one execution for observers and errors.
type ShellCommand struct {
	ExecutionID      string
	Spec             CommandSpec
	Resolved         ResolvedCommand
	WorkingDirectory string
}

// Label renders the command the way it was requested.
func (command ShellCommand) Label() string {
	if label := command.Spec.String(); len(label) > 0 {
		return label
	}
	return command.Resolved.String()
}
