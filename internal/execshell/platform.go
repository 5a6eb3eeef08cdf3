package execshell

import (
	"os"
	"os/exec"
	"strings"
)

// ResolvedCommand is the canonical launch form produced from a CommandSpec.
type ResolvedCommand struct {
	Executable string
	Arguments  []string
	// CommandLine is the escaped single-string form used by platforms that launch from one string.
	CommandLine string
}

// String renders the resolved command.
func (resolved ResolvedCommand) String() string {
	if len(resolved.CommandLine) > 0 {
		return resolved.CommandLine
	}
	return strings.TrimSpace(strings.Join(append([]string{resolved.Executable}, resolved.Arguments...), argumentsJoinSeparatorConstant))
}

// Platform isolates operating system differences in quoting, console visibility, and termination.
// NewPlatform selects the implementation for the running system.
type Platform interface {
	// Name identifies the implementation.
	Name() string
	// ResolveCommand turns a CommandSpec into an executable and arguments.
	ResolveCommand(spec CommandSpec, useShell bool) (ResolvedCommand, error)
	// PrepareProcess attaches platform process attributes before start.
	PrepareProcess(process *exec.Cmd, resolved ResolvedCommand, showWindow bool)
	// TerminateProcess forcibly kills the process and, where supported, its children.
	TerminateProcess(process *os.Process) error
}

// NewPlatform returns the capabilities of the running operating system.
func NewPlatform() Platform {
	return newNativePlatform()
}

// resolveTokens returns the direct argument vector of a command.
func resolveTokens(spec CommandSpec) ([]string, error) {
	var tokens []string
	switch spec.Kind() {
	case CommandSpecKindShellLine:
		splitTokens, splitError := SplitCommandLine(spec.CommandLine())
		if splitError != nil {
			return nil, splitError
		}
		tokens = splitTokens
	case CommandSpecKindArgumentVector:
		tokens = spec.Arguments()
	}
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, ConfigurationError{Kind: ConfigurationErrorKindEmptyCommand, Message: emptyCommandMessageConstant}
	}
	return tokens, nil
}

// shellCommandLine returns the single line handed to the platform shell.
func shellCommandLine(spec CommandSpec, join func([]string) string) (string, error) {
	commandLine := ""
	switch spec.Kind() {
	case CommandSpecKindShellLine:
		commandLine = spec.CommandLine()
	case CommandSpecKindArgumentVector:
		commandLine = join(spec.Arguments())
	}
	if len(strings.TrimSpace(commandLine)) == 0 {
		return "", ConfigurationError{Kind: ConfigurationErrorKindEmptyCommand, Message: emptyCommandMessageConstant}
	}
	return commandLine, nil
}
