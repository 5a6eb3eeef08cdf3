package execshell

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	argumentsJoinSeparatorConstant = " "
)

// CommandSpecKind distinguishes the two accepted command shapes.
type CommandSpecKind int

// CommandSpec kinds.
const (
	CommandSpecKindShellLine CommandSpecKind = iota + 1
	CommandSpecKindArgumentVector
)

// String returns a readable name for the kind.
func (kind CommandSpecKind) String() string {
	switch kind {
	case CommandSpecKindShellLine:
		return "shell_line"
	case CommandSpecKindArgumentVector:
		return "argument_vector"
	default:
		return "unknown"
	}
}

// CommandSpec describes the program to run either as one shell-syntax line or as an ordered argument vector.
// The zero value describes no command and is rejected by Executor.
type CommandSpec struct {
	kind      CommandSpecKind
	shellLine string
	arguments []string
}

// ShellLine builds a CommandSpec from a single shell-syntax command line.
func ShellLine(commandLine string) CommandSpec {
	return CommandSpec{kind: CommandSpecKindShellLine, shellLine: commandLine}
}

// ArgumentVector builds a CommandSpec from textual argument tokens.
func ArgumentVector(arguments ...string) CommandSpec {
	return CommandSpec{kind: CommandSpecKindArgumentVector, arguments: append([]string{}, arguments...)}
}

// NewArgumentVector builds a CommandSpec from loosely typed tokens.
// Every token must be textual: a string or a named type whose underlying kind is string
// (paths included). Any other token fails with an invalid-token ConfigurationError.
func NewArgumentVector(tokens ...any) (CommandSpec, error) {
	arguments := make([]string, 0, len(tokens))
	for tokenIndex, token := range tokens {
		argument, isTextual := coerceToken(token)
		if !isTextual {
			return CommandSpec{}, ConfigurationError{
				Kind:    ConfigurationErrorKindInvalidToken,
				Message: fmt.Sprintf(invalidTokenMessageTemplateConstant, tokenIndex, token),
			}
		}
		arguments = append(arguments, argument)
	}
	return CommandSpec{kind: CommandSpecKindArgumentVector, arguments: arguments}, nil
}

func coerceToken(token any) (string, bool) {
	if token == nil {
		return "", false
	}
	if textToken, isString := token.(string); isString {
		return textToken, true
	}
	tokenValue := reflect.ValueOf(token)
	if tokenValue.Kind() != reflect.String {
		return "", false
	}
	return tokenValue.String(), true
}

// Kind reports which shape the command takes.
func (spec CommandSpec) Kind() CommandSpecKind {
	return spec.kind
}

// IsZero reports whether the CommandSpec was never initialized.
func (spec CommandSpec) IsZero() bool {
	return spec.kind == 0
}

// CommandLine returns the shell line of a ShellLine command.
func (spec CommandSpec) CommandLine() string {
	return spec.shellLine
}

// Arguments returns a copy of the tokens of an ArgumentVector command.
func (spec CommandSpec) Arguments() []string {
	return append([]string{}, spec.arguments...)
}

// String renders the command for messages.
func (spec CommandSpec) String() string {
	if spec.kind == CommandSpecKindShellLine {
		return strings.TrimSpace(spec.shellLine)
	}
	return strings.Join(spec.arguments, argumentsJoinSeparatorConstant)
}
