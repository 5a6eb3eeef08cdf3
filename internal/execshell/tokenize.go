package execshell

import (
	"strings"

	shellquote "github.com/kballard/go-shellquote"
)

// SplitCommandLine tokenizes a POSIX shell-syntax line, keeping quoted substrings together.
func SplitCommandLine(commandLine string) ([]string, error) {
	tokens, splitError := shellquote.Split(commandLine)
	if splitError != nil {
		return nil, ConfigurationError{
			Kind:    ConfigurationErrorKindInvalidCommandLine,
			Message: strings.TrimSpace(commandLine),
			Cause:   splitError,
		}
	}
	return tokens, nil
}

// JoinArguments quotes tokens into one POSIX shell line that SplitCommandLine reverses.
func JoinArguments(arguments []string) string {
	return shellquote.Join(arguments...)
}
