package execshell

import (
	"fmt"
	"io"
	"time"
)

// ExecutionOptions configures a single Executor.Execute call.
type ExecutionOptions struct {
	// UseShell interprets the command through the platform shell instead of launching it directly.
	UseShell bool
	// CaptureOutput merges standard output and standard error into the returned text.
	// When false both streams pass through to the console and the returned text is empty.
	CaptureOutput bool
	// ShowWindow keeps the console window visible on platforms that have one.
	ShowWindow bool
	// StandardInput is written to the process. A nil slice means no input was provided.
	StandardInput []byte
	// Stdin is an already-configured standard input redirection. It conflicts with StandardInput.
	Stdin io.Reader
	// Timeout bounds the wait; zero waits indefinitely.
	Timeout time.Duration
	// CheckStatus turns non-zero exits and launch failures into errors.
	CheckStatus bool
	// WorkingDirectory runs the process in the given directory when non-empty.
	WorkingDirectory string
	// EnvironmentVariables are appended to the inherited environment.
	EnvironmentVariables map[string]string
}

// WithInput returns a copy of the options carrying the given text as standard input.
func (options ExecutionOptions) WithInput(input string) ExecutionOptions {
	options.StandardInput = []byte(input)
	return options
}

func (options ExecutionOptions) validate() error {
	if options.StandardInput != nil && options.Stdin != nil {
		return ConfigurationError{Kind: ConfigurationErrorKindConflictingInput, Message: conflictingInputMessageConstant}
	}
	if options.Timeout < 0 {
		return ConfigurationError{Kind: ConfigurationErrorKindInvalidTimeout, Message: fmt.Sprintf(negativeTimeoutMessageTemplateConstant, options.Timeout)}
	}
	return nil
}
