package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/temirov/caddybuild/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
	failureExitCodeConstant   = 1
)

type exitCoder interface {
	ExitCode() int
}

// main executes the caddybuild command-line application.
func main() {
	executionError := cli.Execute()
	if executionError == nil {
		return
	}

	fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
	var statusError exitCoder
	if errors.As(executionError, &statusError) && statusError.ExitCode() > 0 {
		os.Exit(statusError.ExitCode())
	}
	os.Exit(failureExitCodeConstant)
}
