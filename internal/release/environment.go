package release

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	environmentFileNotConfiguredTemplateConstant = "environment file variable %s is not set"
	environmentExportErrorTemplateConstant       = "unable to export %s: %w"
	environmentAssignmentTemplateConstant        = "%s=%s\n"
	invalidEnvironmentValueTemplateConstant      = "value for %s contains a line break"
	environmentFilePermissionsConstant           = 0o644
)

// ErrEnvironmentFileNotConfigured indicates the variable naming the environment file is unset.
var ErrEnvironmentFileNotConfigured = errors.New("environment file not configured")

// EnvironmentSink appends NAME=value lines to the file named by a CI variable such as GITHUB_ENV,
// making the values available to later workflow steps.
type EnvironmentSink struct {
	variableName string
	lookup       EnvironmentLookup
	mutex        sync.Mutex
}

// NewEnvironmentSink constructs a sink resolving the file through lookup on every export.
func NewEnvironmentSink(variableName string, lookup EnvironmentLookup) *EnvironmentSink {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &EnvironmentSink{variableName: variableName, lookup: lookup}
}

// Export appends name=value to the environment file.
func (sink *EnvironmentSink) Export(name string, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf(environmentExportErrorTemplateConstant, name, fmt.Errorf(invalidEnvironmentValueTemplateConstant, name))
	}

	filePath, exists := sink.lookup(sink.variableName)
	if !exists || len(strings.TrimSpace(filePath)) == 0 {
		return fmt.Errorf(environmentExportErrorTemplateConstant, name, fmt.Errorf("%w: "+environmentFileNotConfiguredTemplateConstant, ErrEnvironmentFileNotConfigured, sink.variableName))
	}

	sink.mutex.Lock()
	defer sink.mutex.Unlock()

	environmentFile, openError := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, environmentFilePermissionsConstant)
	if openError != nil {
		return fmt.Errorf(environmentExportErrorTemplateConstant, name, openError)
	}

	_, writeError := fmt.Fprintf(environmentFile, environmentAssignmentTemplateConstant, name, value)
	closeError := environmentFile.Close()
	if exportError := errors.Join(writeError, closeError); exportError != nil {
		return fmt.Errorf(environmentExportErrorTemplateConstant, name, exportError)
	}
	return nil
}
