package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/temirov/caddybuild/internal/execshell"
)

const (
	runnerNotConfiguredMessageConstant  = "shell runner not configured"
	emptyVersionOutputMessageConstant   = "version command produced no output"
	versionCommandErrorTemplateConstant = "unable to read caddy version: %w"
	nonSemanticVersionMessageConstant   = "caddy version is not a semantic version"
	versionResolvedMessageConstant      = "caddy version resolved"
	logFieldFullVersionConstant         = "full_version"
	logFieldShortVersionConstant        = "short_version"
)

var (
	// ErrRunnerNotConfigured indicates a release component was constructed without a shell runner.
	ErrRunnerNotConfigured = errors.New(runnerNotConfiguredMessageConstant)
	// ErrEmptyVersionOutput indicates the version command succeeded but printed nothing.
	ErrEmptyVersionOutput = errors.New(emptyVersionOutputMessageConstant)
)

// CheckedRunner runs a command with captured output and a checked exit status.
type CheckedRunner interface {
	RunCheckError(executionContext context.Context, spec execshell.CommandSpec) (string, error)
}

// Version is the version reported by a built binary.
type Version struct {
	// Full is the trimmed output, e.g. "v2.8.4 h1:q3pe0wpBj1OcHFZ3n/1nl4V4bxBrYoSoab7rL9BMYNk=".
	Full string
	// Short is the first whitespace-delimited token of Full, e.g. "v2.8.4".
	Short string
}

// VersionResolver asks the built binary for its version.
type VersionResolver struct {
	runner         CheckedRunner
	versionCommand execshell.CommandSpec
	logger         *zap.Logger
}

// NewVersionResolver constructs a resolver running versionCommand.
func NewVersionResolver(runner CheckedRunner, versionCommand execshell.CommandSpec, logger *zap.Logger) (*VersionResolver, error) {
	if runner == nil {
		return nil, ErrRunnerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionResolver{runner: runner, versionCommand: versionCommand, logger: logger}, nil
}

// Resolve runs the version command and parses its output.
func (resolver *VersionResolver) Resolve(executionContext context.Context) (Version, error) {
	output, runError := resolver.runner.RunCheckError(executionContext, resolver.versionCommand)
	if runError != nil {
		return Version{}, fmt.Errorf(versionCommandErrorTemplateConstant, runError)
	}

	version, parseError := ParseVersion(output)
	if parseError != nil {
		return Version{}, parseError
	}

	if !semver.IsValid(version.Short) {
		resolver.logger.Warn(nonSemanticVersionMessageConstant, zap.String(logFieldShortVersionConstant, version.Short))
	}
	resolver.logger.Info(
		versionResolvedMessageConstant,
		zap.String(logFieldFullVersionConstant, version.Full),
		zap.String(logFieldShortVersionConstant, version.Short),
	)
	return version, nil
}

// ParseVersion splits version command output into its full and short forms.
func ParseVersion(output string) (Version, error) {
	fullVersion := strings.TrimSpace(output)
	fields := strings.Fields(fullVersion)
	if len(fields) == 0 {
		return Version{}, ErrEmptyVersionOutput
	}
	return Version{Full: fullVersion, Short: fields[0]}, nil
}
