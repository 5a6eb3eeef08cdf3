package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/caddybuild/internal/execshell"
)

const (
	buildRunnerNotConfiguredMessageConstant      = "build runner not configured"
	repositoryRunnerNotConfiguredMessageConstant = "repository runner not configured"
	environmentExporterNotConfiguredMessage      = "environment exporter not configured"
	stepFailedErrorTemplateConstant              = "release step %q failed: %w"
	readmeWriteErrorTemplateConstant             = "unable to write %s: %w"
	readmeFilePermissionsConstant                = 0o644
	newTagEnvironmentNameConstant                = "NEW_TAG"
	fullVersionEnvironmentNameConstant           = "FULL_VERSION"
	releaseStepMessageConstant                   = "release step"
	releaseStepPlannedMessageConstant            = "release step planned"
	releaseTagGeneratedMessageConstant           = "release tag generated"
	releaseCompletedMessageConstant              = "release completed"
	logFieldStepConstant                         = "step"
	logFieldCommandConstant                      = "command"
	logFieldTagConstant                          = "tag"
	logFieldDownloadURLConstant                  = "download_url"
	logFieldDryRunConstant                       = "dry_run"
	xcaddyExecutableConstant                     = "xcaddy"
	xcaddyPluginFlagConstant                     = "--with"
	versionStepNameConstant                      = "resolve version"
	dryRunVersionPlaceholderConstant             = "vX.Y.Z"
)

var (
	// ErrBuildRunnerNotConfigured indicates the service has no runner for the build directory.
	ErrBuildRunnerNotConfigured = errors.New(buildRunnerNotConfiguredMessageConstant)
	// ErrRepositoryRunnerNotConfigured indicates the service has no runner for the repository directory.
	ErrRepositoryRunnerNotConfigured = errors.New(repositoryRunnerNotConfiguredMessageConstant)
	// ErrEnvironmentExporterNotConfigured indicates the service cannot export results.
	ErrEnvironmentExporterNotConfigured = errors.New(environmentExporterNotConfiguredMessage)
)

// ShellRunner runs commands with checked status, either streaming or capturing output.
type ShellRunner interface {
	CheckedRunner
	ShellExec(executionContext context.Context, spec execshell.CommandSpec) error
}

// EnvironmentExporter publishes a value to later CI steps.
type EnvironmentExporter interface {
	Export(name string, value string) error
}

// Dependencies are the collaborators of Service. BuildRunner runs in the build directory and
// RepositoryRunner in the repository directory.
type Dependencies struct {
	BuildRunner      ShellRunner
	RepositoryRunner ShellRunner
	Exporter         EnvironmentExporter
	Logger           *zap.Logger
}

// Step is one named command of a release.
type Step struct {
	Name    string
	Command execshell.CommandSpec
}

// Describe renders the command as it would be typed in a POSIX shell.
func (step Step) Describe() string {
	if step.Command.Kind() == execshell.CommandSpecKindArgumentVector {
		return execshell.JoinArguments(step.Command.Arguments())
	}
	return step.Command.CommandLine()
}

// Outcome summarizes a release run.
type Outcome struct {
	Version       Version
	Tag           string
	DownloadURL   string
	Readme        string
	ExecutedSteps []Step
	PlannedSteps  []Step
}

// Service orchestrates a release.
type Service struct {
	dependencies Dependencies
	logger       *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.BuildRunner == nil {
		return nil, ErrBuildRunnerNotConfigured
	}
	if dependencies.RepositoryRunner == nil {
		return nil, ErrRepositoryRunnerNotConfigured
	}
	if dependencies.Exporter == nil {
		return nil, ErrEnvironmentExporterNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{dependencies: dependencies, logger: logger}, nil
}

// BuildSteps lists the commands producing the binary.
func BuildSteps(configuration Configuration) []Step {
	buildArguments := []string{xcaddyExecutableConstant, "build"}
	for _, plugin := range configuration.Plugins {
		buildArguments = append(buildArguments, xcaddyPluginFlagConstant, plugin)
	}
	return []Step{
		{Name: "install xcaddy", Command: execshell.ArgumentVector("go", "install", configuration.XcaddyModule)},
		{Name: "build caddy", Command: execshell.ArgumentVector(buildArguments...)},
		{Name: "mark executable", Command: execshell.ArgumentVector("chmod", "+x", configuration.BinaryPath)},
	}
}

// PublishSteps lists the git commands publishing the README commit and tag.
func PublishSteps(configuration Configuration, tag string) []Step {
	return []Step{
		{Name: "configure git email", Command: execshell.ArgumentVector("git", "config", "user.email", configuration.GitUserEmail)},
		{Name: "configure git name", Command: execshell.ArgumentVector("git", "config", "user.name", configuration.GitUserName)},
		{Name: "stage readme", Command: execshell.ArgumentVector("git", "add", configuration.ReadmePath)},
		{Name: "commit readme", Command: execshell.ArgumentVector("git", "commit", "-m", configuration.CommitMessage)},
		{Name: "rebase on remote", Command: execshell.ArgumentVector("git", "pull", "--rebase", configuration.RemoteName, configuration.RefName)},
		{Name: "push branch", Command: execshell.ArgumentVector("git", "push", configuration.RemoteName, configuration.RefName)},
		{Name: "create tag", Command: execshell.ArgumentVector("git", "tag", tag)},
		{Name: "push tag", Command: execshell.ArgumentVector("git", "push", configuration.RemoteName, tag)},
	}
}

// Build runs the release. In dry-run mode the tag list is still queried, while build steps,
// git steps, the README write and the exports are only recorded as planned. A dry run queries
// the version only when the binary is already built and no DryRunVersion is configured;
// otherwise the version command is planned and DryRunVersion, or a placeholder, is used.
func (service *Service) Build(executionContext context.Context, configuration Configuration) (Outcome, error) {
	if validationError := configuration.Validate(); validationError != nil {
		return Outcome{}, validationError
	}

	readmeRenderer, rendererError := NewReadmeRenderer(configuration.ReadmeTemplate)
	if rendererError != nil {
		return Outcome{}, rendererError
	}

	outcome := Outcome{}
	if stepsError := service.runSteps(executionContext, service.dependencies.BuildRunner, BuildSteps(configuration), configuration.DryRun, &outcome); stepsError != nil {
		return outcome, stepsError
	}

	version, versionError := service.resolveVersion(executionContext, configuration, &outcome)
	if versionError != nil {
		return outcome, versionError
	}
	outcome.Version = version

	tagLister, listerError := NewTagLister(service.dependencies.RepositoryRunner)
	if listerError != nil {
		return outcome, listerError
	}
	existingTags, listError := tagLister.List(executionContext)
	if listError != nil {
		return outcome, listError
	}

	outcome.Tag = NextTag(version.Short, existingTags)
	outcome.DownloadURL = DownloadURL(configuration.Repository, outcome.Tag, configuration.BinaryPath)
	service.logger.Info(
		releaseTagGeneratedMessageConstant,
		zap.String(logFieldTagConstant, outcome.Tag),
		zap.String(logFieldDownloadURLConstant, outcome.DownloadURL),
	)

	readme, renderError := readmeRenderer.Render(ReadmeData{
		Tag:          outcome.Tag,
		DownloadURL:  outcome.DownloadURL,
		FullVersion:  version.Full,
		ShortVersion: version.Short,
		Repository:   configuration.Repository,
	})
	if renderError != nil {
		return outcome, renderError
	}
	outcome.Readme = readme

	if !configuration.DryRun {
		readmePath := configuration.ReadmePath
		if !filepath.IsAbs(readmePath) {
			readmePath = filepath.Join(configuration.RepositoryDirectory, readmePath)
		}
		if writeError := os.WriteFile(readmePath, []byte(readme), readmeFilePermissionsConstant); writeError != nil {
			return outcome, fmt.Errorf(readmeWriteErrorTemplateConstant, readmePath, writeError)
		}
	}

	if stepsError := service.runSteps(executionContext, service.dependencies.RepositoryRunner, PublishSteps(configuration, outcome.Tag), configuration.DryRun, &outcome); stepsError != nil {
		return outcome, stepsError
	}

	if !configuration.DryRun {
		if exportError := service.dependencies.Exporter.Export(newTagEnvironmentNameConstant, outcome.Tag); exportError != nil {
			return outcome, exportError
		}
		if exportError := service.dependencies.Exporter.Export(fullVersionEnvironmentNameConstant, version.Full); exportError != nil {
			return outcome, exportError
		}
	}

	service.logger.Info(
		releaseCompletedMessageConstant,
		zap.String(logFieldTagConstant, outcome.Tag),
		zap.Bool(logFieldDryRunConstant, configuration.DryRun),
	)
	return outcome, nil
}

func (service *Service) resolveVersion(executionContext context.Context, configuration Configuration, outcome *Outcome) (Version, error) {
	versionCommand := execshell.ShellLine(configuration.VersionCommand)
	configuredVersion := strings.TrimSpace(configuration.DryRunVersion)
	if configuration.DryRun && (len(configuredVersion) > 0 || !binaryExists(configuration)) {
		versionStep := Step{Name: versionStepNameConstant, Command: versionCommand}
		if stepsError := service.runSteps(executionContext, service.dependencies.BuildRunner, []Step{versionStep}, true, outcome); stepsError != nil {
			return Version{}, stepsError
		}
		if len(configuredVersion) == 0 {
			configuredVersion = dryRunVersionPlaceholderConstant
		}
		return ParseVersion(configuredVersion)
	}

	versionResolver, resolverError := NewVersionResolver(service.dependencies.BuildRunner, versionCommand, service.logger)
	if resolverError != nil {
		return Version{}, resolverError
	}
	return versionResolver.Resolve(executionContext)
}

func binaryExists(configuration Configuration) bool {
	binaryPath := configuration.BinaryPath
	if !filepath.IsAbs(binaryPath) {
		binaryPath = filepath.Join(configuration.BuildDirectory, binaryPath)
	}
	fileInfo, statError := os.Stat(binaryPath)
	return statError == nil && !fileInfo.IsDir()
}

func (service *Service) runSteps(executionContext context.Context, runner ShellRunner, steps []Step, dryRun bool, outcome *Outcome) error {
	for _, step := range steps {
		if dryRun {
			service.logger.Info(releaseStepPlannedMessageConstant, zap.String(logFieldStepConstant, step.Name), zap.String(logFieldCommandConstant, step.Describe()))
			outcome.PlannedSteps = append(outcome.PlannedSteps, step)
			continue
		}

		service.logger.Debug(releaseStepMessageConstant, zap.String(logFieldStepConstant, step.Name), zap.String(logFieldCommandConstant, step.Describe()))
		if executionError := runner.ShellExec(executionContext, step.Command); executionError != nil {
			return fmt.Errorf(stepFailedErrorTemplateConstant, step.Name, executionError)
		}
		outcome.ExecutedSteps = append(outcome.ExecutedSteps, step)
	}
	return nil
}
