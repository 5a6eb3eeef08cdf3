package release

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/caddybuild/internal/release"
	pathutils "github.com/temirov/caddybuild/internal/utils/path"
)

const (
	commandUseConstant                   = "release"
	commandShortDescriptionConstant      = "Build caddy and publish a tagged release"
	commandLongDescriptionConstant       = "release builds caddy with xcaddy, tags the repository with the next unused version tag, updates README.md, pushes, and exports NEW_TAG and FULL_VERSION to the CI environment file."
	runnerNotConfiguredMessageConstant   = "shell runner provider not configured"
	unexpectedArgumentsMessageConstant   = "release does not accept positional arguments"
	releaseFailedErrorTemplateConstant   = "release failed: %w"
	flagDryRunNameConstant               = "dry-run"
	flagDryRunUsageConstant              = "Resolve the version and tag but only print the build and publish commands"
	flagDryRunVersionNameConstant        = "dry-run-version"
	flagDryRunVersionUsageConstant       = "Version output assumed by --dry-run instead of querying the built binary"
	flagRepositoryNameConstant           = "repository"
	flagRepositoryUsageConstant          = "GitHub repository slug owner/name (defaults to $GITHUB_REPOSITORY)"
	flagRefNameConstant                  = "ref"
	flagRefUsageConstant                 = "Branch to rebase on and push (defaults to $GITHUB_REF_NAME)"
	flagRepositoryDirectoryNameConstant  = "repository-dir"
	flagRepositoryDirectoryUsageConstant = "Repository checkout receiving the README and tag (defaults to $REPO_PARENT)"
	flagBuildDirectoryNameConstant       = "build-dir"
	flagBuildDirectoryUsageConstant      = "Directory where caddy is built"
	flagPluginNameConstant               = "plugin"
	flagPluginUsageConstant              = "xcaddy --with module (repeatable, replaces configured plugins)"
	summaryTagTemplateConstant           = "tag: %s\n"
	summaryVersionTemplateConstant       = "version: %s\n"
	summaryDownloadTemplateConstant      = "download: %s\n"
	summaryPlannedTemplateConstant       = "planned: %s\n"
)

var (
	// ErrRunnerNotConfigured indicates the builder cannot create shell runners.
	ErrRunnerNotConfigured = errors.New(runnerNotConfiguredMessageConstant)

	errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// RunnerProvider creates a shell runner whose commands start in workingDirectory.
type RunnerProvider func(workingDirectory string) (release.ShellRunner, error)

// CommandBuilder assembles the release command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() release.Configuration
	RunnerProvider        RunnerProvider
	Exporter              release.EnvironmentExporter
	EnvironmentLookup     release.EnvironmentLookup
	HomeExpander          *pathutils.HomeExpander
}

// Build constructs the release command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.run,
	}

	command.Flags().Bool(flagDryRunNameConstant, false, flagDryRunUsageConstant)
	command.Flags().String(flagDryRunVersionNameConstant, "", flagDryRunVersionUsageConstant)
	command.Flags().String(flagRepositoryNameConstant, "", flagRepositoryUsageConstant)
	command.Flags().String(flagRefNameConstant, "", flagRefUsageConstant)
	command.Flags().String(flagRepositoryDirectoryNameConstant, "", flagRepositoryDirectoryUsageConstant)
	command.Flags().String(flagBuildDirectoryNameConstant, "", flagBuildDirectoryUsageConstant)
	command.Flags().StringSlice(flagPluginNameConstant, nil, flagPluginUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}
	if builder.RunnerProvider == nil {
		return ErrRunnerNotConfigured
	}

	configuration := builder.resolveConfiguration(command)

	buildRunner, buildRunnerError := builder.RunnerProvider(configuration.BuildDirectory)
	if buildRunnerError != nil {
		return buildRunnerError
	}
	repositoryRunner, repositoryRunnerError := builder.RunnerProvider(configuration.RepositoryDirectory)
	if repositoryRunnerError != nil {
		return repositoryRunnerError
	}

	exporter := builder.Exporter
	if exporter == nil {
		exporter = release.NewEnvironmentSink(configuration.EnvironmentFileVariable, builder.environmentLookup())
	}

	service, serviceError := release.NewService(release.Dependencies{
		BuildRunner:      buildRunner,
		RepositoryRunner: repositoryRunner,
		Exporter:         exporter,
		Logger:           builder.resolveLogger(),
	})
	if serviceError != nil {
		return serviceError
	}

	outcome, buildError := service.Build(command.Context(), configuration)
	if buildError != nil {
		return fmt.Errorf(releaseFailedErrorTemplateConstant, buildError)
	}

	return writeSummary(command.OutOrStdout(), outcome)
}

func (builder *CommandBuilder) resolveConfiguration(command *cobra.Command) release.Configuration {
	configuration := release.DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	commandFlags := command.Flags()
	if commandFlags.Changed(flagDryRunNameConstant) {
		configuration.DryRun, _ = commandFlags.GetBool(flagDryRunNameConstant)
	}
	overrideString(command, flagDryRunVersionNameConstant, &configuration.DryRunVersion)
	overrideString(command, flagRepositoryNameConstant, &configuration.Repository)
	overrideString(command, flagRefNameConstant, &configuration.RefName)
	overrideString(command, flagRepositoryDirectoryNameConstant, &configuration.RepositoryDirectory)
	overrideString(command, flagBuildDirectoryNameConstant, &configuration.BuildDirectory)
	if commandFlags.Changed(flagPluginNameConstant) {
		configuration.Plugins, _ = commandFlags.GetStringSlice(flagPluginNameConstant)
	}

	configuration = configuration.WithEnvironmentFallbacks(builder.environmentLookup())
	configuration.BuildDirectory = builder.HomeExpander.Expand(configuration.BuildDirectory)
	configuration.RepositoryDirectory = builder.HomeExpander.Expand(configuration.RepositoryDirectory)
	return configuration
}

func (builder *CommandBuilder) environmentLookup() release.EnvironmentLookup {
	if builder.EnvironmentLookup != nil {
		return builder.EnvironmentLookup
	}
	return os.LookupEnv
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	if logger := builder.LoggerProvider(); logger != nil {
		return logger
	}
	return zap.NewNop()
}

func overrideString(command *cobra.Command, flagName string, target *string) {
	if !command.Flags().Changed(flagName) {
		return
	}
	value, _ := command.Flags().GetString(flagName)
	*target = strings.TrimSpace(value)
}

func writeSummary(writer io.Writer, outcome release.Outcome) error {
	var summary strings.Builder
	fmt.Fprintf(&summary, summaryTagTemplateConstant, outcome.Tag)
	fmt.Fprintf(&summary, summaryVersionTemplateConstant, outcome.Version.Full)
	fmt.Fprintf(&summary, summaryDownloadTemplateConstant, outcome.DownloadURL)
	for _, plannedStep := range outcome.PlannedSteps {
		fmt.Fprintf(&summary, summaryPlannedTemplateConstant, plannedStep.Describe())
	}
	_, writeError := io.WriteString(writer, summary.String())
	return writeError
}
