package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/caddybuild/cmd/cli/execute"
	releasecmd "github.com/temirov/caddybuild/cmd/cli/release"
	"github.com/temirov/caddybuild/internal/execshell"
	"github.com/temirov/caddybuild/internal/release"
	"github.com/temirov/caddybuild/internal/shellrun"
	"github.com/temirov/caddybuild/internal/ui"
	"github.com/temirov/caddybuild/internal/utils"
	"github.com/temirov/caddybuild/internal/utils/flags"
	pathutils "github.com/temirov/caddybuild/internal/utils/path"
)

const (
	applicationNameConstant                 = "caddybuild"
	applicationShortDescriptionConstant     = "Build and release caddy through a checked command executor"
	applicationLongDescriptionConstant      = "caddybuild runs external commands with shell tokenization, merged output capture, legacy encoding fallback and timeouts, and uses them to build and publish caddy releases."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format."
	commonLogLevelConfigKeyConstant         = "common.log_level"
	commonLogFormatConfigKeyConstant        = "common.log_format"
	executorTimeoutConfigKeyConstant        = "executor.timeout"
	executorEncodingsConfigKeyConstant      = "executor.fallback_encodings"
	releaseConfigurationKeyConstant         = "release"
	defaultFallbackEncodingConstant         = "gbk"
	environmentPrefixConstant               = "CADDYBUILD"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationDirectoryNameConstant  = "caddybuild"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	encodingResolutionErrorTemplateConstant = "unable to resolve fallback encodings: %w"
)

// ApplicationConfiguration describes the persisted configuration for the CLI.
type ApplicationConfiguration struct {
	Common   ApplicationCommonConfiguration   `mapstructure:"common"`
	Executor ApplicationExecutorConfiguration `mapstructure:"executor"`
	Release  release.Configuration            `mapstructure:"release"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationExecutorConfiguration configures every executor the CLI constructs.
type ApplicationExecutorConfiguration struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	FallbackEncodings []string      `mapstructure:"fallback_encodings"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	homeExpander          *pathutils.HomeExpander
	diagnosticWriter      io.Writer
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		configurationSearchPaths(),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
		homeExpander:        pathutils.NewHomeExpander(),
		diagnosticWriter:    os.Stderr,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(
		&application.logFormatFlagValue,
		logFormatFlagNameConstant,
		"",
		flags.FormatChoiceUsage(string(utils.LogFormatConsole), utils.LogFormats(), logFormatFlagUsageConstant),
	)

	executeBuilder := execute.CommandBuilder{
		ExecutorProvider: func(standardOutput io.Writer, standardError io.Writer) (execute.CommandExecutor, error) {
			return application.newExecutor(standardOutput, standardError)
		},
		ConfigurationProvider: func() execute.Configuration {
			return execute.Configuration{Timeout: application.configuration.Executor.Timeout}
		},
		HomeExpander: application.homeExpander,
	}
	if executeCommand, executeBuildError := executeBuilder.Build(); executeBuildError == nil {
		cobraCommand.AddCommand(executeCommand)
	}

	releaseBuilder := releasecmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() release.Configuration {
			return application.configuration.Release
		},
		RunnerProvider: application.newShellRunner,
		HomeExpander:   application.homeExpander,
	}
	if releaseCommand, releaseBuildError := releaseBuilder.Build(); releaseBuildError == nil {
		cobraCommand.AddCommand(releaseCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	return application.ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the provided context; cancelling it kills running processes.
func (application *Application) ExecuteContext(executionContext context.Context) error {
	executionError := application.rootCommand.ExecuteContext(executionContext)
	if syncError := application.syncLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
// Interrupt and termination signals cancel the context so child process groups are killed.
func Execute() error {
	signalContext, stopSignals := newSignalContext(context.Background())
	defer stopSignals()
	return NewApplication().ExecuteContext(signalContext)
}

func newSignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, lookupError := os.UserConfigDir(); lookupError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, userConfigurationDirectoryNameConstant))
	}
	return searchPaths
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:    string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:   string(utils.LogFormatConsole),
		executorTimeoutConfigKeyConstant:   time.Duration(0).String(),
		executorEncodingsConfigKeyConstant: []string{defaultFallbackEncodingConstant},
	}
	for configurationKey, configurationValue := range release.DefaultConfigurationValues(releaseConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	configurationFilePath := application.homeExpander.Expand(application.configurationFilePath)
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	if persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) commandEventObserver() execshell.CommandEventObserver {
	if application.humanReadableLoggingEnabled() {
		return ui.NewConsoleCommandEventLogger(application.logger)
	}
	return ui.NewStructuredCommandEventLogger(application.logger)
}

func (application *Application) newExecutor(standardOutput io.Writer, standardError io.Writer) (*execshell.Executor, error) {
	fallbackEncodings, resolutionError := execshell.ResolveEncodings(application.configuration.Executor.FallbackEncodings)
	if resolutionError != nil {
		return nil, fmt.Errorf(encodingResolutionErrorTemplateConstant, resolutionError)
	}

	return execshell.NewOSExecutor(
		execshell.WithOutputDecoder(execshell.NewOutputDecoder(fallbackEncodings...)),
		execshell.WithEventObserver(application.commandEventObserver()),
		execshell.WithPassthroughWriters(standardOutput, standardError),
	)
}

func (application *Application) newShellRunner(workingDirectory string) (release.ShellRunner, error) {
	executor, executorError := application.newExecutor(os.Stdout, os.Stderr)
	if executorError != nil {
		return nil, executorError
	}
	return shellrun.NewRunner(executor, application.diagnosticWriter, shellrun.Settings{
		Timeout:          application.configuration.Executor.Timeout,
		WorkingDirectory: workingDirectory,
	})
}

func (application *Application) syncLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP), errors.Is(syncError, syscall.EINVAL), errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{command.PersistentFlags(), command.InheritedFlags()}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}
