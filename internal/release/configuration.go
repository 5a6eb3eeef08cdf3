package release

import (
	"fmt"
	"strings"
)

const (
	defaultBuildDirectoryConstant          = "."
	defaultRepositoryDirectoryConstant     = "."
	defaultRemoteNameConstant              = "origin"
	defaultXcaddyModuleConstant            = "github.com/caddyserver/xcaddy/cmd/xcaddy@latest"
	defaultForwardProxyPluginConstant      = "github.com/caddyserver/forwardproxy=github.com/klzgrad/forwardproxy@naive"
	defaultBinaryPathConstant              = "./caddy"
	defaultVersionCommandConstant          = "./caddy version"
	defaultReadmePathConstant              = "README.md"
	defaultReadmeTemplateConstant          = "# naiveproxy-server-build\n### caddy latest build: [{{.Tag}}]({{.DownloadURL}})"
	defaultCommitMessageConstant           = "Update README.md"
	defaultGitUserNameConstant             = "github-actions[bot]"
	defaultGitUserEmailConstant            = "41898282+github-actions[bot]@users.noreply.github.com"
	defaultEnvironmentFileVariableConstant = "GITHUB_ENV"
	repositoryEnvironmentVariableConstant  = "GITHUB_REPOSITORY"
	refNameEnvironmentVariableConstant     = "GITHUB_REF_NAME"
	repositoryDirectoryVariableConstant    = "REPO_PARENT"
	configurationKeyTemplateConstant       = "%s.%s"
	missingSettingErrorTemplateConstant    = "release setting %q is required"
)

// Configuration describes one release run. DryRunVersion stands in for the version
// command output during a dry run.
type Configuration struct {
	BuildDirectory          string   `mapstructure:"build_directory"`
	RepositoryDirectory     string   `mapstructure:"repository_directory"`
	Repository              string   `mapstructure:"repository"`
	RefName                 string   `mapstructure:"ref_name"`
	RemoteName              string   `mapstructure:"remote"`
	XcaddyModule            string   `mapstructure:"xcaddy_module"`
	Plugins                 []string `mapstructure:"plugins"`
	BinaryPath              string   `mapstructure:"binary"`
	VersionCommand          string   `mapstructure:"version_command"`
	ReadmePath              string   `mapstructure:"readme_path"`
	ReadmeTemplate          string   `mapstructure:"readme_template"`
	CommitMessage           string   `mapstructure:"commit_message"`
	GitUserName             string   `mapstructure:"git_user_name"`
	GitUserEmail            string   `mapstructure:"git_user_email"`
	EnvironmentFileVariable string   `mapstructure:"environment_file_variable"`
	DryRun                  bool     `mapstructure:"dry_run"`
	DryRunVersion           string   `mapstructure:"dry_run_version"`
}

// MissingSettingError reports a required setting left empty after environment fallbacks.
type MissingSettingError struct {
	Setting string
}

// Error names the missing setting.
func (settingError MissingSettingError) Error() string {
	return fmt.Sprintf(missingSettingErrorTemplateConstant, settingError.Setting)
}

// DefaultConfiguration returns the configuration used when nothing is overridden.
func DefaultConfiguration() Configuration {
	return Configuration{
		BuildDirectory:          defaultBuildDirectoryConstant,
		RepositoryDirectory:     defaultRepositoryDirectoryConstant,
		RemoteName:              defaultRemoteNameConstant,
		XcaddyModule:            defaultXcaddyModuleConstant,
		Plugins:                 []string{defaultForwardProxyPluginConstant},
		BinaryPath:              defaultBinaryPathConstant,
		VersionCommand:          defaultVersionCommandConstant,
		ReadmePath:              defaultReadmePathConstant,
		ReadmeTemplate:          defaultReadmeTemplateConstant,
		CommitMessage:           defaultCommitMessageConstant,
		GitUserName:             defaultGitUserNameConstant,
		GitUserEmail:            defaultGitUserEmailConstant,
		EnvironmentFileVariable: defaultEnvironmentFileVariableConstant,
	}
}

// DefaultConfigurationValues exposes DefaultConfiguration as viper defaults under prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	key := func(name string) string {
		return fmt.Sprintf(configurationKeyTemplateConstant, prefix, name)
	}
	return map[string]any{
		key("build_directory"):           defaults.BuildDirectory,
		key("repository_directory"):      defaults.RepositoryDirectory,
		key("repository"):                defaults.Repository,
		key("ref_name"):                  defaults.RefName,
		key("remote"):                    defaults.RemoteName,
		key("xcaddy_module"):             defaults.XcaddyModule,
		key("plugins"):                   defaults.Plugins,
		key("binary"):                    defaults.BinaryPath,
		key("version_command"):           defaults.VersionCommand,
		key("readme_path"):               defaults.ReadmePath,
		key("readme_template"):           defaults.ReadmeTemplate,
		key("commit_message"):            defaults.CommitMessage,
		key("git_user_name"):             defaults.GitUserName,
		key("git_user_email"):            defaults.GitUserEmail,
		key("environment_file_variable"): defaults.EnvironmentFileVariable,
		key("dry_run"):                   defaults.DryRun,
		key("dry_run_version"):           defaults.DryRunVersion,
	}
}

// EnvironmentLookup mirrors os.LookupEnv.
type EnvironmentLookup func(name string) (string, bool)

// WithEnvironmentFallbacks fills the repository slug, ref name and repository directory from
// the CI variables GITHUB_REPOSITORY, GITHUB_REF_NAME and REPO_PARENT when they are not configured.
func (configuration Configuration) WithEnvironmentFallbacks(lookup EnvironmentLookup) Configuration {
	if lookup == nil {
		return configuration
	}
	fillFromEnvironment(&configuration.Repository, lookup, repositoryEnvironmentVariableConstant)
	fillFromEnvironment(&configuration.RefName, lookup, refNameEnvironmentVariableConstant)
	if value, exists := lookup(repositoryDirectoryVariableConstant); exists && len(strings.TrimSpace(value)) > 0 {
		if len(strings.TrimSpace(configuration.RepositoryDirectory)) == 0 || configuration.RepositoryDirectory == defaultRepositoryDirectoryConstant {
			configuration.RepositoryDirectory = strings.TrimSpace(value)
		}
	}
	return configuration
}

// Validate reports the first required setting that is empty.
func (configuration Configuration) Validate() error {
	requiredSettings := []struct {
		name  string
		value string
	}{
		{name: "repository", value: configuration.Repository},
		{name: "ref_name", value: configuration.RefName},
		{name: "remote", value: configuration.RemoteName},
		{name: "binary", value: configuration.BinaryPath},
		{name: "version_command", value: configuration.VersionCommand},
		{name: "readme_path", value: configuration.ReadmePath},
		{name: "readme_template", value: configuration.ReadmeTemplate},
	}
	for _, requiredSetting := range requiredSettings {
		if len(strings.TrimSpace(requiredSetting.value)) == 0 {
			return MissingSettingError{Setting: requiredSetting.name}
		}
	}
	return nil
}

func fillFromEnvironment(target *string, lookup EnvironmentLookup, variableName string) {
	if len(strings.TrimSpace(*target)) > 0 {
		return
	}
	if value, exists := lookup(variableName); exists {
		*target = strings.TrimSpace(value)
	}
}
