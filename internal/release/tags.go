package release

import (
	"context"
	"fmt"
	"strings"

	"github.com/temirov/caddybuild/internal/execshell"
)

const (
	tagListErrorTemplateConstant   = "unable to list tags: %w"
	buildNumberTagTemplateConstant = "%s-%d"
)

// TagLister reads the tags of the repository the runner operates in.
type TagLister struct {
	runner CheckedRunner
}

// NewTagLister constructs a TagLister.
func NewTagLister(runner CheckedRunner) (*TagLister, error) {
	if runner == nil {
		return nil, ErrRunnerNotConfigured
	}
	return &TagLister{runner: runner}, nil
}

// List returns the existing tags in git's order, skipping blank lines.
func (lister *TagLister) List(executionContext context.Context) ([]string, error) {
	output, runError := lister.runner.RunCheckError(executionContext, execshell.ArgumentVector("git", "tag", "--list"))
	if runError != nil {
		return nil, fmt.Errorf(tagListErrorTemplateConstant, runError)
	}

	tags := make([]string, 0)
	for _, line := range strings.Split(output, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if len(trimmedLine) > 0 {
			tags = append(tags, trimmedLine)
		}
	}
	return tags, nil
}

// NextTag returns version when no tag uses it yet, otherwise the first unused
// "version-N" for N = 1, 2, ...
func NextTag(version string, existingTags []string) string {
	usedTags := make(map[string]struct{}, len(existingTags))
	for _, existingTag := range existingTags {
		usedTags[strings.TrimSpace(existingTag)] = struct{}{}
	}

	candidateTag := version
	for buildNumber := 1; ; buildNumber++ {
		if _, used := usedTags[candidateTag]; !used {
			return candidateTag
		}
		candidateTag = fmt.Sprintf(buildNumberTagTemplateConstant, version, buildNumber)
	}
}
