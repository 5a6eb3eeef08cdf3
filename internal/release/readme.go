package release

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"text/template"
)

const (
	readmeTemplateNameConstant          = "readme"
	readmeTemplateErrorTemplateConstant = "invalid README template: %w"
	readmeRenderErrorTemplateConstant   = "unable to render README: %w"
	downloadURLTemplateConstant         = "https://github.com/%s/releases/download/%s/%s"
)

// ReadmeData is the data available to the README template.
type ReadmeData struct {
	Tag          string
	DownloadURL  string
	FullVersion  string
	ShortVersion string
	Repository   string
}

// ReadmeRenderer renders the README published with each release.
type ReadmeRenderer struct {
	readmeTemplate *template.Template
}

// NewReadmeRenderer parses templateText.
func NewReadmeRenderer(templateText string) (*ReadmeRenderer, error) {
	parsedTemplate, parseError := template.New(readmeTemplateNameConstant).Option("missingkey=error").Parse(templateText)
	if parseError != nil {
		return nil, fmt.Errorf(readmeTemplateErrorTemplateConstant, parseError)
	}
	return &ReadmeRenderer{readmeTemplate: parsedTemplate}, nil
}

// Render executes the template with data.
func (renderer *ReadmeRenderer) Render(data ReadmeData) (string, error) {
	var rendered strings.Builder
	if executeError := renderer.readmeTemplate.Execute(&rendered, data); executeError != nil {
		return "", fmt.Errorf(readmeRenderErrorTemplateConstant, executeError)
	}
	return rendered.String(), nil
}

// DownloadURL returns the release asset URL for the binary built at binaryPath.
func DownloadURL(repository string, tag string, binaryPath string) string {
	assetName := path.Base(strings.ReplaceAll(binaryPath, "\\", "/"))
	return fmt.Sprintf(downloadURLTemplateConstant, repository, url.PathEscape(tag), url.PathEscape(assetName))
}
