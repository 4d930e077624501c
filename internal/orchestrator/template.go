package orchestrator

import (
	"context"
	"os"

	"github.com/netsec-pkg/zkg/internal/template"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
)

// CreateOptions controls one Create call.
type CreateOptions struct {
	TemplateURL      string
	OutputDir        string
	SelectedFeatures []string
	CLIOverrides     map[string]string
	Interactive      bool
	Force            bool
	CommitAuthor     string
	CommitEmail      string
}

// Create scaffolds a new package from a template (§4.9, the `create`
// verb). TemplateURL defaults to the engine's configured default
// template if unset.
func (e *Engine) Create(ctx context.Context, opts CreateOptions) (template.InstantiateResult, error) {
	url := opts.TemplateURL
	if url == "" {
		url = e.cfg.DefaultTemplate
	}
	if url == "" {
		url = zkgconfig.DefaultTemplateURL
	}

	return template.Instantiate(ctx, e.cfg.Driver, e.templateCloneRoot(), template.InstantiateOptions{
		TemplateURL:      url,
		OutputDir:        opts.OutputDir,
		SelectedFeatures: opts.SelectedFeatures,
		Vars: template.VarSource{
			CLIOverrides: opts.CLIOverrides,
			Interactive:  opts.Interactive,
		},
		Force:        opts.Force,
		CommitAuthor: opts.CommitAuthor,
		CommitEmail:  opts.CommitEmail,
	})
}

// TemplateInfo reports a template's declared parameters, features, and
// API version without instantiating it (§4 supplemented feature 2).
func (e *Engine) TemplateInfo(ctx context.Context, templateURL string) (*template.Control, error) {
	dest := e.scratchDir("template-info")
	if err := e.cfg.Driver.Clone(ctx, templateURL, dest, "", true); err != nil {
		return nil, err
	}
	defer os.RemoveAll(dest)
	return template.LoadControl(dest)
}
