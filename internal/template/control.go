// Package template implements the template scaffolding engine (C9):
// parsing a template repository's control file, resolving user
// variables, selecting features, and rendering output files.
package template

import (
	"encoding/json"
	"os"
	"regexp"

	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// ControlFileName is the file a template repository must carry at its
// root.
const ControlFileName = "template.json"

// Param is one user-variable declaration from a template's control
// file.
type Param struct {
	Name        string `json:"name"`
	Default     string `json:"default"`
	Description string `json:"description"`
	Pattern     string `json:"pattern,omitempty"`

	validator *regexp.Regexp
}

// Validate reports whether value matches the parameter's regex
// validator, if one was declared. A parameter without a pattern
// accepts any value.
func (p *Param) Validate(value string) bool {
	if p.validator == nil {
		return true
	}
	return p.validator.MatchString(value)
}

// Feature is an additive modifier: a named, optionally-selected set of
// extra files layered on top of the base output file list.
type Feature struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Files       []string `json:"files"`
}

// Control is a template repository's parsed control file.
type Control struct {
	APIVersion  string    `json:"api_version"`
	Parameters  []Param   `json:"parameters"`
	Features    []Feature `json:"features"`
	OutputFiles []string  `json:"output_files"`
}

// LoadControl parses the control file at repoRoot/template.json.
func LoadControl(repoRoot string) (*Control, error) {
	path := repoRoot + string(os.PathSeparator) + ControlFileName
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zkgerrors.BadMetadata(path, "failed to read template control file", err)
	}

	var c Control
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, zkgerrors.BadMetadata(path, "failed to parse template control file", err)
	}

	for i := range c.Parameters {
		if c.Parameters[i].Pattern == "" {
			continue
		}
		re, err := regexp.Compile(c.Parameters[i].Pattern)
		if err != nil {
			return nil, zkgerrors.BadMetadata(path, "invalid validator pattern for parameter "+c.Parameters[i].Name, err)
		}
		c.Parameters[i].validator = re
	}

	return &c, nil
}

// ParamByName returns the declared parameter with the given name, or
// nil.
func (c *Control) ParamByName(name string) *Param {
	for i := range c.Parameters {
		if c.Parameters[i].Name == name {
			return &c.Parameters[i]
		}
	}
	return nil
}

// FeatureByName returns the declared feature with the given name, or
// nil.
func (c *Control) FeatureByName(name string) *Feature {
	for i := range c.Features {
		if c.Features[i].Name == name {
			return &c.Features[i]
		}
	}
	return nil
}

// OutputFilesFor returns the base output file list extended with every
// selected feature's additional files.
func (c *Control) OutputFilesFor(selected []string) []string {
	out := append([]string(nil), c.OutputFiles...)
	for _, name := range selected {
		if f := c.FeatureByName(name); f != nil {
			out = append(out, f.Files...)
		}
	}
	return out
}
