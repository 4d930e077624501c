package template

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// seq generates a sequence of integers from start to end (inclusive),
// used by templates that need to emit a numbered file list.
func seq(start, end int) []int {
	if start > end {
		return []int{}
	}
	result := make([]int, end-start+1)
	for i := range result {
		result[i] = start + i
	}
	return result
}

func funcMap(selectedFeatures []string) template.FuncMap {
	selected := make(map[string]bool, len(selectedFeatures))
	for _, f := range selectedFeatures {
		selected[f] = true
	}
	return template.FuncMap{
		"seq":        seq,
		"hasFeature": func(name string) bool { return selected[name] },
	}
}

// RenderTemplate renders a template string against data and the given
// selected features' hasFeature predicate.
func RenderTemplate(templateContent string, data any, selectedFeatures []string) (string, error) {
	var buf bytes.Buffer
	tmpl := template.New("").Funcs(funcMap(selectedFeatures))
	tmpl, err := tmpl.Parse(templateContent)
	if err != nil {
		return "", zkgerrors.Stage("template", "failed to parse template file", err)
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", zkgerrors.Stage("template", "failed to render template", err)
	}
	return buf.String(), nil
}

// RenderFile reads a file and renders it as a template.
func RenderFile(path string, data any, selectedFeatures []string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", zkgerrors.Stage(path, "failed to read template file", err)
	}
	return RenderTemplate(string(content), data, selectedFeatures)
}

// RenderTree renders every file in outputFiles from srcRoot into
// dstRoot, relative paths preserved.
func RenderTree(srcRoot, dstRoot string, outputFiles []string, data any, selectedFeatures []string) error {
	for _, rel := range outputFiles {
		rendered, err := RenderFile(filepath.Join(srcRoot, rel), data, selectedFeatures)
		if err != nil {
			return err
		}
		dst := filepath.Join(dstRoot, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return zkgerrors.Stage(dst, "failed to create output directory", err)
		}
		if err := os.WriteFile(dst, []byte(rendered), 0o644); err != nil {
			return zkgerrors.Stage(dst, "failed to write rendered file", err)
		}
	}
	return nil
}
