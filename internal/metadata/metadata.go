// Package metadata implements the per-package metadata model and the
// user configuration file model: both are INI with %(name)s
// interpolation, parsed with github.com/go-ini/ini.
package metadata

import (
	"os"
	"path/filepath"

	"github.com/go-ini/ini"

	"github.com/netsec-pkg/zkg/internal/zkgconfig"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// UserVar is one (key, default, description) tuple declared by a
// package's [package] user_vars field.
type UserVar struct {
	Key         string
	Default     string
	Description string
}

// TemplateRecord is the [template] section a package instantiated from
// a template carries: where it came from and how it was rendered.
type TemplateRecord struct {
	Source    string
	Ref       string
	Version   string
	Features  []string
	VarValues map[string]string
}

// Metadata is the parsed, typed content of a package's metadata file.
type Metadata struct {
	Description string
	Tags        []string
	Credits     string
	Aliases     []string

	ScriptDir    string
	PluginDir    string
	Executables  []string
	ConfigFiles  []string

	BuildCommand string
	TestCommand  string

	UserVars []UserVar

	Depends         map[string]string
	ExternalDepends map[string]string
	Suggests        map[string]string

	Template *TemplateRecord

	// raw retains the parsed INI file; nothing in this package reads it
	// after parsing.
	raw *ini.File
}

// CandidateMetadataFiles returns the metadata file names to probe at a
// package's repository root, newest first: the current name, the
// legacy name, and the oldest legacy name still occasionally found in
// older package repositories.
func CandidateMetadataFiles() []string {
	return []string{
		zkgconfig.MetadataFileNameCurrent,
		zkgconfig.MetadataFileNameLegacy,
		zkgconfig.MetadataFileNameOldest,
	}
}

// Load finds and parses the metadata file at repoRoot, preferring the
// newest candidate name that exists.
func Load(repoRoot string) (*Metadata, error) {
	var path string
	for _, name := range CandidateMetadataFiles() {
		candidate := filepath.Join(repoRoot, name)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
	}
	if path == "" {
		return nil, zkgerrors.BadMetadata(repoRoot, "no metadata file found", nil)
	}
	return Parse(path)
}

// Parse parses a metadata file at the given path.
func Parse(path string) (*Metadata, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:       true,
		AllowPythonMultilineValues: true,
	}, path)
	if err != nil {
		return nil, zkgerrors.BadMetadata(path, "failed to parse INI", err)
	}

	sec := cfg.Section("package")
	if sec == nil {
		return nil, zkgerrors.BadMetadata(path, "missing [package] section", nil)
	}

	m := &Metadata{
		Description:  sec.Key("description").String(),
		Credits:      sec.Key("credits").String(),
		ScriptDir:    sec.Key("script_dir").String(),
		PluginDir:    sec.Key("plugin_dir").String(),
		BuildCommand: sec.Key("build_command").String(),
		TestCommand:  sec.Key("test_command").String(),
		raw:          cfg,
	}

	m.Tags = splitList(sec.Key("tags").String())
	m.Aliases = splitList(sec.Key("aliases").String())
	m.Executables = splitList(sec.Key("executables").String())
	m.ConfigFiles = splitList(sec.Key("config_files").String())

	uvars, err := parseUserVars(sec.Key("user_vars").String())
	if err != nil {
		return nil, zkgerrors.BadMetadata(path, "invalid user_vars", err)
	}
	m.UserVars = uvars

	m.Depends, err = ParseDependsField(sec.Key("depends").String())
	if err != nil {
		return nil, zkgerrors.BadMetadata(path, "invalid depends", err)
	}
	m.ExternalDepends, err = ParseDependsField(sec.Key("external_depends").String())
	if err != nil {
		return nil, zkgerrors.BadMetadata(path, "invalid external_depends", err)
	}
	m.Suggests, err = ParseDependsField(sec.Key("suggests").String())
	if err != nil {
		return nil, zkgerrors.BadMetadata(path, "invalid suggests", err)
	}

	if tsec, err := cfg.GetSection("template"); err == nil {
		m.Template = &TemplateRecord{
			Source:    tsec.Key("source").String(),
			Ref:       tsec.Key("ref").String(),
			Version:   tsec.Key("engine_version").String(),
			Features:  splitList(tsec.Key("features").String()),
			VarValues: tsec.KeysHash(),
		}
	}

	return m, nil
}

// splitList splits a newline- or comma-separated metadata list field,
// trimming blank entries. zkg metadata files use newline-separated
// lists for multi-line fields (depends, tags) and this is tolerant of
// both conventions.
func splitList(raw string) []string {
	var out []string
	for _, line := range splitLinesAndCommas(raw) {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func splitLinesAndCommas(raw string) []string {
	var fields []string
	cur := ""
	for _, r := range raw {
		switch r {
		case '\n', ',':
			fields = append(fields, trimSpace(cur))
			cur = ""
		default:
			cur += string(r)
		}
	}
	fields = append(fields, trimSpace(cur))
	return fields
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r'
}

func parseUserVars(raw string) ([]UserVar, error) {
	var vars []UserVar
	for _, line := range splitLinesAndCommas(raw) {
		if line == "" {
			continue
		}
		// key[=default][:description]
		key, rest := line, ""
		if idx := indexByte(line, '='); idx >= 0 {
			key, rest = line[:idx], line[idx+1:]
		}
		def, desc := rest, ""
		if idx := indexByte(rest, ':'); idx >= 0 {
			def, desc = rest[:idx], rest[idx+1:]
		}
		vars = append(vars, UserVar{Key: trimSpace(key), Default: trimSpace(def), Description: trimSpace(desc)})
	}
	return vars, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// SourceFile returns the path the metadata file would be saved to if
// writing Template's resolved state back, used by C9 after
// instantiation.
func SourceFile(repoRoot string) string {
	return filepath.Join(repoRoot, zkgconfig.MetadataFileNameCurrent)
}

// WriteTemplateRecord writes (or overwrites) the [template] section of
// a metadata file, creating the file fresh if it does not yet exist.
// Used by the template engine (C9) after instantiation.
func WriteTemplateRecord(path string, m *Metadata) error {
	var cfg *ini.File
	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		cfg, err = ini.Load(path)
	} else {
		cfg = ini.Empty()
	}
	if err != nil {
		return zkgerrors.Stage(path, "failed to load metadata for template record write", err)
	}

	pkgSec := cfg.Section("package")
	if m.Description != "" {
		pkgSec.Key("description").SetValue(m.Description)
	}

	if m.Template != nil {
		tsec := cfg.Section("template")
		tsec.Key("source").SetValue(m.Template.Source)
		tsec.Key("ref").SetValue(m.Template.Ref)
		tsec.Key("engine_version").SetValue(m.Template.Version)
		tsec.Key("features").SetValue(joinList(m.Template.Features))
		for k, v := range m.Template.VarValues {
			tsec.Key(k).SetValue(v)
		}
	}

	if err := cfg.SaveTo(path); err != nil {
		return zkgerrors.Stage(path, "failed to write metadata", err)
	}
	return nil
}

func joinList(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
