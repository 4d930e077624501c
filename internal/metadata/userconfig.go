package metadata

import (
	"os"

	"github.com/go-ini/ini"

	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// Config is the parsed user configuration file (§6): [sources]
// (name->URL), [paths] (state_dir, script_dir, plugin_dir, bin_dir,
// platform_distribution_path), and [user_vars] (persisted answers).
type Config struct {
	Sources   map[string]string
	Paths     map[string]string
	UserVars  map[string]string
	path      string
}

// LoadConfig parses the user config file at path. A missing file is not
// an error; it yields an empty Config so `zkg autoconfig` can create one.
func LoadConfig(path string) (*Config, error) {
	c := &Config{
		Sources:  map[string]string{},
		Paths:    map[string]string{},
		UserVars: map[string]string{},
		path:     path,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c, nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{AllowPythonMultilineValues: true}, path)
	if err != nil {
		return nil, zkgerrors.BadMetadata(path, "failed to parse config INI", err)
	}

	if sec, err := cfg.GetSection("sources"); err == nil {
		c.Sources = sec.KeysHash()
	}
	if sec, err := cfg.GetSection("paths"); err == nil {
		c.Paths = sec.KeysHash()
	}
	if sec, err := cfg.GetSection("user_vars"); err == nil {
		c.UserVars = sec.KeysHash()
	}

	return c, nil
}

// Save persists the config back to its source path, atomically (the
// engine never leaves a half-written config file behind).
func (c *Config) Save() error {
	cfg := ini.Empty()

	sources, _ := cfg.NewSection("sources")
	for k, v := range c.Sources {
		sources.Key(k).SetValue(v)
	}
	paths, _ := cfg.NewSection("paths")
	for k, v := range c.Paths {
		paths.Key(k).SetValue(v)
	}
	uvars, _ := cfg.NewSection("user_vars")
	for k, v := range c.UserVars {
		uvars.Key(k).SetValue(v)
	}

	tmp := c.path + ".tmp"
	if err := cfg.SaveTo(tmp); err != nil {
		return zkgerrors.Stage(c.path, "failed to write config", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return zkgerrors.Stage(c.path, "failed to finalize config write", err)
	}
	return nil
}

// PersistUserVar opt-in persists a resolved user-var answer (§4.1:
// "Persistence is opt-in (interactive mode writes, non-interactive mode
// does not)"). Callers gate this on interactive mode.
func (c *Config) PersistUserVar(key, value string) {
	c.UserVars[key] = value
}

// ResolveUserVar resolves one user-var in the priority order of §4.1:
// explicit CLI override, environment variable of the same name,
// persisted answer in the user config, package-declared default.
func ResolveUserVar(v UserVar, cliOverrides map[string]string, cfg *Config) string {
	if val, ok := cliOverrides[v.Key]; ok {
		return val
	}
	if val := os.Getenv(v.Key); val != "" {
		return val
	}
	if cfg != nil {
		if val, ok := cfg.UserVars[v.Key]; ok {
			return val
		}
	}
	return v.Default
}
