package zkgconfig

import (
	"os"
	"path/filepath"
)

// Environment variable names consulted by the engine (§6). Any name
// matching a user_vars key is also consulted, but that resolution lives
// in internal/metadata since it is per-metadata-field, not global.
const (
	EnvHome             = "HOME"
	EnvStateDir         = "ZKG_STATE_DIR"
	EnvDefaultTemplate  = "ZKG_DEFAULT_TEMPLATE_URL"
	EnvScriptDir        = "ZKG_SCRIPT_DIR"
	EnvPluginDir        = "ZKG_PLUGIN_DIR"
	EnvBinDir           = "ZKG_BIN_DIR"
	EnvPlatformDistPath = "ZKG_PLATFORM_DIST_PATH"
)

// Paths is the resolved filesystem layout for one engine invocation.
type Paths struct {
	StateDir     string
	ScriptDir    string
	PluginDir    string
	BinDir       string
	PlatformDist string
}

// DefaultPaths resolves the engine's filesystem layout from environment
// overrides, falling back to $HOME/.zkg and its conventional stage
// subdirectories. CLI flags are applied on top of this by callers (C1's
// CLI > env > persisted > default priority order).
func DefaultPaths() (Paths, error) {
	home := os.Getenv(EnvHome)
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		home = h
	}

	stateDir := os.Getenv(EnvStateDir)
	if stateDir == "" {
		stateDir = filepath.Join(home, DefaultStateDirName)
	}

	p := Paths{
		StateDir:     stateDir,
		ScriptDir:    filepath.Join(stateDir, "script"),
		PluginDir:    filepath.Join(stateDir, "plugin"),
		BinDir:       filepath.Join(stateDir, "bin"),
		PlatformDist: os.Getenv(EnvPlatformDistPath),
	}

	if v := os.Getenv(EnvScriptDir); v != "" {
		p.ScriptDir = v
	}
	if v := os.Getenv(EnvPluginDir); v != "" {
		p.PluginDir = v
	}
	if v := os.Getenv(EnvBinDir); v != "" {
		p.BinDir = v
	}

	return p, nil
}

// DefaultTemplateURLFromEnv returns the configured default template URL,
// honoring the ZKG_DEFAULT_TEMPLATE_URL override named in §6.
func DefaultTemplateURLFromEnv() string {
	if v := os.Getenv(EnvDefaultTemplate); v != "" {
		return v
	}
	return DefaultTemplateURL
}
