// Package zkgconfig holds the engine's default filesystem layout,
// environment variable names, and well-known file names. The user
// config file model itself lives in internal/metadata.
package zkgconfig

const (
	// DefaultStateDirName is the directory created under the user's
	// home directory when no --state-dir / ZKG_STATE_DIR override is
	// given.
	DefaultStateDirName = ".zkg"

	// Manifest and lock file names inside the state directory.
	ManifestFileName = "manifest.json"
	LockFileName     = "lock"

	// Clone area subdirectories (state_dir/clones/...).
	ClonePackageDirName  = "clones/package"
	CloneSourceDirName   = "clones/source"
	CloneTemplateDirName = "clones/template"

	// Ephemeral scratch areas (state_dir/scratch/...), safe to delete
	// between operations.
	ScratchDirName       = "scratch"
	ScratchBundleDirName = "scratch/bundle"
	ScratchUntarDirName  = "scratch/untar"
	ScratchTmpCfgDirName = "scratch/tmpcfg"

	// Per-test workspace area (state_dir/testing/<name>/...).
	TestingDirName = "testing"

	// Build log directory (state_dir/logs/<name>-build.log).
	LogsDirName = "logs"

	// Loader index file name inside the script stage's packages/ subtree.
	LoaderIndexFileName = "packages/packages.zeek"

	// Plugin marker file names toggled between on load/unload.
	PluginMarkerEnabled  = "__plugin_marker__"
	PluginMarkerDisabled = "__plugin_marker__.disabled"

	// Package metadata file names, newest first; all are probed, the
	// first found wins.
	MetadataFileNameCurrent = "zkg.meta"
	MetadataFileNameLegacy  = "bro-pkg.meta"
	MetadataFileNameOldest  = "bro-pkg.meta.in"

	// Source index file names, newest first.
	SourceIndexFileNameCurrent = "zkg.index"
	SourceIndexFileNameLegacy  = "bro-pkg.index"

	// Source aggregate metadata file name, written at the source repo root.
	SourceAggregateFileName = "aggregate.meta"

	// User config file name, resolved relative to the state directory's
	// parent unless overridden.
	UserConfigFileName = "config.ini"

	// DefaultTemplateURL seeds `zkg create` when no --template is given.
	DefaultTemplateURL = "https://github.com/zeek-pkg/package-template"

	// Reserved dependency names (§4.1): platform and manager version
	// constraints, resolved against runtime-known versions rather than
	// installed packages.
	ReservedNamePlatformZeek = "zeek"
	ReservedNamePlatformBro  = "bro"
	ReservedNameManagerZkg   = "zkg"
	ReservedNameManagerBro   = "bro-pkg"
)

// ManifestSchemaVersion is the current on-disk manifest schema version.
// Stores with an older version are migrated on load (C7).
const ManifestSchemaVersion = 2

// TemplateEngineVersion is recorded into every instantiated package's
// [template] metadata section.
const TemplateEngineVersion = "1"
