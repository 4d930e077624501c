package pipeline

import (
	"io"
	"os"
	"path/filepath"

	"github.com/netsec-pkg/zkg/internal/zkgconfig"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// Stage is the real, persistent stage directories the pipeline installs
// into once a plan has fully succeeded.
type Stage struct {
	ScriptDir string
	PluginDir string
	BinDir    string
}

// Workspace is the ephemeral per-plan staging tree of §4.6 step 2: it
// mirrors Stage's layout and starts populated with a copy of Stage's
// current contents, so each package's build/install step sees the
// artifacts of already-completed packages earlier in the plan without
// ever touching the real stage. A failed package simply abandons this
// directory; nothing in Stage was ever written.
type Workspace struct {
	root   string
	Script string
	Plugin string
	Bin    string
}

// NewWorkspace creates a fresh ephemeral workspace seeded from the
// current contents of stage.
func NewWorkspace(stage Stage) (*Workspace, error) {
	root, err := os.MkdirTemp("", "zkg-stage-*")
	if err != nil {
		return nil, zkgerrors.Stage("workspace", "failed to create staging workspace", err)
	}
	ws := &Workspace{
		root:   root,
		Script: filepath.Join(root, "script"),
		Plugin: filepath.Join(root, "plugin"),
		Bin:    filepath.Join(root, "bin"),
	}
	for _, dir := range []string{ws.Script, ws.Plugin, ws.Bin} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			os.RemoveAll(root)
			return nil, zkgerrors.Stage("workspace", "failed to create staging subdirectory", err)
		}
	}
	if err := mirror(stage.ScriptDir, ws.Script); err != nil {
		os.RemoveAll(root)
		return nil, err
	}
	if err := mirror(stage.PluginDir, ws.Plugin); err != nil {
		os.RemoveAll(root)
		return nil, err
	}
	if err := mirror(stage.BinDir, ws.Bin); err != nil {
		os.RemoveAll(root)
		return nil, err
	}
	return ws, nil
}

// Discard removes the workspace without touching the real stage, the
// rollback path for any failed stage (§4.6 "Rollback").
func (w *Workspace) Discard() {
	os.RemoveAll(w.root)
}

// Promote copies the workspace's final contents over the real stage
// and removes the workspace. Called only once every package in the
// plan has completed every stage successfully.
func (w *Workspace) Promote(stage Stage) error {
	defer w.Discard()
	if err := os.MkdirAll(stage.ScriptDir, 0o755); err != nil {
		return zkgerrors.Stage(stage.ScriptDir, "failed to prepare script stage", err)
	}
	if err := os.MkdirAll(stage.PluginDir, 0o755); err != nil {
		return zkgerrors.Stage(stage.PluginDir, "failed to prepare plugin stage", err)
	}
	if err := os.MkdirAll(stage.BinDir, 0o755); err != nil {
		return zkgerrors.Stage(stage.BinDir, "failed to prepare bin stage", err)
	}
	if err := mirror(w.Script, stage.ScriptDir); err != nil {
		return err
	}
	if err := mirror(w.Plugin, stage.PluginDir); err != nil {
		return err
	}
	return mirror(w.Bin, stage.BinDir)
}

// LoaderIndexPath returns the workspace's copy of the loader index
// file, appended to during the install stage (§4.6 step 5).
func (w *Workspace) LoaderIndexPath() string {
	return filepath.Join(w.Script, zkgconfig.LoaderIndexFileName)
}

// mirror recursively overlays src's contents onto dst, creating dst if
// src does not yet exist (a no-op copy).
func mirror(src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return zkgerrors.Stage(src, "failed to open source file", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return zkgerrors.Stage(dst, "failed to create destination file", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return zkgerrors.Stage(dst, "failed to copy file contents", err)
	}
	return nil
}
