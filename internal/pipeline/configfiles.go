package pipeline

import (
	"os"
	"path/filepath"

	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// backupConfigFiles implements the first half of §4.6 step 6: before
// install's mirror overwrites the package's script directory with the
// newly cloned version, snapshot whatever a prior install already left
// at each config_files path. Taken before the mirror runs, since by
// the time the mirror has landed there is nothing left to preserve.
func backupConfigFiles(dstDir string, configFiles []string) (map[string]bool, error) {
	preserved := map[string]bool{}
	for _, rel := range configFiles {
		dst := filepath.Join(dstDir, rel)
		if _, err := os.Stat(dst); err != nil {
			continue
		}
		if err := copyFile(dst, dst+".bak"); err != nil {
			return nil, err
		}
		preserved[rel] = true
	}
	return preserved, nil
}

// restoreConfigFiles implements the second half of §4.6 step 6: for
// every config_files entry backupConfigFiles snapshotted, copy that
// snapshot back over the fresh copy the mirror just installed, so a
// prior install's customization wins over the package's shipped
// default.
func restoreConfigFiles(dstDir string, configFiles []string, preserved map[string]bool) error {
	for _, rel := range configFiles {
		if !preserved[rel] {
			continue
		}
		dst := filepath.Join(dstDir, rel)
		backup := dst + ".bak"
		if err := copyFile(backup, dst); err != nil {
			return zkgerrors.Stage(dst, "failed to restore preserved config file", err)
		}
		os.Remove(backup)
	}
	return nil
}
