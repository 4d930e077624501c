package bundle

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

func writeTarGz(outPath, srcDir string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return zkgerrors.Stage(outPath, "failed to create bundle archive", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	return filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return zkgerrors.Stage(path, "failed to build tar header", err)
		}
		hdr.Name = rel

		if d.IsDir() {
			hdr.Name += "/"
			return tw.WriteHeader(hdr)
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return zkgerrors.Stage(path, "failed to write tar header", err)
		}
		in, err := os.Open(path)
		if err != nil {
			return zkgerrors.Stage(path, "failed to open file for archiving", err)
		}
		defer in.Close()
		_, err = io.Copy(tw, in)
		return err
	})
}

func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return zkgerrors.Stage(archivePath, "failed to open bundle archive", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return zkgerrors.Stage(archivePath, "failed to open gzip stream", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return zkgerrors.Stage(archivePath, "failed to read tar entry", err)
		}

		// Guard against path traversal from a malicious or corrupt
		// archive before joining onto destDir.
		if strings.Contains(hdr.Name, "..") {
			return zkgerrors.Stage(archivePath, "unsafe path in bundle archive: "+hdr.Name, nil)
		}
		target := filepath.Join(destDir, hdr.Name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return zkgerrors.Stage(target, "failed to create directory from archive", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return zkgerrors.Stage(target, "failed to prepare directory for archive entry", err)
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return zkgerrors.Stage(target, "failed to create file from archive", err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return zkgerrors.Stage(target, "failed to write file from archive", err)
			}
			out.Close()
		}
	}
}
