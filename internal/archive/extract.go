package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrBadArchive is returned when the uploaded file is not a readable zip.
var ErrBadArchive = errors.New("invalid zip archive")

// Extract unpacks the zip at zipPath into destDir. Entries that would
// escape destDir are rejected. After extraction, a single top-level
// directory (the usual `my-app/` wrapper zips carry) is flattened so the
// project root sits directly in destDir.
func Extract(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadArchive, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating app directory: %w", err)
	}

	for _, f := range r.File {
		if err := extractFile(f, destDir); err != nil {
			return err
		}
	}

	return flattenSingleRoot(destDir)
}

func extractFile(f *zip.File, destDir string) error {
	target, err := safeJoin(destDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", f.Name, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrBadArchive, f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("writing %s: %w", f.Name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("writing %s: %w", f.Name, err)
	}
	return nil
}

// safeJoin joins name under dir, rejecting paths that escape it.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: entry %q escapes archive root", ErrBadArchive, name)
	}
	return target, nil
}

// flattenSingleRoot moves the contents of a lone top-level directory up
// one level. Zips exported from editors almost always wrap the project in
// one folder; the serving layer expects the entry file at the root.
func flattenSingleRoot(destDir string) error {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	nested := filepath.Join(destDir, entries[0].Name())
	inner, err := os.ReadDir(nested)
	if err != nil {
		return err
	}
	for _, e := range inner {
		if err := os.Rename(filepath.Join(nested, e.Name()), filepath.Join(destDir, e.Name())); err != nil {
			return fmt.Errorf("flattening archive root: %w", err)
		}
	}
	return os.Remove(nested)
}
