// Package engine implements the file-backed keystore.
package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	pkgengine "github.com/celerix-dev/celerix-keystore/pkg/engine"
)

const (
	dirMode  os.FileMode = 0o700
	fileMode os.FileMode = 0o600
)

// readFile returns the file contents, or nil and ok=false when the file
// does not exist.
func readFile(path string) (data []byte, ok bool, err error) {
	data, err = os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %s: %w", pkgengine.ErrIO, path, err)
	}
	return data, true, nil
}

// writeAtomic replaces path with data. The bytes go to <path>.tmp first,
// are synced, and the temp file is renamed over the target, so a crash
// leaves either the old file or the new one. Missing parent directories
// are created.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("%w: creating directory %s: %w", pkgengine.ErrIO, dir, err)
	}

	tempPath := path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %w", pkgengine.ErrIO, tempPath, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("%w: writing %s: %w", pkgengine.ErrIO, tempPath, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("%w: syncing %s: %w", pkgengine.ErrIO, tempPath, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: closing %s: %w", pkgengine.ErrIO, tempPath, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: renaming %s into place: %w", pkgengine.ErrIO, tempPath, err)
	}

	// Make the rename itself durable.
	if parent, err := os.Open(dir); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}
