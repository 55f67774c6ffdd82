package ipc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// File names inside the channel directory. Both sides must agree on these.
	RequestFileName  = "request.json"
	ResponseFileName = "response.json"
	LockFileName     = "lock"

	// DefaultDirName is the channel directory created under the platform temp dir.
	DefaultDirName = "filebridge"

	// tempSuffix marks files that are still being written and not yet renamed into place.
	tempSuffix = ".tmp"
)

// DefaultRoot returns the channel location both processes use when nothing
// else is configured.
func DefaultRoot() string {
	return filepath.Join(os.TempDir(), DefaultDirName)
}

// Dir is the shared mailbox directory holding the request, response and
// lock files.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root. An empty root means DefaultRoot().
func NewDir(root string) Dir {
	if root == "" {
		root = DefaultRoot()
	}
	return Dir{root: filepath.Clean(root)}
}

func (d Dir) Root() string         { return d.root }
func (d Dir) RequestPath() string  { return filepath.Join(d.root, RequestFileName) }
func (d Dir) ResponsePath() string { return filepath.Join(d.root, ResponseFileName) }
func (d Dir) LockPath() string     { return filepath.Join(d.root, LockFileName) }

// CallLockPath is the advisory lock file used to serialize callers from
// different processes. It lives next to the channel directory, not inside it.
func (d Dir) CallLockPath() string {
	return d.root + ".call.lock"
}

// Exists reports whether the channel directory is present.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.root)
	return err == nil && info.IsDir()
}

// Has reports whether the file at path exists.
func (d Dir) Has(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Ensure creates the channel directory and its parents. An existing
// directory is not an error.
func (d Dir) Ensure() error {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return fmt.Errorf("failed to create channel directory: %w", err)
	}
	return nil
}

// Clean removes the request, response and lock files along with any
// half-written temp files. Missing files are ignored.
func (d Dir) Clean() error {
	var errs []error
	for _, path := range []string{d.RequestPath(), d.ResponsePath(), d.LockPath()} {
		if err := removeIfExists(path); err != nil {
			errs = append(errs, err)
		}
	}

	entries, err := os.ReadDir(d.root)
	if err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to list channel directory: %w", err))
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), tempSuffix) {
			continue
		}
		if err := removeIfExists(filepath.Join(d.root, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Present lists which of the three coordination files currently exist.
func (d Dir) Present() []string {
	var names []string
	for _, name := range []string{RequestFileName, ResponseFileName, LockFileName} {
		if d.Has(filepath.Join(d.root, name)) {
			names = append(names, name)
		}
	}
	return names
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
