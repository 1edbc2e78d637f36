package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskCache stores artifacts as plain files in one directory.
type DiskCache struct {
	dir string
}

// NewDiskCache creates dir when missing.
func NewDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		return nil, errors.New("cache dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string { return c.dir }

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}

// Path returns where name is stored.
func (c *DiskCache) Path(name string) string { return filepath.Join(c.dir, name) }

// Exists reports whether a complete artifact is stored under name.
func (c *DiskCache) Exists(name string) bool {
	if checkName(name) != nil {
		return false
	}
	fi, err := os.Stat(c.Path(name))
	return err == nil && fi.Mode().IsRegular()
}

// Open opens the stored artifact.
func (c *DiskCache) Open(name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return os.Open(c.Path(name))
}

// Put writes the artifact through a temp file in the cache directory, syncs it
// and renames it into place. On error the temp file is removed and the final
// path is left untouched.
func (c *DiskCache) Put(name string, write func(io.Writer) error) (err error) {
	if err := checkName(name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Rename(tmp.Name(), c.Path(name)); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
