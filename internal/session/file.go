package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/inkreader/internal/pager"
)

const (
	stateFileMode   = 0o644
	stateDirMode    = 0o755
	tempFilePattern = ".state-*.toml.tmp"
)

// record is the on-disk shape of the persisted subset.
type record struct {
	PageIndex int `toml:"page_index"`
	PageCount int `toml:"page_count"`
}

// File persists the page index and page count to a TOML file.
type File struct {
	path string
}

// NewFile returns a File writing to path.
func NewFile(path string) (*File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("state path is empty")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve state path: %w", err)
	}
	return &File{path: abs}, nil
}

// Path returns the resolved file location.
func (f *File) Path() string {
	return f.path
}

// Load reads the persisted subset. The returned session is always usable: a
// missing file yields a fresh session and a nil error, an unreadable or corrupt
// file yields a fresh session and a storage error for the caller to log.
func (f *File) Load() (Session, error) {
	sess := Fresh()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sess, nil
		}
		return sess, pager.StorageError("read state file", err)
	}

	var rec record
	if err := toml.Unmarshal(data, &rec); err != nil {
		return sess, pager.StorageError("decode state file", err)
	}

	sess.CurrentPage = rec.PageIndex
	sess.PageCount = rec.PageCount
	sess.Clamp()
	return sess, nil
}

// Save writes the persisted subset of s, replacing the previous file atomically.
func (f *File) Save(s Session) error {
	data, err := toml.Marshal(record{PageIndex: s.CurrentPage, PageCount: s.PageCount})
	if err != nil {
		return pager.StorageError("encode state file", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, stateDirMode); err != nil {
		return pager.StorageError("create state dir", err)
	}

	tmp, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return pager.StorageError("create temp state file", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return pager.StorageError("write temp state file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return pager.StorageError("sync temp state file", err)
	}
	if err := tmp.Close(); err != nil {
		return pager.StorageError("close temp state file", err)
	}
	if err := os.Chmod(tmpName, stateFileMode); err != nil {
		return pager.StorageError("chmod temp state file", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return pager.StorageError("replace state file", err)
	}
	cleanup = false
	return nil
}
