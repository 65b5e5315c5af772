// Package pagecache stores page artifacts on durable storage and holds the
// single read-ahead slot for the page next to the current one.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/five82/inkreader/internal/pager"
	"github.com/five82/inkreader/internal/session"
)

const (
	pageExt         = ".page"
	pageFileMode    = 0o644
	pageDirMode     = 0o755
	tempFilePattern = ".page-*.tmp"
)

// Fetcher pulls a page artifact by index.
type Fetcher interface {
	Fetch(ctx context.Context, index int) (pager.Artifact, error)
}

// slot is the read-ahead entry. It is trusted only while the page count it was
// filled under still holds.
type slot struct {
	index     int
	dir       pager.Direction
	pageCount int
	artifact  pager.Artifact
}

// Cache is owned by the device loop; it is not safe for concurrent use.
type Cache struct {
	fs      afero.Fs
	dir     string
	session *session.Session
	fetcher Fetcher
	logger  *slog.Logger
	slot    *slot
}

// New prepares dir on fsys and returns a cache reading the current position
// from sess.
func New(fsys afero.Fs, dir string, sess *session.Session, fetcher Fetcher, logger *slog.Logger) (*Cache, error) {
	if fsys == nil {
		return nil, fmt.Errorf("page cache requires a filesystem")
	}
	if sess == nil {
		return nil, fmt.Errorf("page cache requires a session")
	}
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("page cache dir is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := fsys.MkdirAll(dir, pageDirMode); err != nil {
		return nil, pager.StorageError("create page dir", err)
	}
	return &Cache{fs: fsys, dir: dir, session: sess, fetcher: fetcher, logger: logger}, nil
}

func (c *Cache) pagePath(index int) string {
	return path.Join(c.dir, strconv.Itoa(index)+pageExt)
}

// Get returns the durable artifact for index. A missing page is (zero, false, nil).
func (c *Cache) Get(index int) (pager.Artifact, bool, error) {
	data, err := afero.ReadFile(c.fs, c.pagePath(index))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pager.Artifact{}, false, nil
		}
		return pager.Artifact{}, false, pager.StorageError(fmt.Sprintf("read page %d", index), err)
	}
	if len(data) == 0 {
		return pager.Artifact{}, false, nil
	}
	return pager.NewArtifact(data), true, nil
}

// Has reports whether index is durably cached.
func (c *Cache) Has(index int) bool {
	info, err := c.fs.Stat(c.pagePath(index))
	return err == nil && info.Size() > 0
}

// Store writes a through a temp file and renames it over any previous copy.
func (c *Cache) Store(index int, a pager.Artifact) error {
	op := fmt.Sprintf("store page %d", index)
	if a.IsZero() {
		return pager.StorageError(op, fmt.Errorf("empty artifact"))
	}

	tmp, err := afero.TempFile(c.fs, c.dir, tempFilePattern)
	if err != nil {
		return pager.StorageError(op, err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = c.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(a.Bytes()); err != nil {
		_ = tmp.Close()
		return pager.StorageError(op, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return pager.StorageError(op, err)
	}
	if err := tmp.Close(); err != nil {
		return pager.StorageError(op, err)
	}
	if err := c.fs.Chmod(tmpName, pageFileMode); err != nil {
		return pager.StorageError(op, err)
	}
	if err := c.fs.Rename(tmpName, c.pagePath(index)); err != nil {
		return pager.StorageError(op, err)
	}
	cleanup = false
	return nil
}

// Prefetch reads one page ahead of the current page in dir. Out-of-range
// targets and pages already on storage are left alone.
func (c *Cache) Prefetch(ctx context.Context, dir pager.Direction) error {
	target := c.session.Target(dir)
	if !pager.InRange(target, c.session.PageCount) {
		return nil
	}
	if c.Has(target) {
		return nil
	}
	if c.fetcher == nil {
		return fmt.Errorf("prefetch page %d: no fetcher", target)
	}

	c.session.Downloading = true
	a, err := c.fetcher.Fetch(ctx, target)
	c.session.Downloading = false
	if err != nil {
		return err
	}
	if err := c.Store(target, a); err != nil {
		return err
	}

	c.slot = &slot{index: target, dir: dir, pageCount: c.session.PageCount, artifact: a}
	c.logger.Debug("pagecache: prefetched page", "page", target, "direction", dir.String(), "bytes", a.Len())
	return nil
}

// TakeIfMatches hands out the read-ahead artifact when it was fetched for
// target in dir under the current page count. The slot is cleared either way.
func (c *Cache) TakeIfMatches(target int, dir pager.Direction) (pager.Artifact, bool) {
	s := c.slot
	c.slot = nil
	if s == nil {
		return pager.Artifact{}, false
	}
	if s.index != target || s.dir != dir || s.pageCount != c.session.PageCount {
		c.logger.Debug("pagecache: discarding read-ahead slot",
			"slot_page", s.index, "slot_direction", s.dir.String(),
			"target", target, "direction", dir.String())
		return pager.Artifact{}, false
	}
	return s.artifact, true
}

// Pending describes the live read-ahead slot, if any.
func (c *Cache) Pending() (index int, dir pager.Direction, ok bool) {
	if c.slot == nil {
		return pager.Unset, pager.Next, false
	}
	return c.slot.index, c.slot.dir, true
}

// Invalidate drops the read-ahead slot without touching storage.
func (c *Cache) Invalidate() {
	c.slot = nil
}

// ClearAll removes every stored page and the read-ahead slot.
func (c *Cache) ClearAll() error {
	c.slot = nil
	if err := c.fs.RemoveAll(c.dir); err != nil {
		return pager.StorageError("clear page dir", err)
	}
	if err := c.fs.MkdirAll(c.dir, pageDirMode); err != nil {
		return pager.StorageError("create page dir", err)
	}
	return nil
}

// Len returns the number of pages on storage.
func (c *Cache) Len() int {
	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		c.logger.Warn("pagecache: list pages failed", "dir", c.dir, "error", err)
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), pageExt) {
			n++
		}
	}
	return n
}
