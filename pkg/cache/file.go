package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FileCache keeps rendered diagrams as JSON files below one directory.
//
// A key's colon-separated segments, apart from the last, become directories,
// so "v0.3.0:render:svg:<sha>" lands under v0.3.0/render/svg/. Files are
// named by the SHA-256 of the whole key and sharded by its first two hex
// characters.
type FileCache struct {
	dir string
}

// NewFileCache opens the cache rooted at dir, creating it if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *FileCache) Dir() string { return c.dir }

// fileEntry is the on-disk form of one cached render.
type fileEntry struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Data      []byte    `json:"data"`
}

func (e *fileEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Get returns the entry for key. Expired and corrupt entries are removed
// and reported as [ErrCacheMiss].
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	path := c.path(key)
	e, err := readEntry(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, ErrCacheMiss
	case errors.Is(err, errCorrupt):
		_ = os.Remove(path)
		return nil, ErrCacheMiss
	case err != nil:
		return nil, err
	}
	if e.Key != key || e.expired(time.Now()) {
		_ = os.Remove(path)
		return nil, ErrCacheMiss
	}
	return e.Data, nil
}

// Set writes data for key. The file is replaced atomically so concurrent
// renders never read a partial entry.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	e := fileEntry{Key: key, CreatedAt: now, Data: data}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes key. A missing entry is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *FileCache) Close() error { return nil }

var _ Cache = (*FileCache)(nil)

// path maps key to its file.
func (c *FileCache) path(key string) string {
	segs := strings.Split(key, ":")
	elems := []string{c.dir}
	for _, s := range segs[:len(segs)-1] {
		elems = append(elems, cleanSegment(s))
	}
	name := digest(key)
	elems = append(elems, name[:2], name[2:]+".json")
	return filepath.Join(elems...)
}

// cleanSegment makes a key segment safe as a single directory name.
func cleanSegment(s string) string {
	out := []byte(s)
	for i, b := range out {
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '.', b == '-', b == '_':
		default:
			out[i] = '_'
		}
	}
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return string(out)
}

var errCorrupt = errors.New("corrupt cache entry")

func readEntry(path string) (*fileEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e fileEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, errCorrupt
	}
	return &e, nil
}

// =============================================================================
// Maintenance
// =============================================================================

// Usage summarizes the entries sharing one key prefix, such as
// "v0.3.0/render/svg".
type Usage struct {
	Group   string
	Entries int
	Expired int
	Bytes   int64
}

// Usage reports the cache contents per key prefix, sorted by group.
func (c *FileCache) Usage(ctx context.Context) ([]Usage, error) {
	groups := make(map[string]*Usage)
	now := time.Now()
	err := c.walk(ctx, func(path, group string, info fs.FileInfo) error {
		u, ok := groups[group]
		if !ok {
			u = &Usage{Group: group}
			groups[group] = u
		}
		u.Entries++
		u.Bytes += info.Size()
		if e, err := readEntry(path); err != nil || e.expired(now) {
			u.Expired++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]Usage, 0, len(groups))
	for _, u := range groups {
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b Usage) int { return strings.Compare(a.Group, b.Group) })
	return out, nil
}

// Prune removes expired and corrupt entries and returns how many it removed.
func (c *FileCache) Prune(ctx context.Context) (int, error) {
	removed := 0
	now := time.Now()
	err := c.walk(ctx, func(path, _ string, _ fs.FileInfo) error {
		e, err := readEntry(path)
		if err == nil && !e.expired(now) {
			return nil
		}
		if os.Remove(path) == nil {
			removed++
		}
		return nil
	})
	return removed, err
}

// walk calls fn for every entry file with its group, the directory path
// between the root and the shard.
func (c *FileCache) walk(ctx context.Context, fn func(path, group string, info fs.FileInfo) error) error {
	return filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(c.dir, filepath.Dir(filepath.Dir(path)))
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(path, filepath.ToSlash(rel), info)
	})
}
