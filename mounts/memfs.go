package mounts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackfish212/contentfs/types"
)

var (
	_ types.Provider         = (*MemFS)(nil)
	_ types.Writable         = (*MemFS)(nil)
	_ types.Mutable          = (*MemFS)(nil)
	_ types.DiskInfoProvider = (*MemFS)(nil)
)

// MemFS is an in-memory disk with object-store semantics: objects are keyed
// by their full path and directories exist implicitly as key prefixes. Only
// directories created with AddDir or Mkdir have metadata; Stat on a pure
// prefix reports ErrNotFound, the way S3 reports nothing for a "folder".
type MemFS struct {
	mu      sync.RWMutex
	objects map[string]*memObject
	perm    types.Perm
}

type memObject struct {
	content  []byte
	isDir    bool
	perm     types.Perm
	modified time.Time
}

// NewMemFS creates an empty in-memory disk. perm bounds what Put may do.
func NewMemFS(perm types.Perm) *MemFS {
	return &MemFS{objects: make(map[string]*memObject), perm: perm}
}

func (fs *MemFS) AddFile(path string, content []byte, perm types.Perm) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.objects[normPath(path)] = &memObject{content: bytes.Clone(content), perm: perm, modified: time.Now()}
	slog.Debug("memfs: added file", "path", path, "size", len(content), "perm", perm)
}

func (fs *MemFS) AddDir(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.objects[normPath(path)] = &memObject{isDir: true, perm: types.PermRX, modified: time.Now()}
	slog.Debug("memfs: added directory", "path", path)
}

func (fs *MemFS) Stat(_ context.Context, path string) (*types.Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	path = normPath(path)
	if path == "" {
		e := dirEntry("", time.Time{}, types.PermRX)
		return &e, nil
	}

	o, ok := fs.objects[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	e := o.toEntry(path)
	return &e, nil
}

func (fs *MemFS) List(_ context.Context, path string) ([]types.Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	path = normPath(path)
	prefix := path + "/"
	if path == "" {
		prefix = ""
	}

	if o, ok := fs.objects[path]; ok && !o.isDir {
		return nil, fmt.Errorf("%w: %s", types.ErrNotDir, path)
	}

	seen := make(map[string]bool)
	var entries []types.Entry

	for k, o := range fs.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if rest == "" {
			continue
		}

		name := rest
		isImplicitDir := false
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			name = rest[:idx]
			isImplicitDir = true
		}

		if seen[name] {
			continue
		}
		seen[name] = true

		child := prefix + name
		if !isImplicitDir {
			entries = append(entries, o.toEntry(child))
		} else if explicit, ok := fs.objects[child]; ok {
			entries = append(entries, explicit.toEntry(child))
		} else {
			entries = append(entries, dirEntry(child, time.Time{}, types.PermRX))
		}
	}

	if _, explicit := fs.objects[path]; path != "" && !explicit && len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (fs *MemFS) Directories(ctx context.Context, path string) ([]string, error) {
	entries, err := fs.List(ctx, path)
	if err != nil {
		return nil, err
	}
	return dirPaths(entries), nil
}

func (fs *MemFS) Put(_ context.Context, path string, content []byte) error {
	if !fs.perm.CanWrite() {
		return fmt.Errorf("%w: %s", types.ErrNotWritable, path)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	p := normPath(path)
	if existing, ok := fs.objects[p]; ok {
		if existing.isDir {
			return fmt.Errorf("%w: %s is a directory", types.ErrNotWritable, path)
		}
		existing.content = bytes.Clone(content)
		existing.modified = time.Now()
	} else {
		fs.objects[p] = &memObject{content: bytes.Clone(content), perm: fs.perm, modified: time.Now()}
	}
	return nil
}

func (fs *MemFS) Mkdir(_ context.Context, path string) error {
	if !fs.perm.CanWrite() {
		return fmt.Errorf("%w: %s", types.ErrNotWritable, path)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	p := normPath(path)
	if p == "" {
		return fmt.Errorf("%w: cannot mkdir root", types.ErrNotSupported)
	}
	if o, ok := fs.objects[p]; ok && !o.isDir {
		return fmt.Errorf("%w: %s", types.ErrNotDir, p)
	}
	fs.objects[p] = &memObject{isDir: true, perm: types.PermRX, modified: time.Now()}
	return nil
}

func (o *memObject) toEntry(path string) types.Entry {
	if o.isDir {
		return dirEntry(path, o.modified, o.perm)
	}
	return fileEntry(path, int64(len(o.content)), o.modified, o.perm)
}

func (fs *MemFS) DiskInfo() (string, string) { return "memfs", "in-memory" }
