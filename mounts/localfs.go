package mounts

import (
	"context"
	"fmt"
	"os"
	pathpkg "path"
	"path/filepath"

	"github.com/jackfish212/contentfs/types"
)

var (
	_ types.Provider         = (*LocalFS)(nil)
	_ types.Writable         = (*LocalFS)(nil)
	_ types.Mutable          = (*LocalFS)(nil)
	_ types.DiskInfoProvider = (*LocalFS)(nil)
)

// LocalFS exposes a host directory as a disk.
type LocalFS struct {
	root string
	perm types.Perm
}

func NewLocalFS(root string, perm types.Perm) *LocalFS {
	return &LocalFS{root: filepath.Clean(root), perm: perm}
}

// hostPath maps a disk path below root. Cleaning it as an absolute path
// first keeps ".." from climbing out of the disk.
func (fs *LocalFS) hostPath(diskPath string) string {
	return filepath.Join(fs.root, filepath.FromSlash(pathpkg.Clean("/"+diskPath)))
}

func (fs *LocalFS) Stat(_ context.Context, path string) (*types.Entry, error) {
	path = normPath(path)
	info, err := os.Stat(fs.hostPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
		}
		return nil, err
	}
	e := fs.infoToEntry(path, info)
	return &e, nil
}

func (fs *LocalFS) List(_ context.Context, path string) ([]types.Entry, error) {
	path = normPath(path)
	dirEntries, err := os.ReadDir(fs.hostPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
		}
		return nil, err
	}

	entries := make([]types.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, infoErr := de.Info()
		if infoErr != nil {
			continue
		}
		entries = append(entries, fs.infoToEntry(childPath(path, de.Name()), info))
	}
	return entries, nil
}

func (fs *LocalFS) Directories(ctx context.Context, path string) ([]string, error) {
	entries, err := fs.List(ctx, path)
	if err != nil {
		return nil, err
	}
	return dirPaths(entries), nil
}

func (fs *LocalFS) Put(_ context.Context, path string, content []byte) error {
	if !fs.perm.CanWrite() {
		return fmt.Errorf("%w: %s", types.ErrNotWritable, path)
	}
	hp := fs.hostPath(path)
	if err := os.MkdirAll(filepath.Dir(hp), 0o755); err != nil {
		return err
	}
	return os.WriteFile(hp, content, 0o644)
}

func (fs *LocalFS) Mkdir(_ context.Context, path string) error {
	if !fs.perm.CanWrite() {
		return fmt.Errorf("%w: %s", types.ErrNotWritable, path)
	}
	return os.MkdirAll(fs.hostPath(path), 0o755)
}

func (fs *LocalFS) infoToEntry(diskPath string, info os.FileInfo) types.Entry {
	perm := fs.perm
	if info.Mode().Perm()&0o004 == 0 {
		perm &^= types.PermRead
	}
	if info.IsDir() {
		return dirEntry(diskPath, info.ModTime(), perm)
	}
	return fileEntry(diskPath, info.Size(), info.ModTime(), perm)
}

func (fs *LocalFS) DiskInfo() (string, string) { return "localfs", fs.root }
