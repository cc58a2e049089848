// Package lister produces directory and file listings for named disks.
//
// Listings are split into directories and files, optionally narrowed by a
// case-insensitive search term and, when an access checker is configured,
// tagged with the caller's access level. Directories are searched by full
// path and files by basename. Search always runs before the access filter.
package lister

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackfish212/contentfs/types"
)

// Disks resolves a disk name to its provider.
type Disks interface {
	Disk(name string) (types.Provider, error)
}

// Listing is the result of Content.
type Listing struct {
	Directories []types.Entry `json:"directories"`
	Files       []types.Entry `json:"files"`
}

// Option configures a ContentLister.
type Option func(*ContentLister)

// WithACL enables access filtering through checker. With hideNoAccess set,
// entries whose access level is 0 are dropped instead of only being tagged.
func WithACL(checker types.AccessChecker, hideNoAccess bool) Option {
	return func(l *ContentLister) {
		l.acl = checker
		l.hideNoAccess = hideNoAccess
	}
}

// ContentLister holds no per-call state and is safe for concurrent use as
// long as the providers and the access checker are.
type ContentLister struct {
	disks        Disks
	acl          types.AccessChecker
	hideNoAccess bool
}

// New creates a lister over disks, configured by opts.
func New(disks Disks, opts ...Option) *ContentLister {
	l := &ContentLister{disks: disks}
	for _, o := range opts {
		o(l)
	}
	return l
}

// ACLEnabled reports whether listings are filtered by an access checker.
func (l *ContentLister) ACLEnabled() bool { return l.acl != nil }

// ─── Listings ───

// Content lists path on disk and splits the result into directories and
// files, both filtered by search.
func (l *ContentLister) Content(ctx context.Context, disk, path, search string) (Listing, error) {
	content, err := l.list(ctx, disk, path)
	if err != nil {
		return Listing{}, err
	}
	dirs, err := l.filter(ctx, disk, content, search, types.TypeDir)
	if err != nil {
		return Listing{}, err
	}
	files, err := l.filter(ctx, disk, content, search, types.TypeFile)
	if err != nil {
		return Listing{}, err
	}
	slog.Debug("lister: content", "disk", disk, "path", path, "search", search,
		"directories", len(dirs), "files", len(files))
	return Listing{Directories: dirs, Files: files}, nil
}

// DirectoriesWithProperties lists only the directories under path.
func (l *ContentLister) DirectoriesWithProperties(ctx context.Context, disk, path, search string) ([]types.Entry, error) {
	content, err := l.list(ctx, disk, path)
	if err != nil {
		return nil, err
	}
	dirs, err := l.filter(ctx, disk, content, search, types.TypeDir)
	if err != nil {
		return nil, err
	}
	slog.Debug("lister: directories", "disk", disk, "path", path, "search", search, "count", len(dirs))
	return dirs, nil
}

// FilesWithProperties lists only the files under path. It takes no search
// term; use Content to search files.
func (l *ContentLister) FilesWithProperties(ctx context.Context, disk, path string) ([]types.Entry, error) {
	content, err := l.list(ctx, disk, path)
	if err != nil {
		return nil, err
	}
	files, err := l.filter(ctx, disk, content, "", types.TypeFile)
	if err != nil {
		return nil, err
	}
	slog.Debug("lister: files", "disk", disk, "path", path, "count", len(files))
	return files, nil
}

// DirectoryTree lists the directories under path and marks each one that has
// subdirectories of its own. It costs one extra backend call per directory.
func (l *ContentLister) DirectoryTree(ctx context.Context, disk, path, search string) ([]types.Entry, error) {
	p, err := l.disks.Disk(disk)
	if err != nil {
		return nil, err
	}
	dirs, err := l.DirectoriesWithProperties(ctx, disk, path, search)
	if err != nil {
		return nil, err
	}
	for i := range dirs {
		sub, err := p.Directories(ctx, dirs[i].Path)
		if err != nil {
			return nil, err
		}
		dirs[i].Props = &types.Props{HasSubdirectories: len(sub) > 0}
	}
	return dirs, nil
}

// ─── Single entries ───

// FileProperties returns the metadata of the file at path, enriched with its
// basename, dirname, extension and filename. A backend without metadata for
// path yields an error wrapping types.ErrNotFound.
func (l *ContentLister) FileProperties(ctx context.Context, disk, path string) (*types.Entry, error) {
	p, err := l.disks.Disk(disk)
	if err != nil {
		return nil, err
	}
	meta, err := p.Stat(ctx, path)
	if err != nil {
		return nil, err
	}

	e := meta.Clone()
	info := types.SplitPath(path)
	e.Basename = info.Basename
	e.Dirname = &info.Dirname
	e.Extension = &info.Extension
	e.Filename = &info.Filename

	return l.single(ctx, disk, e)
}

// DirectoryProperties returns the metadata of the directory at path,
// enriched with its basename and dirname. Object stores keep no metadata for
// directories that only exist as key prefixes; those get a bare entry
// holding just the path and the dir type.
func (l *ContentLister) DirectoryProperties(ctx context.Context, disk, path string) (*types.Entry, error) {
	p, err := l.disks.Disk(disk)
	if err != nil {
		return nil, err
	}

	var e types.Entry
	meta, err := p.Stat(ctx, path)
	switch {
	case errors.Is(err, types.ErrNotFound):
		slog.Debug("lister: no directory metadata", "disk", disk, "path", path)
		e = types.Entry{Path: path, Type: types.TypeDir}
	case err != nil:
		return nil, err
	default:
		e = meta.Clone()
		e.Filename = nil
	}

	info := types.SplitPath(path)
	e.Basename = info.Basename
	e.Dirname = &info.Dirname

	return l.single(ctx, disk, e)
}

// ─── Internals ───

func (l *ContentLister) list(ctx context.Context, disk, path string) ([]types.Entry, error) {
	p, err := l.disks.Disk(disk)
	if err != nil {
		return nil, err
	}
	return p.List(ctx, path)
}

// filter partitions content and applies the access filter when enabled.
func (l *ContentLister) filter(ctx context.Context, disk string, content []types.Entry, search string, kind types.EntryType) ([]types.Entry, error) {
	entries := partition(content, search, kind)
	if l.acl == nil {
		return entries, nil
	}
	return l.aclFilter(ctx, disk, entries)
}

// partition keeps the entries of the given kind, in backend order. Directory
// entries lose their filename. A non-empty search keeps directories whose
// path and files whose basename contain it, ignoring case. The result never
// aliases content.
func partition(content []types.Entry, search string, kind types.EntryType) []types.Entry {
	search = strings.ToLower(search)
	out := make([]types.Entry, 0, len(content))
	for _, item := range content {
		if item.Type != kind {
			continue
		}
		field := item.Basename
		if kind == types.TypeDir {
			field = item.Path
		}
		if search != "" && !strings.Contains(strings.ToLower(field), search) {
			continue
		}
		e := item.Clone()
		if kind == types.TypeDir {
			e.Filename = nil
		}
		out = append(out, e)
	}
	return out
}

// aclFilter tags every entry with its access level and, when hiding is on,
// drops entries without access. Order is preserved.
func (l *ContentLister) aclFilter(ctx context.Context, disk string, entries []types.Entry) ([]types.Entry, error) {
	out := entries[:0]
	for _, e := range entries {
		level, err := l.acl.AccessLevel(ctx, disk, e.Path)
		if err != nil {
			return nil, err
		}
		e.ACL = &level
		if l.hideNoAccess && level == 0 {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *ContentLister) single(ctx context.Context, disk string, e types.Entry) (*types.Entry, error) {
	if l.acl == nil {
		return &e, nil
	}
	tagged, err := l.aclFilter(ctx, disk, []types.Entry{e})
	if err != nil {
		return nil, err
	}
	if len(tagged) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrAccessDenied, e.Path)
	}
	return &tagged[0], nil
}
