package lister

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackfish212/contentfs/types"
)

// ─── Test doubles ───

type diskMap map[string]types.Provider

func (d diskMap) Disk(name string) (types.Provider, error) {
	p, ok := d[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownDisk, name)
	}
	return p, nil
}

// fakeProvider serves a fixed listing and records backend calls.
type fakeProvider struct {
	listing   []types.Entry
	meta      map[string]types.Entry
	subdirs   map[string][]string
	listErr   error
	dirCalls  []string
	listCalls int
}

func (f *fakeProvider) List(_ context.Context, _ string) ([]types.Entry, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listing, nil
}

func (f *fakeProvider) Stat(_ context.Context, path string) (*types.Entry, error) {
	e, ok := f.meta[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	return &e, nil
}

func (f *fakeProvider) Directories(_ context.Context, path string) ([]string, error) {
	f.dirCalls = append(f.dirCalls, path)
	return f.subdirs[path], nil
}

// levels grants access per path; unknown paths get def.
type levels struct {
	byPath map[string]int
	def    int
	err    error
	calls  []string
}

func (a *levels) AccessLevel(_ context.Context, disk, path string) (int, error) {
	a.calls = append(a.calls, disk+":"+path)
	if a.err != nil {
		return 0, a.err
	}
	if l, ok := a.byPath[path]; ok {
		return l, nil
	}
	return a.def, nil
}

func file(path string, size int64) types.Entry {
	e := types.NewEntry(path, types.TypeFile)
	e.SetMeta("size", size)
	e.SetMeta("visibility", types.VisibilityPublic)
	return e
}

func dir(path string) types.Entry {
	return types.NewEntry(path, types.TypeDir)
}

func setup(t *testing.T, opts ...Option) (*ContentLister, *fakeProvider) {
	t.Helper()
	p := &fakeProvider{
		listing: []types.Entry{
			dir("docs/Photos"),
			file("docs/report.PDF", 1024),
			dir("docs/archive"),
			file("docs/notes.txt", 12),
			dir("docs/photos-old"),
		},
		meta:    map[string]types.Entry{},
		subdirs: map[string][]string{"docs/Photos": {"docs/Photos/2024"}},
	}
	return New(diskMap{"public": p}, opts...), p
}

func paths(entries []types.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

// ─── Listings ───

func TestContentPartitions(t *testing.T) {
	l, _ := setup(t)

	got, err := l.Content(context.Background(), "public", "docs", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/Photos", "docs/archive", "docs/photos-old"}, paths(got.Directories))
	assert.Equal(t, []string{"docs/report.PDF", "docs/notes.txt"}, paths(got.Files))

	for _, d := range got.Directories {
		assert.Equal(t, types.TypeDir, d.Type)
		assert.Nil(t, d.Filename, "directory %s carries a filename", d.Path)
		assert.Nil(t, d.ACL)
	}
	for _, f := range got.Files {
		assert.Equal(t, types.TypeFile, f.Type)
		require.NotNil(t, f.Filename)
	}
	assert.Equal(t, int64(1024), got.Files[0].Size())
}

func TestContentSearch(t *testing.T) {
	l, _ := setup(t)

	got, err := l.Content(context.Background(), "public", "docs", "PHOTO")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/Photos", "docs/photos-old"}, paths(got.Directories))
	assert.Empty(t, got.Files)

	got, err = l.Content(context.Background(), "public", "docs", "report")
	require.NoError(t, err)
	assert.Empty(t, got.Directories)
	assert.Equal(t, []string{"docs/report.PDF"}, paths(got.Files))
}

func TestSearchMatchesDirectoryPathAndFileBasename(t *testing.T) {
	p := &fakeProvider{listing: []types.Entry{
		dir("Photos"),
		dir("docs/photos"),
		file("photos/readme.txt", 1),
		file("report.PDF", 1),
		file("notes.txt", 1),
	}}
	l := New(diskMap{"d": p})

	dirs, err := l.DirectoriesWithProperties(context.Background(), "d", "", "photo")
	require.NoError(t, err)
	assert.Equal(t, []string{"Photos", "docs/photos"}, paths(dirs))

	got, err := l.Content(context.Background(), "d", "", "photo")
	require.NoError(t, err)
	assert.Empty(t, got.Files, "file search must not look at the directory part of the path")

	got, err = l.Content(context.Background(), "d", "", "report")
	require.NoError(t, err)
	assert.Equal(t, []string{"report.PDF"}, paths(got.Files))
}

func TestFilesWithProperties(t *testing.T) {
	l, _ := setup(t)

	files, err := l.FilesWithProperties(context.Background(), "public", "docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/report.PDF", "docs/notes.txt"}, paths(files))
}

func TestEmptyListingsAreNotNil(t *testing.T) {
	l := New(diskMap{"d": &fakeProvider{}})

	got, err := l.Content(context.Background(), "d", "", "")
	require.NoError(t, err)
	assert.NotNil(t, got.Directories)
	assert.NotNil(t, got.Files)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"directories":[],"files":[]}`, string(data))
}

func TestListingDoesNotMutateBackendEntries(t *testing.T) {
	l, p := setup(t, WithACL(&levels{def: 1}, false))

	_, err := l.Content(context.Background(), "public", "docs", "")
	require.NoError(t, err)
	for _, e := range p.listing {
		assert.Nil(t, e.ACL)
		if e.IsDir() {
			assert.NotNil(t, e.Filename, "backend entry %s was modified", e.Path)
		}
	}
}

func TestListingIdempotent(t *testing.T) {
	l, _ := setup(t, WithACL(&levels{def: 2}, true))
	ctx := context.Background()

	first, err := l.Content(ctx, "public", "docs", "o")
	require.NoError(t, err)
	second, err := l.Content(ctx, "public", "docs", "o")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUnknownDisk(t *testing.T) {
	l, _ := setup(t)
	ctx := context.Background()

	_, err := l.Content(ctx, "s3", "", "")
	assert.ErrorIs(t, err, types.ErrUnknownDisk)
	_, err = l.DirectoryTree(ctx, "s3", "", "")
	assert.ErrorIs(t, err, types.ErrUnknownDisk)
	_, err = l.FileProperties(ctx, "s3", "a.txt")
	assert.ErrorIs(t, err, types.ErrUnknownDisk)
	_, err = l.DirectoryProperties(ctx, "s3", "a")
	assert.ErrorIs(t, err, types.ErrUnknownDisk)
}

func TestBackendErrorPropagates(t *testing.T) {
	boom := errors.New("bucket unreachable")
	p := &fakeProvider{listErr: boom}
	l := New(diskMap{"d": p})
	ctx := context.Background()

	_, err := l.Content(ctx, "d", "", "")
	assert.Same(t, boom, err)
	_, err = l.DirectoriesWithProperties(ctx, "d", "", "")
	assert.Same(t, boom, err)
	_, err = l.FilesWithProperties(ctx, "d", "")
	assert.Same(t, boom, err)
	_, err = l.DirectoryTree(ctx, "d", "", "")
	assert.Same(t, boom, err)
}

// ─── Directory tree ───

func TestDirectoryTree(t *testing.T) {
	l, p := setup(t)

	dirs, err := l.DirectoryTree(context.Background(), "public", "docs", "")
	require.NoError(t, err)
	require.Len(t, dirs, 3)
	assert.Equal(t, []string{"docs/Photos", "docs/archive", "docs/photos-old"}, p.dirCalls)

	want := map[string]bool{"docs/Photos": true, "docs/archive": false, "docs/photos-old": false}
	for _, d := range dirs {
		require.NotNil(t, d.Props, d.Path)
		assert.Equal(t, want[d.Path], d.Props.HasSubdirectories, d.Path)
	}
}

func TestDirectoryTreeSearchAndHiddenSkipBackendCalls(t *testing.T) {
	acl := &levels{byPath: map[string]int{"docs/photos-old": 0}, def: 1}
	l, p := setup(t, WithACL(acl, true))

	dirs, err := l.DirectoryTree(context.Background(), "public", "docs", "photo")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/Photos"}, paths(dirs))
	assert.Equal(t, []string{"docs/Photos"}, p.dirCalls)
}

// ─── ACL ───

func TestACLTagsWithoutHiding(t *testing.T) {
	acl := &levels{byPath: map[string]int{"docs/archive": 0, "docs/notes.txt": 0}, def: 2}
	l, _ := setup(t, WithACL(acl, false))
	assert.True(t, l.ACLEnabled())

	got, err := l.Content(context.Background(), "public", "docs", "")
	require.NoError(t, err)
	require.Len(t, got.Directories, 3)
	require.Len(t, got.Files, 2)

	for _, e := range append(got.Directories, got.Files...) {
		require.NotNil(t, e.ACL, e.Path)
		want := 2
		if e.Path == "docs/archive" || e.Path == "docs/notes.txt" {
			want = 0
		}
		assert.Equal(t, want, *e.ACL, e.Path)
	}
}

func TestACLHidesNoAccess(t *testing.T) {
	acl := &levels{byPath: map[string]int{"docs/archive": 0, "docs/notes.txt": 0}, def: 1}
	l, _ := setup(t, WithACL(acl, true))

	got, err := l.Content(context.Background(), "public", "docs", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/Photos", "docs/photos-old"}, paths(got.Directories))
	assert.Equal(t, []string{"docs/report.PDF"}, paths(got.Files))
	for _, e := range got.Files {
		assert.Equal(t, 1, *e.ACL)
	}
}

func TestSearchRunsBeforeACL(t *testing.T) {
	acl := &levels{def: 1}
	l, _ := setup(t, WithACL(acl, true))

	_, err := l.DirectoriesWithProperties(context.Background(), "public", "docs", "archive")
	require.NoError(t, err)
	assert.Equal(t, []string{"public:docs/archive"}, acl.calls)
}

func TestACLErrorPropagates(t *testing.T) {
	boom := errors.New("acl store down")
	l, p := setup(t, WithACL(&levels{err: boom}, false))
	p.meta["docs/notes.txt"] = file("docs/notes.txt", 12)

	_, err := l.Content(context.Background(), "public", "docs", "")
	assert.ErrorIs(t, err, boom)
	_, err = l.FileProperties(context.Background(), "public", "docs/notes.txt")
	assert.ErrorIs(t, err, boom)
}

func TestACLDisabledByDefault(t *testing.T) {
	l, _ := setup(t)
	assert.False(t, l.ACLEnabled())
}

// ─── Properties ───

func TestFileProperties(t *testing.T) {
	tests := []struct {
		path                                  string
		basename, dirname, extension, filename string
	}{
		{"docs/report.pdf", "report.pdf", "docs", "pdf", "report"},
		{"file.txt", "file.txt", "", "txt", "file"},
		{"README", "README", "", "", "README"},
		{"a/b/archive.tar.gz", "archive.tar.gz", "a/b", "gz", "archive.tar"},
		{".env", ".env", "", "env", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p := &fakeProvider{meta: map[string]types.Entry{tt.path: file(tt.path, 5)}}
			l := New(diskMap{"d": p})

			e, err := l.FileProperties(context.Background(), "d", tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.path, e.Path)
			assert.Equal(t, types.TypeFile, e.Type)
			assert.Equal(t, tt.basename, e.Basename)
			require.NotNil(t, e.Dirname)
			assert.Equal(t, tt.dirname, *e.Dirname)
			require.NotNil(t, e.Extension)
			assert.Equal(t, tt.extension, *e.Extension)
			require.NotNil(t, e.Filename)
			assert.Equal(t, tt.filename, *e.Filename)
			assert.Equal(t, int64(5), e.Size())
			assert.Nil(t, e.ACL)
		})
	}
}

func TestFilePropertiesNotFound(t *testing.T) {
	l := New(diskMap{"d": &fakeProvider{}})

	_, err := l.FileProperties(context.Background(), "d", "missing.txt")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDirectoryPropertiesSynthesizesMissingMetadata(t *testing.T) {
	l := New(diskMap{"d": &fakeProvider{}})

	e, err := l.DirectoryProperties(context.Background(), "d", "photos/2024")
	require.NoError(t, err)
	assert.Equal(t, "photos/2024", e.Path)
	assert.Equal(t, types.TypeDir, e.Type)
	assert.Equal(t, "2024", e.Basename)
	require.NotNil(t, e.Dirname)
	assert.Equal(t, "photos", *e.Dirname)
	assert.Nil(t, e.Extension)
	assert.Nil(t, e.Filename)
	assert.Empty(t, e.Meta)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"photos/2024","type":"dir","basename":"2024","dirname":"photos"}`, string(data))
}

func TestDirectoryPropertiesWithMetadata(t *testing.T) {
	d := dir("docs")
	d.SetMeta("timestamp", int64(1700000000))
	l := New(diskMap{"d": &fakeProvider{meta: map[string]types.Entry{"docs": d}}})

	e, err := l.DirectoryProperties(context.Background(), "d", "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), e.Meta["timestamp"])
	require.NotNil(t, e.Dirname)
	assert.Equal(t, "", *e.Dirname)
	assert.Nil(t, e.Filename)
}

type brokenStat struct{ fakeProvider }

var errStat = errors.New("stat failed")

func (b *brokenStat) Stat(context.Context, string) (*types.Entry, error) { return nil, errStat }

func TestDirectoryPropertiesBackendError(t *testing.T) {
	l := New(diskMap{"d": &brokenStat{}})

	_, err := l.DirectoryProperties(context.Background(), "d", "docs")
	assert.ErrorIs(t, err, errStat)
}

func TestPropertiesACL(t *testing.T) {
	p := &fakeProvider{meta: map[string]types.Entry{
		"open.txt":   file("open.txt", 1),
		"closed.txt": file("closed.txt", 1),
	}}
	acl := &levels{byPath: map[string]int{"closed.txt": 0, "closed": 0}, def: 2}
	ctx := context.Background()

	tagging := New(diskMap{"d": p}, WithACL(acl, false))
	e, err := tagging.FileProperties(ctx, "d", "closed.txt")
	require.NoError(t, err)
	require.NotNil(t, e.ACL)
	assert.Equal(t, 0, *e.ACL)

	hiding := New(diskMap{"d": p}, WithACL(acl, true))
	e, err = hiding.FileProperties(ctx, "d", "open.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, *e.ACL)

	_, err = hiding.FileProperties(ctx, "d", "closed.txt")
	assert.ErrorIs(t, err, types.ErrAccessDenied)
	_, err = hiding.DirectoryProperties(ctx, "d", "closed")
	assert.ErrorIs(t, err, types.ErrAccessDenied)

	e, err = hiding.DirectoryProperties(ctx, "d", "open")
	require.NoError(t, err)
	assert.Equal(t, 2, *e.ACL)
}
