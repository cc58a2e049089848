package contentfs_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	contentfs "github.com/jackfish212/contentfs"
	"github.com/jackfish212/contentfs/acl"
	"github.com/jackfish212/contentfs/dbfs"
	"github.com/jackfish212/contentfs/lister"
	"github.com/jackfish212/contentfs/mounts"

	_ "modernc.org/sqlite"
)

var seed = map[string]string{
	"readme.md":               "# contentfs",
	"docs/report.pdf":         "%PDF",
	"docs/notes.txt":          "notes",
	"docs/archive/2023.zip":   "PK",
	"photos/2024/cat.jpg":     "jpg",
	"photos/2024/dog.jpg":     "jpg",
	"photos/summer/beach.png": "png",
}

type seedable interface {
	contentfs.Provider
	contentfs.Writable
}

func setupIntegration(t *testing.T) *contentfs.DiskTable {
	t.Helper()
	db, err := dbfs.Open("sqlite", filepath.Join(t.TempDir(), "files.db"), contentfs.PermRW)
	if err != nil {
		t.Fatalf("dbfs.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	disks := map[string]seedable{
		"mem":   mounts.NewMemFS(contentfs.PermRW),
		"local": mounts.NewLocalFS(t.TempDir(), contentfs.PermRW),
		"db":    db,
	}

	dt := contentfs.NewDiskTable()
	ctx := context.Background()
	for name, p := range disks {
		for path, content := range seed {
			if err := p.Put(ctx, path, []byte(content)); err != nil {
				t.Fatalf("%s: Put %s: %v", name, path, err)
			}
		}
		if err := dt.Add(name, p); err != nil {
			t.Fatal(err)
		}
	}
	return dt
}

func entryPaths(entries []contentfs.Entry) map[string]bool {
	m := make(map[string]bool, len(entries))
	for _, e := range entries {
		m[e.Path] = true
	}
	return m
}

func TestIntegrationListingAcrossBackends(t *testing.T) {
	dt := setupIntegration(t)
	l := lister.New(dt)
	ctx := context.Background()

	for _, disk := range dt.Names() {
		t.Run(disk, func(t *testing.T) {
			root, err := l.Content(ctx, disk, "", "")
			if err != nil {
				t.Fatalf("Content root: %v", err)
			}
			dirs, files := entryPaths(root.Directories), entryPaths(root.Files)
			if len(dirs) != 2 || !dirs["docs"] || !dirs["photos"] {
				t.Errorf("root dirs = %v", root.Directories)
			}
			if len(files) != 1 || !files["readme.md"] {
				t.Errorf("root files = %v", root.Files)
			}

			docs, err := l.Content(ctx, disk, "docs", "NOTE")
			if err != nil {
				t.Fatalf("Content docs: %v", err)
			}
			if len(docs.Directories) != 0 || len(docs.Files) != 1 || docs.Files[0].Basename != "notes.txt" {
				t.Errorf("docs search = %+v", docs)
			}
			if docs.Files[0].Size() != int64(len("notes")) {
				t.Errorf("notes.txt size = %d", docs.Files[0].Size())
			}

			tree, err := l.DirectoryTree(ctx, disk, "photos", "")
			if err != nil {
				t.Fatalf("DirectoryTree: %v", err)
			}
			if len(tree) != 2 {
				t.Fatalf("tree = %v", tree)
			}
			for _, d := range tree {
				if d.Props == nil || d.Props.HasSubdirectories {
					t.Errorf("%s: props = %+v, want no subdirectories", d.Path, d.Props)
				}
			}

			tree, err = l.DirectoryTree(ctx, disk, "", "")
			if err != nil {
				t.Fatalf("DirectoryTree root: %v", err)
			}
			for _, d := range tree {
				if !d.Props.HasSubdirectories {
					t.Errorf("%s should have subdirectories", d.Path)
				}
			}

			fp, err := l.FileProperties(ctx, disk, "docs/report.pdf")
			if err != nil {
				t.Fatalf("FileProperties: %v", err)
			}
			if *fp.Dirname != "docs" || *fp.Extension != "pdf" || *fp.Filename != "report" {
				t.Errorf("FileProperties = %+v", fp)
			}

			_, err = l.FileProperties(ctx, disk, "docs/missing.pdf")
			if !errors.Is(err, contentfs.ErrNotFound) {
				t.Errorf("FileProperties missing err = %v", err)
			}

			dp, err := l.DirectoryProperties(ctx, disk, "photos/2024")
			if err != nil {
				t.Fatalf("DirectoryProperties: %v", err)
			}
			if dp.Type != contentfs.TypeDir || dp.Basename != "2024" || *dp.Dirname != "photos" || dp.Filename != nil {
				t.Errorf("DirectoryProperties = %+v", dp)
			}
		})
	}
}

func TestIntegrationObjectStoreDirectoriesHaveNoMetadata(t *testing.T) {
	dt := setupIntegration(t)
	l := lister.New(dt)
	ctx := context.Background()

	for _, disk := range []string{"mem", "db"} {
		dp, err := l.DirectoryProperties(ctx, disk, "docs")
		if err != nil {
			t.Fatalf("%s: %v", disk, err)
		}
		if len(dp.Meta) != 0 {
			t.Errorf("%s: implicit directory should carry no metadata, got %v", disk, dp.Meta)
		}
	}

	dp, err := l.DirectoryProperties(ctx, "local", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if dp.Meta["timestamp"] == nil {
		t.Errorf("local directory should report a timestamp: %v", dp.Meta)
	}
}

func TestIntegrationACL(t *testing.T) {
	dt := setupIntegration(t)
	svc := acl.NewService(acl.NewConfigRepository([]acl.Rule{
		{UserID: "alice", Disk: "db", Path: "photos*", Access: acl.ReadWrite},
		{UserID: acl.AnyUser, Disk: "db", Path: "photos*", Access: acl.None},
		{UserID: acl.AnyUser, Disk: "db", Path: "*", Access: acl.Read},
	}), acl.Whitelist)
	l := lister.New(dt, lister.WithACL(svc, true))

	anon := context.Background()
	alice := acl.WithUser(context.Background(), "alice")

	got, err := l.Content(anon, "db", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if dirs := entryPaths(got.Directories); dirs["photos"] || !dirs["docs"] {
		t.Errorf("anonymous dirs = %v", got.Directories)
	}

	got, err = l.Content(alice, "db", "", "")
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range got.Directories {
		want := acl.Read
		if d.Path == "photos" {
			want = acl.ReadWrite
		}
		if *d.ACL != want {
			t.Errorf("alice %s acl = %d, want %d", d.Path, *d.ACL, want)
		}
	}

	got, err = l.Content(anon, "mem", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Directories)+len(got.Files) != 0 {
		t.Errorf("whitelist without rules for mem should hide everything: %+v", got)
	}

	if _, err := l.FileProperties(anon, "db", "photos/2024/cat.jpg"); !errors.Is(err, contentfs.ErrAccessDenied) {
		t.Errorf("FileProperties hidden err = %v", err)
	}
}
