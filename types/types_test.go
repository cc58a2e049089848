package types

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// ─── Perm ───

func TestPermBits(t *testing.T) {
	tests := []struct {
		perm              Perm
		read, write, exec bool
		str               string
		visibility        string
	}{
		{PermNone, false, false, false, "---", VisibilityPrivate},
		{PermRO, true, false, false, "r--", VisibilityPublic},
		{PermRW, true, true, false, "rw-", VisibilityPublic},
		{PermRX, true, false, true, "r-x", VisibilityPublic},
		{PermRWX, true, true, true, "rwx", VisibilityPublic},
		{PermWrite, false, true, false, "-w-", VisibilityPrivate},
		{PermWrite | PermExec, false, true, true, "-wx", VisibilityPrivate},
	}
	for _, tt := range tests {
		if tt.perm.CanRead() != tt.read {
			t.Errorf("Perm(%d).CanRead() = %v, want %v", tt.perm, tt.perm.CanRead(), tt.read)
		}
		if tt.perm.CanWrite() != tt.write {
			t.Errorf("Perm(%d).CanWrite() = %v, want %v", tt.perm, tt.perm.CanWrite(), tt.write)
		}
		if tt.perm.CanExec() != tt.exec {
			t.Errorf("Perm(%d).CanExec() = %v, want %v", tt.perm, tt.perm.CanExec(), tt.exec)
		}
		if got := tt.perm.String(); got != tt.str {
			t.Errorf("Perm(%d).String() = %q, want %q", tt.perm, got, tt.str)
		}
		if got := tt.perm.Visibility(); got != tt.visibility {
			t.Errorf("Perm(%d).Visibility() = %q, want %q", tt.perm, got, tt.visibility)
		}
	}
}

// ─── SplitPath ───

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path string
		want PathInfo
	}{
		{"file.txt", PathInfo{Dirname: "", Basename: "file.txt", Extension: "txt", Filename: "file"}},
		{"docs/report.PDF", PathInfo{Dirname: "docs", Basename: "report.PDF", Extension: "PDF", Filename: "report"}},
		{"a/b/archive.tar.gz", PathInfo{Dirname: "a/b", Basename: "archive.tar.gz", Extension: "gz", Filename: "archive.tar"}},
		{"README", PathInfo{Dirname: "", Basename: "README", Extension: "", Filename: "README"}},
		{"docs/", PathInfo{Dirname: "", Basename: "docs", Extension: "", Filename: "docs"}},
		{".env", PathInfo{Dirname: "", Basename: ".env", Extension: "env", Filename: ""}},
		{"notes.", PathInfo{Dirname: "", Basename: "notes.", Extension: "", Filename: "notes"}},
		{"", PathInfo{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := SplitPath(tt.path); got != tt.want {
				t.Errorf("SplitPath(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

// ─── Entry ───

func TestNewEntry(t *testing.T) {
	e := NewEntry("docs/report.pdf", TypeFile)
	if e.Basename != "report.pdf" {
		t.Errorf("Basename = %q", e.Basename)
	}
	if e.Filename == nil || *e.Filename != "report" {
		t.Errorf("Filename = %v, want report", e.Filename)
	}
	if e.Dirname != nil || e.Extension != nil {
		t.Error("listing entries should not carry dirname or extension")
	}

	d := NewEntry("photos/", TypeDir)
	if d.Path != "photos" {
		t.Errorf("Path = %q, want trailing slash trimmed", d.Path)
	}
	if !d.IsDir() {
		t.Error("IsDir() = false for dir entry")
	}
}

func TestEntryString(t *testing.T) {
	e := NewEntry("hello.txt", TypeFile)
	got := e.String()
	if !strings.HasPrefix(got, "-") || !strings.Contains(got, "hello.txt") {
		t.Errorf("Entry.String() = %q", got)
	}

	d := NewEntry("docs", TypeDir)
	level := 0
	d.ACL = &level
	got = d.String()
	if !strings.HasPrefix(got, "d") {
		t.Errorf("Entry.String() should start with 'd' for dir: %q", got)
	}
	if !strings.Contains(got, "docs/") || !strings.Contains(got, "[acl=0]") {
		t.Errorf("Entry.String() = %q", got)
	}
}

func TestEntryCloneIsIndependent(t *testing.T) {
	e := NewEntry("a.txt", TypeFile)
	e.SetMeta("size", int64(3))
	c := e.Clone()
	*c.Filename = "changed"
	c.SetMeta("size", int64(9))

	if *e.Filename != "a" {
		t.Errorf("original Filename mutated: %q", *e.Filename)
	}
	if e.Size() != 3 {
		t.Errorf("original size mutated: %d", e.Size())
	}
}

func TestEntryJSONFlattensMeta(t *testing.T) {
	e := NewEntry("docs/a.txt", TypeFile)
	e.SetMeta("size", int64(12))
	e.SetMeta("visibility", VisibilityPublic)
	e.SetMeta("path", "must not override")
	dir := "docs"
	e.Dirname = &dir

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["path"] != "docs/a.txt" {
		t.Errorf("path = %v", m["path"])
	}
	if m["size"] != float64(12) {
		t.Errorf("size = %v", m["size"])
	}
	if m["dirname"] != "docs" {
		t.Errorf("dirname = %v", m["dirname"])
	}
	if _, ok := m["extension"]; ok {
		t.Error("absent extension should be omitted")
	}
	if _, ok := m["acl"]; ok {
		t.Error("absent acl should be omitted")
	}

	var back Entry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal Entry: %v", err)
	}
	if back.Path != e.Path || back.Size() != 12 || back.Dirname == nil || *back.Dirname != "docs" {
		t.Errorf("decoded entry = %+v", back)
	}
}

// ─── Errors ───

func TestErrorsSentinel(t *testing.T) {
	if ErrNotFound.Error() != "contentfs: not found" {
		t.Errorf("ErrNotFound = %q", ErrNotFound.Error())
	}
	if errors.Is(ErrNotFound, ErrUnknownDisk) {
		t.Error("sentinels should be distinct")
	}
}
