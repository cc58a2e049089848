// Package mounts provides built-in storage backends for contentfs disks.
package mounts

import (
	"mime"
	"path"
	"strings"
	"time"

	"github.com/jackfish212/contentfs/types"
)

func normPath(p string) string {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	return p
}

func childPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// fileEntry builds the listing record for a file object.
func fileEntry(p string, size int64, modified time.Time, perm types.Perm) types.Entry {
	e := types.NewEntry(p, types.TypeFile)
	e.SetMeta("size", size)
	e.SetMeta("timestamp", modified.Unix())
	e.SetMeta("visibility", perm.Visibility())
	if mt := mime.TypeByExtension(path.Ext(p)); mt != "" {
		e.SetMeta("mimetype", mt)
	}
	return e
}

// dirEntry builds the listing record for a directory. Directories backed by a
// real object carry a timestamp; implicit prefixes pass the zero time and get
// none.
func dirEntry(p string, modified time.Time, perm types.Perm) types.Entry {
	e := types.NewEntry(p, types.TypeDir)
	if !modified.IsZero() {
		e.SetMeta("timestamp", modified.Unix())
		e.SetMeta("visibility", perm.Visibility())
	}
	return e
}

func dirPaths(entries []types.Entry) []string {
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Path)
		}
	}
	return dirs
}
