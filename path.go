package contentfs

import (
	"path"
	"strings"
)

// CleanPath normalises a disk path: forward slashes, no leading or trailing
// slash, "" for the disk root. ".." segments cannot climb above the root.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}
