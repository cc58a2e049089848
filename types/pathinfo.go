package types

import (
	"path"
	"strings"
)

// PathInfo is the decomposition of a disk path into its name parts.
type PathInfo struct {
	Dirname   string // "" for root level paths, never "."
	Basename  string
	Extension string // "" when the basename has no dot
	Filename  string // basename without the extension
}

// SplitPath splits p the way file managers display it: "docs/report.pdf"
// becomes dirname "docs", basename "report.pdf", extension "pdf" and filename
// "report".
func SplitPath(p string) PathInfo {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return PathInfo{}
	}
	base := path.Base(p)
	dir := path.Dir(p)
	if dir == "." {
		dir = ""
	}
	ext := path.Ext(base)
	return PathInfo{
		Dirname:   dir,
		Basename:  base,
		Extension: strings.TrimPrefix(ext, "."),
		Filename:  strings.TrimSuffix(base, ext),
	}
}
