// Package contentfs lists directory contents from named storage disks.
//
// A disk is any Provider: a minimal interface (List, Stat, Directories) that
// every backend implements. Additional capabilities (Writable, Mutable,
// DiskInfoProvider) are detected at runtime via type assertions. The lister
// package turns raw provider listings into partitioned, enriched and
// ACL-filtered results; Configure wires disks, ACL and lister from a config.
package contentfs

import "github.com/jackfish212/contentfs/types"

type (
	Perm             = types.Perm
	Entry            = types.Entry
	EntryType        = types.EntryType
	Props            = types.Props
	PathInfo         = types.PathInfo
	Provider         = types.Provider
	Writable         = types.Writable
	Mutable          = types.Mutable
	DiskInfoProvider = types.DiskInfoProvider
	AccessChecker    = types.AccessChecker
)

const (
	PermNone  = types.PermNone
	PermRead  = types.PermRead
	PermWrite = types.PermWrite
	PermExec  = types.PermExec
	PermRO    = types.PermRO
	PermRW    = types.PermRW
	PermRX    = types.PermRX
	PermRWX   = types.PermRWX
)

const (
	TypeDir  = types.TypeDir
	TypeFile = types.TypeFile
)

var (
	NewEntry  = types.NewEntry
	SplitPath = types.SplitPath
)

var (
	ErrNotFound      = types.ErrNotFound
	ErrNotDir        = types.ErrNotDir
	ErrNotWritable   = types.ErrNotWritable
	ErrUnknownDisk   = types.ErrUnknownDisk
	ErrDiskExists    = types.ErrDiskExists
	ErrAccessDenied  = types.ErrAccessDenied
	ErrNotSupported  = types.ErrNotSupported
	ErrInvalidConfig = types.ErrInvalidConfig
)
