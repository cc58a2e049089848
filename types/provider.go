// Package types defines the core interfaces and types shared by disks, the
// content lister and the ACL service.
// This package is intentionally kept minimal with no external dependencies.
package types

import "context"

// Provider is the storage backend behind a disk. Paths are disk relative,
// slash separated and carry no leading slash; "" is the disk root.
//
// Additional capabilities are expressed as optional interfaces that a
// Provider may also implement:
//   - Writable          store objects (used for seeding and tests)
//   - Mutable           create directories
//   - DiskInfoProvider  describe the backend
type Provider interface {
	// List returns the entries directly under path. It is not recursive.
	List(ctx context.Context, path string) ([]Entry, error)

	// Stat returns metadata for path. An error wrapping ErrNotFound means the
	// backend has no metadata for path, which for object stores does not
	// imply the path is absent.
	Stat(ctx context.Context, path string) (*Entry, error)

	// Directories returns the paths of the immediate subdirectories of path.
	Directories(ctx context.Context, path string) ([]string, error)
}

// Writable is implemented by providers that can store file content.
type Writable interface {
	Put(ctx context.Context, path string, content []byte) error
}

// Mutable is implemented by providers that support explicit directories.
type Mutable interface {
	Mkdir(ctx context.Context, path string) error
}

// DiskInfoProvider is implemented by providers that can describe themselves.
type DiskInfoProvider interface {
	DiskInfo() (kind, source string)
}

// AccessChecker resolves the access level a caller has on a disk path.
// Level 0 means no access; the meaning of other levels is opaque to callers.
type AccessChecker interface {
	AccessLevel(ctx context.Context, disk, path string) (int, error)
}
