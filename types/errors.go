package types

import "errors"

var (
	ErrNotFound      = errors.New("contentfs: not found")
	ErrNotDir        = errors.New("contentfs: not a directory")
	ErrNotWritable   = errors.New("contentfs: permission denied: not writable")
	ErrUnknownDisk   = errors.New("contentfs: unknown disk")
	ErrDiskExists    = errors.New("contentfs: disk already registered")
	ErrAccessDenied  = errors.New("contentfs: access denied")
	ErrNotSupported  = errors.New("contentfs: operation not supported")
	ErrInvalidConfig = errors.New("contentfs: invalid configuration")
)
