// Package hdf5 binds the in-memory store to HDF5 files. Open loads a whole
// file into a store tree; Flush and Close write the tree back as a new
// file image that replaces the old one atomically.
package hdf5

import "errors"

// Common errors
var (
	ErrNotHDF5     = errors.New("not an HDF5 file")
	ErrUnsupported = errors.New("unsupported feature")
	ErrClosed      = errors.New("file is closed")
	ErrReadOnly    = errors.New("file is read-only")
	ErrMode        = errors.New("invalid open mode")
)
