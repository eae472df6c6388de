// Package nix reads and writes NIX files: annotated scientific data and
// metadata stored as a fixed layout of HDF5 groups, datasets, attributes
// and soft links.
package nix

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrInvalidFile            = errors.New("not a NIX file")
	ErrIncompatibleVersion    = errors.New("incompatible file version")
	ErrDuplicateName          = errors.New("duplicate name")
	ErrInvalidName            = errors.New("invalid name")
	ErrInvalidEntityType      = errors.New("invalid entity type")
	ErrInvalidUnit            = errors.New("invalid unit")
	ErrInvalidAttrType        = errors.New("invalid attribute type")
	ErrIncompatibleDimensions = errors.New("incompatible dimensions")
	ErrOutOfBounds            = errors.New("out of bounds")
	ErrUninitializedEntity    = errors.New("uninitialized entity")
	ErrInvalidLink            = errors.New("invalid link")
	ErrUseAfterClose          = errors.New("file is closed")
	ErrNotFound               = errors.New("entity not found")
	ErrReadOnly               = errors.New("file is read-only")
	ErrUnsupportedLinkType    = errors.New("unsupported link type")
)

// EntityError reports a failure together with the store path of the
// entity it concerns.
type EntityError struct {
	Path string
	Err  error
}

func (e *EntityError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *EntityError) Unwrap() error { return e.Err }

// wrapErr attaches path to err unless err already names an entity.
func wrapErr(path string, err error) error {
	if err == nil {
		return nil
	}
	var ee *EntityError
	if errors.As(err, &ee) {
		return err
	}
	return &EntityError{Path: path, Err: err}
}

// errorf wraps kind with a formatted detail and the entity path.
func errorf(path string, kind error, format string, args ...any) error {
	return &EntityError{Path: path, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}
