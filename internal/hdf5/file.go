package hdf5

import (
	stdbin "encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/store"
)

// Mode selects how Open treats an existing file.
type Mode int

const (
	// ReadOnly loads an existing file and never writes it.
	ReadOnly Mode = iota
	// ReadWrite loads an existing file or creates a new one.
	ReadWrite
	// Overwrite replaces any existing file with an empty one.
	Overwrite
)

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case ReadWrite:
		return "read-write"
	case Overwrite:
		return "overwrite"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// File is an HDF5 file held in memory as a store tree.
type File struct {
	path    string
	mode    Mode
	root    *store.Group
	created bool
	closed  bool
	opts    *fileOptions
	log     logrus.FieldLogger
}

// Open opens path in the given mode. A newly created file is written to
// disk before Open returns.
func Open(path string, mode Mode, opts ...FileOption) (*File, error) {
	options := defaultFileOptions()
	for _, opt := range opts {
		opt(options)
	}
	f := &File{
		path: path,
		mode: mode,
		opts: options,
		log:  options.logger.WithField("file", path),
	}

	create := false
	switch mode {
	case Overwrite:
		create = true
	case ReadWrite:
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			create = true
		}
	case ReadOnly:
	default:
		return nil, fmt.Errorf("%w: %v", ErrMode, mode)
	}

	if create {
		f.root = store.NewGroup()
		f.created = true
		if err := f.Flush(); err != nil {
			return nil, fmt.Errorf("creating %s: %w", path, err)
		}
		f.log.WithField("mode", mode).Debug("created file")
		return f, nil
	}

	osFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer osFile.Close()
	root, err := Load(osFile, f.log)
	if err != nil {
		return nil, err
	}
	f.root = root
	f.log.WithField("mode", mode).Debug("loaded file")
	return f, nil
}

// Root returns the root group.
func (f *File) Root() *store.Group { return f.root }

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Mode returns the current open mode.
func (f *File) Mode() Mode { return f.mode }

// Created reports whether Open created the file.
func (f *File) Created() bool { return f.created }

// IsClosed reports whether Close has been called.
func (f *File) IsClosed() bool { return f.closed }

// SetReadOnly stops all further writes to disk.
func (f *File) SetReadOnly() { f.mode = ReadOnly }

func (f *File) config() binary.Config {
	return binary.Config{
		ByteOrder:  stdbin.LittleEndian,
		OffsetSize: f.opts.offsetSize,
		LengthSize: f.opts.lengthSize,
	}
}

// Flush writes the whole tree to a temporary file next to path and
// renames it over path.
func (f *File) Flush() error {
	if f.closed {
		return ErrClosed
	}
	if f.mode == ReadOnly {
		return ErrReadOnly
	}
	image, err := Encode(f.root, f.config())
	if err != nil {
		return fmt.Errorf("encoding %s: %w", f.path, err)
	}
	if err := writeAtomic(f.path, image); err != nil {
		return err
	}
	f.log.WithField("bytes", len(image)).Debug("flushed file")
	return nil
}

// Close flushes a writable file and releases the tree.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	var err error
	if f.mode != ReadOnly {
		err = f.Flush()
	}
	f.closed = true
	f.root = nil
	f.log.Debug("closed file")
	return err
}

func writeAtomic(path string, image []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
