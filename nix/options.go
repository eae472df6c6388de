package nix

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-nix/internal/hdf5"
)

// Mode selects how Open treats the file on disk.
type Mode = hdf5.Mode

const (
	// ReadOnly opens an existing file without ever writing it.
	ReadOnly = hdf5.ReadOnly
	// ReadWrite opens an existing file or creates a missing one.
	ReadWrite = hdf5.ReadWrite
	// Overwrite replaces any existing file with an empty NIX file.
	Overwrite = hdf5.Overwrite
)

// Compression selects whether new data arrays are deflate compressed.
type Compression int

const (
	// CompressionAuto inherits the setting of the enclosing file.
	CompressionAuto Compression = iota
	// CompressionNone stores data uncompressed.
	CompressionNone
	// CompressionDeflate stores data with the deflate filter.
	CompressionDeflate
)

const deflateLevel = 4

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionDeflate:
		return "deflate"
	}
	return "auto"
}

// FileOption configures Open.
type FileOption func(*fileOptions)

type fileOptions struct {
	compression Compression
	logger      logrus.FieldLogger
	autoUpdate  bool
	clock       func() time.Time
}

func defaultFileOptions() *fileOptions {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return &fileOptions{
		compression: CompressionNone,
		logger:      discard,
		clock:       time.Now,
	}
}

// WithCompression sets the default compression for data arrays created
// through the file.
func WithCompression(c Compression) FileOption {
	return func(o *fileOptions) {
		if c == CompressionAuto {
			c = CompressionNone
		}
		o.compression = c
	}
}

// WithLogger routes debug output about the file lifecycle to l.
func WithLogger(l logrus.FieldLogger) FileOption {
	return func(o *fileOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAutoUpdateTime makes every attribute change refresh updated_at on
// the changed entity.
func WithAutoUpdateTime(on bool) FileOption {
	return func(o *fileOptions) { o.autoUpdate = on }
}

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) FileOption {
	return func(o *fileOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

// DataArrayOption configures CreateDataArray.
type DataArrayOption func(*dataArrayOptions)

type dataArrayOptions struct {
	shape       []int
	maxShape    []int
	compression Compression
	label       string
	unit        string
}

// WithShape sets the initial shape. Without it the shape is taken from
// the data, or is (0) when no data is given.
func WithShape(shape ...int) DataArrayOption {
	return func(o *dataArrayOptions) { o.shape = append([]int(nil), shape...) }
}

// WithMaxShape bounds how far the array may grow. Use -1 for an unlimited
// axis. The default is unlimited along every axis.
func WithMaxShape(shape ...int) DataArrayOption {
	return func(o *dataArrayOptions) { o.maxShape = append([]int(nil), shape...) }
}

// WithDataCompression overrides the compression inherited from the file.
func WithDataCompression(c Compression) DataArrayOption {
	return func(o *dataArrayOptions) { o.compression = c }
}

// WithLabel sets the label of the new array.
func WithLabel(label string) DataArrayOption {
	return func(o *dataArrayOptions) { o.label = label }
}

// WithUnit sets the unit of the new array.
func WithUnit(unit string) DataArrayOption {
	return func(o *dataArrayOptions) { o.unit = unit }
}

// CreateOption configures the creation of sections and properties.
type CreateOption func(*createOptions)

type createOptions struct {
	id string
}

// WithID creates the entity with a given UUID instead of a fresh one.
func WithID(id string) CreateOption {
	return func(o *createOptions) { o.id = id }
}

func applyCreate(opts []CreateOption) *createOptions {
	o := &createOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
