package hdf5

import (
	"io"

	"github.com/sirupsen/logrus"
)

// FileOption configures how a file is opened and written.
type FileOption func(*fileOptions)

type fileOptions struct {
	offsetSize int
	lengthSize int
	logger     logrus.FieldLogger
}

func defaultFileOptions() *fileOptions {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return &fileOptions{
		offsetSize: 8,
		lengthSize: 8,
		logger:     discard,
	}
}

// WithOffsetSize sets the size in bytes for file offsets (2, 4, or 8).
func WithOffsetSize(size int) FileOption {
	return func(o *fileOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.offsetSize = size
		}
	}
}

// WithLengthSize sets the size in bytes for lengths (2, 4, or 8).
func WithLengthSize(size int) FileOption {
	return func(o *fileOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.lengthSize = size
		}
	}
}

// WithLogger routes debug output about loading and saving to l.
func WithLogger(l logrus.FieldLogger) FileOption {
	return func(o *fileOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
