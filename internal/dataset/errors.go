package dataset

import "errors"

// Common errors.
var (
	ErrInvalidMagic       = errors.New("invalid cache magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported cache format version")
	ErrChecksumMismatch   = errors.New("cache checksum mismatch: file may be corrupted")
	ErrCorruptHeader      = errors.New("cache header holds impossible metadata")
	ErrStaleCache         = errors.New("cache signature does not match corpus on disk")
	ErrNoSamples          = errors.New("corpus contains no usable labeled pixels")
)
