package export

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is returned when the filter matched no candidates. It is not
// a fault; callers should show it as "nothing to export".
var ErrEmptyResult = errors.New("empty result: no candidates match the filter")

// ErrUnsupportedFormat is returned for a format selector other than csv/excel.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrUnknownMode is returned for a mode selector other than enhanced/basic.
var ErrUnknownMode = errors.New("unknown export mode")

// ErrNoColumns is returned when a request resolves to an empty column list.
var ErrNoColumns = errors.New("no columns selected")

// ErrUnknownPreset is returned when a request names a preset that is not loaded.
var ErrUnknownPreset = errors.New("unknown preset")

// CollectionError reports a failure fetching the first listing page.
type CollectionError struct {
	Page int
	Err  error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collection failed on page %d: %v", e.Page, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// SerializationError reports an unexpected failure while building the output.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization failed: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// UnknownColumnError reports a column key that is not in the catalog.
type UnknownColumnError struct {
	Key string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Key)
}
