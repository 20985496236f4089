package scene

import "errors"

// ErrEmptyBuffer is returned for buffers without pixels.
var ErrEmptyBuffer = errors.New("buffer has no size")
