package renderer

import "errors"

var (
	ErrUnknownCamera     = errors.New("renderer: unknown camera")
	ErrUnsupportedFormat = errors.New("renderer: unsupported target format")
	ErrClosed            = errors.New("renderer: engine is closed")
	ErrInvalidViewport   = errors.New("renderer: invalid viewport")
	ErrTargetTooSmall    = errors.New("renderer: viewport does not fit in target")
	ErrUnknownViewMode   = errors.New("renderer: unknown view mode")
	ErrNoFrame           = errors.New("renderer: no frame has been resolved yet")
)
