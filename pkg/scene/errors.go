package scene

import "errors"

var (
	// ErrDynamicImageNotCopyable is returned when an image is marked dynamic
	// but lacks the copy-source usage needed to re-read it every frame.
	ErrDynamicImageNotCopyable = errors.New("scene: dynamic image is missing the copy-src texture usage")

	ErrInvalidImage = errors.New("scene: image has no pixel data")
	ErrInvalidMesh  = errors.New("scene: invalid mesh")
	ErrInvalidLight = errors.New("scene: invalid light")
)
