package assets

import "errors"

var (
	// ErrUnsupportedFormat is returned when the uploaded bytes are not a supported image.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrImageTooLarge is returned when the decoded image exceeds the pixel bound.
	ErrImageTooLarge = errors.New("image dimensions exceed limit")

	// ErrProcessingFailed is returned when decoding or re-encoding fails.
	ErrProcessingFailed = errors.New("image processing failed")

	// ErrInvalidRef is returned when an asset reference does not point into the store.
	ErrInvalidRef = errors.New("invalid asset reference")

	// ErrEmptyUpload is returned when no bytes were uploaded.
	ErrEmptyUpload = errors.New("empty upload")
)
