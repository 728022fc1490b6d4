package imaging

import (
	"errors"
	"image"
)

var (
	// ErrFileTooLarge is returned when the input exceeds the size limit.
	ErrFileTooLarge = errors.New("imaging: file size exceeds limit")
	// ErrInvalidDimensions is returned for empty or degenerate images.
	ErrInvalidDimensions = errors.New("imaging: invalid image dimensions")
	// ErrImageTooLarge is returned when dimensions exceed the limits.
	ErrImageTooLarge = errors.New("imaging: image dimensions exceed maximum allowed")
)

// Limits guarding against decompression bombs. Pixel dimensions are
// never changed downstream, so anything admitted here is encoded at
// full size on every probe.
const (
	MaxFileSize    = 50 * 1024 * 1024
	MaxImageWidth  = 20000
	MaxImageHeight = 20000
	MaxImagePixels = 250_000_000
)

// ValidateFile checks the raw input before any decoding happens.
func ValidateFile(data []byte) error {
	if len(data) > MaxFileSize {
		return ErrFileTooLarge
	}
	if len(data) == 0 {
		return ErrUnsupportedImage
	}
	return nil
}

// ValidateImage checks decoded dimensions against the limits.
func ValidateImage(img image.Image) error {
	if img == nil {
		return ErrUnsupportedImage
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width <= 0 || height <= 0 {
		return ErrInvalidDimensions
	}
	if width > MaxImageWidth || height > MaxImageHeight {
		return ErrImageTooLarge
	}
	if int64(width)*int64(height) > MaxImagePixels {
		return ErrImageTooLarge
	}
	return nil
}
