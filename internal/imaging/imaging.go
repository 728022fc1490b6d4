// Package imaging decodes source images into pixel buffers for the
// search. The core never sees raw file bytes; it operates on the decoded
// image this package produces.
package imaging

import (
	"bytes"
	"errors"
	"image"
	"path/filepath"
	"strings"

	// Registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/adrium/goheif"
	webp "github.com/chai2010/webp"
)

// ErrUnsupportedImage is returned when no decoder recognizes the input.
var ErrUnsupportedImage = errors.New("imaging: unsupported or corrupt image")

// supported source extensions, lowercase.
var sourceExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".heic": true,
	".heif": true,
}

// SupportedExtension reports whether the filename looks like a source
// image this package can decode.
func SupportedExtension(filename string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Decode turns raw file bytes into a pixel buffer and a format name.
// HEIF containers are sniffed by their ftyp box; everything else goes
// through the registered stdlib decoders with a WebP fallback.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrUnsupportedImage
	}

	if isHEIFMagic(data) {
		img, err := goheif.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "", ErrUnsupportedImage
		}
		return img, "heif", nil
	}

	if img, format, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, format, nil
	}

	// chai2010/webp handles lossy streams the stdlib registry may not.
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, "webp", nil
	}

	return nil, "", ErrUnsupportedImage
}

// DecodeValidated decodes and applies the dimension limits in one step.
func DecodeValidated(data []byte) (image.Image, string, error) {
	if err := ValidateFile(data); err != nil {
		return nil, "", err
	}
	img, format, err := Decode(data)
	if err != nil {
		return nil, "", err
	}
	if err := ValidateImage(img); err != nil {
		return nil, "", err
	}
	return img, format, nil
}

// isHEIFMagic checks for the ISOBMFF ftyp box at offset 4.
func isHEIFMagic(data []byte) bool {
	return len(data) >= 12 && string(data[4:8]) == "ftyp"
}
