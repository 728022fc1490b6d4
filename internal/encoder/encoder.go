// Package encoder provides concrete implementations of the fit.EncodeFunc
// capability. Every adapter re-encodes decoded pixels only, so source
// metadata never survives regardless of the variant's metadata policy;
// the StripMetadata knob exists for encoders that could carry it over.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/sizefit/sizefit/pkg/fit"
)

// ErrUnknownFormat is returned for output formats no adapter handles.
var ErrUnknownFormat = errors.New("encoder: unknown output format")

// Encoder encodes a decoded image with the given variant and fidelity.
// Implementations must be deterministic and must not mutate the image
// or alter its dimensions.
type Encoder interface {
	// Name identifies the adapter in logs and reports.
	Name() string
	Encode(ctx context.Context, img image.Image, v fit.Variant, fidelity float64) ([]byte, error)
}

// For returns the adapter for an output format. useTurbo selects the
// libjpeg-backed encoder, which honors the chroma and progressive knobs
// the pure Go encoder cannot.
func For(format string, useTurbo bool) (Encoder, error) {
	switch format {
	case "jpeg", "jpg":
		if useTurbo {
			return &Turbo{}, nil
		}
		return &StdJPEG{}, nil
	case "webp":
		return &WebP{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Extension returns the output file extension for a format, without dot.
func Extension(format string) string {
	if format == "webp" {
		return "webp"
	}
	return "jpg"
}

// qualityFor maps the [0.1, 1.0] fidelity scale onto the 1-100 quality
// scale shared by JPEG and WebP encoders.
func qualityFor(fidelity float64) int {
	q := int(math.Round(fit.ClampFidelity(fidelity) * 100))
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return q
}
