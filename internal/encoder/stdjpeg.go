package encoder

import (
	"context"
	"image"
	"image/jpeg"

	"github.com/sizefit/sizefit/pkg/fit"
)

// StdJPEG encodes with the standard library JPEG encoder. The stdlib
// encoder always emits baseline scans with 4:2:0 chroma, so the variant's
// chroma and progressive knobs are accepted but have no effect here; use
// Turbo when full variant control matters. The search stays correct
// either way; variants that collapse to the same output simply cannot
// beat the first one that tried it.
type StdJPEG struct{}

func (e *StdJPEG) Name() string { return "jpeg" }

func (e *StdJPEG) Encode(_ context.Context, img image.Image, _ fit.Variant, fidelity float64) ([]byte, error) {
	buf := getOutBuffer()
	defer putOutBuffer(buf)

	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: qualityFor(fidelity)}); err != nil {
		return nil, err
	}
	return copyBytes(buf.Bytes()), nil
}
