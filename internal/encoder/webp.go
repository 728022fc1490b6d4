package encoder

import (
	"context"
	"image"

	webp "github.com/chai2010/webp"

	"github.com/sizefit/sizefit/pkg/fit"
)

// WebP encodes lossy WebP via chai2010/webp. WebP has no baseline vs
// progressive distinction and the encoder manages its own subsampling,
// so the variant knobs are no-ops; fidelity maps onto the quality scale.
type WebP struct{}

func (e *WebP) Name() string { return "webp" }

func (e *WebP) Encode(_ context.Context, img image.Image, _ fit.Variant, fidelity float64) ([]byte, error) {
	rgba := toRGBA(img)

	buf := getOutBuffer()
	defer putOutBuffer(buf)

	opts := &webp.Options{Quality: float32(qualityFor(fidelity))}
	if err := webp.Encode(buf, rgba, opts); err != nil {
		return nil, err
	}
	return copyBytes(buf.Bytes()), nil
}

// toRGBA converts to RGBA, which the WebP encoder requires.
func toRGBA(img image.Image) *image.RGBA {
	if src, ok := img.(*image.RGBA); ok {
		return src
	}
	rgba := image.NewRGBA(img.Bounds())
	for y := rgba.Rect.Min.Y; y < rgba.Rect.Max.Y; y++ {
		for x := rgba.Rect.Min.X; x < rgba.Rect.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba
}
