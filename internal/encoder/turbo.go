// CGO libjpeg adapter. Unlike the pure Go encoder this one honors the
// full variant surface: per-component sampling factors select 4:4:4 or
// 4:2:0 chroma, and jpeg_simple_progression switches to progressive
// scans. Requires libjpeg (or libjpeg-turbo) headers at build time.
package encoder

/*
#cgo pkg-config: libjpeg
#include <stdio.h>
#include <jpeglib.h>
#include <jerror.h>
#include <stdlib.h>
#include <string.h>
#include <setjmp.h>

typedef struct {
    struct jpeg_error_mgr pub;
    jmp_buf setjmp_buffer;
    char msg[JMSG_LENGTH_MAX];
} sf_error_mgr;

static void sf_error_exit(j_common_ptr cinfo) {
    sf_error_mgr *err = (sf_error_mgr *)cinfo->err;
    (*cinfo->err->format_message)(cinfo, err->msg);
    longjmp(err->setjmp_buffer, 1);
}

// Encode interleaved YCbCr rows (3 bytes per pixel, full resolution).
// chroma_samp is the h/v sampling factor for the luma component:
// 1 produces 4:4:4, 2 produces 4:2:0 (libjpeg downsamples internally).
static int sf_encode(
    const unsigned char *rows,
    int width, int height, int quality,
    int chroma_samp, int progressive,
    unsigned char **out_buffer, unsigned long *out_size,
    char **error_msg) {

    struct jpeg_compress_struct cinfo;
    sf_error_mgr jerr;
    JSAMPROW row[1];
    int result = 0;

    *out_buffer = NULL;
    *out_size = 0;
    *error_msg = NULL;

    cinfo.err = jpeg_std_error(&jerr.pub);
    jerr.pub.error_exit = sf_error_exit;
    if (setjmp(jerr.setjmp_buffer)) {
        *error_msg = strdup(jerr.msg);
        result = -1;
        goto cleanup;
    }

    jpeg_create_compress(&cinfo);
    jpeg_mem_dest(&cinfo, out_buffer, out_size);

    cinfo.image_width = width;
    cinfo.image_height = height;
    cinfo.input_components = 3;
    cinfo.in_color_space = JCS_YCbCr;

    jpeg_set_defaults(&cinfo);
    jpeg_set_quality(&cinfo, quality, TRUE);

    cinfo.comp_info[0].h_samp_factor = chroma_samp;
    cinfo.comp_info[0].v_samp_factor = chroma_samp;
    cinfo.comp_info[1].h_samp_factor = 1;
    cinfo.comp_info[1].v_samp_factor = 1;
    cinfo.comp_info[2].h_samp_factor = 1;
    cinfo.comp_info[2].v_samp_factor = 1;

    if (progressive) {
        jpeg_simple_progression(&cinfo);
    }

    jpeg_start_compress(&cinfo, TRUE);

    while (cinfo.next_scanline < cinfo.image_height) {
        row[0] = (JSAMPROW)(rows + (size_t)cinfo.next_scanline * width * 3);
        jpeg_write_scanlines(&cinfo, row, 1);
    }

    jpeg_finish_compress(&cinfo);

cleanup:
    jpeg_destroy_compress(&cinfo);
    return result;
}
*/
import "C"

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"unsafe"

	"github.com/sizefit/sizefit/pkg/fit"
)

// Turbo encodes JPEG through libjpeg with full variant control.
type Turbo struct{}

func (e *Turbo) Name() string { return "jpeg-turbo" }

func (e *Turbo) Encode(_ context.Context, img image.Image, v fit.Variant, fidelity float64) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("encoder: empty image %dx%d", width, height)
	}

	rows := interleaveYCbCr(img)

	samp := C.int(1)
	if v.Chroma == fit.Chroma420 {
		samp = 2
	}
	progressive := C.int(0)
	if v.Progressive {
		progressive = 1
	}

	var (
		outBuffer *C.uchar
		outSize   C.ulong
		errorMsg  *C.char
	)

	result := C.sf_encode(
		(*C.uchar)(&rows[0]),
		C.int(width),
		C.int(height),
		C.int(qualityFor(fidelity)),
		samp,
		progressive,
		&outBuffer,
		&outSize,
		&errorMsg,
	)

	if result != 0 || outBuffer == nil {
		err := fmt.Errorf("encoder: jpeg encode failed")
		if errorMsg != nil {
			err = fmt.Errorf("encoder: jpeg encode failed: %s", C.GoString(errorMsg))
			C.free(unsafe.Pointer(errorMsg))
		}
		if outBuffer != nil {
			C.free(unsafe.Pointer(outBuffer))
		}
		return nil, err
	}

	data := C.GoBytes(unsafe.Pointer(outBuffer), C.int(outSize))
	C.free(unsafe.Pointer(outBuffer))

	return data, nil
}

// interleaveYCbCr flattens the image into full-resolution interleaved
// Y, Cb, Cr rows for libjpeg. Chroma decimation is left to libjpeg so
// one buffer layout serves both sampling modes.
func interleaveYCbCr(img image.Image) []byte {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rows := make([]byte, width*height*3)

	if src, ok := img.(*image.YCbCr); ok {
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				yi := src.YOffset(x, y)
				ci := src.COffset(x, y)
				rows[i] = src.Y[yi]
				rows[i+1] = src.Cb[ci]
				rows[i+2] = src.Cr[ci]
				i += 3
			}
		}
		return rows
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			rows[i] = yy
			rows[i+1] = cb
			rows[i+2] = cr
			i += 3
		}
	}
	return rows
}
