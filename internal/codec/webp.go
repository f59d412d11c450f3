//go:build cgo

package codec

/*
#cgo pkg-config: libwebp
#include <stdlib.h>
#include <webp/encode.h>
#include <webp/decode.h>
*/
import "C"

import (
	"image"
	"os"
	"unsafe"

	"github.com/pspoerri/ruck/internal/rerr"
)

// webP encodes/decodes composite pages as WebP using native libwebp via CGo.
// Kept as a second Codec implementation alongside PNG to exercise the same
// Decode/Encode interface with a different backing format. The manifest
// driver picks one codec per texture from its source images' extension and
// texture.Build encodes the pages with that same codec, so a texture built
// from .webp sources stores WebP-encoded pages, not PNG.
type webP struct{ quality float32 }

func newWebP() (Codec, error) {
	return webP{quality: 90}, nil
}

func (webP) Name() string { return "webp" }

func (c webP) Decode(path string) (*Pixels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rerr.New(rerr.Io, "codec.webP.Decode", err)
	}
	img, err := c.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	rgba := toRGBA(img)
	b := rgba.Bounds()
	return &Pixels{Width: b.Dx(), Height: b.Dy(), RGBA: rgba}, nil
}

func (c webP) Encode(img *image.RGBA) ([]byte, error) {
	if len(img.Pix) == 0 {
		return nil, rerr.New(rerr.Codec, "codec.webP.Encode", errEmptyImage)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var output *C.uint8_t
	size := C.WebPEncodeRGBA(
		(*C.uint8_t)(unsafe.Pointer(&img.Pix[0])),
		C.int(width),
		C.int(height),
		C.int(img.Stride),
		C.float(c.quality),
		&output,
	)
	if size == 0 || output == nil {
		return nil, rerr.New(rerr.Codec, "codec.webP.Encode", errEncodeFailed)
	}
	defer C.WebPFree(unsafe.Pointer(output))

	return C.GoBytes(unsafe.Pointer(output), C.int(size)), nil
}

func (webP) DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, rerr.New(rerr.Codec, "codec.webP.DecodeBytes", errEmptyData)
	}
	var width, height C.int
	ptr := C.WebPDecodeRGBA(
		(*C.uint8_t)(unsafe.Pointer(&data[0])),
		C.size_t(len(data)),
		&width,
		&height,
	)
	if ptr == nil {
		return nil, rerr.New(rerr.Codec, "codec.webP.DecodeBytes", errDecodeFailed)
	}
	defer C.WebPFree(unsafe.Pointer(ptr))

	w, h := int(width), int(height)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	src := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), w*4*h)
	copy(img.Pix, src)
	return img, nil
}
