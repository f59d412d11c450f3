//go:build !cgo

package codec

import (
	"bytes"
	"image"
	"os"

	"github.com/gen2brain/webp"

	"github.com/pspoerri/ruck/internal/rerr"
)

// webP without CGO falls back to the pure-Go gen2brain/webp decoder/encoder
// (wazero-compiled libwebp) instead of libwebp bindings. Slower than the CGo
// path but needs nothing installed on the host.
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

func (webP) Encode(img *image.RGBA) ([]byte, error) {
	if len(img.Pix) == 0 {
		return nil, rerr.New(rerr.Codec, "codec.webP.Encode", errEmptyImage)
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Lossless: false, Quality: 90}); err != nil {
		return nil, rerr.New(rerr.Codec, "codec.webP.Encode", err)
	}
	return buf.Bytes(), nil
}

func (webP) DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, rerr.New(rerr.Codec, "codec.webP.DecodeBytes", errEmptyData)
	}
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, rerr.New(rerr.Codec, "codec.webP.DecodeBytes", err)
	}
	return img, nil
}
