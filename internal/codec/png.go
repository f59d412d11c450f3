package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/pspoerri/ruck/internal/rerr"
)

// PNG is the default image codec: stdlib image/png for both directions.
type PNG struct{}

func (PNG) Name() string { return "png" }

func (PNG) Decode(path string) (*Pixels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rerr.New(rerr.Io, "codec.PNG.Decode", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, rerr.New(rerr.Codec, "codec.PNG.Decode", fmt.Errorf("%s: %w", path, err))
	}
	rgba := toRGBA(img)
	b := rgba.Bounds()
	return &Pixels{Width: b.Dx(), Height: b.Dy(), RGBA: rgba}, nil
}

func (PNG) Encode(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, rerr.New(rerr.Codec, "codec.PNG.Encode", err)
	}
	return buf.Bytes(), nil
}

func (PNG) DecodeBytes(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, rerr.New(rerr.Codec, "codec.PNG.DecodeBytes", err)
	}
	return img, nil
}
