// Package codec adapts external image decode/encode libraries behind a
// small Codec interface: decode a source image file into pixels, encode a
// packed page's pixels back to bytes.
package codec

import (
	"fmt"
	"image"
	"image/draw"
)

// Pixels is a decoded RGBA8 pixel buffer with its dimensions.
type Pixels struct {
	Width, Height int
	RGBA          *image.RGBA
}

// Codec decodes source images into pixel buffers and encodes composite
// page images into bytes for storage.
type Codec interface {
	// Decode reads and decodes the image at path into an RGBA pixel buffer.
	Decode(path string) (*Pixels, error)
	// Encode serializes an RGBA page to bytes in this codec's format.
	Encode(img *image.RGBA) ([]byte, error)
	// DecodeBytes decodes previously-encoded bytes (such as a stored page)
	// back to an image.
	DecodeBytes(data []byte) (image.Image, error)
	// Name identifies the format ("png", "webp").
	Name() string
}

// New resolves a Codec by name. "png" is always available; "webp" uses
// libwebp through CGO in a cgo build and a pure-Go decoder/encoder otherwise.
func New(name string) (Codec, error) {
	switch name {
	case "", "png":
		return PNG{}, nil
	case "webp":
		return newWebP()
	default:
		return nil, fmt.Errorf("unsupported image format: %q (supported: png, webp)", name)
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}
