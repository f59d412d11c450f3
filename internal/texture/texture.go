// Package texture implements the packed-sprite artifact: a Texture holds a
// set of source Images, packs them into one or more composite pages via
// internal/packer, encodes each page through an internal/codec.Codec, and
// (de)serializes the result as a bundle entry.
package texture

import (
	"image"

	"github.com/pspoerri/ruck/internal/codec"
	"github.com/pspoerri/ruck/internal/packer"
)

// Image is one sprite contributing to a texture.
type Image struct {
	Path string
	Key  string

	Width, Height int

	Anchor           Anchor
	AnchorX, AnchorY float32 // meaningful only when Anchor == AnchorExplicit

	// Placement, populated by Texture.Build.
	Page    int
	X, Y    int
	Rotated bool
}

// Texture is a packed-sprite artifact: constraints plus an ordered list of
// images. Pages and per-image placement are populated by Build.
type Texture struct {
	MaxWidth  int
	MaxHeight int
	Pow2      bool
	AllowR90  bool

	Images []Image

	Pages     []PageImage
	PageSizes []packer.PageSize
}

// PageImage is one encoded composite page.
type PageImage struct {
	Width, Height int
	Encoded       []byte
}

// Build decodes every source image with dec, packs them, composites one
// RGBA buffer per page, and encodes each page. It populates t.Pages,
// t.PageSizes, and each Image's placement fields (Page, X, Y, Rotated).
// Width/Height on each Image is overwritten with the decoded pixel
// dimensions.
func Build(t *Texture, dec codec.Codec) error {
	pixelsByKey := make(map[string]*codec.Pixels, len(t.Images))
	rects := make([]packer.Rect, len(t.Images))

	for i, img := range t.Images {
		px, err := dec.Decode(img.Path)
		if err != nil {
			return err
		}
		t.Images[i].Width = px.Width
		t.Images[i].Height = px.Height
		pixelsByKey[img.Key] = px
		rects[i] = packer.Rect{Key: img.Key, W: px.Width, H: px.Height}
	}

	result, err := packer.Pack(rects, packer.Options{
		MaxWidth:  t.MaxWidth,
		MaxHeight: t.MaxHeight,
		Pow2:      t.Pow2,
		AllowR90:  t.AllowR90,
	})
	if err != nil {
		return err
	}

	placementByKey := make(map[string]packer.Placement, len(result.Placements))
	for _, p := range result.Placements {
		placementByKey[p.Key] = p
	}

	pages := make([]*image.RGBA, len(result.Pages))
	for i, sz := range result.Pages {
		pages[i] = image.NewRGBA(image.Rect(0, 0, sz.Width, sz.Height))
	}

	for i, img := range t.Images {
		p := placementByKey[img.Key]
		t.Images[i].Page = p.Page
		t.Images[i].X = p.X
		t.Images[i].Y = p.Y
		t.Images[i].Rotated = p.Rotated

		src := pixelsByKey[img.Key].RGBA
		if p.Rotated {
			src = rotate90(src)
		}
		drawAt(pages[p.Page], src, p.X, p.Y)
	}

	t.PageSizes = make([]packer.PageSize, len(result.Pages))
	copy(t.PageSizes, result.Pages)

	t.Pages = make([]PageImage, len(pages))
	for i, pg := range pages {
		data, err := dec.Encode(pg)
		if err != nil {
			return err
		}
		t.Pages[i] = PageImage{Width: pg.Bounds().Dx(), Height: pg.Bounds().Dy(), Encoded: data}
	}

	return nil
}

// drawAt copies src into dst with its top-left corner at (x, y).
func drawAt(dst, src *image.RGBA, x, y int) {
	b := src.Bounds()
	for sy := 0; sy < b.Dy(); sy++ {
		for sx := 0; sx < b.Dx(); sx++ {
			dst.Set(x+sx, y+sy, src.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
}

// rotate90 rotates an image 90 degrees clockwise, matching the packer's
// "rotated placement swaps effective w<->h" convention.
func rotate90(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for sy := 0; sy < h; sy++ {
		for sx := 0; sx < w; sx++ {
			dst.Set(h-1-sy, sx, src.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}
