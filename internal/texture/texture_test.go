package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pspoerri/ruck/internal/codec"
)

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuild_PlacesAllImagesAndEncodesPages(t *testing.T) {
	dir := t.TempDir()
	tex := &Texture{
		MaxWidth: 64, MaxHeight: 64, Pow2: true, AllowR90: true,
		Images: []Image{
			{Key: "a", Path: writeTestPNG(t, dir, "a.png", 8, 8)},
			{Key: "b", Path: writeTestPNG(t, dir, "b.png", 16, 8)},
			{Key: "c", Path: writeTestPNG(t, dir, "c.png", 8, 16)},
		},
	}

	if err := Build(tex, codec.PNG{}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(tex.Pages) == 0 {
		t.Fatal("no pages produced")
	}
	for _, pg := range tex.Pages {
		if len(pg.Encoded) == 0 {
			t.Fatal("page has no encoded bytes")
		}
		if pg.Width == 0 || pg.Height == 0 {
			t.Fatalf("page has zero dimension: %+v", pg)
		}
	}

	for _, img := range tex.Images {
		if img.Page < 0 || img.Page >= len(tex.Pages) {
			t.Fatalf("image %q placed on out-of-range page %d", img.Key, img.Page)
		}
		w, h := img.Width, img.Height
		if img.Rotated {
			w, h = h, w
		}
		pg := tex.Pages[img.Page]
		if img.X+w > pg.Width || img.Y+h > pg.Height {
			t.Fatalf("image %q placement (%d,%d)+(%dx%d) exceeds page %dx%d",
				img.Key, img.X, img.Y, w, h, pg.Width, pg.Height)
		}
	}
}

func TestBuild_SerializeDeserializeFullPipeline(t *testing.T) {
	dir := t.TempDir()
	tex := &Texture{
		MaxWidth: 32, MaxHeight: 32, Pow2: false, AllowR90: false,
		Images: []Image{
			{Key: "x", Path: writeTestPNG(t, dir, "x.png", 4, 4), Anchor: AnchorCenter},
			{Key: "y", Path: writeTestPNG(t, dir, "y.png", 4, 4), Anchor: AnchorTopLeft},
		},
	}
	if err := Build(tex, codec.PNG{}); err != nil {
		t.Fatal(err)
	}

	data, err := Serialize(tex)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(got.Images) != 2 {
		t.Fatalf("got %d images, want 2", len(got.Images))
	}
	if got.MaxWidth != 32 || got.MaxHeight != 32 || got.Pow2 || got.AllowR90 {
		t.Fatalf("constraints mismatch: %+v", got)
	}
}

func TestBuild_CannotFitPropagatesFromPacker(t *testing.T) {
	dir := t.TempDir()
	tex := &Texture{
		MaxWidth: 4, MaxHeight: 4, Pow2: false, AllowR90: false,
		Images: []Image{
			{Key: "big", Path: writeTestPNG(t, dir, "big.png", 8, 8)},
		},
	}
	if err := Build(tex, codec.PNG{}); err == nil {
		t.Fatal("expected CannotFit error for an oversized image")
	}
}
