package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pspoerri/ruck/internal/rerr"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture PNG: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPNG_DecodeReportsDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writeTestPNG(t, path, 4, 6)

	c := PNG{}
	px, err := c.Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if px.Width != 4 || px.Height != 6 {
		t.Fatalf("dims = %dx%d, want 4x6", px.Width, px.Height)
	}
}

func TestPNG_EncodeDecodeBytesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writeTestPNG(t, path, 3, 3)

	c := PNG{}
	px, err := c.Decode(path)
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := c.Encode(px.RGBA)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := c.DecodeBytes(encoded)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 3 || b.Dy() != 3 {
		t.Fatalf("round-tripped dims = %dx%d, want 3x3", b.Dx(), b.Dy())
	}
}

func TestPNG_DecodeMissingFileIsIoError(t *testing.T) {
	c := PNG{}
	_, err := c.Decode(filepath.Join(t.TempDir(), "missing.png"))
	if err == nil {
		t.Fatal("expected an error for a missing source file")
	}
	if !rerr.Is(err, rerr.Io) {
		t.Fatalf("error = %v, want kind Io", err)
	}
}

func TestNew_DefaultsToPNG(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New(\"\"): %v", err)
	}
	if c.Name() != "png" {
		t.Fatalf("Name() = %q, want png", c.Name())
	}
}

func TestNew_UnsupportedFormat(t *testing.T) {
	if _, err := New("tiff"); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}
