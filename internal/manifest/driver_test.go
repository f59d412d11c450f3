package manifest

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pspoerri/ruck/internal/bundle"
)

// onePixelPNG is the smallest valid 1x1 RGBA PNG, used wherever a test only
// needs a decodable image and not any particular pixel content.
func onePixelPNG(t *testing.T) []byte {
	t.Helper()
	const b64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decoding fixture PNG: %v", err)
	}
	return data
}

func TestDriver_ProcessFile_NewThenUpToDate(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(srcPath, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := bundle.Open(filepath.Join(dir, "out.rbn"))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	d := &Driver{Bundle: b, Prefix: dir}
	m := &Manifest{Files: []fileSpec{{Key: "a", Path: "a.txt"}}}

	if err := d.Run(m); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	entry, ok := b.Find("a")
	if !ok {
		t.Fatal("entry not added")
	}

	if err := d.Run(m); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	entry2, ok := b.Find("a")
	if !ok {
		t.Fatal("entry disappeared")
	}
	if entry != entry2 {
		t.Fatal("up-to-date file entry was rewritten")
	}
}

func TestDriver_ProcessFile_StalenessTriggersRewrite(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(srcPath, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := bundle.Open(filepath.Join(dir, "out.rbn"))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	d := &Driver{Bundle: b, Prefix: dir}
	m := &Manifest{Files: []fileSpec{{Key: "a", Path: "a.txt"}}}
	if err := d.Run(m); err != nil {
		t.Fatal(err)
	}
	first, _ := b.Find("a")

	future := time.Now().Add(2 * time.Hour)
	if err := os.WriteFile(srcPath, []byte("v2, longer content"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(srcPath, future, future); err != nil {
		t.Fatal(err)
	}

	if err := d.Run(m); err != nil {
		t.Fatal(err)
	}
	second, ok := b.Find("a")
	if !ok {
		t.Fatal("entry disappeared")
	}
	if second == first {
		t.Fatal("stale entry was not rewritten")
	}
	got, err := b.ReadAll(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2, longer content" {
		t.Fatalf("content = %q", got)
	}
}

func TestDriver_ProcessFile_EqualMTimeFallsBackToContentHash(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(srcPath, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := bundle.Open(filepath.Join(dir, "out.rbn"))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	d := &Driver{Bundle: b, Prefix: dir}
	m := &Manifest{Files: []fileSpec{{Key: "a", Path: "a.txt"}}}
	if err := d.Run(m); err != nil {
		t.Fatal(err)
	}
	first, _ := b.Find("a")
	srcMTime := first.MTime

	// Same mtime, different content: a tie that content-hash comparison must
	// catch even though the plain mtime check would call it up to date.
	if err := os.WriteFile(srcPath, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	sameTime := time.Unix(srcMTime, 0)
	if err := os.Chtimes(srcPath, sameTime, sameTime); err != nil {
		t.Fatal(err)
	}

	if err := d.Run(m); err != nil {
		t.Fatal(err)
	}
	second, ok := b.Find("a")
	if !ok {
		t.Fatal("entry disappeared")
	}
	if second == first {
		t.Fatal("content change at equal mtime was not detected")
	}
	got, err := b.ReadAll(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2" {
		t.Fatalf("content = %q, want v2", got)
	}
}

func TestDriver_ProcessGlobFiles(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"one.dat", "two.dat"} {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// A non-matching file and a subdirectory should both be excluded.
	if err := os.WriteFile(filepath.Join(dataDir, "ignore.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "sub.dat"), 0o755); err != nil {
		t.Fatal(err)
	}

	b, err := bundle.Open(filepath.Join(dir, "out.rbn"))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	d := &Driver{Bundle: b, Prefix: dir}
	m := &Manifest{GlobFiles: []globSpec{{Glob: "*.dat", Path: "data", Prefix: "data/"}}}
	if err := d.Run(m); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok := b.Find("data/one.dat"); !ok {
		t.Fatal("data/one.dat not added")
	}
	if _, ok := b.Find("data/two.dat"); !ok {
		t.Fatal("data/two.dat not added")
	}
	if b.FileCount() != 2 {
		t.Fatalf("FileCount = %d, want 2", b.FileCount())
	}
}

func TestDriver_ProcessGlobFiles_NoMatchesIsFatal(t *testing.T) {
	dir := t.TempDir()
	b, err := bundle.Open(filepath.Join(dir, "out.rbn"))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	d := &Driver{Bundle: b, Prefix: dir}
	m := &Manifest{GlobFiles: []globSpec{{Glob: "*.nope", Path: "", Prefix: ""}}}
	if err := d.Run(m); err == nil {
		t.Fatal("expected NoMatches error")
	}
}

func TestDriver_ProcessTexture_BuildsAndPacks(t *testing.T) {
	dir := t.TempDir()
	png := onePixelPNG(t)
	for _, name := range []string{"a.png", "b.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), png, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	b, err := bundle.Open(filepath.Join(dir, "out.rbn"))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	d := &Driver{Bundle: b, Prefix: dir}
	m := &Manifest{Textures: []textureSpec{{
		Key: "atlas", MaxWidth: 64, MaxHeight: 64, Pow2: true, AllowRotate90: true,
		Images: []imageSpec{
			{Key: "a", Path: "a.png", Anchor: defaultAnchor},
			{Key: "b", Path: "b.png", Anchor: defaultAnchor},
		},
	}}}

	if err := d.Run(m); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entry, ok := b.Find("atlas")
	if !ok {
		t.Fatal("texture entry not added")
	}
	if entry.Kind != bundle.KindTexture {
		t.Fatalf("kind = %v, want texture", entry.Kind)
	}
}
