// Package manifest implements the incremental manifest driver of spec
// §4.4: it parses the lenient-JSON manifest document (see token.go,
// parse.go), expands globs, decides per entry whether a rebuild is
// required by comparing source mtimes to the stored entry's mtime, and
// drives the bundle/texture packing pipeline for entries found stale.
package manifest

import (
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"path/filepath"

	"github.com/pspoerri/ruck/internal/bundle"
	"github.com/pspoerri/ruck/internal/codec"
	"github.com/pspoerri/ruck/internal/pathutil"
	"github.com/pspoerri/ruck/internal/rerr"
	"github.com/pspoerri/ruck/internal/texture"
)

// Driver applies a parsed Manifest against an open Bundle.
type Driver struct {
	Bundle  *bundle.Bundle
	Prefix  string // base directory all relative paths and globs resolve against
	Verbose bool
}

// Run processes every file, globFiles, and texture entry in m, logging a
// new/updating/up-to-date line per entry when Verbose is set. It processes
// every entry even after one fails, so partial progress is still persisted
// on the bundle's eventual Close; the first error encountered is returned
// once all entries have been attempted.
func (d *Driver) Run(m *Manifest) error {
	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, fs := range m.Files {
		note(d.processFile(fs))
	}
	for _, g := range m.GlobFiles {
		note(d.processGlobFiles(g))
	}
	for _, ts := range m.Textures {
		note(d.processTexture(ts))
	}
	return firstErr
}

func (d *Driver) logf(format string, args ...any) {
	if d.Verbose {
		log.Printf(format, args...)
	}
}

func (d *Driver) resolvePath(rel string) string {
	return pathutil.Resolve(d.Prefix, rel)
}

func (d *Driver) processFile(fs fileSpec) error {
	return d.addFileIfOutdated(fs.Key, d.resolvePath(fs.Path))
}

// addFileIfOutdated skips rebuilding when a same-keyed file entry's mtime is
// already >= the source's. A source whose mtime ties the stored entry's
// (possible under coarse filesystem mtime resolution, or a test writing
// twice within the same second) is additionally checked by content hash
// rather than assumed unchanged.
func (d *Driver) addFileIfOutdated(key, srcPath string) error {
	st, err := os.Stat(srcPath)
	if err != nil {
		return rerr.New(rerr.Io, "manifest.addFile", err)
	}
	srcMTime := st.ModTime().Unix()

	existing, ok := d.Bundle.Find(key)
	if ok && existing.Kind == bundle.KindFile {
		switch {
		case d.Bundle.FileMTime(existing) > srcMTime:
			d.logf("up to date: %s", key)
			return nil
		case d.Bundle.FileMTime(existing) == srcMTime:
			unchanged, err := d.sameContent(existing, srcPath)
			if err != nil {
				return err
			}
			if unchanged {
				d.logf("up to date: %s", key)
				return nil
			}
		}
		d.logf("updating: %s", key)
	} else {
		d.logf("new: %s", key)
	}
	return d.Bundle.AddFile(key, srcPath)
}

// sameContent compares an existing entry's stored bytes against srcPath's
// current contents by FNV-64a hash, used here for a staleness tie-break
// rather than deduplication.
func (d *Driver) sameContent(existing *bundle.Entry, srcPath string) (bool, error) {
	stored, err := d.Bundle.ReadAll(existing)
	if err != nil {
		return false, err
	}
	current, err := os.ReadFile(srcPath)
	if err != nil {
		return false, rerr.New(rerr.Io, "manifest.addFile", err)
	}
	return contentHash(stored) == contentHash(current), nil
}

func contentHash(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

// processGlobFiles expands a globSpec into matching files and adds each one
// under prefix + relative path from the glob's base directory.
func (d *Driver) processGlobFiles(g globSpec) error {
	matches, basePath, err := d.expandGlob(g)
	if err != nil {
		return err
	}
	for _, m := range matches {
		rel, err := pathutil.Relative(basePath, m)
		if err != nil {
			return rerr.New(rerr.Io, "manifest.glob", err)
		}
		key := g.Prefix + filepath.ToSlash(rel)
		if err := d.addFileIfOutdated(key, m); err != nil {
			return err
		}
	}
	return nil
}

// expandGlob matches g.Glob under resolve(prefix, g.Path), skips
// directories, sorts matches for determinism, and fails with NoMatches on
// an empty result.
func (d *Driver) expandGlob(g globSpec) (matches []string, basePath string, err error) {
	basePath = d.resolvePath(g.Path)
	pattern := pathutil.Join(basePath, g.Glob)
	candidates, err := pathutil.Glob(pattern)
	if err != nil {
		return nil, "", rerr.New(rerr.Io, "manifest.glob", err)
	}

	for _, c := range candidates {
		st, err := os.Stat(c)
		if err != nil {
			return nil, "", rerr.New(rerr.Io, "manifest.glob", err)
		}
		if st.IsDir() {
			continue
		}
		matches = append(matches, c)
	}
	if len(matches) == 0 {
		return nil, "", rerr.New(rerr.NoMatches, "manifest.glob", fmt.Errorf("glob %q matched no files", pattern))
	}
	return matches, basePath, nil
}

// processTexture resolves a texture's images (explicit and glob-expanded),
// decides whether the stored entry is stale, and if so packs and writes a
// new texture entry.
func (d *Driver) processTexture(ts textureSpec) error {
	images, latestMTime, err := d.collectImages(ts)
	if err != nil {
		return err
	}

	if d.textureUpToDate(ts, latestMTime) {
		d.logf("up to date: %s", ts.Key)
		return nil
	}
	if _, ok := d.Bundle.Find(ts.Key); ok {
		d.logf("updating: %s", ts.Key)
	} else {
		d.logf("new: %s", ts.Key)
	}

	t := &texture.Texture{
		MaxWidth:  ts.MaxWidth,
		MaxHeight: ts.MaxHeight,
		Pow2:      ts.Pow2,
		AllowR90:  ts.AllowRotate90,
		Images:    images,
	}

	dec, err := codecForImages(t.Images)
	if err != nil {
		return err
	}
	if err := texture.Build(t, dec); err != nil {
		return err
	}
	payload, err := texture.Serialize(t)
	if err != nil {
		return err
	}
	return d.Bundle.AddTexture(ts.Key, payload, latestMTime)
}

// collectImages resolves ts.Images and every ts.GlobImages expansion into a
// flat []texture.Image, and returns the maximum source mtime observed
// ("latest mtime", per the GLOSSARY).
func (d *Driver) collectImages(ts textureSpec) ([]texture.Image, int64, error) {
	var images []texture.Image
	var latest int64

	for _, is := range ts.Images {
		srcPath := d.resolvePath(is.Path)
		st, err := os.Stat(srcPath)
		if err != nil {
			return nil, 0, rerr.New(rerr.Io, "manifest.image", err)
		}
		if mt := st.ModTime().Unix(); mt > latest {
			latest = mt
		}
		images = append(images, anchorImage(is.Key, srcPath, is.Anchor))
	}

	for _, gi := range ts.GlobImages {
		matches, basePath, err := d.expandGlob(gi.globSpec)
		if err != nil {
			return nil, 0, err
		}
		anchor := defaultAnchor
		if gi.HasAnchor {
			anchor = gi.Anchor
		}
		for _, m := range matches {
			rel, err := pathutil.Relative(basePath, m)
			if err != nil {
				return nil, 0, rerr.New(rerr.Io, "manifest.glob", err)
			}
			key := gi.Prefix + filepath.ToSlash(rel)
			st, err := os.Stat(m)
			if err != nil {
				return nil, 0, rerr.New(rerr.Io, "manifest.image", err)
			}
			if mt := st.ModTime().Unix(); mt > latest {
				latest = mt
			}
			images = append(images, anchorImage(key, m, anchor))
		}
	}

	return images, latest, nil
}

func anchorImage(key, path string, a anchorSpec) texture.Image {
	return texture.Image{Key: key, Path: path, Anchor: a.Kind, AnchorX: a.X, AnchorY: a.Y}
}

// textureUpToDate reports whether the existing entry's packing flags match
// the requested spec exactly and its mtime is at least as new as
// latestMTime.
func (d *Driver) textureUpToDate(ts textureSpec, latestMTime int64) bool {
	existing, ok := d.Bundle.Find(ts.Key)
	if !ok || existing.Kind != bundle.KindTexture {
		return false
	}
	if d.Bundle.FileMTime(existing) < latestMTime {
		return false
	}
	payload, err := d.Bundle.OpenTexturePayload(existing)
	if err != nil {
		return false
	}
	old, err := texture.Deserialize(payload)
	if err != nil {
		return false
	}
	return old.MaxWidth == ts.MaxWidth &&
		old.MaxHeight == ts.MaxHeight &&
		old.Pow2 == ts.Pow2 &&
		old.AllowR90 == ts.AllowRotate90
}

// codecForImages picks the image codec from the first source image's file
// extension; a manifest mixing formats within one texture is rejected, as
// the packer composites everything into a single encoded page format.
func codecForImages(images []texture.Image) (codec.Codec, error) {
	if len(images) == 0 {
		return codec.New("png")
	}
	name := formatFromExt(images[0].Path)
	for _, img := range images[1:] {
		if formatFromExt(img.Path) != name {
			return nil, rerr.New(rerr.Codec, "manifest.texture",
				fmt.Errorf("mixed image formats in one texture (%q and %q)", images[0].Path, img.Path))
		}
	}
	return codec.New(name)
}

func formatFromExt(path string) string {
	switch filepath.Ext(path) {
	case ".webp":
		return "webp"
	default:
		return "png"
	}
}
