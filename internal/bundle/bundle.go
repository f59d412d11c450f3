// Package bundle implements the on-disk asset archive: a mutable,
// random-access container of named entries (opaque files or packed
// textures) with append-style growth, free-list reuse across rebuilds,
// and a header/entry-table directory.
package bundle

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pspoerri/ruck/internal/rerr"
)

// Bundle is an open, mutable bundle file. Callers must call Close exactly
// once to persist changes.
type Bundle struct {
	path   string
	f      *os.File
	locked bool

	hdr     header
	entries map[string]*Entry
	order   []string // insertion order, preserved across reopens
	free    freeList
	end     uint64 // logical end of the last allocated region

	dirty  bool
	closed bool
}

// Open opens path for read/write, creating a fresh empty bundle if it does
// not exist or is zero-length. A malformed header fails with BadFormat.
func Open(path string) (*Bundle, error) {
	st, statErr := os.Stat(path)
	fresh := statErr != nil || st.Size() == 0

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, rerr.New(rerr.Io, "bundle.Open", err)
	}

	b := &Bundle{path: path, f: f, entries: make(map[string]*Entry)}
	if lockErr := tryLockExclusive(f.Fd()); lockErr == nil {
		b.locked = true
	}

	if fresh {
		b.end = HeaderSize
		if err := b.writeHeader(); err != nil {
			f.Close()
			return nil, err
		}
		return b, nil
	}

	if err := b.load(); err != nil {
		f.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bundle) load() error {
	hdrBuf := make([]byte, HeaderSize)
	n, err := b.f.ReadAt(hdrBuf, 0)
	if err != nil && err != io.EOF {
		return rerr.New(rerr.Io, "bundle.Open", err)
	}
	// A file shorter than a header is rejected by deserializeHeader as
	// BadFormat.
	hdr, err := deserializeHeader(hdrBuf[:n])
	if err != nil {
		return err
	}
	b.hdr = hdr

	var entryList []*Entry
	if hdr.EntryTableLength > 0 {
		tableBuf := make([]byte, hdr.EntryTableLength)
		if err := readFull(b.f, tableBuf, int64(hdr.EntryTableOffset)); err != nil {
			return err
		}
		entryList, err = deserializeEntryTable(tableBuf)
		if err != nil {
			return err
		}
	}

	for _, e := range entryList {
		b.entries[e.Name] = e
		b.order = append(b.order, e.Name)
	}

	actualSize, err := b.f.Seek(0, io.SeekEnd)
	if err != nil {
		return rerr.New(rerr.Io, "bundle.Open", err)
	}
	b.end = uint64(actualSize)

	b.computeFreeList(entryList)
	return nil
}

// computeFreeList derives free regions as the complement of live entry
// spans (plus the entry table's own span) within [HeaderSize, b.end).
func (b *Bundle) computeFreeList(entries []*Entry) {
	type span struct{ off, length uint64 }
	spans := make([]span, 0, len(entries)+1)
	for _, e := range entries {
		if e.Capacity > 0 {
			spans = append(spans, span{e.Offset, e.Capacity})
		}
	}
	if b.hdr.EntryTableLength > 0 {
		spans = append(spans, span{b.hdr.EntryTableOffset, b.hdr.EntryTableLength})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].off < spans[j].off })

	cursor := uint64(HeaderSize)
	for _, s := range spans {
		if s.off > cursor {
			b.free.release(cursor, s.off-cursor)
		}
		if end := s.off + s.length; end > cursor {
			cursor = end
		}
	}
	if b.end > cursor {
		b.free.release(cursor, b.end-cursor)
	}
}

func (b *Bundle) writeHeader() error {
	if _, err := b.f.WriteAt(b.hdr.serialize(), 0); err != nil {
		return rerr.New(rerr.Io, "bundle", err)
	}
	return nil
}

// Find looks up an entry by name.
func (b *Bundle) Find(key string) (*Entry, bool) {
	e, ok := b.entries[key]
	return e, ok
}

// MustFind is Find, returning a NotFound error instead of a bool.
func (b *Bundle) MustFind(key string) (*Entry, error) {
	e, ok := b.entries[key]
	if !ok {
		return nil, rerr.New(rerr.NotFound, "bundle.Find", fmt.Errorf("no entry named %q", key))
	}
	return e, nil
}

// FileCount returns the number of entries.
func (b *Bundle) FileCount() int { return len(b.order) }

// GetFiles returns all entries in insertion order.
func (b *Bundle) GetFiles() []*Entry {
	out := make([]*Entry, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.entries[name])
	}
	return out
}

// AddFile reads srcPath and inserts/replaces a file entry under key, using
// the source's mtime.
func (b *Bundle) AddFile(key, srcPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return rerr.New(rerr.Io, "bundle.AddFile", err)
	}
	st, err := os.Stat(srcPath)
	if err != nil {
		return rerr.New(rerr.Io, "bundle.AddFile", err)
	}
	return b.put(key, KindFile, data, st.ModTime().Unix())
}

// AddTexture inserts/replaces a texture entry under key from an
// already-serialized payload (see internal/texture.Serialize), with mtime
// set by the caller to the latest source-image mtime observed while
// building the texture.
func (b *Bundle) AddTexture(key string, payload []byte, mtime int64) error {
	return b.put(key, KindTexture, payload, mtime)
}

// put implements the add/replace write algorithm: reuse the entry's own
// capacity in place when it still fits, else release it back to the free
// list and take a free region (or grow the file) for the new size.
func (b *Bundle) put(key string, kind Kind, data []byte, mtime int64) error {
	if len(key) > MaxKeyLen {
		return rerr.New(rerr.KeyTooLong, "bundle.put", fmt.Errorf("key %q exceeds %d bytes", key, MaxKeyLen))
	}
	size := uint64(len(data))

	existing, ok := b.entries[key]
	var off, capacity uint64
	switch {
	case ok && size <= existing.Capacity:
		off, capacity = existing.Offset, existing.Capacity
	default:
		if ok {
			b.free.release(existing.Offset, existing.Capacity)
		}
		if r, found := b.free.take(size); found {
			off, capacity = r.offset, r.length
		} else {
			off = b.end
			capacity = growthCapacity(size)
			b.end = off + capacity
		}
	}

	if size > 0 {
		if _, err := b.f.WriteAt(data, int64(off)); err != nil {
			return rerr.New(rerr.Io, "bundle.put", err)
		}
	}

	e := &Entry{Name: key, Offset: off, Used: size, Capacity: capacity, Kind: kind, MTime: mtime}
	if !ok {
		b.order = append(b.order, key)
	}
	b.entries[key] = e
	b.dirty = true
	return nil
}

// growthCapacity doubles the requested size to amortize future growth of
// the same key.
func growthCapacity(size uint64) uint64 {
	if size == 0 {
		return 0
	}
	return size * 2
}

// FileSize returns an entry's used byte length.
func (b *Bundle) FileSize(e *Entry) uint64 { return e.Used }

// FileMTime returns an entry's recorded modification time.
func (b *Bundle) FileMTime(e *Entry) int64 { return e.MTime }

// FileName returns an entry's key.
func (b *Bundle) FileName(e *Entry) string { return e.Name }

// FileRead copies an entry's bytes into buf, which must be at least
// FileSize(e) long.
func (b *Bundle) FileRead(e *Entry, buf []byte) (int, error) {
	if uint64(len(buf)) < e.Used {
		return 0, rerr.New(rerr.Io, "bundle.FileRead", fmt.Errorf("buffer too small: %d < %d", len(buf), e.Used))
	}
	if e.Used == 0 {
		return 0, nil
	}
	n, err := b.f.ReadAt(buf[:e.Used], int64(e.Offset))
	if err != nil {
		return n, rerr.New(rerr.Io, "bundle.FileRead", err)
	}
	return n, nil
}

// ReadAll returns a freshly allocated copy of an entry's bytes.
func (b *Bundle) ReadAll(e *Entry) ([]byte, error) {
	buf := make([]byte, e.Used)
	if _, err := b.FileRead(e, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// OpenTexturePayload returns the raw serialized texture bytes for a
// texture-kind entry, ready for internal/texture.Deserialize.
func (b *Bundle) OpenTexturePayload(e *Entry) ([]byte, error) {
	if e.Kind != KindTexture {
		return nil, rerr.New(rerr.BadFormat, "bundle.OpenTexturePayload", fmt.Errorf("entry %q is not a texture", e.Name))
	}
	return b.ReadAll(e)
}

// Close flushes the entry table and header, truncates trailing free space,
// fsyncs, and closes the file handle. It is idempotent: a second call is a
// no-op. On any error it still attempts to close the file handle on a
// best-effort basis.
func (b *Bundle) Close() error {
	if b.closed {
		return nil
	}
	defer func() {
		_ = unlock(b.f.Fd())
		_ = b.f.Close()
		b.closed = true
	}()

	entries := make([]*Entry, 0, len(b.order))
	for _, name := range b.order {
		entries = append(entries, b.entries[name])
	}

	tableBytes, err := serializeEntryTable(entries)
	if err != nil {
		return err
	}

	if b.hdr.EntryTableLength > 0 {
		b.free.release(b.hdr.EntryTableOffset, b.hdr.EntryTableLength)
	}

	size := uint64(len(tableBytes))
	var tableOff uint64
	if r, ok := b.free.take(size); ok {
		tableOff = r.offset
	} else {
		tableOff = b.end
		b.end += size
	}

	if _, err := b.f.WriteAt(tableBytes, int64(tableOff)); err != nil {
		return rerr.New(rerr.Io, "bundle.Close", err)
	}
	b.hdr.EntryTableOffset = tableOff
	b.hdr.EntryTableLength = size

	if r, ok := b.free.lastIfTrailing(b.end); ok {
		b.end = r.offset
		if err := b.f.Truncate(int64(b.end)); err != nil {
			return rerr.New(rerr.Io, "bundle.Close", err)
		}
	}

	b.hdr.FirstFreeOffset = 0
	b.hdr.FileSizeHint = b.end
	if err := b.writeHeader(); err != nil {
		return err
	}

	if err := b.f.Sync(); err != nil {
		return rerr.New(rerr.Io, "bundle.Close", err)
	}
	return nil
}
