package bundle

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pspoerri/ruck/internal/rerr"
)

// Kind distinguishes an opaque file blob from a packed texture.
type Kind uint8

const (
	KindFile Kind = iota
	KindTexture
)

func (k Kind) String() string {
	if k == KindTexture {
		return "texture"
	}
	return "file"
}

// MaxKeyLen is the practical on-disk limit for an entry name.
const MaxKeyLen = 65535

// Entry is one record in a bundle's directory.
type Entry struct {
	Name     string
	Offset   uint64
	Used     uint64
	Capacity uint64
	Kind     Kind
	MTime    int64
}

// serializeEntryTable writes count + each entry in order, matching §6's
// on-disk entry table layout.
func serializeEntryTable(entries []*Entry) ([]byte, error) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(entries)))

	for _, e := range entries {
		name := []byte(e.Name)
		if len(name) > MaxKeyLen {
			return nil, rerr.New(rerr.KeyTooLong, "bundle.Close", fmt.Errorf("entry %q name too long", e.Name))
		}
		rec := make([]byte, 8*4+1+4+len(name))
		off := 0
		binary.LittleEndian.PutUint64(rec[off:], e.Offset)
		off += 8
		binary.LittleEndian.PutUint64(rec[off:], e.Used)
		off += 8
		binary.LittleEndian.PutUint64(rec[off:], e.Capacity)
		off += 8
		binary.LittleEndian.PutUint64(rec[off:], uint64(e.MTime))
		off += 8
		rec[off] = byte(e.Kind)
		off++
		binary.LittleEndian.PutUint32(rec[off:], uint32(len(name)))
		off += 4
		copy(rec[off:], name)

		buf = append(buf, rec...)
	}
	return buf, nil
}

func deserializeEntryTable(data []byte) ([]*Entry, error) {
	if len(data) < 4 {
		return nil, rerr.New(rerr.BadFormat, "bundle.Open", fmt.Errorf("entry table truncated"))
	}
	count := binary.LittleEndian.Uint32(data[0:4])
	pos := 4

	entries := make([]*Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		const fixedLen = 8*4 + 1 + 4
		if pos+fixedLen > len(data) {
			return nil, rerr.New(rerr.BadFormat, "bundle.Open", fmt.Errorf("entry table truncated at record %d", i))
		}
		e := &Entry{}
		e.Offset = binary.LittleEndian.Uint64(data[pos:])
		pos += 8
		e.Used = binary.LittleEndian.Uint64(data[pos:])
		pos += 8
		e.Capacity = binary.LittleEndian.Uint64(data[pos:])
		pos += 8
		e.MTime = int64(binary.LittleEndian.Uint64(data[pos:]))
		pos += 8
		e.Kind = Kind(data[pos])
		pos++
		nameLen := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		if pos+nameLen > len(data) {
			return nil, rerr.New(rerr.BadFormat, "bundle.Open", fmt.Errorf("entry table truncated reading name at record %d", i))
		}
		e.Name = string(data[pos : pos+nameLen])
		pos += nameLen

		entries = append(entries, e)
	}
	return entries, nil
}

// readFull is a small helper mirroring io.ReadFull but returning a rerr.Io.
func readFull(r io.ReaderAt, buf []byte, off int64) error {
	if _, err := r.ReadAt(buf, off); err != nil {
		return rerr.New(rerr.Io, "bundle", err)
	}
	return nil
}
