package bundle

import (
	"encoding/binary"
	"fmt"

	"github.com/pspoerri/ruck/internal/rerr"
)

// HeaderSize is the fixed on-disk header size.
const HeaderSize = 4 + 4 + 8 + 8 + 8 + 8 // magic, version, 4x u64

const (
	magic         uint32 = 'R' | 'S'<<8 | 'B'<<16 | 'N'<<24
	formatVersion uint32 = 1
)

// header is the fixed 40-byte bundle header.
type header struct {
	EntryTableOffset uint64
	EntryTableLength uint64
	FirstFreeOffset  uint64 // always 0 on disk; the free list is recomputed on open
	FileSizeHint     uint64
}

func (h header) serialize() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], formatVersion)
	binary.LittleEndian.PutUint64(buf[8:16], h.EntryTableOffset)
	binary.LittleEndian.PutUint64(buf[16:24], h.EntryTableLength)
	binary.LittleEndian.PutUint64(buf[24:32], h.FirstFreeOffset)
	binary.LittleEndian.PutUint64(buf[32:40], h.FileSizeHint)
	return buf
}

func deserializeHeader(buf []byte) (header, error) {
	if len(buf) < HeaderSize {
		return header{}, rerr.New(rerr.BadFormat, "bundle.Open",
			fmt.Errorf("header too short: %d bytes (need %d)", len(buf), HeaderSize))
	}
	gotMagic := binary.LittleEndian.Uint32(buf[0:4])
	if gotMagic != magic {
		return header{}, rerr.New(rerr.BadFormat, "bundle.Open", fmt.Errorf("bad magic %#x", gotMagic))
	}
	version := binary.LittleEndian.Uint32(buf[4:8])
	if version != formatVersion {
		return header{}, rerr.New(rerr.BadFormat, "bundle.Open", fmt.Errorf("unsupported version %d", version))
	}
	return header{
		EntryTableOffset: binary.LittleEndian.Uint64(buf[8:16]),
		EntryTableLength: binary.LittleEndian.Uint64(buf[16:24]),
		FirstFreeOffset:  binary.LittleEndian.Uint64(buf[24:32]),
		FileSizeHint:     binary.LittleEndian.Uint64(buf[32:40]),
	}, nil
}
