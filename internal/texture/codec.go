package texture

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/pspoerri/ruck/internal/packer"
	"github.com/pspoerri/ruck/internal/rerr"
)

// On-disk layout. All integers little-endian.
const (
	magic         uint32 = 'R' | 'S'<<8 | 'T'<<16 | 'X'<<24
	formatVersion uint32 = 1
)

// Serialize encodes t as a bundle entry payload. Image records are emitted
// sorted by key for deterministic output; Deserialize must not rely on
// order.
func Serialize(t *Texture) ([]byte, error) {
	var buf bytes.Buffer

	writeU32(&buf, magic)
	writeU32(&buf, formatVersion)
	writeU32(&buf, uint32(t.MaxWidth))
	writeU32(&buf, uint32(t.MaxHeight))
	buf.WriteByte(boolByte(t.Pow2))
	buf.WriteByte(boolByte(t.AllowR90))

	writeU32(&buf, uint32(len(t.Pages)))
	for _, p := range t.Pages {
		writeU32(&buf, uint32(p.Width))
		writeU32(&buf, uint32(p.Height))
		writeU32(&buf, uint32(len(p.Encoded)))
	}

	images := make([]Image, len(t.Images))
	copy(images, t.Images)
	sort.Slice(images, func(i, j int) bool { return images[i].Key < images[j].Key })

	writeU32(&buf, uint32(len(images)))
	for _, img := range images {
		writeU32(&buf, uint32(img.Page))
		writeU32(&buf, uint32(img.X))
		writeU32(&buf, uint32(img.Y))
		writeU32(&buf, uint32(img.Width))
		writeU32(&buf, uint32(img.Height))
		buf.WriteByte(boolByte(img.Rotated))
		buf.WriteByte(byte(img.Anchor))
		writeF32(&buf, img.AnchorX)
		writeF32(&buf, img.AnchorY)

		key := []byte(img.Key)
		if len(key) > math.MaxUint32 {
			return nil, rerr.New(rerr.KeyTooLong, "texture.Serialize", fmt.Errorf("key %q too long", img.Key))
		}
		writeU32(&buf, uint32(len(key)))
		buf.Write(key)
	}

	for _, p := range t.Pages {
		buf.Write(p.Encoded)
	}

	return buf.Bytes(), nil
}

// Deserialize decodes a texture entry payload produced by Serialize. Page
// byte slices are returned still encoded (e.g. PNG bytes); callers decode
// them lazily via a codec.Codec.
func Deserialize(data []byte) (*Texture, error) {
	r := bytes.NewReader(data)

	gotMagic, err := readU32(r)
	if err != nil {
		return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
	}
	if gotMagic != magic {
		return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", fmt.Errorf("bad magic %#x", gotMagic))
	}
	version, err := readU32(r)
	if err != nil {
		return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
	}
	if version != formatVersion {
		return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", fmt.Errorf("unsupported version %d", version))
	}

	t := &Texture{}
	maxW, err := readU32(r)
	if err != nil {
		return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
	}
	maxH, err := readU32(r)
	if err != nil {
		return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
	}
	t.MaxWidth, t.MaxHeight = int(maxW), int(maxH)

	pow2, err := r.ReadByte()
	if err != nil {
		return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
	}
	allowR90, err := r.ReadByte()
	if err != nil {
		return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
	}
	t.Pow2 = pow2 != 0
	t.AllowR90 = allowR90 != 0

	pageCount, err := readU32(r)
	if err != nil {
		return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
	}
	pageLens := make([]uint32, pageCount)
	t.Pages = make([]PageImage, pageCount)
	for i := range t.Pages {
		w, err := readU32(r)
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		h, err := readU32(r)
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		encLen, err := readU32(r)
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		t.Pages[i] = PageImage{Width: int(w), Height: int(h)}
		pageLens[i] = encLen
	}

	imageCount, err := readU32(r)
	if err != nil {
		return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
	}
	t.Images = make([]Image, imageCount)
	for i := range t.Images {
		page, err := readU32(r)
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		x, err := readU32(r)
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		y, err := readU32(r)
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		w, err := readU32(r)
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		h, err := readU32(r)
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		rotated, err := r.ReadByte()
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		anchorKind, err := r.ReadByte()
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		anchorX, err := readF32(r)
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		anchorY, err := readF32(r)
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		keyLen, err := readU32(r)
		if err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}
		keyBuf := make([]byte, keyLen)
		if _, err := io.ReadFull(r, keyBuf); err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", err)
		}

		if int(page) >= len(t.Pages) {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize",
				fmt.Errorf("image %q references page %d, have %d pages", keyBuf, page, len(t.Pages)))
		}

		t.Images[i] = Image{
			Key: string(keyBuf), Page: int(page), X: int(x), Y: int(y),
			Width: int(w), Height: int(h), Rotated: rotated != 0,
			Anchor: Anchor(anchorKind), AnchorX: anchorX, AnchorY: anchorY,
		}
	}

	for i := range t.Pages {
		buf := make([]byte, pageLens[i])
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, rerr.New(rerr.BadFormat, "texture.Deserialize", fmt.Errorf("reading page %d: %w", i, err))
		}
		t.Pages[i].Encoded = buf
	}

	t.PageSizes = make([]packer.PageSize, len(t.Pages))
	for i, p := range t.Pages {
		t.PageSizes[i] = packer.PageSize{Width: p.Width, Height: p.Height}
	}

	return t, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeF32(w *bytes.Buffer, v float32) {
	writeU32(w, math.Float32bits(v))
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readF32(r *bytes.Reader) (float32, error) {
	v, err := readU32(r)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}
