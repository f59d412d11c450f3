package texture

import "testing"

func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	tex := &Texture{
		MaxWidth: 1024, MaxHeight: 1024, Pow2: true, AllowR90: true,
		Images: []Image{
			{Key: "b", Page: 0, X: 10, Y: 0, Width: 8, Height: 8, Anchor: AnchorCenter},
			{Key: "a", Page: 0, X: 0, Y: 0, Width: 10, Height: 10, Rotated: true, Anchor: AnchorExplicit, AnchorX: 3.5, AnchorY: 7.25},
		},
		Pages: []PageImage{
			{Width: 32, Height: 32, Encoded: []byte{1, 2, 3, 4, 5}},
		},
	}

	data, err := Serialize(tex)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if got.MaxWidth != 1024 || got.MaxHeight != 1024 || !got.Pow2 || !got.AllowR90 {
		t.Fatalf("header mismatch: %+v", got)
	}
	if len(got.Images) != 2 {
		t.Fatalf("image count = %d, want 2", len(got.Images))
	}

	byKey := map[string]Image{}
	for _, img := range got.Images {
		byKey[img.Key] = img
	}

	a, ok := byKey["a"]
	if !ok {
		t.Fatal("missing image \"a\"")
	}
	if a.Anchor != AnchorExplicit {
		t.Fatalf("a.Anchor = %v, want explicit", a.Anchor)
	}
	// Regression for the anchor_y copy bug: x and y must survive distinctly.
	if a.AnchorX != 3.5 {
		t.Fatalf("a.AnchorX = %v, want 3.5", a.AnchorX)
	}
	if a.AnchorY != 7.25 {
		t.Fatalf("a.AnchorY = %v, want 7.25 (anchor_y bug regression)", a.AnchorY)
	}
	if !a.Rotated {
		t.Fatal("a.Rotated = false, want true")
	}

	if len(got.Pages) != 1 || string(got.Pages[0].Encoded) != "\x01\x02\x03\x04\x05" {
		t.Fatalf("page bytes mismatch: %+v", got.Pages)
	}
}

func TestSerialize_SortsImagesByKey(t *testing.T) {
	tex := &Texture{
		MaxWidth: 64, MaxHeight: 64,
		Images: []Image{
			{Key: "zzz", Width: 4, Height: 4},
			{Key: "aaa", Width: 4, Height: 4},
			{Key: "mmm", Width: 4, Height: 4},
		},
		Pages: []PageImage{{Width: 8, Height: 8, Encoded: []byte{}}},
	}
	data, err := Serialize(tex)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	want := []string{"aaa", "mmm", "zzz"}
	for i, w := range want {
		if got.Images[i].Key != w {
			t.Fatalf("image[%d].Key = %q, want %q", i, got.Images[i].Key, w)
		}
	}
}

func TestDeserialize_BadMagic(t *testing.T) {
	if _, err := Deserialize([]byte{0, 0, 0, 0}); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestSerialize_Determinism(t *testing.T) {
	tex := &Texture{
		MaxWidth: 64, MaxHeight: 64, Pow2: true,
		Images: []Image{{Key: "only", Width: 4, Height: 4}},
		Pages:  []PageImage{{Width: 8, Height: 8, Encoded: []byte{9, 9}}},
	}
	a, err := Serialize(tex)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	b, err := Serialize(tex)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("Serialize is not deterministic")
	}
}
