package manifest

import "github.com/pspoerri/ruck/internal/texture"

// anchorSpec is a named anchor, or an explicit (x, y) pair when
// Kind == texture.AnchorExplicit.
type anchorSpec struct {
	Kind texture.Anchor
	X, Y float32
}

var defaultAnchor = anchorSpec{Kind: texture.AnchorCenter}

// imageSpec is one image entry inside a texture's "images" object.
type imageSpec struct {
	Key    string
	Path   string
	Anchor anchorSpec
}

// globSpec matches a set of files under a directory.
type globSpec struct {
	Glob   string
	Path   string
	Prefix string
}

var defaultGlobSpec = globSpec{Glob: "*"}

// globImageSpec is a globSpec plus an optional anchor template applied to
// every expanded image.
type globImageSpec struct {
	globSpec
	Anchor    anchorSpec
	HasAnchor bool
}

// textureSpec is one entry inside the manifest's "textures" object.
type textureSpec struct {
	Key           string
	MaxWidth      int
	MaxHeight     int
	Pow2          bool
	AllowRotate90 bool
	Images        []imageSpec
	GlobImages    []globImageSpec
}

var defaultTextureSpec = textureSpec{MaxWidth: 1024, MaxHeight: 1024, Pow2: true, AllowRotate90: true}

// fileSpec is one entry inside the manifest's "files" object
// (`{"path": <string>}`).
type fileSpec struct {
	Key  string
	Path string
}

// Manifest is the parsed top-level manifest document.
type Manifest struct {
	Textures  []textureSpec
	Files     []fileSpec
	GlobFiles []globSpec
}
