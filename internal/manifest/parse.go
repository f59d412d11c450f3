package manifest

import (
	"fmt"

	"github.com/pspoerri/ruck/internal/rerr"
	"github.com/pspoerri/ruck/internal/texture"
)

// parser is a one-token-lookahead recursive-descent reader over the
// scanner's token stream. Each production below owns exactly the scratch
// fields meaningful to it as Go call-stack locals, rather than a flat
// global-scratch state machine, and returns a typed value rather than a
// generic JSON tree: the manifest is consumed as a single forward pass, not
// materialized as an AST.
type parser struct {
	sc  *scanner
	tok token
}

func newParser(data []byte) (*parser, error) {
	p := &parser{sc: newScanner(data)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	t, err := p.sc.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) unexpected(what string) error {
	return rerr.New(rerr.Parse, "manifest.parse",
		fmt.Errorf("line %d, col %d: expected %s", p.tok.line, p.tok.col, what))
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.unexpected(what)
	}
	t := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return t, nil
}

func (p *parser) expectNumber(what string) (float64, error) {
	if p.tok.kind != tokNumber {
		return 0, p.unexpected(fmt.Sprintf("a number for %q", what))
	}
	n := p.tok.num
	return n, p.advance()
}

func (p *parser) expectBool(what string) (bool, error) {
	switch p.tok.kind {
	case tokTrue:
		return true, p.advance()
	case tokFalse:
		return false, p.advance()
	default:
		return false, p.unexpected(fmt.Sprintf("a boolean for %q", what))
	}
}

// skipComma consumes a trailing comma if present; the lenient dialect
// permits one before a closing '}' or ']'.
func (p *parser) skipComma() error {
	if p.tok.kind == tokComma {
		return p.advance()
	}
	return nil
}

func (p *parser) skipValue() error {
	switch p.tok.kind {
	case tokLBrace:
		if err := p.advance(); err != nil {
			return err
		}
		for p.tok.kind != tokRBrace {
			if _, err := p.expect(tokString, "a property name"); err != nil {
				return err
			}
			if _, err := p.expect(tokColon, "':'"); err != nil {
				return err
			}
			if err := p.skipValue(); err != nil {
				return err
			}
			if err := p.skipComma(); err != nil {
				return err
			}
		}
		_, err := p.expect(tokRBrace, "'}'")
		return err
	case tokLBracket:
		if err := p.advance(); err != nil {
			return err
		}
		for p.tok.kind != tokRBracket {
			if err := p.skipValue(); err != nil {
				return err
			}
			if err := p.skipComma(); err != nil {
				return err
			}
		}
		_, err := p.expect(tokRBracket, "']'")
		return err
	case tokString, tokNumber, tokTrue, tokFalse, tokNull:
		return p.advance()
	default:
		return p.unexpected("a value")
	}
}

// ParseManifest parses a lenient-JSON manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	p, err := newParser(data)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace, "'{' at the start of the manifest"); err != nil {
		return nil, err
	}

	m := &Manifest{}
	for p.tok.kind != tokRBrace {
		keyTok, err := p.expect(tokString, "a top-level property name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		switch keyTok.str {
		case "textures":
			textures, err := p.parseTextures()
			if err != nil {
				return nil, err
			}
			m.Textures = append(m.Textures, textures...)
		case "files":
			files, err := p.parseFiles()
			if err != nil {
				return nil, err
			}
			m.Files = append(m.Files, files...)
		case "globFiles":
			globs, err := p.parseGlobArray()
			if err != nil {
				return nil, err
			}
			m.GlobFiles = append(m.GlobFiles, globs...)
		default:
			if err := p.skipValue(); err != nil {
				return nil, err
			}
		}
		if err := p.skipComma(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *parser) parseTextures() ([]textureSpec, error) {
	if _, err := p.expect(tokLBrace, "'{' after \"textures\""); err != nil {
		return nil, err
	}
	var out []textureSpec
	for p.tok.kind != tokRBrace {
		keyTok, err := p.expect(tokString, "a texture key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		spec, err := p.parseTextureSpec(keyTok.str)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
		if err := p.skipComma(); err != nil {
			return nil, err
		}
	}
	_, err := p.expect(tokRBrace, "'}'")
	return out, err
}

func (p *parser) parseTextureSpec(key string) (textureSpec, error) {
	spec := defaultTextureSpec
	spec.Key = key
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return spec, err
	}
	for p.tok.kind != tokRBrace {
		propTok, err := p.expect(tokString, "a texture property name")
		if err != nil {
			return spec, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return spec, err
		}
		switch propTok.str {
		case "maxWidth":
			n, err := p.expectNumber("maxWidth")
			if err != nil {
				return spec, err
			}
			spec.MaxWidth = int(n)
		case "maxHeight":
			n, err := p.expectNumber("maxHeight")
			if err != nil {
				return spec, err
			}
			spec.MaxHeight = int(n)
		case "pow2":
			b, err := p.expectBool("pow2")
			if err != nil {
				return spec, err
			}
			spec.Pow2 = b
		case "allowRotate90":
			b, err := p.expectBool("allowRotate90")
			if err != nil {
				return spec, err
			}
			spec.AllowRotate90 = b
		case "images":
			images, err := p.parseImages()
			if err != nil {
				return spec, err
			}
			spec.Images = append(spec.Images, images...)
		case "globImages":
			globs, err := p.parseGlobImageArray()
			if err != nil {
				return spec, err
			}
			spec.GlobImages = append(spec.GlobImages, globs...)
		default:
			if err := p.skipValue(); err != nil {
				return spec, err
			}
		}
		if err := p.skipComma(); err != nil {
			return spec, err
		}
	}
	_, err := p.expect(tokRBrace, "'}'")
	return spec, err
}

func (p *parser) parseImages() ([]imageSpec, error) {
	if _, err := p.expect(tokLBrace, "'{' after \"images\""); err != nil {
		return nil, err
	}
	var out []imageSpec
	for p.tok.kind != tokRBrace {
		keyTok, err := p.expect(tokString, "an image key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		spec, err := p.parseImageSpec(keyTok.str)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
		if err := p.skipComma(); err != nil {
			return nil, err
		}
	}
	_, err := p.expect(tokRBrace, "'}'")
	return out, err
}

func (p *parser) parseImageSpec(key string) (imageSpec, error) {
	spec := imageSpec{Key: key, Anchor: defaultAnchor}
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return spec, err
	}
	for p.tok.kind != tokRBrace {
		propTok, err := p.expect(tokString, "an image property name")
		if err != nil {
			return spec, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return spec, err
		}
		switch propTok.str {
		case "path":
			s, err := p.expect(tokString, "a path string")
			if err != nil {
				return spec, err
			}
			spec.Path = s.str
		case "anchor":
			a, err := p.parseAnchor()
			if err != nil {
				return spec, err
			}
			spec.Anchor = a
		default:
			if err := p.skipValue(); err != nil {
				return spec, err
			}
		}
		if err := p.skipComma(); err != nil {
			return spec, err
		}
	}
	_, err := p.expect(tokRBrace, "'}'")
	return spec, err
}

// parseAnchor handles both anchor forms: a bare string naming a corner/edge,
// or an object `{"x":..., "y":...}`. "y" is stored into Y, never aliased
// onto X.
func (p *parser) parseAnchor() (anchorSpec, error) {
	switch p.tok.kind {
	case tokString:
		name := p.tok.str
		if err := p.advance(); err != nil {
			return anchorSpec{}, err
		}
		kind, ok := texture.ParseAnchor(name)
		if !ok {
			return anchorSpec{}, rerr.New(rerr.Parse, "manifest.parse",
				fmt.Errorf("line %d, col %d: unknown anchor %q", p.tok.line, p.tok.col, name))
		}
		return anchorSpec{Kind: kind}, nil
	case tokLBrace:
		if err := p.advance(); err != nil {
			return anchorSpec{}, err
		}
		a := anchorSpec{Kind: texture.AnchorExplicit}
		for p.tok.kind != tokRBrace {
			propTok, err := p.expect(tokString, "an anchor property name")
			if err != nil {
				return anchorSpec{}, err
			}
			if _, err := p.expect(tokColon, "':'"); err != nil {
				return anchorSpec{}, err
			}
			switch propTok.str {
			case "x":
				n, err := p.expectNumber("x")
				if err != nil {
					return anchorSpec{}, err
				}
				a.X = float32(n)
			case "y":
				n, err := p.expectNumber("y")
				if err != nil {
					return anchorSpec{}, err
				}
				a.Y = float32(n)
			default:
				if err := p.skipValue(); err != nil {
					return anchorSpec{}, err
				}
			}
			if err := p.skipComma(); err != nil {
				return anchorSpec{}, err
			}
		}
		_, err := p.expect(tokRBrace, "'}'")
		return a, err
	default:
		return anchorSpec{}, p.unexpected("an anchor string or object")
	}
}

func (p *parser) parseFiles() ([]fileSpec, error) {
	if _, err := p.expect(tokLBrace, "'{' after \"files\""); err != nil {
		return nil, err
	}
	var out []fileSpec
	for p.tok.kind != tokRBrace {
		keyTok, err := p.expect(tokString, "a file key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		spec, err := p.parseFileSpec(keyTok.str)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
		if err := p.skipComma(); err != nil {
			return nil, err
		}
	}
	_, err := p.expect(tokRBrace, "'}'")
	return out, err
}

func (p *parser) parseFileSpec(key string) (fileSpec, error) {
	spec := fileSpec{Key: key}
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return spec, err
	}
	for p.tok.kind != tokRBrace {
		propTok, err := p.expect(tokString, "a file property name")
		if err != nil {
			return spec, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return spec, err
		}
		switch propTok.str {
		case "path":
			s, err := p.expect(tokString, "a path string")
			if err != nil {
				return spec, err
			}
			spec.Path = s.str
		default:
			if err := p.skipValue(); err != nil {
				return spec, err
			}
		}
		if err := p.skipComma(); err != nil {
			return spec, err
		}
	}
	_, err := p.expect(tokRBrace, "'}'")
	return spec, err
}

func (p *parser) parseGlobArray() ([]globSpec, error) {
	if _, err := p.expect(tokLBracket, "'[' after \"globFiles\""); err != nil {
		return nil, err
	}
	var out []globSpec
	for p.tok.kind != tokRBracket {
		g, err := p.parseGlobObject()
		if err != nil {
			return nil, err
		}
		out = append(out, g)
		if err := p.skipComma(); err != nil {
			return nil, err
		}
	}
	_, err := p.expect(tokRBracket, "']'")
	return out, err
}

func (p *parser) parseGlobObject() (globSpec, error) {
	g := defaultGlobSpec
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return g, err
	}
	for p.tok.kind != tokRBrace {
		propTok, err := p.expect(tokString, "a glob property name")
		if err != nil {
			return g, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return g, err
		}
		switch propTok.str {
		case "glob":
			s, err := p.expect(tokString, "a glob string")
			if err != nil {
				return g, err
			}
			g.Glob = s.str
		case "path":
			s, err := p.expect(tokString, "a path string")
			if err != nil {
				return g, err
			}
			g.Path = s.str
		case "prefix":
			s, err := p.expect(tokString, "a prefix string")
			if err != nil {
				return g, err
			}
			g.Prefix = s.str
		default:
			if err := p.skipValue(); err != nil {
				return g, err
			}
		}
		if err := p.skipComma(); err != nil {
			return g, err
		}
	}
	_, err := p.expect(tokRBrace, "'}'")
	return g, err
}

func (p *parser) parseGlobImageArray() ([]globImageSpec, error) {
	if _, err := p.expect(tokLBracket, "'[' after \"globImages\""); err != nil {
		return nil, err
	}
	var out []globImageSpec
	for p.tok.kind != tokRBracket {
		g, err := p.parseGlobImageObject()
		if err != nil {
			return nil, err
		}
		out = append(out, g)
		if err := p.skipComma(); err != nil {
			return nil, err
		}
	}
	_, err := p.expect(tokRBracket, "']'")
	return out, err
}

// parseGlobImageObject shares its glob/path/prefix handling with
// parseGlobObject (both reduce to a GlobSpec) but additionally recognizes
// "anchor", reusing parseAnchor the same way the source's anchor
// sub-machine is shared between StateImagePropName and
// StateGlobImageObjectProp.
func (p *parser) parseGlobImageObject() (globImageSpec, error) {
	gi := globImageSpec{globSpec: defaultGlobSpec}
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return gi, err
	}
	for p.tok.kind != tokRBrace {
		propTok, err := p.expect(tokString, "a globImage property name")
		if err != nil {
			return gi, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return gi, err
		}
		switch propTok.str {
		case "glob":
			s, err := p.expect(tokString, "a glob string")
			if err != nil {
				return gi, err
			}
			gi.Glob = s.str
		case "path":
			s, err := p.expect(tokString, "a path string")
			if err != nil {
				return gi, err
			}
			gi.Path = s.str
		case "prefix":
			s, err := p.expect(tokString, "a prefix string")
			if err != nil {
				return gi, err
			}
			gi.Prefix = s.str
		case "anchor":
			a, err := p.parseAnchor()
			if err != nil {
				return gi, err
			}
			gi.Anchor = a
			gi.HasAnchor = true
		default:
			if err := p.skipValue(); err != nil {
				return gi, err
			}
		}
		if err := p.skipComma(); err != nil {
			return gi, err
		}
	}
	_, err := p.expect(tokRBrace, "'}'")
	return gi, err
}
