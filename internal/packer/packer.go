// Package packer places a set of named rectangles into one or more pages
// under max-size, power-of-two, and rotation constraints, minimizing the
// number of pages and choosing placements deterministically.
//
// The algorithm is a MAXRECTS-style bin packer: each page tracks a list of
// free rectangles (which may overlap each other); placing a rectangle picks
// the free rectangle and orientation that leaves the smallest leftover short
// side (best-short-side-fit), then carves every free rectangle touching the
// placed area into its non-overlapping remainder pieces.
package packer

import (
	"fmt"
	"sort"

	"github.com/pspoerri/ruck/internal/rerr"
)

// Rect is one input rectangle to be placed.
type Rect struct {
	Key string
	W, H int
}

// Placement is where a rectangle landed.
type Placement struct {
	Key     string
	Page    int
	X, Y    int
	Rotated bool
}

// PageSize is the finalized width/height of one output page.
type PageSize struct {
	Width, Height int
}

// Options constrains the packing.
type Options struct {
	MaxWidth  int
	MaxHeight int
	Pow2      bool
	AllowR90  bool
}

// Result is the outcome of a Pack call.
type Result struct {
	Placements []Placement
	Pages      []PageSize
}

// Pack places every rect into one or more pages. Given identical rects and
// Options, Pack returns byte-identical placements across runs: sorting and
// every tie-break are total.
func Pack(rects []Rect, opt Options) (*Result, error) {
	order := make([]Rect, len(rects))
	copy(order, rects)
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if am, bm := maxInt(a.W, a.H), maxInt(b.W, b.H); am != bm {
			return am > bm
		}
		if aa, ba := a.W*a.H, b.W*b.H; aa != ba {
			return aa > ba
		}
		return a.Key < b.Key
	})

	var pages []*pageState
	placed := make(map[string]Placement, len(order))

	for _, r := range order {
		if r.W <= 0 || r.H <= 0 {
			return nil, rerr.New(rerr.CannotFit, "packer.Pack",
				fmt.Errorf("rect %q has non-positive size %dx%d", r.Key, r.W, r.H))
		}
		if !fitsEitherOrientation(r.W, r.H, opt) {
			return nil, rerr.New(rerr.CannotFit, "packer.Pack",
				fmt.Errorf("rect %q (%dx%d) exceeds %dx%d (rotate90=%v)",
					r.Key, r.W, r.H, opt.MaxWidth, opt.MaxHeight, opt.AllowR90))
		}

		found := false
		for pi, pg := range pages {
			if pl, ok := pg.place(r, opt.AllowR90); ok {
				placed[r.Key] = Placement{Key: r.Key, Page: pi, X: pl.x, Y: pl.y, Rotated: pl.rotated}
				found = true
				break
			}
		}
		if found {
			continue
		}

		pg := newPageState(opt.MaxWidth, opt.MaxHeight)
		pl, ok := pg.place(r, opt.AllowR90)
		if !ok {
			// Unreachable: fitsEitherOrientation already guarantees a fresh
			// page (sized MaxWidth x MaxHeight) can hold this rect.
			return nil, rerr.New(rerr.CannotFit, "packer.Pack",
				fmt.Errorf("rect %q (%dx%d) could not be placed on a fresh page", r.Key, r.W, r.H))
		}
		pages = append(pages, pg)
		placed[r.Key] = Placement{Key: r.Key, Page: len(pages) - 1, X: pl.x, Y: pl.y, Rotated: pl.rotated}
	}

	pageSizes := make([]PageSize, len(pages))
	for i, pg := range pages {
		pageSizes[i] = pg.finalize(opt)
	}

	out := make([]Placement, len(rects))
	for i, r := range rects {
		out[i] = placed[r.Key]
	}

	return &Result{Placements: out, Pages: pageSizes}, nil
}

func fitsEitherOrientation(w, h int, opt Options) bool {
	if w <= opt.MaxWidth && h <= opt.MaxHeight {
		return true
	}
	return opt.AllowR90 && h <= opt.MaxWidth && w <= opt.MaxHeight
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
