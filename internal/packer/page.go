package packer

// rect is a plain axis-aligned rectangle used for free-space bookkeeping.
type rect struct {
	x, y, w, h int
}

func (r rect) area() int { return r.w * r.h }

// overlaps reports whether r and o share any interior area. Rectangles that
// only touch along an edge do not overlap.
func (r rect) overlaps(o rect) bool {
	return r.x < o.x+o.w && o.x < r.x+r.w && r.y < o.y+o.h && o.y < r.y+r.h
}

type placement struct {
	x, y    int
	rotated bool
}

// pageState tracks one page's free-rectangle list and the bounding box of
// everything placed on it so far.
type pageState struct {
	maxW, maxH int
	free       []rect
	usedW      int // rightmost extent reached by any placed rect
	usedH      int // bottommost extent reached by any placed rect
}

func newPageState(maxW, maxH int) *pageState {
	return &pageState{
		maxW: maxW,
		maxH: maxH,
		free: []rect{{x: 0, y: 0, w: maxW, h: maxH}},
	}
}

type candidate struct {
	freeIdx                    int
	w, h                       int
	rotated                    bool
	x, y                       int
	shortLeftover, longLeftover int
}

// better implements the best-short-side-fit tie-break chain: smaller leftover
// short side wins; ties broken by leftover long side, then lower y, then
// lower x.
func better(a, b candidate) bool {
	if a.shortLeftover != b.shortLeftover {
		return a.shortLeftover < b.shortLeftover
	}
	if a.longLeftover != b.longLeftover {
		return a.longLeftover < b.longLeftover
	}
	if a.y != b.y {
		return a.y < b.y
	}
	return a.x < b.x
}

// place finds the best-fitting free rectangle (and orientation, if rotation
// is allowed) for an r.W x r.H rect, commits the placement, and carves the
// free list. It reports false if no free rectangle on this page can hold it.
func (pg *pageState) place(r Rect, allowR90 bool) (placement, bool) {
	var best *candidate

	consider := func(freeIdx int, f rect, w, h int, rotated bool) {
		if w > f.w || h > f.h {
			return
		}
		leftoverW := f.w - w
		leftoverH := f.h - h
		short, long := leftoverW, leftoverH
		if leftoverW > leftoverH {
			short, long = leftoverH, leftoverW
		}
		c := candidate{
			freeIdx: freeIdx, w: w, h: h, rotated: rotated,
			x: f.x, y: f.y,
			shortLeftover: short, longLeftover: long,
		}
		if best == nil || better(c, *best) {
			cc := c
			best = &cc
		}
	}

	for i, f := range pg.free {
		consider(i, f, r.W, r.H, false)
		if allowR90 && r.W != r.H {
			consider(i, f, r.H, r.W, true)
		}
	}
	if best == nil {
		return placement{}, false
	}

	placed := rect{x: best.x, y: best.y, w: best.w, h: best.h}
	pg.carve(placed)
	if x2 := placed.x + placed.w; x2 > pg.usedW {
		pg.usedW = x2
	}
	if y2 := placed.y + placed.h; y2 > pg.usedH {
		pg.usedH = y2
	}
	return placement{x: best.x, y: best.y, rotated: best.rotated}, true
}

// carve removes placed from every free rectangle it touches. A free
// rectangle fully contained in placed is dropped entirely; a free rectangle
// that only partially overlaps is split into up to four non-overlapping
// leftover pieces (left, right, top, bottom); zero-area pieces are discarded.
func (pg *pageState) carve(placed rect) {
	next := make([]rect, 0, len(pg.free))
	for _, f := range pg.free {
		if !f.overlaps(placed) {
			next = append(next, f)
			continue
		}
		if placed.x > f.x {
			next = append(next, rect{f.x, f.y, placed.x - f.x, f.h})
		}
		if f.x+f.w > placed.x+placed.w {
			next = append(next, rect{placed.x + placed.w, f.y, f.x + f.w - (placed.x + placed.w), f.h})
		}
		if placed.y > f.y {
			next = append(next, rect{f.x, f.y, f.w, placed.y - f.y})
		}
		if f.y+f.h > placed.y+placed.h {
			next = append(next, rect{f.x, placed.y + placed.h, f.w, f.y + f.h - (placed.y + placed.h)})
		}
	}
	pg.free = next
}

// finalize computes this page's output dimensions: the bounding box of its
// placed content, rounded up per the pow2/multiple-of-4 rule and clamped to
// the configured caps.
func (pg *pageState) finalize(opt Options) PageSize {
	return PageSize{
		Width:  roundDimension(pg.usedW, opt.MaxWidth, opt.Pow2),
		Height: roundDimension(pg.usedH, opt.MaxHeight, opt.Pow2),
	}
}

func roundDimension(used, cap int, pow2 bool) int {
	if used <= 0 {
		used = 1
	}
	var rounded int
	if pow2 {
		rounded = 1
		for rounded < used {
			rounded *= 2
		}
	} else {
		rounded = ((used + 3) / 4) * 4
	}
	if rounded > cap {
		rounded = cap
	}
	return rounded
}
