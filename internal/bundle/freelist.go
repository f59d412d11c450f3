package bundle

import "sort"

// region is a free (offset, length) span available for reuse.
type region struct {
	offset uint64
	length uint64
}

// freeList keeps free regions sorted by offset with adjacent regions
// coalesced.
type freeList struct {
	regions []region
}

// release returns a region to the free list, preserving its length (the
// capacity of a placed entry is never shrunk on release, so a later re-add
// of the same size can reuse it), and coalesces it with any adjacent
// regions.
func (fl *freeList) release(offset, length uint64) {
	if length == 0 {
		return
	}
	i := sort.Search(len(fl.regions), func(i int) bool { return fl.regions[i].offset >= offset })
	fl.regions = append(fl.regions, region{})
	copy(fl.regions[i+1:], fl.regions[i:])
	fl.regions[i] = region{offset: offset, length: length}
	fl.coalesce()
}

func (fl *freeList) coalesce() {
	if len(fl.regions) < 2 {
		return
	}
	out := fl.regions[:1]
	for _, r := range fl.regions[1:] {
		last := &out[len(out)-1]
		if last.offset+last.length == r.offset {
			last.length += r.length
			continue
		}
		out = append(out, r)
	}
	fl.regions = out
}

// take finds the first free region (by ascending offset) with capacity >=
// size, removes it from the list, and returns it whole. ok is false if no
// region fits.
func (fl *freeList) take(size uint64) (region, bool) {
	for i, r := range fl.regions {
		if r.length >= size {
			fl.regions = append(fl.regions[:i], fl.regions[i+1:]...)
			return r, true
		}
	}
	return region{}, false
}

// lastIfTrailing reports the free region ending exactly at fileEnd, if any,
// so Close can truncate trailing free space out of the file.
func (fl *freeList) lastIfTrailing(fileEnd uint64) (region, bool) {
	for i, r := range fl.regions {
		if r.offset+r.length == fileEnd {
			fl.regions = append(fl.regions[:i], fl.regions[i+1:]...)
			return r, true
		}
	}
	return region{}, false
}
