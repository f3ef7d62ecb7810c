package fill

import (
	"fmt"
	"math/bits"
)

// VisitedSet records one bit per voxel of a level.
type VisitedSet struct {
	dims  Dims
	words []uint64
}

func NewVisitedSet(dims Dims) *VisitedSet {
	n := dims.Volume()
	if n < 0 {
		n = 0
	}
	return &VisitedSet{
		dims:  dims,
		words: make([]uint64, (n+63)/64),
	}
}

func (s *VisitedSet) bit(c Coord) (int, uint64) {
	if !s.dims.Contains(c) {
		panic(fmt.Sprintf("fill: visited set access out of bounds: %s in %dx%dx%d",
			c, s.dims.Width, s.dims.Height, s.dims.Length))
	}
	i := c.X + s.dims.Width*(c.Z+s.dims.Length*c.Y)
	return i >> 6, 1 << uint(i&63)
}

func (s *VisitedSet) Get(c Coord) bool {
	w, m := s.bit(c)
	return s.words[w]&m != 0
}

func (s *VisitedSet) Set(c Coord, v bool) {
	w, m := s.bit(c)
	if v {
		s.words[w] |= m
	} else {
		s.words[w] &^= m
	}
}

// Count returns the number of marked voxels.
func (s *VisitedSet) Count() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Reset drops every mark and keeps the storage for another run.
func (s *VisitedSet) Reset() { clear(s.words) }

// Clear drops every mark and releases the backing storage.
// Get/Set on a cleared set panic.
func (s *VisitedSet) Clear() {
	if s == nil {
		return
	}
	clear(s.words)
	s.words = nil
	s.dims = Dims{}
}

// Released reports whether Clear has run.
func (s *VisitedSet) Released() bool { return s.words == nil }
