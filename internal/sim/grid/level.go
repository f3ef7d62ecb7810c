// Package grid holds the dense block storage of a level.
package grid

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"voxelfill.ai/internal/sim/fill"
)

// MaxVolume bounds a level to what fits the 32-bit linear index.
const MaxVolume = 1 << 31

var ErrBadDims = errors.New("grid: invalid level dimensions")

// Level stores one base id and one extended id per voxel, laid out as
// x + Width*(z + Length*y).
type Level struct {
	ID     string
	Width  int
	Height int
	Length int

	Blocks []uint8
	Ext    []uint8

	dirty bool
	hash  [32]byte
}

func New(id string, width, height, length int) (*Level, error) {
	if width <= 0 || height <= 0 || length <= 0 {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrBadDims, width, height, length)
	}
	vol := int64(width) * int64(height) * int64(length)
	if vol > MaxVolume {
		return nil, fmt.Errorf("%w: volume %d exceeds %d", ErrBadDims, vol, int64(MaxVolume))
	}
	return &Level{
		ID:     id,
		Width:  width,
		Height: height,
		Length: length,
		Blocks: make([]uint8, vol),
		Ext:    make([]uint8, vol),
		dirty:  true,
	}, nil
}

func (l *Level) Dims() fill.Dims {
	return fill.Dims{Width: l.Width, Height: l.Height, Length: l.Length}
}

func (l *Level) Volume() int { return len(l.Blocks) }

func (l *Level) InBounds(c fill.Coord) bool { return l.Dims().Contains(c) }

func (l *Level) Index(c fill.Coord) fill.Index {
	return fill.Index(c.X + l.Width*(c.Z+l.Length*c.Y))
}

func (l *Level) Coord(i fill.Index) fill.Coord {
	n := int(i)
	x := n % l.Width
	n /= l.Width
	return fill.Coord{X: x, Y: n / l.Length, Z: n % l.Length}
}

// Material implements fill.Grid.
func (l *Level) Material(c fill.Coord) (fill.Material, bool) {
	if !l.InBounds(c) {
		return fill.Material{}, false
	}
	i := l.Index(c)
	return fill.Material{Base: l.Blocks[i], Ext: l.Ext[i]}, true
}

// Get returns the zero material (air) outside the level.
func (l *Level) Get(c fill.Coord) fill.Material {
	m, _ := l.Material(c)
	return m
}

// Set writes m at c and reports whether the stored value changed.
func (l *Level) Set(c fill.Coord, m fill.Material) bool {
	if !l.InBounds(c) {
		return false
	}
	return l.SetIndex(l.Index(c), m)
}

func (l *Level) SetIndex(i fill.Index, m fill.Material) bool {
	if m.Base != fill.ExtendedBase {
		m.Ext = 0
	}
	if l.Blocks[i] == m.Base && l.Ext[i] == m.Ext {
		return false
	}
	l.Blocks[i] = m.Base
	l.Ext[i] = m.Ext
	l.dirty = true
	return true
}

func (l *Level) GetIndex(i fill.Index) fill.Material {
	return fill.Material{Base: l.Blocks[i], Ext: l.Ext[i]}
}

// Box sets every voxel of the inclusive box [min, max] clipped to the level.
func (l *Level) Box(min, max fill.Coord, m fill.Material) int {
	n := 0
	for y := min.Y; y <= max.Y; y++ {
		for z := min.Z; z <= max.Z; z++ {
			for x := min.X; x <= max.X; x++ {
				if l.Set(fill.Coord{X: x, Y: y, Z: z}, m) {
					n++
				}
			}
		}
	}
	return n
}

// Digest is a sha256 over dimensions and both block arrays, cached until
// the next write.
func (l *Level) Digest() string {
	if l.dirty || l.hash == ([32]byte{}) {
		h := sha256.New()
		fmt.Fprintf(h, "%d:%d:%d:", l.Width, l.Height, l.Length)
		h.Write(l.Blocks)
		h.Write(l.Ext)
		copy(l.hash[:], h.Sum(nil))
		l.dirty = false
	}
	return hex.EncodeToString(l.hash[:])
}
