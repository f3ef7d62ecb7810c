package fill

import "fmt"

// Coord is a voxel position inside a level.
type Coord struct {
	X, Y, Z int
}

func (c Coord) Add(d Delta) Coord {
	return Coord{X: c.X + d.X, Y: c.Y + d.Y, Z: c.Z + d.Z}
}

func (c Coord) ToArray() [3]int { return [3]int{c.X, c.Y, c.Z} }

func (c Coord) String() string { return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z) }

// Dims are the level extents: Width along X, Height along Y, Length along Z.
type Dims struct {
	Width, Height, Length int
}

func (d Dims) Volume() int { return d.Width * d.Height * d.Length }

func (d Dims) Contains(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.Z >= 0 &&
		c.X < d.Width && c.Y < d.Height && c.Z < d.Length
}

// Index is the linear position of a voxel, in [0, Volume()).
type Index int

// Grid is the read side of a level as seen by the explorer.
type Grid interface {
	Dims() Dims
	// Material returns false for coordinates outside the level.
	Material(c Coord) (Material, bool)
	Index(c Coord) Index
	Coord(i Index) Coord
}
