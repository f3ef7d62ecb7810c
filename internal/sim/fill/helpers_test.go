package fill

// denseGrid is a minimal Grid for tests: x + W*(z + L*y) layout.
type denseGrid struct {
	dims Dims
	mats []Material
}

func newDenseGrid(w, h, l int, m Material) *denseGrid {
	g := &denseGrid{dims: Dims{Width: w, Height: h, Length: l}, mats: make([]Material, w*h*l)}
	for i := range g.mats {
		g.mats[i] = m
	}
	return g
}

func (g *denseGrid) Dims() Dims { return g.dims }

func (g *denseGrid) Material(c Coord) (Material, bool) {
	if !g.dims.Contains(c) {
		return Material{}, false
	}
	return g.mats[g.Index(c)], true
}

func (g *denseGrid) Index(c Coord) Index {
	return Index(c.X + g.dims.Width*(c.Z+g.dims.Length*c.Y))
}

func (g *denseGrid) Coord(i Index) Coord {
	n := int(i)
	x := n % g.dims.Width
	n /= g.dims.Width
	z := n % g.dims.Length
	y := n / g.dims.Length
	return Coord{X: x, Y: y, Z: z}
}

func (g *denseGrid) set(c Coord, m Material) { g.mats[g.Index(c)] = m }

func (g *denseGrid) box(min, max Coord, m Material) {
	for y := min.Y; y <= max.Y; y++ {
		for z := min.Z; z <= max.Z; z++ {
			for x := min.X; x <= max.X; x++ {
				g.set(Coord{X: x, Y: y, Z: z}, m)
			}
		}
	}
}

func indexSet(idx []Index) map[Index]bool {
	out := make(map[Index]bool, len(idx))
	for _, i := range idx {
		out[i] = true
	}
	return out
}

// recursiveFill is the unbounded recursive formulation, used to check
// discovery order on small regions.
func recursiveFill(g Grid, c Coord, target Material, mode Mode, seen map[Coord]bool, out *[]Index) {
	if seen[c] {
		return
	}
	seen[c] = true
	*out = append(*out, g.Index(c))
	for _, d := range Deltas(mode) {
		n := c.Add(d)
		if m, ok := g.Material(n); ok && Matches(m, target) {
			recursiveFill(g, n, target, mode, seen, out)
		}
	}
}
