package grid

import (
	"voxelfill.ai/internal/sim/fill"
	"voxelfill.ai/internal/sim/mathx"
)

// Gen parameters for a fresh level. Block ids come from the catalog.
type Gen struct {
	Seed int64
	// SurfaceY is the grass layer; <= 0 uses Height/2.
	SurfaceY int

	OrePermille int

	Air, Grass, Dirt, Stone, Ore uint8
}

// Generate lays out a flat map: stone, three layers of dirt, one of grass,
// air above, with ore sprinkled through the stone.
func (l *Level) Generate(g Gen) {
	surface := g.SurfaceY
	if surface <= 0 || surface >= l.Height {
		surface = l.Height / 2
	}
	ore := uint64(g.OrePermille)
	if ore > 1000 {
		ore = 1000
	}
	for y := 0; y < l.Height; y++ {
		for z := 0; z < l.Length; z++ {
			for x := 0; x < l.Width; x++ {
				var b uint8
				switch {
				case y > surface:
					b = g.Air
				case y == surface:
					b = g.Grass
				case y >= surface-3:
					b = g.Dirt
				case ore > 0 && mathx.Hash3(g.Seed, x, y, z)%1000 < ore:
					b = g.Ore
				default:
					b = g.Stone
				}
				l.SetIndex(l.Index(fill.Coord{X: x, Y: y, Z: z}), fill.Material{Base: b})
			}
		}
	}
}
