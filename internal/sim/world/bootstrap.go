package world

import (
	"fmt"

	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/command"
	"voxelfill.ai/internal/sim/grid"
	"voxelfill.ai/internal/sim/tuning"
)

// ConfigFromTuning maps tuning.yaml onto the runtime config.
func ConfigFromTuning(t tuning.Tuning, seed int64) Config {
	return Config{
		Seed:             seed,
		SnapshotEveryOps: t.SnapshotEveryOps,
		UndoMaxEntries:   t.UndoMaxEntries,
		Fill: command.Config{
			MaxDepth:  t.Fill.MaxDepth,
			MaxPasses: t.Fill.MaxPasses,
			MinRank:   t.Fill.MinRank,
		},
	}
}

// FreshLevel generates the starting level for seed. The result depends
// only on the tuning, the catalog and the seed, so replays can rebuild it.
func FreshLevel(t tuning.Tuning, cats *catalogs.Catalogs, seed int64) (*grid.Level, error) {
	l, err := grid.New(t.Level.ID, t.Level.Width, t.Level.Height, t.Level.Length)
	if err != nil {
		return nil, err
	}
	id := func(name string) (uint8, error) {
		m, ok := cats.Blocks.Lookup(name)
		if !ok || m.Extended() {
			return 0, fmt.Errorf("world: catalog has no %q block", name)
		}
		return m.Base, nil
	}
	g := grid.Gen{Seed: seed, SurfaceY: t.Level.SurfaceY, OrePermille: t.Level.OrePermille}
	for _, p := range []struct {
		name string
		dst  *uint8
	}{
		{"air", &g.Air}, {"grass", &g.Grass}, {"dirt", &g.Dirt}, {"stone", &g.Stone}, {"coal_ore", &g.Ore},
	} {
		if *p.dst, err = id(p.name); err != nil {
			return nil, err
		}
	}
	l.Generate(g)
	return l, nil
}
