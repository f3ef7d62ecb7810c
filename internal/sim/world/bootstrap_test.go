package world

import (
	"testing"

	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/fill"
	"voxelfill.ai/internal/sim/tuning"
)

func TestFreshLevel_Deterministic(t *testing.T) {
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tune := tuning.Defaults()
	tune.Level.Width, tune.Level.Height, tune.Level.Length, tune.Level.SurfaceY = 16, 8, 16, 4

	a, err := FreshLevel(tune, cats, 42)
	if err != nil {
		t.Fatalf("FreshLevel: %v", err)
	}
	b, _ := FreshLevel(tune, cats, 42)
	if a.Digest() != b.Digest() {
		t.Fatalf("same seed produced different levels")
	}
	if got := a.Get(fill.Coord{X: 3, Y: 4, Z: 3}); got.Base != 2 {
		t.Fatalf("surface block=%v want grass", got)
	}
	if got := a.Get(fill.Coord{X: 3, Y: 7, Z: 3}); got.Base != 0 {
		t.Fatalf("sky block=%v want air", got)
	}

	cfg := ConfigFromTuning(tune, 42)
	if cfg.Seed != 42 || cfg.Fill.MinRank != tune.Fill.MinRank || cfg.UndoMaxEntries != tune.UndoMaxEntries {
		t.Fatalf("config=%+v", cfg)
	}
}
