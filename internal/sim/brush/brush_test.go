package brush

import (
	"errors"
	"testing"

	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/fill"
)

func testContext(t *testing.T) Context {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return Context{
		Blocks: &cats.Blocks,
		Held:   fill.Material{Base: 1},
		CanPlace: func(m fill.Material) bool {
			return m.Base != 7 // bedrock
		},
		Seed: 99,
	}
}

func TestParse_DefaultsToHeldBlock(t *testing.T) {
	b, err := Parse(nil, testContext(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m, ok := b.NextBlock(fill.Coord{}, fill.Material{}); !ok || m.Base != 1 {
		t.Fatalf("NextBlock=%+v,%v want stone", m, ok)
	}
	if b.Name() != "normal" {
		t.Fatalf("name=%s", b.Name())
	}
}

func TestParse_NamedBlockAndCustom(t *testing.T) {
	ctx := testContext(t)
	b, err := Parse([]string{"marble"}, ctx)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m, _ := b.NextBlock(fill.Coord{}, fill.Material{}); m != (fill.Material{Base: fill.ExtendedBase, Ext: 1}) {
		t.Fatalf("marble resolved to %+v", m)
	}
}

func TestParse_Errors(t *testing.T) {
	ctx := testContext(t)
	cases := [][]string{
		{"bedrock"},
		{"nope"},
		{"stone", "dirt"},
		{"checkered", "a", "b", "c"},
		{"random", "stone/0"},
		{"random", "stone/x"},
		{"rainbow", "red"},
		{"replace", "stone"},
		{"replace", "stone", "bedrock"},
	}
	for _, args := range cases {
		if _, err := Parse(args, ctx); !errors.Is(err, ErrNoBrush) {
			t.Fatalf("Parse(%v) err=%v want ErrNoBrush", args, err)
		}
	}
	if _, err := Parse(nil, Context{}); !errors.Is(err, ErrNoBrush) {
		t.Fatalf("missing catalog: %v", err)
	}
	held := testContext(t)
	held.Held = fill.Material{Base: 7}
	if _, err := Parse(nil, held); !errors.Is(err, ErrNoBrush) {
		t.Fatalf("held bedrock: %v", err)
	}
}

func TestCheckeredAndStriped(t *testing.T) {
	ctx := testContext(t)
	b, err := Parse([]string{"checkered", "red", "blue"}, ctx)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a, _ := b.NextBlock(fill.Coord{X: 0, Y: 0, Z: 0}, fill.Material{})
	c, _ := b.NextBlock(fill.Coord{X: 1, Y: 0, Z: 0}, fill.Material{})
	d, _ := b.NextBlock(fill.Coord{X: 1, Y: 1, Z: 0}, fill.Material{})
	if a.Base != 21 || c.Base != 29 || d.Base != 21 {
		t.Fatalf("checkered got %d,%d,%d", a.Base, c.Base, d.Base)
	}

	s, err := Parse([]string{"striped", "red"}, ctx)
	if err != nil {
		t.Fatalf("Parse striped: %v", err)
	}
	got := []uint8{}
	for x := 0; x < 4; x++ {
		m, _ := s.NextBlock(fill.Coord{X: x}, fill.Material{})
		got = append(got, m.Base)
	}
	if got[0] != 21 || got[1] != 21 || got[2] != 0 || got[3] != 0 {
		t.Fatalf("striped got %v", got)
	}
}

func TestRandom_DeterministicAndWeighted(t *testing.T) {
	ctx := testContext(t)
	b, err := Parse([]string{"random", "stone/9", "dirt"}, ctx)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	b2, _ := Parse([]string{"random", "stone/9", "dirt"}, ctx)
	stone := 0
	for x := 0; x < 40; x++ {
		for z := 0; z < 40; z++ {
			c := fill.Coord{X: x, Z: z}
			m, _ := b.NextBlock(c, fill.Material{})
			m2, _ := b2.NextBlock(c, fill.Material{})
			if m != m2 {
				t.Fatalf("random brush not deterministic at %s", c)
			}
			if m.Base == 1 {
				stone++
			} else if m.Base != 3 {
				t.Fatalf("unexpected block %d", m.Base)
			}
		}
	}
	if stone < 1200 || stone > 1600 {
		t.Fatalf("stone=%d of 1600, weights ignored", stone)
	}
}

func TestRainbowUsesWool(t *testing.T) {
	b, err := Parse([]string{"rainbow"}, testContext(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for x := 0; x < 20; x++ {
		m, _ := b.NextBlock(fill.Coord{X: x}, fill.Material{})
		if m.Base < 21 || m.Base > 36 {
			t.Fatalf("non-wool colour %d", m.Base)
		}
	}
}

func TestReplaceOnlyTouchesTargets(t *testing.T) {
	b, err := Parse([]string{"replace", "grass", "dirt", "sand"}, testContext(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m, ok := b.NextBlock(fill.Coord{}, fill.Material{Base: 2}); !ok || m.Base != 12 {
		t.Fatalf("grass -> %+v,%v", m, ok)
	}
	if _, ok := b.NextBlock(fill.Coord{}, fill.Material{Base: 1}); ok {
		t.Fatalf("stone should be skipped")
	}
}

func TestNamesAndHelp(t *testing.T) {
	if len(Names()) != 6 {
		t.Fatalf("names=%v", Names())
	}
	if _, ok := Help("Checkered"); !ok {
		t.Fatalf("missing help")
	}
}
