package perms

import (
	"testing"

	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/tuning"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	tab, err := NewTable(tuning.Defaults().Ranks)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tab
}

func TestMaxVoxels(t *testing.T) {
	tab := testTable(t)
	if got := tab.MaxVoxels(Actor{ID: "a", Rank: "builder"}); got != 400 {
		t.Fatalf("builder quota=%d want 400", got)
	}
	if got := tab.MaxVoxels(Actor{ID: "a", Rank: "nobody"}); got != 0 {
		t.Fatalf("unknown rank quota=%d want 0", got)
	}
	if tab.Lowest().Name != "guest" {
		t.Fatalf("lowest=%s", tab.Lowest().Name)
	}
}

func TestCanPlaceAndFillOver(t *testing.T) {
	tab := testTable(t)
	bedrock := catalogs.BlockDef{ID: 7, Name: "bedrock", MinRank: "operator"}
	water := catalogs.BlockDef{ID: 8, Name: "water", MinRank: "operator", BuildIn: true}
	open := catalogs.BlockDef{ID: 1, Name: "stone"}

	if tab.CanPlace("advbuilder", bedrock) || tab.CanFillOver("advbuilder", bedrock) {
		t.Fatalf("advbuilder must not fill over bedrock")
	}
	if !tab.CanFillOver("operator", bedrock) {
		t.Fatalf("operator may fill over bedrock")
	}
	if tab.CanPlace("builder", water) || !tab.CanFillOver("builder", water) {
		t.Fatalf("liquids are build-in: fill allowed without place permission")
	}
	if !tab.CanPlace("guest", open) || tab.CanPlace("ghost", open) {
		t.Fatalf("open blocks need a known rank")
	}
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	_, err := NewTable([]tuning.RankTuning{{Name: "a"}, {Name: "a"}})
	if err == nil {
		t.Fatalf("expected duplicate rank error")
	}
}
