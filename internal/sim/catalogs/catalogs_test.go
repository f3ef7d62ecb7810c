package catalogs

import (
	"testing"

	"voxelfill.ai/internal/sim/fill"
)

func TestLoad_ConfigBlocks(t *testing.T) {
	cats, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("load configs: %v", err)
	}
	b := &cats.Blocks
	if b.Digest == "" {
		t.Fatalf("missing digest")
	}
	if m, ok := b.Lookup("Stone"); !ok || m.Base != 1 {
		t.Fatalf("Lookup(Stone)=%+v,%v", m, ok)
	}
	if m, ok := b.Lookup("marble"); !ok || m != (fill.Material{Base: fill.ExtendedBase, Ext: 1}) {
		t.Fatalf("Lookup(marble)=%+v,%v", m, ok)
	}
	if m, ok := b.Lookup("163:2"); !ok || m.Ext != 2 {
		t.Fatalf("Lookup(163:2)=%+v,%v", m, ok)
	}
	if _, ok := b.Lookup("163:99"); ok {
		t.Fatalf("unknown custom id resolved")
	}
	if m, ok := b.Lookup("45"); !ok || b.Name(m) != "brick" {
		t.Fatalf("Lookup(45)=%+v,%v", m, ok)
	}
	if _, ok := b.Lookup("not_a_block"); ok {
		t.Fatalf("unknown name resolved")
	}
	if d, ok := b.Def(fill.Material{Base: fill.ExtendedBase, Ext: 3}); !ok || d.MinRank != "builder" {
		t.Fatalf("custom def=%+v,%v", d, ok)
	}
	if d, _ := b.Def(fill.Material{Base: 8}); !d.BuildIn {
		t.Fatalf("water should be build_in")
	}
	wool := b.Tagged("wool")
	if len(wool) != 16 || wool[0].Base != 21 || wool[15].Base != 36 {
		t.Fatalf("wool tag=%v", wool)
	}
}

func TestParseBlocks_Rejects(t *testing.T) {
	cases := map[string]string{
		"no air":      `{"blocks":[{"id":1,"name":"stone"}]}`,
		"dup id":      `{"blocks":[{"id":0,"name":"air"},{"id":0,"name":"void"}]}`,
		"empty name":  `{"blocks":[{"id":0,"name":" "}]}`,
		"shadow":      `{"blocks":[{"id":0,"name":"air"}],"custom":[{"ext":1,"name":"air"}]}`,
		"bad json":    `{"blocks":`,
	}
	for name, raw := range cases {
		var bc BlockCatalog
		if err := ParseBlocks([]byte(raw), &bc); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
