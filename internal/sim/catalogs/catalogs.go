package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"voxelfill.ai/internal/sim/fill"
)

type Catalogs struct {
	Blocks BlockCatalog
}

type BlockCatalog struct {
	Defs   map[uint8]BlockDef
	ByName map[string]uint8

	Custom       map[uint8]CustomDef
	CustomByName map[string]uint8

	Digest string
}

type BlockDef struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
	// MinRank is the lowest rank allowed to place or remove this block.
	MinRank string `json:"min_rank,omitempty"`
	// BuildIn blocks (liquids) may be filled over regardless of MinRank.
	BuildIn bool `json:"build_in,omitempty"`
	// Tag groups blocks for brushes (e.g. "wool").
	Tag string `json:"tag,omitempty"`
}

type CustomDef struct {
	Ext  uint8  `json:"ext"`
	Name string `json:"name"`
}

type blocksFile struct {
	Blocks []BlockDef  `json:"blocks"`
	Custom []CustomDef `json:"custom"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := ParseBlocks(raw, out); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	return nil
}

// ParseBlocks decodes a blocks.json document into out.
func ParseBlocks(raw []byte, out *BlockCatalog) error {
	var f blocksFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	out.Defs = make(map[uint8]BlockDef, len(f.Blocks))
	out.ByName = make(map[string]uint8, len(f.Blocks))
	for _, d := range f.Blocks {
		name := normalize(d.Name)
		if name == "" {
			return fmt.Errorf("block %d: empty name", d.ID)
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("block %d: duplicate id", d.ID)
		}
		d.Name = name
		out.Defs[d.ID] = d
		out.ByName[name] = d.ID
	}
	if _, ok := out.Defs[0]; !ok {
		return fmt.Errorf("missing air (id 0)")
	}

	out.Custom = make(map[uint8]CustomDef, len(f.Custom))
	out.CustomByName = make(map[string]uint8, len(f.Custom))
	for _, d := range f.Custom {
		name := normalize(d.Name)
		if name == "" {
			return fmt.Errorf("custom block %d: empty name", d.Ext)
		}
		if _, clash := out.ByName[name]; clash {
			return fmt.Errorf("custom block %q shadows a core block", name)
		}
		d.Name = name
		out.Custom[d.Ext] = d
		out.CustomByName[name] = d.Ext
	}
	return nil
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Lookup resolves a block name, a numeric id, or "163:<ext>".
func (b *BlockCatalog) Lookup(name string) (fill.Material, bool) {
	name = normalize(name)
	if id, ok := b.ByName[name]; ok {
		return fill.Material{Base: id}, true
	}
	if ext, ok := b.CustomByName[name]; ok {
		return fill.Material{Base: fill.ExtendedBase, Ext: ext}, true
	}
	if base, ext, ok := strings.Cut(name, ":"); ok {
		bv, err1 := strconv.ParseUint(base, 10, 8)
		ev, err2 := strconv.ParseUint(ext, 10, 8)
		if err1 != nil || err2 != nil || uint8(bv) != fill.ExtendedBase {
			return fill.Material{}, false
		}
		if _, ok := b.Custom[uint8(ev)]; !ok {
			return fill.Material{}, false
		}
		return fill.Material{Base: fill.ExtendedBase, Ext: uint8(ev)}, true
	}
	if v, err := strconv.ParseUint(name, 10, 8); err == nil {
		if _, ok := b.Defs[uint8(v)]; ok {
			return fill.Material{Base: uint8(v)}, true
		}
	}
	return fill.Material{}, false
}

func (b *BlockCatalog) Name(m fill.Material) string {
	if m.Base == fill.ExtendedBase {
		if d, ok := b.Custom[m.Ext]; ok {
			return d.Name
		}
		return fmt.Sprintf("%d:%d", m.Base, m.Ext)
	}
	if d, ok := b.Defs[m.Base]; ok {
		return d.Name
	}
	return strconv.Itoa(int(m.Base))
}

// Def returns the permission-bearing definition for m. Custom blocks share
// the rules of the ExtendedBase entry when present.
func (b *BlockCatalog) Def(m fill.Material) (BlockDef, bool) {
	if m.Base == fill.ExtendedBase {
		if _, ok := b.Custom[m.Ext]; !ok {
			return BlockDef{}, false
		}
		if d, ok := b.Defs[fill.ExtendedBase]; ok {
			return d, true
		}
		return BlockDef{ID: fill.ExtendedBase, Name: b.Custom[m.Ext].Name}, true
	}
	d, ok := b.Defs[m.Base]
	return d, ok
}

// Tagged returns the ids carrying tag, in ascending order.
func (b *BlockCatalog) Tagged(tag string) []fill.Material {
	var out []fill.Material
	for id, d := range b.Defs {
		if d.Tag == tag {
			out = append(out, fill.Material{Base: id})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	return out
}
