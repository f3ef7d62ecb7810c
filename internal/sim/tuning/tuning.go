package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Level LevelTuning `yaml:"level"`
	Fill  FillTuning  `yaml:"fill"`

	UndoMaxEntries   int `yaml:"undo_max_entries"`
	SnapshotEveryOps int `yaml:"snapshot_every_ops"`

	Ranks []RankTuning `yaml:"ranks"`
}

type LevelTuning struct {
	ID          string `yaml:"id"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Length      int    `yaml:"length"`
	SurfaceY    int    `yaml:"surface_y"`
	OrePermille int    `yaml:"ore_permille"`
}

type FillTuning struct {
	// MaxDepth is the per-pass traversal depth before work is deferred.
	MaxDepth  int    `yaml:"max_depth"`
	MaxPasses int    `yaml:"max_passes"`
	MinRank   string `yaml:"min_rank"`
}

type RankTuning struct {
	Name      string `yaml:"name"`
	Level     int    `yaml:"level"`
	MaxBlocks int    `yaml:"max_blocks"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		Level: LevelTuning{
			ID:          "main",
			Width:       128,
			Height:      64,
			Length:      128,
			SurfaceY:    31,
			OrePermille: 8,
		},
		Fill: FillTuning{
			MaxDepth: 2000,
			MinRank:  "advbuilder",
		},
		UndoMaxEntries:   16,
		SnapshotEveryOps: 50,
		Ranks: []RankTuning{
			{Name: "guest", Level: 0, MaxBlocks: 1},
			{Name: "builder", Level: 30, MaxBlocks: 400},
			{Name: "advbuilder", Level: 50, MaxBlocks: 1200},
			{Name: "operator", Level: 80, MaxBlocks: 2500},
			{Name: "admin", Level: 100, MaxBlocks: 65536},
		},
	}
}

// Load reads path over Defaults(); keys missing from the file keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.Level.Width <= 0 || t.Level.Height <= 0 || t.Level.Length <= 0 {
		return fmt.Errorf("level dimensions must be positive")
	}
	if t.Fill.MaxDepth < 0 || t.Fill.MaxPasses < 0 {
		return fmt.Errorf("fill limits must not be negative")
	}
	if len(t.Ranks) == 0 {
		return fmt.Errorf("no ranks")
	}
	seen := map[string]bool{}
	for _, r := range t.Ranks {
		if r.Name == "" {
			return fmt.Errorf("rank with empty name")
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate rank %q", r.Name)
		}
		seen[r.Name] = true
	}
	if t.Fill.MinRank != "" && !seen[t.Fill.MinRank] {
		return fmt.Errorf("fill.min_rank %q is not a rank", t.Fill.MinRank)
	}
	return nil
}
