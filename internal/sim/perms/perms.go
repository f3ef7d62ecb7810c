// Package perms maps actor ranks to block permissions and draw quotas.
package perms

import (
	"errors"
	"fmt"
	"sort"

	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/tuning"
)

var ErrUnknownRank = errors.New("perms: unknown rank")

// Actor is whoever issues a draw command.
type Actor struct {
	ID   string
	Rank string
}

type Rank struct {
	Name      string
	Level     int
	MaxBlocks int
}

// Table is immutable after construction and safe for concurrent reads.
type Table struct {
	ranks  []Rank
	byName map[string]Rank
}

func NewTable(ranks []tuning.RankTuning) (*Table, error) {
	t := &Table{byName: make(map[string]Rank, len(ranks))}
	for _, r := range ranks {
		if r.Name == "" {
			return nil, fmt.Errorf("perms: rank with empty name")
		}
		if _, dup := t.byName[r.Name]; dup {
			return nil, fmt.Errorf("perms: duplicate rank %q", r.Name)
		}
		rk := Rank{Name: r.Name, Level: r.Level, MaxBlocks: r.MaxBlocks}
		t.byName[r.Name] = rk
		t.ranks = append(t.ranks, rk)
	}
	sort.Slice(t.ranks, func(i, j int) bool { return t.ranks[i].Level < t.ranks[j].Level })
	return t, nil
}

func (t *Table) Lookup(name string) (Rank, bool) {
	r, ok := t.byName[name]
	return r, ok
}

// Lowest is the rank given to actors that do not name one.
func (t *Table) Lowest() Rank {
	if len(t.ranks) == 0 {
		return Rank{}
	}
	return t.ranks[0]
}

// MaxVoxels is the per-invocation draw budget of a. Unknown ranks get 0.
func (t *Table) MaxVoxels(a Actor) int {
	r, ok := t.byName[a.Rank]
	if !ok || r.MaxBlocks < 0 {
		return 0
	}
	return r.MaxBlocks
}

// AtLeast reports whether rank is at or above min.
func (t *Table) AtLeast(rank, min string) bool {
	r, ok := t.byName[rank]
	if !ok {
		return false
	}
	m, ok := t.byName[min]
	if !ok {
		return false
	}
	return r.Level >= m.Level
}

// CanPlace reports whether rank may place or remove a block with def.
// Blocks without a min_rank are open to everyone.
func (t *Table) CanPlace(rank string, def catalogs.BlockDef) bool {
	if def.MinRank == "" {
		_, ok := t.byName[rank]
		return ok
	}
	return t.AtLeast(rank, def.MinRank)
}

// CanFillOver is the precondition for starting a fill on def.
func (t *Table) CanFillOver(rank string, def catalogs.BlockDef) bool {
	return t.CanPlace(rank, def) || def.BuildIn
}
