// Package draw commits brush output to a level and keeps per-actor undo
// history. It is not safe for concurrent use; the world loop owns it.
package draw

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"voxelfill.ai/internal/sim/brush"
	"voxelfill.ai/internal/sim/fill"
	"voxelfill.ai/internal/sim/grid"
	"voxelfill.ai/internal/sim/mathx"
)

var (
	ErrQuota    = errors.New("draw: operation exceeds quota")
	ErrNilBrush = errors.New("draw: nil brush")
	ErrNoUndo   = errors.New("draw: nothing to undo")
)

type BlockChange struct {
	Index fill.Index
	Pos   fill.Coord
	From  fill.Material
	To    fill.Material
}

// Op is one draw command's worth of positions.
type Op struct {
	Kind      string
	ActorID   string
	Positions []fill.Index
	// Marks are the coordinates the actor selected; they bound the op
	// together with Positions.
	Marks []fill.Coord
}

type Stats struct {
	OpID    string
	Changed int
	Skipped int
	Min     fill.Coord
	Max     fill.Coord
}

// Sink receives committed changes, e.g. to broadcast them to clients.
type Sink interface {
	Patch(levelID string, changes []BlockChange)
}

type Drawer struct {
	level   *grid.Level
	history *History
	sink    Sink
	newID   func() string
}

func NewDrawer(level *grid.Level, history *History, sink Sink) *Drawer {
	return &Drawer{
		level:   level,
		history: history,
		sink:    sink,
		newID:   uuid.NewString,
	}
}

func (d *Drawer) Level() *grid.Level { return d.level }

// Forget drops the actor's undo history.
func (d *Drawer) Forget(actorID string) {
	if d.history != nil {
		d.history.Forget(actorID)
	}
}

// Apply paints op with br. limit is the actor's voxel quota; <= 0 means
// unlimited. Nothing is written when an error is returned.
func (d *Drawer) Apply(op Op, br brush.Brush, limit int) (Stats, error) {
	if br == nil {
		return Stats{}, ErrNilBrush
	}
	if limit > 0 && len(op.Positions) > limit {
		return Stats{}, fmt.Errorf("%w: %d > %d", ErrQuota, len(op.Positions), limit)
	}
	st := Stats{OpID: d.newID()}
	st.Min, st.Max = d.bounds(op)

	changes := make([]BlockChange, 0, len(op.Positions))
	for _, idx := range op.Positions {
		c := d.level.Coord(idx)
		cur := d.level.GetIndex(idx)
		next, ok := br.NextBlock(c, cur)
		if !ok {
			st.Skipped++
			continue
		}
		if !d.level.SetIndex(idx, next) {
			st.Skipped++
			continue
		}
		changes = append(changes, BlockChange{Index: idx, Pos: c, From: cur, To: d.level.GetIndex(idx)})
	}
	st.Changed = len(changes)
	if len(changes) == 0 {
		return st, nil
	}
	if d.history != nil {
		d.history.Push(op.ActorID, UndoEntry{OpID: st.OpID, Kind: op.Kind, Changes: changes})
	}
	if d.sink != nil {
		d.sink.Patch(d.level.ID, changes)
	}
	return st, nil
}

// Undo reverts the actor's most recent op. Voxels changed since by
// someone else are left as they are.
func (d *Drawer) Undo(actorID string) (Stats, error) {
	if d.history == nil {
		return Stats{}, ErrNoUndo
	}
	e, ok := d.history.Pop(actorID)
	if !ok {
		return Stats{}, ErrNoUndo
	}
	st := Stats{OpID: e.OpID}
	reverted := make([]BlockChange, 0, len(e.Changes))
	for i := len(e.Changes) - 1; i >= 0; i-- {
		ch := e.Changes[i]
		if d.level.GetIndex(ch.Index) != ch.To {
			st.Skipped++
			continue
		}
		d.level.SetIndex(ch.Index, ch.From)
		reverted = append(reverted, BlockChange{Index: ch.Index, Pos: ch.Pos, From: ch.To, To: ch.From})
	}
	st.Changed = len(reverted)
	if len(reverted) > 0 {
		st.Min, st.Max = reverted[0].Pos, reverted[0].Pos
		for _, ch := range reverted[1:] {
			st.Min, st.Max = grow(st.Min, st.Max, ch.Pos)
		}
		if d.sink != nil {
			d.sink.Patch(d.level.ID, reverted)
		}
	}
	return st, nil
}

func (d *Drawer) bounds(op Op) (min, max fill.Coord) {
	first := true
	add := func(c fill.Coord) {
		if first {
			min, max, first = c, c, false
			return
		}
		min, max = grow(min, max, c)
	}
	for _, c := range op.Marks {
		add(c)
	}
	for _, idx := range op.Positions {
		add(d.level.Coord(idx))
	}
	return min, max
}

func grow(min, max, c fill.Coord) (fill.Coord, fill.Coord) {
	return fill.Coord{X: mathx.MinInt(min.X, c.X), Y: mathx.MinInt(min.Y, c.Y), Z: mathx.MinInt(min.Z, c.Z)},
		fill.Coord{X: mathx.MaxInt(max.X, c.X), Y: mathx.MaxInt(max.Y, c.Y), Z: mathx.MaxInt(max.Z, c.Z)}
}
