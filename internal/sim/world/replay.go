package world

import (
	"context"
	"fmt"

	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/command"
	"voxelfill.ai/internal/sim/draw"
	"voxelfill.ai/internal/sim/fill"
	"voxelfill.ai/internal/sim/grid"
	"voxelfill.ai/internal/sim/perms"
)

// Replayer re-executes audit entries against a level outside the world
// loop, for offline verification.
type Replayer struct {
	level  *grid.Level
	filler *command.Filler
}

func NewReplayer(cfg Config, level *grid.Level, cats *catalogs.Catalogs, table *perms.Table) *Replayer {
	drawer := draw.NewDrawer(level, draw.NewHistory(cfg.UndoMaxEntries), nil)
	return &Replayer{
		level:  level,
		filler: command.NewFiller(drawer, &cats.Blocks, table, cfg.Fill),
	}
}

func (r *Replayer) Level() *grid.Level { return r.level }

// Apply re-executes e and returns the level digest afterwards. Rejected
// entries wrote nothing and are skipped.
func (r *Replayer) Apply(ctx context.Context, e AuditEntry) (string, error) {
	if e.Code != "" {
		return r.level.Digest(), nil
	}
	actor := perms.Actor{ID: e.Actor, Rank: e.Rank}
	switch e.Action {
	case command.KindFill:
		_, err := r.filler.Fill(ctx, command.FillRequest{
			Actor: actor,
			Mark:  fill.Coord{X: e.Pos[0], Y: e.Pos[1], Z: e.Pos[2]},
			Args:  e.Args,
			Held:  fill.Material{Base: e.Held[0], Ext: e.Held[1]},
			Seed:  e.Seed,
		})
		if err != nil {
			return "", fmt.Errorf("seq %d: %w", e.Seq, err)
		}
	case ActionUndo:
		if _, err := r.filler.Undo(e.Actor); err != nil {
			return "", fmt.Errorf("seq %d: %w", e.Seq, err)
		}
	default:
		return "", fmt.Errorf("seq %d: unknown action %q", e.Seq, e.Action)
	}
	return r.level.Digest(), nil
}
