// Package command implements the /fill draw command on top of the fill
// explorer, the brush parser and the draw stage.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"voxelfill.ai/internal/protocol"
	"voxelfill.ai/internal/sim/brush"
	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/draw"
	"voxelfill.ai/internal/sim/fill"
	"voxelfill.ai/internal/sim/perms"
)

var (
	// ErrPrecondition: the start block may not be filled over by this actor.
	ErrPrecondition = errors.New("command: cannot fill over start block")
	ErrRank         = errors.New("command: rank too low")
	ErrBadMark      = errors.New("command: mark outside level")
	ErrNoQuota      = errors.New("command: no draw quota")
)

const KindFill = "FILL"

type Config struct {
	MaxDepth  int
	MaxPasses int
	// MinRank may run /fill at all; empty allows everyone.
	MinRank string
}

type FillRequest struct {
	Actor perms.Actor
	Mark  fill.Coord
	// Args are the words after /fill: brush arguments, optionally followed
	// by a mode token.
	Args []string
	Held fill.Material
	Seed int64
}

type FillResponse struct {
	OpID     string
	Mode     fill.Mode
	Brush    string
	Target   fill.Material
	Status   fill.Status
	Found    int
	Changed  int
	Skipped  int
	Passes   int
	Deferred int
	Min      fill.Coord
	Max      fill.Coord
	// Notice is a message for the actor, set when the fill stopped early.
	Notice string
}

type UndoResponse struct {
	OpID    string
	Changed int
	Skipped int
}

type Filler struct {
	drawer *draw.Drawer
	blocks *catalogs.BlockCatalog
	perms  *perms.Table
	cfg    Config
}

func NewFiller(d *draw.Drawer, blocks *catalogs.BlockCatalog, p *perms.Table, cfg Config) *Filler {
	return &Filler{drawer: d, blocks: blocks, perms: p, cfg: cfg}
}

// SplitArgs separates the trailing mode token from the brush arguments.
func SplitArgs(args []string) (fill.Mode, []string) {
	if len(args) == 0 {
		return fill.ModeFree, nil
	}
	m, ok := fill.ParseModeStrict(strings.ToLower(args[len(args)-1]))
	if !ok {
		return fill.ModeFree, args
	}
	return m, args[:len(args)-1]
}

func (f *Filler) Fill(ctx context.Context, req FillRequest) (FillResponse, error) {
	var resp FillResponse
	if f.cfg.MinRank != "" && !f.perms.AtLeast(req.Actor.Rank, f.cfg.MinRank) {
		return resp, fmt.Errorf("%w: /fill needs %s", ErrRank, f.cfg.MinRank)
	}
	level := f.drawer.Level()
	target, ok := level.Material(req.Mark)
	if !ok {
		return resp, fmt.Errorf("%w: %s", ErrBadMark, req.Mark)
	}
	resp.Target = target
	def, ok := f.blocks.Def(target)
	if !ok || !f.perms.CanFillOver(req.Actor.Rank, def) {
		return resp, fmt.Errorf("%w: %s", ErrPrecondition, f.blocks.Name(target))
	}
	budget := f.perms.MaxVoxels(req.Actor)
	if budget <= 0 {
		return resp, ErrNoQuota
	}

	mode, brushArgs := SplitArgs(req.Args)
	resp.Mode = mode
	// The brush is resolved first so a bad argument costs no search.
	br, err := brush.Parse(brushArgs, brush.Context{
		Blocks: f.blocks,
		Held:   req.Held,
		CanPlace: func(m fill.Material) bool {
			d, ok := f.blocks.Def(m)
			return ok && f.perms.CanPlace(req.Actor.Rank, d)
		},
		Seed: req.Seed,
	})
	if err != nil {
		return resp, err
	}
	resp.Brush = br.Name()

	res, err := fill.Explore(ctx, level, req.Mark, target, fill.Options{
		Mode:      mode,
		Budget:    budget,
		MaxDepth:  f.cfg.MaxDepth,
		MaxPasses: f.cfg.MaxPasses,
	})
	if err != nil {
		return resp, err
	}
	resp.Status = res.Status
	resp.Found = len(res.Positions)
	resp.Passes = res.Passes
	resp.Deferred = res.Deferred

	st, err := f.drawer.Apply(draw.Op{
		Kind:      KindFill,
		ActorID:   req.Actor.ID,
		Positions: res.Positions,
		Marks:     []fill.Coord{req.Mark},
	}, br, budget)
	if err != nil {
		return resp, err
	}
	resp.OpID = st.OpID
	resp.Changed = st.Changed
	resp.Skipped = st.Skipped
	resp.Min, resp.Max = st.Min, st.Max
	if res.Status != fill.StatusCompleted {
		resp.Notice = fmt.Sprintf("You tried to fill over %s blocks; only the first %s were filled.",
			humanize.Comma(int64(budget)), humanize.Comma(int64(resp.Found)))
	}
	return resp, nil
}

func (f *Filler) Undo(actorID string) (UndoResponse, error) {
	st, err := f.drawer.Undo(actorID)
	if err != nil {
		return UndoResponse{}, err
	}
	return UndoResponse{OpID: st.OpID, Changed: st.Changed, Skipped: st.Skipped}, nil
}

// Forget drops undo history for an actor that left.
func (f *Filler) Forget(actorID string) { f.drawer.Forget(actorID) }

// Help lists the usage lines shown to players.
func Help() []string {
	lines := []string{
		"/fill [brush args] <mode>",
		"Fills the area specified with the output of the current brush.",
		"Modes: normal/up/down/layer/vertical_x/vertical_z",
		"Brushes:",
	}
	for _, n := range brush.Names() {
		h, _ := brush.Help(n)
		lines = append(lines, "  "+h)
	}
	return lines
}

// Code maps a command error to its protocol error code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPrecondition), errors.Is(err, ErrRank), errors.Is(err, ErrNoQuota):
		return protocol.ErrNoPermission
	case errors.Is(err, ErrBadMark), errors.Is(err, fill.ErrStartOutOfBounds):
		return protocol.ErrInvalidTarget
	case errors.Is(err, brush.ErrNoBrush):
		return protocol.ErrBadRequest
	case errors.Is(err, draw.ErrQuota):
		return protocol.ErrNoResource
	case errors.Is(err, draw.ErrNoUndo):
		return protocol.ErrConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return protocol.ErrWorldBusy
	default:
		return protocol.ErrInternal
	}
}
