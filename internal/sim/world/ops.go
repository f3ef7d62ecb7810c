package world

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"voxelfill.ai/internal/protocol"
	"voxelfill.ai/internal/sim/command"
	"voxelfill.ai/internal/sim/fill"
)

func (w *World) handleRequest(ctx context.Context, req Request) {
	c := w.clients[req.ActorID]
	if c == nil {
		w.logger.Printf("drop request from unknown actor %s", req.ActorID)
		return
	}
	switch {
	case req.Fill != nil:
		w.handleFill(ctx, c, req.Fill)
	case req.Undo != nil:
		w.handleUndo(c, req.Undo)
	}
}

// FillArgs joins the brush arguments and the mode token the way /fill
// takes them from chat.
func FillArgs(msg *protocol.FillMsg) []string {
	args := append([]string(nil), msg.Args...)
	if msg.Mode != "" {
		args = append(args, msg.Mode)
	}
	return args
}

func (w *World) handleFill(ctx context.Context, c *clientState, msg *protocol.FillMsg) {
	seq := w.seq.Add(1)
	start := time.Now()
	mark := fill.Coord{X: msg.Pos[0], Y: msg.Pos[1], Z: msg.Pos[2]}
	out := protocol.FillResultMsg{
		Type:            protocol.TypeFillResult,
		ProtocolVersion: protocol.Version,
		ReqID:           msg.ReqID,
	}
	entry := AuditEntry{
		Seq:     seq,
		LevelID: w.level.ID,
		Actor:   c.actor.ID,
		Rank:    c.actor.Rank,
		Action:  command.KindFill,
		Pos:     msg.Pos,
		Args:    FillArgs(msg),
		Seed:    w.opSeed(seq),
	}

	var held fill.Material
	if msg.Held != "" {
		m, ok := w.blocks.Lookup(msg.Held)
		if !ok {
			out.Code, out.Message = protocol.ErrBadRequest, fmt.Sprintf("unknown held block %q", msg.Held)
			w.finishRejected(c, entry, out.Code, out)
			return
		}
		held = m
	}
	entry.Held = [2]uint8{held.Base, held.Ext}

	resp, err := w.filler.Fill(ctx, command.FillRequest{
		Actor: c.actor,
		Mark:  mark,
		Args:  entry.Args,
		Held:  held,
		Seed:  entry.Seed,
	})
	if err != nil {
		out.Code, out.Message = command.Code(err), err.Error()
		w.finishRejected(c, entry, out.Code, out)
		return
	}
	elapsed := time.Since(start)

	out.Accepted = true
	out.OpID = resp.OpID
	out.Status = resp.Status.String()
	out.Mode = resp.Mode.String()
	out.Brush = resp.Brush
	out.Found, out.Changed, out.Skipped, out.Passes = resp.Found, resp.Changed, resp.Skipped, resp.Passes
	out.Min, out.Max = resp.Min.ToArray(), resp.Max.ToArray()
	out.Notice = resp.Notice

	entry.OpID = resp.OpID
	entry.Status = out.Status
	entry.Found, entry.Changed, entry.Skipped = resp.Found, resp.Changed, resp.Skipped
	entry.Digest = w.level.Digest()
	w.audit(entry)

	w.counts.fills++
	w.counts.blocksChanged += uint64(resp.Changed)
	if resp.Status != fill.StatusCompleted {
		w.counts.budgetExceeded++
	}
	w.logger.Printf("fill seq=%d actor=%s mode=%s brush=%s status=%s changed=%s passes=%d in %s",
		seq, c.actor.ID, out.Mode, out.Brush, out.Status, humanize.Comma(int64(resp.Changed)), resp.Passes, elapsed)
	w.afterOp(resp.Changed, elapsed)
	w.reply(c, out)
}

func (w *World) handleUndo(c *clientState, msg *protocol.UndoMsg) {
	seq := w.seq.Add(1)
	out := protocol.UndoResultMsg{
		Type:            protocol.TypeUndoResult,
		ProtocolVersion: protocol.Version,
		ReqID:           msg.ReqID,
	}
	entry := AuditEntry{
		Seq:     seq,
		LevelID: w.level.ID,
		Actor:   c.actor.ID,
		Rank:    c.actor.Rank,
		Action:  ActionUndo,
	}
	resp, err := w.filler.Undo(c.actor.ID)
	if err != nil {
		out.Code, out.Message = command.Code(err), err.Error()
		w.finishRejected(c, entry, out.Code, out)
		return
	}
	out.Accepted = true
	out.OpID = resp.OpID
	out.Changed, out.Skipped = resp.Changed, resp.Skipped

	entry.OpID = resp.OpID
	entry.Changed, entry.Skipped = resp.Changed, resp.Skipped
	entry.Digest = w.level.Digest()
	w.audit(entry)

	w.counts.undos++
	w.counts.blocksChanged += uint64(resp.Changed)
	w.logger.Printf("undo seq=%d actor=%s op=%s changed=%s", seq, c.actor.ID, resp.OpID, humanize.Comma(int64(resp.Changed)))
	w.afterOp(resp.Changed, 0)
	w.reply(c, out)
}

func (w *World) finishRejected(c *clientState, entry AuditEntry, code string, out any) {
	entry.Code = code
	w.audit(entry)
	w.counts.rejected++
	w.publishMetrics(0)
	w.reply(c, out)
}

func (w *World) reply(c *clientState, msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		w.logger.Printf("marshal reply: %v", err)
		return
	}
	if !trySend(c.out, b) {
		w.logger.Printf("reply dropped for actor=%s (queue full)", c.actor.ID)
	}
}

func (w *World) afterOp(changed int, elapsed time.Duration) {
	if changed > 0 {
		w.opsSinceSnap++
		if w.cfg.SnapshotEveryOps > 0 && w.opsSinceSnap >= w.cfg.SnapshotEveryOps {
			w.sendSnapshot()
		}
	}
	w.publishMetrics(elapsed)
}

// opSeed makes brush randomness a function of the world seed and the op
// sequence so a replay reproduces it.
func (w *World) opSeed(seq uint64) int64 {
	return w.cfg.Seed ^ int64(seq*0x9e3779b97f4a7c15)
}
