package world

import (
	"encoding/json"

	"voxelfill.ai/internal/protocol"
	"voxelfill.ai/internal/sim/draw"
)

// Patch implements draw.Sink: every committed change is broadcast to all
// joined clients as one BLOCK_PATCH. Slow clients miss patches rather
// than stall the loop.
func (w *World) Patch(levelID string, changes []draw.BlockChange) {
	if len(changes) == 0 || len(w.clients) == 0 {
		return
	}
	w.patchSeq++
	msg := protocol.BlockPatchMsg{
		Type:            protocol.TypeBlockPatch,
		ProtocolVersion: protocol.Version,
		LevelID:         levelID,
		Seq:             w.patchSeq,
		Cells:           make([]protocol.PatchCell, len(changes)),
	}
	for i, ch := range changes {
		msg.Cells[i] = protocol.PatchCell{Pos: ch.Pos.ToArray(), Block: ch.To.Base, Ext: ch.To.Ext}
	}
	b, err := json.Marshal(msg)
	if err != nil {
		w.logger.Printf("marshal patch: %v", err)
		return
	}
	for _, c := range w.clients {
		if !trySend(c.out, b) {
			w.counts.patchesDropped++
		}
	}
}
