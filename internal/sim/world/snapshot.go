package world

// sendSnapshot offers the current level to the snapshot sink without
// blocking the loop.
func (w *World) sendSnapshot() {
	w.opsSinceSnap = 0
	if w.snapshotSink == nil {
		return
	}
	snap := w.level.Export(w.cfg.Seed, w.seq.Load())
	select {
	case w.snapshotSink <- snap:
	default:
		w.logger.Printf("snapshot seq=%d dropped (sink busy)", snap.Header.Seq)
	}
}

func (w *World) flushSnapshot() {
	if w.opsSinceSnap > 0 {
		w.sendSnapshot()
	}
}
