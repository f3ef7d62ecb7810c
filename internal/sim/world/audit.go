package world

import "time"

const ActionUndo = "UNDO"

// AuditEntry records one FILL or UNDO. Entries with an empty Code changed
// (or could have changed) the level and are replayed in Seq order.
type AuditEntry struct {
	Seq     uint64   `json:"seq"`
	Time    string   `json:"time"`
	LevelID string   `json:"level_id"`
	Actor   string   `json:"actor"`
	Rank    string   `json:"rank"`
	Action  string   `json:"action"`
	Pos     [3]int   `json:"pos"`
	Args    []string `json:"args,omitempty"`
	Held    [2]uint8 `json:"held"`
	Seed    int64    `json:"seed"`

	OpID    string `json:"op_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Found   int    `json:"found"`
	Changed int    `json:"changed"`
	Skipped int    `json:"skipped"`
	Code    string `json:"code,omitempty"`
	// Digest is the level digest after the op.
	Digest string `json:"digest,omitempty"`
}

func (w *World) audit(e AuditEntry) {
	if w.auditLogger == nil {
		return
	}
	e.Time = time.Now().UTC().Format(time.RFC3339Nano)
	if err := w.auditLogger.WriteAudit(e); err != nil {
		w.logger.Printf("audit seq=%d: %v", e.Seq, err)
	}
}
