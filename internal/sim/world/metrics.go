package world

import "time"

// Metrics is a thread-safe read-only view of the level runtime.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type Metrics struct {
	Seq     uint64 `json:"seq"`
	Clients int    `json:"clients"`

	Fills          uint64 `json:"fills"`
	Undos          uint64 `json:"undos"`
	Rejected       uint64 `json:"rejected"`
	BudgetExceeded uint64 `json:"budget_exceeded"`
	BlocksChanged  uint64 `json:"blocks_changed"`
	PatchesDropped uint64 `json:"patches_dropped"`

	LastOpMS float64 `json:"last_op_ms"`

	QueueDepths QueueDepths `json:"queue_depths"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

type counters struct {
	fills          uint64
	undos          uint64
	rejected       uint64
	budgetExceeded uint64
	blocksChanged  uint64
	patchesDropped uint64
	lastOpMS       float64
}

func (w *World) Metrics() Metrics {
	if w == nil {
		return Metrics{}
	}
	m, _ := w.metrics.Load().(Metrics)
	return m
}

func (w *World) publishMetrics(elapsed time.Duration) {
	if elapsed > 0 {
		w.counts.lastOpMS = float64(elapsed.Microseconds()) / 1000
	}
	w.metrics.Store(Metrics{
		Seq:            w.seq.Load(),
		Clients:        len(w.clients),
		Fills:          w.counts.fills,
		Undos:          w.counts.undos,
		Rejected:       w.counts.rejected,
		BudgetExceeded: w.counts.budgetExceeded,
		BlocksChanged:  w.counts.blocksChanged,
		PatchesDropped: w.counts.patchesDropped,
		LastOpMS:       w.counts.lastOpMS,
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
	})
}
