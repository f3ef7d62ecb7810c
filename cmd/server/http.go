package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"voxelfill.ai/internal/persistence/indexdb"
	"voxelfill.ai/internal/sim/world"
)

// metricsHandler writes a minimal Prometheus exposition.
func metricsHandler(w *world.World, idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := w.Metrics()
		level := w.LevelID()

		gauge := func(name, help string, v any) {
			fmt.Fprintf(rw, "# HELP %s %s\n# TYPE %s gauge\n%s{level=%q} %v\n", name, help, name, name, level, v)
		}
		counter := func(name, help string, v uint64) {
			fmt.Fprintf(rw, "# HELP %s %s\n# TYPE %s counter\n%s{level=%q} %d\n", name, help, name, name, level, v)
		}
		gauge("voxelfill_seq", "Sequence number of the last processed op.", m.Seq)
		gauge("voxelfill_clients", "Connected clients.", m.Clients)
		counter("voxelfill_fills_total", "Accepted fills.", m.Fills)
		counter("voxelfill_undos_total", "Accepted undos.", m.Undos)
		counter("voxelfill_rejected_total", "Rejected fill and undo requests.", m.Rejected)
		counter("voxelfill_budget_exceeded_total", "Fills stopped by the actor's voxel budget.", m.BudgetExceeded)
		counter("voxelfill_blocks_changed_total", "Voxels changed by fills and undos.", m.BlocksChanged)
		counter("voxelfill_patches_dropped_total", "Block patches dropped for slow clients.", m.PatchesDropped)
		gauge("voxelfill_last_op_ms", "Duration of the last fill in milliseconds.", fmt.Sprintf("%.3f", m.LastOpMS))

		fmt.Fprintf(rw, "# HELP voxelfill_queue_depth Channel backlog depth.\n# TYPE voxelfill_queue_depth gauge\n")
		fmt.Fprintf(rw, "voxelfill_queue_depth{level=%q,queue=%q} %d\n", level, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "voxelfill_queue_depth{level=%q,queue=%q} %d\n", level, "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "voxelfill_queue_depth{level=%q,queue=%q} %d\n", level, "leave", m.QueueDepths.Leave)

		if idx != nil {
			st := idx.Stats()
			fmt.Fprintf(rw, "voxelfill_queue_depth{level=%q,queue=%q} %d\n", level, "index", st.QueueDepth)
			counter("voxelfill_index_dropped_audits_total", "Audit rows the index dropped.", st.DropAuditTotal)
		}
	}
}

func adminStateHandler(w *world.World) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(struct {
			LevelID string        `json:"level_id"`
			Metrics world.Metrics `json:"metrics"`
		}{LevelID: w.LevelID(), Metrics: w.Metrics()})
	}
}

// adminFillsHandler lists an actor's recent ops from the index.
func adminFillsHandler(idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		if idx == nil {
			http.Error(rw, "index disabled", http.StatusServiceUnavailable)
			return
		}
		actor := strings.TrimSpace(r.URL.Query().Get("actor"))
		if actor == "" {
			http.Error(rw, "missing actor", http.StatusBadRequest)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		rows, err := idx.FillsByActor(r.Context(), actor, limit)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"actor": actor, "fills": rows})
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
