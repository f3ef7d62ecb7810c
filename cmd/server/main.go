package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"voxelfill.ai/internal/persistence/indexdb"
	persistlog "voxelfill.ai/internal/persistence/log"
	"voxelfill.ai/internal/persistence/snapshot"
	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/grid"
	"voxelfill.ai/internal/sim/perms"
	"voxelfill.ai/internal/sim/tuning"
	"voxelfill.ai/internal/sim/world"
	"voxelfill.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 1337, "level seed (used only when starting a fresh level)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite fill index")
		rankTokens = flag.String("rank_tokens", "", "comma separated token=rank pairs; when set HELLO ranks are only granted by token")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	table, err := perms.NewTable(tune.Ranks)
	if err != nil {
		logger.Fatalf("ranks: %v", err)
	}
	tokens, err := parseRankTokens(*rankTokens, table)
	if err != nil {
		logger.Fatalf("rank_tokens: %v", err)
	}

	levelDir := filepath.Join(*dataDir, "levels", tune.Level.ID)
	_ = os.MkdirAll(levelDir, 0o755)

	// Optional read-model index (does not affect the level).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(levelDir, "index", "fills.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(levelDir, tune.Level.ID, idx)
	}

	var (
		level    *grid.Level
		startSeq uint64
		cfg      = world.ConfigFromTuning(tune, *seed)
	)
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.LevelID != tune.Level.ID {
			logger.Fatalf("snapshot level id mismatch: tuning=%s snap=%s", tune.Level.ID, snap.Header.LevelID)
		}
		level, err = grid.Import(snap)
		if err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		startSeq = snap.Header.Seq
		cfg.Seed = snap.Seed
		logger.Printf("resumed from snapshot=%s seq=%d", filepath.Base(snapshotToLoad), startSeq)
	} else {
		level, err = world.FreshLevel(tune, cats, *seed)
		if err != nil {
			logger.Fatalf("generate level: %v", err)
		}
		logger.Printf("generated level=%s %dx%dx%d (%s voxels) seed=%d", level.ID,
			level.Width, level.Height, level.Length, humanize.Comma(int64(level.Volume())), *seed)
	}

	w, err := world.New(cfg, level, cats, table, log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds))
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w.SetStartSeq(startSeq)

	auditLog := persistlog.NewAuditLogger(levelDir)
	defer auditLog.Close()
	w.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})

	ctx, cancel := signalContext()
	defer cancel()

	// Snapshot writer. A fresh level is written as seq 0 so replays have a
	// starting point.
	snapCh := make(chan snapshot.LevelV1, 2)
	w.SetSnapshotSink(snapCh)
	if snapshotToLoad == "" {
		snapCh <- level.Export(cfg.Seed, 0)
	}
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for snap := range snapCh {
			path := filepath.Join(levelDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Seq))
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				logger.Printf("snapshot write: %v", err)
				continue
			}
			idx.RecordSnapshot(path, snap)
			logger.Printf("snapshot seq=%d written", snap.Header.Seq)
		}
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(w, idx))
	mux.HandleFunc("/admin/v1/state", adminStateHandler(w))
	mux.HandleFunc("/admin/v1/fills", adminFillsHandler(idx))
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger, ws.Options{RankTokens: tokens}).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	cancel()
	<-worldDone
	close(snapCh)
	<-snapDone
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// latestSnapshot prefers the index and falls back to scanning the
// snapshots directory.
func latestSnapshot(levelDir, levelID string, idx *indexdb.SQLiteIndex) string {
	if idx != nil {
		row, ok, err := idx.LatestSnapshot(context.Background(), levelID)
		if err == nil && ok {
			if _, err := os.Stat(row.Path); err == nil {
				return row.Path
			}
		}
	}
	dir := filepath.Join(levelDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestSeq uint64
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || seq > bestSeq {
			best, bestSeq = filepath.Join(dir, name), seq
		}
	}
	return best
}

func parseRankTokens(s string, table *perms.Table) (map[string]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		token, rank, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || token == "" {
			return nil, fmt.Errorf("bad pair %q", pair)
		}
		if _, known := table.Lookup(rank); !known {
			return nil, fmt.Errorf("%w: %s", perms.ErrUnknownRank, rank)
		}
		out[token] = rank
	}
	return out, nil
}

type multiAuditLogger struct {
	a world.AuditLogger
	b *indexdb.SQLiteIndex
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	var err error
	if m.a != nil {
		err = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return err
}
