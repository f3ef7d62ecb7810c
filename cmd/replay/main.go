package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	persistlog "voxelfill.ai/internal/persistence/log"
	"voxelfill.ai/internal/persistence/snapshot"
	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/grid"
	"voxelfill.ai/internal/sim/perms"
	"voxelfill.ai/internal/sim/tuning"
	"voxelfill.ai/internal/sim/world"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst")
		levelDir   = flag.String("level_dir", "", "level dir containing audit/audit-*.jsonl.zst (optional)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		toSeq      = flag.Uint64("to_seq", 0, "stop at seq (inclusive, optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d level=%s seq=%d seed=%d size=%dx%dx%d digest=%s\n",
		snap.Header.Version, snap.Header.LevelID, snap.Header.Seq, snap.Seed,
		snap.Width, snap.Height, snap.Length, snap.Digest)

	if *levelDir == "" {
		return
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

	entries, err := persistlog.ReadAuditDir(*levelDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}

	rep, err := verify(context.Background(), snap, entries, tune, cats, *toSeq)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replayed=%s skipped=%s rejected=%s last_seq=%d digest=%s\n",
		humanize.Comma(int64(rep.Replayed)), humanize.Comma(int64(rep.Skipped)), humanize.Comma(int64(rep.Rejected)),
		rep.LastSeq, rep.Digest)
	if len(rep.Mismatches) > 0 {
		for _, m := range rep.Mismatches {
			fmt.Fprintf(os.Stderr, "digest mismatch at seq=%d: got %s want %s\n", m.Seq, m.Got, m.Want)
		}
		os.Exit(1)
	}
	fmt.Println("OK")
}

type mismatch struct {
	Seq       uint64
	Got, Want string
}

type report struct {
	Replayed int
	// Skipped counts entries at or before the snapshot seq, or after toSeq.
	Skipped  int
	Rejected int
	LastSeq  uint64
	Digest   string

	Mismatches []mismatch
}

// verify re-executes the audit entries after the snapshot and compares the
// level digest after each one with the recorded digest.
func verify(ctx context.Context, snap snapshot.LevelV1, entries []world.AuditEntry, tune tuning.Tuning, cats *catalogs.Catalogs, toSeq uint64) (report, error) {
	var rep report
	level, err := grid.Import(snap)
	if err != nil {
		return rep, fmt.Errorf("import snapshot: %w", err)
	}
	table, err := perms.NewTable(tune.Ranks)
	if err != nil {
		return rep, err
	}
	r := world.NewReplayer(world.ConfigFromTuning(tune, snap.Seed), level, cats, table)

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	rep.LastSeq = snap.Header.Seq
	for _, e := range entries {
		if e.LevelID != "" && e.LevelID != snap.Header.LevelID {
			return rep, fmt.Errorf("seq %d: level %q does not match snapshot level %q", e.Seq, e.LevelID, snap.Header.LevelID)
		}
		if e.Seq <= snap.Header.Seq || (toSeq != 0 && e.Seq > toSeq) {
			rep.Skipped++
			continue
		}
		if e.Code != "" {
			rep.Rejected++
			rep.LastSeq = e.Seq
			continue
		}
		got, err := r.Apply(ctx, e)
		if err != nil {
			return rep, err
		}
		rep.Replayed++
		rep.LastSeq = e.Seq
		if e.Digest != "" && got != e.Digest {
			rep.Mismatches = append(rep.Mismatches, mismatch{Seq: e.Seq, Got: got, Want: e.Digest})
		}
	}
	rep.Digest = level.Digest()
	return rep, nil
}
