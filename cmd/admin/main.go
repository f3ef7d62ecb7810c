package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	persistlog "voxelfill.ai/internal/persistence/log"
	"voxelfill.ai/internal/persistence/snapshot"
	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/grid"
	"voxelfill.ai/internal/sim/perms"
	"voxelfill.ai/internal/sim/tuning"
	"voxelfill.ai/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rebuild":
			rebuildCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "fills":
			fillsCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "levels"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

// rebuildCmd reconstructs the level as it was right after seq and writes it
// as a standalone snapshot.
func rebuildCmd(args []string) {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	levelID := fs.String("level", "", "level id")
	configDir := fs.String("configs", "./configs", "config directory")
	toSeq := fs.Uint64("to_seq", 0, "rebuild the level as of this seq (required)")
	outPath := fs.String("out", "", "output snapshot path (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*levelID) == "" {
		fmt.Fprintln(os.Stderr, "missing -level")
		os.Exit(2)
	}
	if *toSeq == 0 {
		fmt.Fprintln(os.Stderr, "missing -to_seq")
		os.Exit(2)
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tune, err := tuning.Load(filepath.Join(*configDir, "tuning.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

	levelDir := filepath.Join(*dataDir, "levels", *levelID)
	snap, from, replayed, err := rebuild(context.Background(), levelDir, *toSeq, tune, cats)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rebuild:", err)
		os.Exit(1)
	}
	if strings.TrimSpace(*outPath) == "" {
		*outPath = filepath.Join(levelDir, "snapshots", fmt.Sprintf("%d.rebuild.snap.zst", snap.Header.Seq))
	}
	if err := snapshot.WriteSnapshot(*outPath, snap); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("rebuild ok: from=%s seq=%d replayed=%d digest=%s out=%s\n",
		filepath.Base(from), snap.Header.Seq, replayed, snap.Digest, *outPath)
}

// rebuild replays the audit log from the earliest snapshot up to toSeq.
// Undo history is not stored in snapshots, so starting from the earliest
// one keeps undos of older fills replayable.
func rebuild(ctx context.Context, levelDir string, toSeq uint64, tune tuning.Tuning, cats *catalogs.Catalogs) (snapshot.LevelV1, string, int, error) {
	from := earliestSnapshot(levelDir, toSeq)
	if from == "" {
		return snapshot.LevelV1{}, "", 0, fmt.Errorf("no snapshot at or before seq %d", toSeq)
	}
	start, err := snapshot.ReadSnapshot(from)
	if err != nil {
		return snapshot.LevelV1{}, from, 0, err
	}
	level, err := grid.Import(start)
	if err != nil {
		return snapshot.LevelV1{}, from, 0, err
	}
	table, err := perms.NewTable(tune.Ranks)
	if err != nil {
		return snapshot.LevelV1{}, from, 0, err
	}
	entries, err := persistlog.ReadAuditDir(levelDir)
	if err != nil {
		return snapshot.LevelV1{}, from, 0, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })

	r := world.NewReplayer(world.ConfigFromTuning(tune, start.Seed), level, cats, table)
	replayed := 0
	for _, e := range entries {
		if e.Seq <= start.Header.Seq || e.Seq > toSeq || e.Code != "" {
			continue
		}
		got, err := r.Apply(ctx, e)
		if err != nil {
			return snapshot.LevelV1{}, from, replayed, err
		}
		if e.Digest != "" && got != e.Digest {
			return snapshot.LevelV1{}, from, replayed, fmt.Errorf("seq %d: digest %s does not match audit %s", e.Seq, got, e.Digest)
		}
		replayed++
	}
	return level.Export(start.Seed, toSeq), from, replayed, nil
}

// earliestSnapshot returns the lowest-seq <seq>.snap.zst at or before maxSeq.
func earliestSnapshot(levelDir string, maxSeq uint64) string {
	dir := filepath.Join(levelDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestSeq uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil || seq > maxSeq {
			continue
		}
		if best == "" || seq < bestSeq {
			bestSeq = seq
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func parseAABB(s string) (min, max [3]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 3; i++ {
		if a[i] <= b[i] {
			min[i], max[i] = a[i], b[i]
		} else {
			min[i], max[i] = b[i], a[i]
		}
	}
	return min, max, nil
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}
