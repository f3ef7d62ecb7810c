package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	persistlog "voxelfill.ai/internal/persistence/log"
	"voxelfill.ai/internal/protocol"
	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/perms"
	"voxelfill.ai/internal/sim/tuning"
	"voxelfill.ai/internal/sim/world"
)

func smallTuning() tuning.Tuning {
	tune := tuning.Defaults()
	tune.Level.ID = "replay"
	tune.Level.Width, tune.Level.Height, tune.Level.Length, tune.Level.SurfaceY = 16, 8, 16, 4
	return tune
}

// recordSession drives a live world and returns the start snapshot plus
// the audit log it wrote.
func recordSession(t *testing.T, tune tuning.Tuning, cats *catalogs.Catalogs) (entries []world.AuditEntry, final string) {
	t.Helper()
	level, err := world.FreshLevel(tune, cats, 7)
	if err != nil {
		t.Fatalf("FreshLevel: %v", err)
	}
	table, err := perms.NewTable(tune.Ranks)
	if err != nil {
		t.Fatalf("perms: %v", err)
	}
	w, err := world.New(world.ConfigFromTuning(tune, 7), level, cats, table, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	dir := t.TempDir()
	audit := persistlog.NewAuditLogger(dir)
	w.SetAuditLogger(audit)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	out := make(chan []byte, 64)
	resp := make(chan world.JoinResponse, 1)
	w.Join() <- world.JoinRequest{Name: "op", Rank: "admin", Out: out, Resp: resp}
	welcome := (<-resp).Welcome

	send := func(req world.Request, typ string) {
		w.Inbox() <- req
		deadline := time.After(2 * time.Second)
		for {
			select {
			case b := <-out:
				var base protocol.BaseMessage
				if err := json.Unmarshal(b, &base); err == nil && base.Type == typ {
					return
				}
			case <-deadline:
				t.Fatalf("timeout waiting for %s", typ)
			}
		}
	}
	id := welcome.ActorID
	send(world.Request{ActorID: id, Fill: &protocol.FillMsg{ReqID: "1", Pos: [3]int{0, 7, 0}, Args: []string{"glass"}}}, protocol.TypeFillResult)
	send(world.Request{ActorID: id, Fill: &protocol.FillMsg{ReqID: "2", Pos: [3]int{3, 4, 3}, Mode: "layer", Args: []string{"random", "red", "blue/2"}}}, protocol.TypeFillResult)
	send(world.Request{ActorID: id, Fill: &protocol.FillMsg{ReqID: "3", Pos: [3]int{99, 0, 0}, Args: []string{"glass"}}}, protocol.TypeFillResult)
	send(world.Request{ActorID: id, Undo: &protocol.UndoMsg{ReqID: "4"}}, protocol.TypeUndoResult)

	final = level.Digest()
	cancel()
	<-done
	if err := audit.Close(); err != nil {
		t.Fatalf("close audit: %v", err)
	}
	entries, err = persistlog.ReadAuditDir(dir)
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	return entries, final
}

func TestVerify_MatchesLiveSession(t *testing.T) {
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tune := smallTuning()
	entries, final := recordSession(t, tune, cats)
	if len(entries) != 4 {
		t.Fatalf("entries=%d", len(entries))
	}

	start, _ := world.FreshLevel(tune, cats, 7)
	rep, err := verify(context.Background(), start.Export(7, 0), entries, tune, cats, 0)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(rep.Mismatches) != 0 {
		t.Fatalf("mismatches=%+v", rep.Mismatches)
	}
	if rep.Replayed != 3 || rep.Rejected != 1 || rep.LastSeq != 4 {
		t.Fatalf("report=%+v", rep)
	}
	if rep.Digest != final {
		t.Fatalf("digest=%s want %s", rep.Digest, final)
	}
}

func TestVerify_ReportsMismatchAndStopsAtSeq(t *testing.T) {
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tune := smallTuning()
	entries, _ := recordSession(t, tune, cats)
	entries[0].Digest = "tampered"

	start, _ := world.FreshLevel(tune, cats, 7)
	rep, err := verify(context.Background(), start.Export(7, 0), entries, tune, cats, 2)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(rep.Mismatches) != 1 || rep.Mismatches[0].Seq != 1 {
		t.Fatalf("mismatches=%+v", rep.Mismatches)
	}
	if rep.Replayed != 2 || rep.Skipped != 2 {
		t.Fatalf("report=%+v", rep)
	}
}

func TestVerify_RejectsForeignLevel(t *testing.T) {
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tune := smallTuning()
	start, _ := world.FreshLevel(tune, cats, 7)
	_, err = verify(context.Background(), start.Export(7, 0),
		[]world.AuditEntry{{Seq: 1, LevelID: "other", Action: "FILL"}}, tune, cats, 0)
	if err == nil {
		t.Fatalf("expected level mismatch error")
	}
}
