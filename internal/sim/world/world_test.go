package world

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"voxelfill.ai/internal/persistence/snapshot"
	"voxelfill.ai/internal/protocol"
	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/command"
	"voxelfill.ai/internal/sim/fill"
	"voxelfill.ai/internal/sim/grid"
	"voxelfill.ai/internal/sim/perms"
	"voxelfill.ai/internal/sim/tuning"
)

type memAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (m *memAudit) WriteAudit(e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) all() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEntry(nil), m.entries...)
}

func newTestWorld(t *testing.T, cfg Config) (*World, *grid.Level) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	table, err := perms.NewTable(tuning.Defaults().Ranks)
	if err != nil {
		t.Fatalf("perms: %v", err)
	}
	l, err := grid.New("test", 8, 4, 8)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	l.Box(fill.Coord{}, fill.Coord{X: 7, Z: 7}, fill.Material{Base: 1})
	w, err := New(cfg, l, cats, table, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w, l
}

func startWorld(t *testing.T, w *World) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func joinWorld(t *testing.T, w *World, name, rank string) (protocol.WelcomeMsg, chan []byte) {
	t.Helper()
	out := make(chan []byte, 16)
	resp := make(chan JoinResponse, 1)
	w.Join() <- JoinRequest{Name: name, Rank: rank, Out: out, Resp: resp}
	select {
	case r := <-resp:
		if r.Code != "" {
			t.Fatalf("join %s: %s %s", name, r.Code, r.Message)
		}
		return r.Welcome, out
	case <-time.After(2 * time.Second):
		t.Fatalf("join timeout")
	}
	return protocol.WelcomeMsg{}, nil
}

func recvType(t *testing.T, ch chan []byte, typ string, v any) {
	t.Helper()
	select {
	case b := <-ch:
		base, err := protocol.DecodeBase(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if base.Type != typ {
			t.Fatalf("got %s want %s: %s", base.Type, typ, b)
		}
		if err := json.Unmarshal(b, v); err != nil {
			t.Fatalf("unmarshal %s: %v", typ, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s", typ)
	}
}

func TestWorld_JoinWelcome(t *testing.T) {
	w, l := newTestWorld(t, Config{})
	startWorld(t, w)

	welcome, _ := joinWorld(t, w, "alice", "operator")
	if welcome.ActorID == "" || welcome.Rank != "operator" || welcome.MaxBlocks != 2500 {
		t.Fatalf("welcome=%+v", welcome)
	}
	if welcome.Level.Width != 8 || welcome.Level.Digest != l.Digest() {
		t.Fatalf("level params=%+v", welcome.Level)
	}
	if diff := cmp.Diff(fill.ModeTokens(), welcome.Modes); diff != "" {
		t.Fatalf("modes (-want +got):\n%s", diff)
	}
	if len(welcome.Brushes) == 0 {
		t.Fatalf("modes=%v brushes=%v", welcome.Modes, welcome.Brushes)
	}

	guest, _ := joinWorld(t, w, "bob", "")
	if guest.Rank != "guest" {
		t.Fatalf("default rank=%s", guest.Rank)
	}

	resp := make(chan JoinResponse, 1)
	w.Join() <- JoinRequest{Name: "eve", Rank: "emperor", Out: make(chan []byte, 1), Resp: resp}
	if r := <-resp; r.Code != protocol.ErrBadRequest {
		t.Fatalf("unknown rank code=%q", r.Code)
	}
}

func TestWorld_FillBroadcastsAndAudits(t *testing.T) {
	w, l := newTestWorld(t, Config{Fill: command.Config{MaxDepth: fill.DefaultMaxDepth}})
	audit := &memAudit{}
	w.SetAuditLogger(audit)
	startWorld(t, w)

	a, aOut := joinWorld(t, w, "alice", "operator")
	_, bOut := joinWorld(t, w, "bob", "guest")

	w.Inbox() <- Request{ActorID: a.ActorID, Fill: &protocol.FillMsg{
		Type: protocol.TypeFill, ProtocolVersion: protocol.Version, ReqID: "r1",
		Pos: [3]int{2, 0, 2}, Mode: "layer", Args: []string{"dirt"},
	}}

	var patch protocol.BlockPatchMsg
	recvType(t, aOut, protocol.TypeBlockPatch, &patch)
	if len(patch.Cells) != 64 || patch.Cells[0].Block != 3 {
		t.Fatalf("patch cells=%d first=%+v", len(patch.Cells), patch.Cells[0])
	}
	var res protocol.FillResultMsg
	recvType(t, aOut, protocol.TypeFillResult, &res)
	if !res.Accepted || res.ReqID != "r1" || res.Status != "COMPLETED" || res.Changed != 64 || res.Mode != "layer" {
		t.Fatalf("result=%+v", res)
	}
	var bPatch protocol.BlockPatchMsg
	recvType(t, bOut, protocol.TypeBlockPatch, &bPatch)
	if bPatch.Seq != patch.Seq {
		t.Fatalf("patch seq mismatch %d != %d", bPatch.Seq, patch.Seq)
	}

	entries := audit.all()
	if len(entries) != 1 {
		t.Fatalf("audit entries=%d", len(entries))
	}
	e := entries[0]
	if e.Action != command.KindFill || e.Actor != a.ActorID || e.Changed != 64 || e.Digest != l.Digest() || e.Code != "" {
		t.Fatalf("audit=%+v", e)
	}
	if len(e.Args) != 2 || e.Args[1] != "layer" {
		t.Fatalf("audit args=%v", e.Args)
	}
	m := w.Metrics()
	if m.Fills != 1 || m.BlocksChanged != 64 || m.Clients != 2 {
		t.Fatalf("metrics=%+v", m)
	}
}

func TestWorld_RejectedFill(t *testing.T) {
	w, l := newTestWorld(t, Config{Fill: command.Config{MinRank: "advbuilder"}})
	audit := &memAudit{}
	w.SetAuditLogger(audit)
	startWorld(t, w)
	before := l.Digest()

	g, out := joinWorld(t, w, "guest", "guest")
	w.Inbox() <- Request{ActorID: g.ActorID, Fill: &protocol.FillMsg{ReqID: "r", Args: []string{"dirt"}}}
	var res protocol.FillResultMsg
	recvType(t, out, protocol.TypeFillResult, &res)
	if res.Accepted || res.Code != protocol.ErrNoPermission {
		t.Fatalf("result=%+v", res)
	}
	if e := audit.all(); len(e) != 1 || e[0].Code != protocol.ErrNoPermission {
		t.Fatalf("audit=%+v", e)
	}
	if w.Metrics().Rejected != 1 {
		t.Fatalf("metrics=%+v", w.Metrics())
	}
	if l.Digest() != before {
		t.Fatalf("rejected fill changed the level")
	}
}

func TestWorld_UndoAndSnapshot(t *testing.T) {
	w, l := newTestWorld(t, Config{Seed: 7, SnapshotEveryOps: 1, UndoMaxEntries: 4})
	snaps := make(chan snapshot.LevelV1, 4)
	w.SetSnapshotSink(snaps)
	startWorld(t, w)
	before := l.Digest()

	a, out := joinWorld(t, w, "alice", "admin")
	w.Inbox() <- Request{ActorID: a.ActorID, Fill: &protocol.FillMsg{ReqID: "f", Args: []string{"sand"}}}
	var patch protocol.BlockPatchMsg
	recvType(t, out, protocol.TypeBlockPatch, &patch)
	var res protocol.FillResultMsg
	recvType(t, out, protocol.TypeFillResult, &res)
	if !res.Accepted || res.Changed != 64 {
		t.Fatalf("fill=%+v", res)
	}

	select {
	case s := <-snaps:
		if s.Header.Seq != 1 || s.Seed != 7 || s.Header.LevelID != "test" {
			t.Fatalf("snapshot header=%+v seed=%d", s.Header, s.Seed)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot")
	}

	w.Inbox() <- Request{ActorID: a.ActorID, Undo: &protocol.UndoMsg{ReqID: "u"}}
	recvType(t, out, protocol.TypeBlockPatch, &patch)
	var undo protocol.UndoResultMsg
	recvType(t, out, protocol.TypeUndoResult, &undo)
	if !undo.Accepted || undo.OpID != res.OpID || undo.Changed != 64 {
		t.Fatalf("undo=%+v", undo)
	}
	select {
	case s := <-snaps:
		if s.Digest != before {
			t.Fatalf("undo snapshot digest=%s want %s", s.Digest, before)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot after undo")
	}

	w.Inbox() <- Request{ActorID: a.ActorID, Undo: &protocol.UndoMsg{ReqID: "u2"}}
	recvType(t, out, protocol.TypeUndoResult, &undo)
	if undo.Accepted || undo.Code != protocol.ErrConflict {
		t.Fatalf("second undo=%+v", undo)
	}
}

func TestWorld_LeaveForgetsClient(t *testing.T) {
	w, _ := newTestWorld(t, Config{})
	startWorld(t, w)
	a, _ := joinWorld(t, w, "alice", "admin")
	w.Leave() <- a.ActorID
	deadline := time.Now().Add(2 * time.Second)
	for w.Metrics().Clients != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client not removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFillArgs(t *testing.T) {
	got := FillArgs(&protocol.FillMsg{Args: []string{"checkered", "red"}, Mode: "up"})
	if len(got) != 3 || got[2] != "up" {
		t.Fatalf("got %v", got)
	}
}
