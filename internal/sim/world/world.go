package world

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"voxelfill.ai/internal/persistence/snapshot"
	"voxelfill.ai/internal/protocol"
	"voxelfill.ai/internal/sim/brush"
	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/command"
	"voxelfill.ai/internal/sim/draw"
	"voxelfill.ai/internal/sim/fill"
	"voxelfill.ai/internal/sim/grid"
	"voxelfill.ai/internal/sim/perms"
)

type Config struct {
	Seed int64
	// SnapshotEveryOps sends a snapshot to the sink after this many
	// level-changing ops; 0 disables periodic snapshots.
	SnapshotEveryOps int
	UndoMaxEntries   int
	Fill             command.Config
}

type JoinRequest struct {
	Name string
	Rank string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	Code    string
	Message string
}

// Request is a FILL or UNDO from a joined actor. Exactly one of Fill and
// Undo is set.
type Request struct {
	ActorID string
	Fill    *protocol.FillMsg
	Undo    *protocol.UndoMsg
}

type clientState struct {
	actor perms.Actor
	name  string
	out   chan []byte
}

// World owns one level and serialises every command against it.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg    Config
	level  *grid.Level
	blocks *catalogs.BlockCatalog
	perms  *perms.Table
	filler *command.Filler

	clients map[string]*clientState

	inbox chan Request
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}
	once  sync.Once

	seq          atomic.Uint64
	nextActorNum atomic.Uint64
	patchSeq     uint64
	opsSinceSnap int

	// Optional (may be nil). Implemented in internal/persistence/*.
	auditLogger AuditLogger
	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.LevelV1

	logger  *log.Logger
	counts  counters
	metrics atomic.Value
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

func New(cfg Config, level *grid.Level, cats *catalogs.Catalogs, table *perms.Table, logger *log.Logger) (*World, error) {
	if level == nil || cats == nil || table == nil {
		return nil, fmt.Errorf("world: level, catalogs and perms are required")
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[world] ", log.LstdFlags|log.Lmicroseconds)
	}
	w := &World{
		cfg:     cfg,
		level:   level,
		blocks:  &cats.Blocks,
		perms:   table,
		clients: map[string]*clientState{},
		inbox:   make(chan Request, 1024),
		join:    make(chan JoinRequest, 64),
		leave:   make(chan string, 64),
		stop:    make(chan struct{}),
		logger:  logger,
	}
	drawer := draw.NewDrawer(level, draw.NewHistory(cfg.UndoMaxEntries), w)
	w.filler = command.NewFiller(drawer, w.blocks, table, cfg.Fill)
	w.publishMetrics(0)
	return w, nil
}

// SetStartSeq continues op numbering after a restored snapshot. Call
// before Run.
func (w *World) SetStartSeq(seq uint64) { w.seq.Store(seq) }

func (w *World) SetAuditLogger(l AuditLogger)                { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.LevelV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- Request     { return w.inbox }
func (w *World) Join() chan<- JoinRequest { return w.join }
func (w *World) Leave() chan<- string     { return w.leave }

func (w *World) LevelID() string { return w.level.ID }

// Seq is the sequence number of the last processed op.
func (w *World) Seq() uint64 { return w.seq.Load() }

// Run processes requests until ctx is done or Stop is called. A final
// snapshot is offered to the sink on the way out.
func (w *World) Run(ctx context.Context) error {
	defer w.flushSnapshot()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case id := <-w.leave:
			w.handleLeave(id)
		case req := <-w.inbox:
			w.handleRequest(ctx, req)
		}
	}
}

func (w *World) Stop() { w.once.Do(func() { close(w.stop) }) }

func (w *World) handleJoin(req JoinRequest) {
	resp := w.joinActor(req)
	if req.Resp != nil {
		req.Resp <- resp
	}
}

func (w *World) joinActor(req JoinRequest) JoinResponse {
	name := req.Name
	if name == "" {
		name = "actor"
	}
	rank := w.perms.Lowest()
	if req.Rank != "" {
		r, ok := w.perms.Lookup(req.Rank)
		if !ok {
			return JoinResponse{Code: protocol.ErrBadRequest, Message: fmt.Sprintf("unknown rank %q", req.Rank)}
		}
		rank = r
	}
	id := fmt.Sprintf("P%d", w.nextActorNum.Add(1))
	actor := perms.Actor{ID: id, Rank: rank.Name}
	if req.Out != nil {
		w.clients[id] = &clientState{actor: actor, name: name, out: req.Out}
	}
	w.logger.Printf("join actor=%s name=%s rank=%s", id, name, rank.Name)
	w.publishMetrics(0)

	return JoinResponse{Welcome: protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       fmt.Sprintf("%s_%s", w.level.ID, id),
		ActorID:         id,
		Rank:            rank.Name,
		MaxBlocks:       w.perms.MaxVoxels(actor),
		Level: protocol.LevelParams{
			ID:     w.level.ID,
			Width:  w.level.Width,
			Height: w.level.Height,
			Length: w.level.Length,
			Digest: w.level.Digest(),
		},
		Catalogs: protocol.CatalogDigests{
			BlockPalette: protocol.DigestRef{Digest: w.blocks.Digest, Count: len(w.blocks.Defs)},
		},
		Modes:   fill.ModeTokens(),
		Brushes: brush.Names(),
	}}
}

func (w *World) handleLeave(id string) {
	if _, ok := w.clients[id]; !ok {
		return
	}
	delete(w.clients, id)
	w.filler.Forget(id)
	w.logger.Printf("leave actor=%s", id)
	w.publishMetrics(0)
}

func trySend(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return true
	default:
		return false
	}
}
