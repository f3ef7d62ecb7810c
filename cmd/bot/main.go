package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"voxelfill.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "actor name")
		rank     = flag.String("rank", "advbuilder", "requested rank (ignored when the server maps tokens)")
		token    = flag.String("token", "", "rank token")
		brushArg = flag.String("brush", "random red orange yellow", "brush arguments, space separated")
		mode     = flag.String("mode", "", "fill mode (normal, up, down, layer, vertical_x, vertical_z)")
		every    = flag.Duration("every", 5*time.Second, "interval between fills")
		undo     = flag.Bool("undo", false, "undo each fill after it lands")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ActorName:       *name,
		Rank:            *rank,
	}
	if *token != "" {
		hello.Auth = &protocol.HelloAuth{Token: *token}
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	msgs := make(chan []byte, 64)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Printf("read: %v", err)
				return
			}
			msgs <- msg
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{
		conn:   conn,
		logger: logger,
		args:   strings.Fields(*brushArg),
		mode:   *mode,
		undo:   *undo,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			b.handle(msg)
		case <-ticker.C:
			b.sendFill()
		}
	}
}

type bot struct {
	conn   *websocket.Conn
	logger *log.Logger
	args   []string
	mode   string
	undo   bool
	rng    *rand.Rand

	level   protocol.LevelParams
	welcome bool
	nextReq int
}

func (b *bot) handle(msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return
		}
		b.level = w.Level
		b.welcome = true
		b.logger.Printf("WELCOME actor_id=%s rank=%s max_blocks=%s level=%s %dx%dx%d",
			w.ActorID, w.Rank, humanize.Comma(int64(w.MaxBlocks)), w.Level.ID, w.Level.Width, w.Level.Height, w.Level.Length)

	case protocol.TypeFillResult:
		var r protocol.FillResultMsg
		if err := json.Unmarshal(msg, &r); err != nil {
			return
		}
		if !r.Accepted {
			b.logger.Printf("FILL %s rejected: %s %s", r.ReqID, r.Code, r.Message)
			return
		}
		b.logger.Printf("FILL %s op=%s status=%s brush=%s changed=%s", r.ReqID, r.OpID, r.Status, r.Brush, humanize.Comma(int64(r.Changed)))
		if r.Notice != "" {
			b.logger.Printf("notice: %s", r.Notice)
		}
		if b.undo && r.Changed > 0 {
			b.send(protocol.UndoMsg{
				Type:            protocol.TypeUndo,
				ProtocolVersion: protocol.Version,
				ReqID:           b.reqID("U"),
			})
		}

	case protocol.TypeUndoResult:
		var r protocol.UndoResultMsg
		if err := json.Unmarshal(msg, &r); err != nil {
			return
		}
		b.logger.Printf("UNDO %s accepted=%v changed=%d %s", r.ReqID, r.Accepted, r.Changed, r.Code)

	case protocol.TypeBlockPatch:
		var p protocol.BlockPatchMsg
		if err := json.Unmarshal(msg, &p); err != nil {
			return
		}
		b.logger.Printf("BLOCK_PATCH seq=%d cells=%s", p.Seq, humanize.Comma(int64(len(p.Cells))))

	case protocol.TypeError:
		var e protocol.ErrorMsg
		if err := json.Unmarshal(msg, &e); err != nil {
			return
		}
		b.logger.Printf("ERROR %s: %s", e.Code, e.Message)
	}
}

func (b *bot) sendFill() {
	if !b.welcome || b.level.Width == 0 || b.level.Height == 0 || b.level.Length == 0 {
		return
	}
	pos := [3]int{b.rng.Intn(b.level.Width), b.rng.Intn(b.level.Height), b.rng.Intn(b.level.Length)}
	b.send(protocol.FillMsg{
		Type:            protocol.TypeFill,
		ProtocolVersion: protocol.Version,
		ReqID:           b.reqID("F"),
		Pos:             pos,
		Mode:            b.mode,
		Args:            b.args,
	})
}

func (b *bot) reqID(prefix string) string {
	b.nextReq++
	return fmt.Sprintf("%s%d", prefix, b.nextReq)
}

func (b *bot) send(v any) {
	if err := b.conn.WriteJSON(v); err != nil {
		b.logger.Printf("write: %v", err)
	}
}
