package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxelfill.ai/internal/protocol"
	"voxelfill.ai/internal/sim/world"
)

type Options struct {
	// MaxQueue bounds the per-client outbound queue.
	MaxQueue int
	// RankTokens maps HELLO auth tokens to ranks. When nil the rank named
	// in HELLO is trusted (dev mode); when set, unknown tokens join with
	// the lowest rank.
	RankTokens map[string]string
}

type Server struct {
	world *world.World
	log   *log.Logger
	opts  Options

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger, opts Options) *Server {
	if opts.MaxQueue <= 0 {
		opts.MaxQueue = 64
	}
	return &Server{
		world: w,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		actorID, out := s.handshake(conn)
		if actorID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine: the only writer once the handshake is done.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			req, code, reason := decodeRequest(msg)
			if code != "" {
				sendError(out, code, reason)
				continue
			}
			req.ActorID = actorID
			select {
			case s.world.Inbox() <- req:
			default:
				sendError(out, protocol.ErrWorldBusy, "level inbox full")
			}
		}

		cancel()
		s.world.Leave() <- actorID
	}
}

// decodeRequest turns one client frame into a world request, or an error
// code for the client.
func decodeRequest(msg []byte) (world.Request, string, string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return world.Request{}, protocol.ErrProtoBadRequest, "invalid json"
	}
	if base.ProtocolVersion != protocol.Version {
		return world.Request{}, protocol.ErrProtoBadRequest, "bad protocol_version"
	}
	if err := protocol.Validate(base.Type, msg); err != nil {
		return world.Request{}, protocol.ErrProtoBadRequest, err.Error()
	}
	switch base.Type {
	case protocol.TypeFill:
		var m protocol.FillMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return world.Request{}, protocol.ErrProtoBadRequest, err.Error()
		}
		return world.Request{Fill: &m}, "", ""
	case protocol.TypeUndo:
		var m protocol.UndoMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return world.Request{}, protocol.ErrProtoBadRequest, err.Error()
		}
		return world.Request{Undo: &m}, "", ""
	default:
		return world.Request{}, protocol.ErrProtoBadRequest, "unsupported type " + base.Type
	}
}

func (s *Server) handshake(conn *websocket.Conn) (actorID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", nil
	}
	if base.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", nil
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		closeWith(conn, "invalid HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}

	rank := hello.Rank
	if s.opts.RankTokens != nil {
		rank = ""
		if hello.Auth != nil {
			rank = s.opts.RankTokens[strings.TrimSpace(hello.Auth.Token)]
		}
	}

	out = make(chan []byte, s.opts.MaxQueue)
	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{Name: hello.ActorName, Rank: rank, Out: out, Resp: respCh}
	resp := <-respCh
	if resp.Code != "" {
		_ = writeJSON(conn, protocol.ErrorMsg{
			Type:            protocol.TypeError,
			ProtocolVersion: protocol.Version,
			Code:            resp.Code,
			Message:         resp.Message,
		})
		closeWith(conn, resp.Message)
		return "", nil
	}
	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- resp.Welcome.ActorID
		return "", nil
	}
	if s.log != nil {
		s.log.Printf("ws join actor=%s name=%s rank=%s", resp.Welcome.ActorID, hello.ActorName, resp.Welcome.Rank)
	}
	return resp.Welcome.ActorID, out
}

func sendError(out chan []byte, code, message string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
