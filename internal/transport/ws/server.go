package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"buildsim.ai/internal/protocol"
	"buildsim.ai/internal/sim/world"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
	outQueue     = 16

	defaultRateSpan = time.Second
	defaultRateMax  = 50
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
	sessions atomic.Uint64

	rateSpan time.Duration
	rateMax  int
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		rateSpan: defaultRateSpan,
		rateMax:  defaultRateMax,
	}
}

// SetRateLimit caps each session at max commands per span. Zero disables it.
func (s *Server) SetRateLimit(span time.Duration, max int) {
	s.rateSpan, s.rateMax = span, max
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sessionID := s.handshake(ctx, conn)
		if sessionID == "" {
			return
		}

		out := make(chan []byte, outQueue)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		limit := window{span: s.rateSpan, max: s.rateMax}
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var res protocol.ResultMsg
			if ok, wait := limit.allow(time.Now()); !ok {
				var loose protocol.CmdMsg
				_ = json.Unmarshal(msg, &loose)
				res = protocol.ErrResult(loose, protocol.ErrRateLimited, fmt.Sprintf("retry in %dms", wait.Milliseconds()))
			} else if res, ok = s.handleMessage(ctx, sessionID, msg); !ok {
				break
			}
			b, err := json.Marshal(res)
			if err != nil {
				s.logf("ws %s: marshal result: %v", sessionID, err)
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		<-writerDone
		s.logf("ws %s: closed", sessionID)
	}
}

// handleMessage turns one inbound frame into a RESULT. It reports false when
// the world is no longer accepting commands.
func (s *Server) handleMessage(ctx context.Context, sessionID string, msg []byte) (protocol.ResultMsg, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeCmd {
		return protocol.ResultMsg{
			Type:            protocol.TypeResult,
			ProtocolVersion: protocol.Version,
			Code:            protocol.ErrProtoBadRequest,
			Message:         "expected CMD",
		}, true
	}
	cmd, err := protocol.DecodeCmd(msg)
	if err != nil {
		// Echo what correlation we can salvage from the raw frame.
		var loose protocol.CmdMsg
		_ = json.Unmarshal(msg, &loose)
		return protocol.ErrResult(loose, protocol.ErrProtoBadRequest, err.Error()), true
	}
	if cmd.ProtocolVersion != protocol.Version {
		return protocol.ErrResult(cmd, protocol.ErrProtoBadRequest, "bad protocol_version"), true
	}
	res, err := s.world.Submit(ctx, sessionID, cmd)
	if err != nil {
		return protocol.ResultMsg{}, false
	}
	return res, true
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(writeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return ""
	}
	hello, err := protocol.DecodeHello(msg)
	if err != nil {
		closeWith(conn, "bad HELLO")
		return ""
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return ""
	}

	sessionID := fmt.Sprintf("S%d", s.sessions.Add(1))
	state, err := s.world.Submit(ctx, sessionID, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		Op:              protocol.OpState,
	})
	if err != nil {
		return ""
	}
	view, _ := state.Data.(world.StateView)

	cat := s.world.Catalog()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		CatalogDigest:   cat.Digest,
		BuildingCount:   cat.Len(),
		Tier:            view.Tier,
		MaxTier:         view.MaxTier,
		Gold:            view.Gold,
		BuildingMode:    view.BuildingMode,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return ""
	}
	if err := writeJSON(conn, protocol.CatalogMsg{
		Type:            protocol.TypeCatalog,
		ProtocolVersion: protocol.Version,
		Name:            "buildings",
		Digest:          cat.Digest,
		Data:            cat.Buildings,
	}); err != nil {
		return ""
	}
	s.logf("ws %s: hello from %q", sessionID, hello.ClientName)
	return sessionID
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
