package channels

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/byOdysea/laserfocus-host/internal/logging"
	"github.com/byOdysea/laserfocus-host/internal/wire"
)

// maxFrameBytes bounds one inbound line so a misbehaving client cannot grow
// the scanner buffer without limit.
const maxFrameBytes = 1 << 20

// Server accepts line-delimited JSON connections and runs one session per
// connection. Each inbound "message" envelope is one turn; the turn's parts
// are written back as envelopes, terminated by an "end" frame.
type Server struct {
	orch Orchestrator
	addr string
}

// NewServer creates the listener channel for the given address.
func NewServer(orch Orchestrator, addr string) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if addr == "" {
		return nil, errors.New("listen address is required")
	}
	return &Server{orch: orch, addr: addr}, nil
}

// ListenAndServe accepts connections until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	logging.Logger().Info("listening", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept connection: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sessionID := uuid.NewString()
	log := logging.Logger().With("session", sessionID, "remote", conn.RemoteAddr().String())
	log.Info("connection opened")
	defer log.Info("connection closed")

	enc := json.NewEncoder(conn)
	if err := enc.Encode(wire.Connection(sessionID)); err != nil {
		log.Warn("write greeting failed", "err", err)
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		msg, err := wire.DecodeMessage(line)
		if err != nil {
			if err := enc.Encode(wire.Error(err.Error())); err != nil {
				log.Warn("write error frame failed", "err", err)
				return
			}
			continue
		}

		if !s.runTurn(ctx, enc, sessionID, msg, log) {
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Warn("read connection failed", "err", err)
	}
}

// runTurn streams one turn's parts to the client. Returns false when the
// connection is no longer writable; the part channel is drained either way
// so the turn goroutine can finish.
func (s *Server) runTurn(ctx context.Context, enc *json.Encoder, sessionID string, msg wire.MessagePayload, log *slog.Logger) bool {
	parts := s.orch.HandleInput(ctx, sessionID, msg.Text, msg.Config())
	ok := true
	for part := range parts {
		if !ok {
			continue
		}
		if err := enc.Encode(wire.FromPart(part)); err != nil {
			log.Warn("write part failed", "err", err)
			ok = false
		}
	}
	return ok
}
