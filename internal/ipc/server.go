package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/lydakis/dojutsu/internal/logging"
)

// maxRequestBytes caps how much a single request may carry.
const maxRequestBytes = 8 << 20

// Handler answers one request. The returned bytes are written verbatim as
// the response; nil writes nothing. A non-nil error is sent as {"error": ...}.
type Handler func(ctx context.Context, req *Request) ([]byte, error)

var peerUIDMatchesCurrentUserFn = peerUIDMatchesCurrentUser

// Server speaks the daemon side of the protocol on a Unix socket: one
// request per connection, terminated by the client's half-close.
type Server struct {
	socketPath string
	handler    Handler
	logger     *slog.Logger
	listener   net.Listener
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewServer creates a new IPC server.
func NewServer(socketPath string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
	}
}

// ErrSocketInUse is returned by Start when a live process already answers
// on the socket path.
var ErrSocketInUse = errors.New("socket already in use")

// Start begins listening for connections. A leftover socket file is removed
// only when nothing answers on it.
func (s *Server) Start() error {
	if conn, err := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond); err == nil {
		conn.Close()
		return fmt.Errorf("%w: %s", ErrSocketInUse, s.socketPath)
	}
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		ln.Close()
		os.Remove(s.socketPath)
		return fmt.Errorf("setting socket permissions: %w", err)
	}
	s.listener = ln
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
	return nil
}

// Stop closes the listener, cancels in-flight handlers and waits for them.
// Closing the listener unlinks the socket file; a server that never started
// leaves the path alone.
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return // listener closed
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.handleConn(s.ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	ok, err := peerUIDMatchesCurrentUserFn(conn)
	if err != nil {
		writeError(conn, "peer uid check failed")
		return
	}
	if !ok {
		writeError(conn, "peer uid mismatch")
		return
	}

	data, err := io.ReadAll(io.LimitReader(conn, maxRequestBytes))
	if err != nil {
		s.logger.Debug("reading request failed", "error", err)
		return
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		writeError(conn, "invalid request")
		return
	}
	s.logger.Debug("request received", "package", req.Package, "function", req.Function, "args", len(req.Args))

	resp, err := s.handler(ctx, &req)
	if err != nil {
		writeError(conn, err.Error())
		return
	}
	if len(resp) > 0 {
		conn.Write(resp) //nolint: errcheck
	}
}

func writeError(conn net.Conn, msg string) {
	data, _ := json.Marshal(map[string]string{"error": msg})
	conn.Write(data) //nolint: errcheck
}
