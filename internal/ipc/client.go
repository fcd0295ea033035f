package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/lydakis/dojutsu/internal/logging"
)

// Client calls the daemon over a Unix socket, one connection per call.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	socketPath string
	pkg        string
	logger     *slog.Logger
	dial       func(ctx context.Context, path string) (net.Conn, error)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for per-step debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the daemon at socketPath that invokes
// functions of package pkg.
func NewClient(socketPath, pkg string, opts ...Option) *Client {
	c := &Client{
		socketPath: socketPath,
		pkg:        pkg,
		logger:     logging.NewNop(),
		dial:       dialUnix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Socket returns the socket path this client dials.
func (c *Client) Socket() string { return c.socketPath }

func dialUnix(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}

// Call invokes function with args and waits for the full response.
//
// The protocol has no timeout of its own; ctx is the only bound. When ctx
// ends, the connection deadline is forced so a blocked write or read returns.
func (c *Client) Call(ctx context.Context, function string, args []string) (*Result, error) {
	req, err := NewRequest(c.pkg, function, args)
	if err != nil {
		return nil, err
	}
	payload, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	data, err := c.Exchange(ctx, payload)
	if err != nil {
		return nil, err
	}

	res, err := ParseResult(data)
	if err != nil {
		c.logger.Debug("daemon response rejected", "function", function, "bytes", len(data), "error", err)
		return nil, &CallError{Kind: MalformedResponse, Socket: c.socketPath, Err: err}
	}
	if res.Failed() {
		return nil, &ApplicationError{Function: function, Message: *res.Error}
	}
	return res, nil
}

// Exchange runs the transport steps for an already-encoded request and
// returns the raw response bytes: connect, write, half-close, read to EOF.
// A daemon that closes without answering yields an empty response.
func (c *Client) Exchange(ctx context.Context, payload []byte) ([]byte, error) {
	started := time.Now()

	conn, err := c.dial(ctx, c.socketPath)
	if err != nil {
		return nil, c.fail(ctx, ConnectionFailure, err)
	}
	defer conn.Close()
	c.logger.Debug("connected to daemon", "socket", c.socketPath)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := conn.Write(payload); err != nil {
		if c.closedByPeer(ctx, err) {
			return nil, nil
		}
		return nil, c.fail(ctx, SendFailure, err)
	}
	if err := closeWrite(conn); err != nil {
		if c.closedByPeer(ctx, err) {
			return nil, nil
		}
		return nil, c.fail(ctx, SendFailure, err)
	}
	c.logger.Debug("request sent", "bytes", len(payload))

	data, err := io.ReadAll(conn)
	if err != nil {
		if len(data) == 0 && c.closedByPeer(ctx, err) {
			return nil, nil
		}
		return nil, c.fail(ctx, ReceiveFailure, err)
	}
	c.logger.Debug("response received", "bytes", len(data), "elapsed", time.Since(started))
	return data, nil
}

// closedByPeer reports whether err means the daemon closed the connection
// without answering. A daemon that closes before reading the request makes
// the kernel reset the connection; that is an empty response, not a
// transport failure.
func (c *Client) closedByPeer(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		c.logger.Debug("daemon closed without answering", "error", err)
		return true
	}
	return false
}

func (c *Client) fail(ctx context.Context, kind Kind, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(ctxErr, err)
	}
	c.logger.Debug("daemon call failed", "step", kind.String(), "error", err)
	return &CallError{Kind: kind, Socket: c.socketPath, Err: err}
}

// closeWrite half-closes the connection. The daemon treats the write-side
// shutdown as the end of the request.
func closeWrite(conn net.Conn) error {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return fmt.Errorf("connection %T does not support half-close", conn)
	}
	return cw.CloseWrite()
}
