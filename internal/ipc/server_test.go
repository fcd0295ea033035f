package ipc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSetsSocketMode0600(t *testing.T) {
	socketPath := startServer(t, func(ctx context.Context, req *Request) ([]byte, error) {
		return []byte(`{}`), nil
	})

	info, err := os.Stat(socketPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStartReplacesStaleSocketFile(t *testing.T) {
	socketPath := shortSocketPath(t)
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	s := NewServer(socketPath, func(ctx context.Context, req *Request) ([]byte, error) {
		return []byte(`{"execution":"fresh"}`), nil
	}, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	res, err := NewClient(socketPath, "dojutsu-agent").Call(context.Background(), "run", nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh", *res.Execution)
}

func TestStartRefusesSocketWithLiveListener(t *testing.T) {
	socketPath := startServer(t, func(ctx context.Context, req *Request) ([]byte, error) {
		return []byte(`{"execution":"first"}`), nil
	})

	second := NewServer(socketPath, func(ctx context.Context, req *Request) ([]byte, error) {
		return []byte(`{"execution":"second"}`), nil
	}, nil)
	err := second.Start()
	require.ErrorIs(t, err, ErrSocketInUse)
	second.Stop()

	res, err := NewClient(socketPath, "dojutsu-agent").Call(context.Background(), "run", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", *res.Execution)
}

func TestStopRemovesSocketFile(t *testing.T) {
	socketPath := shortSocketPath(t)
	s := NewServer(socketPath, func(ctx context.Context, req *Request) ([]byte, error) {
		return []byte(`{}`), nil
	}, nil)
	require.NoError(t, s.Start())
	s.Stop()

	_, err := os.Stat(socketPath)
	assert.True(t, os.IsNotExist(err), "socket file still present: %v", err)
}

func TestHandlerErrorIsSentAsErrorField(t *testing.T) {
	socketPath := startServer(t, func(ctx context.Context, req *Request) ([]byte, error) {
		return nil, errors.New("Unknown function 'nope'")
	})

	_, err := NewClient(socketPath, "dojutsu-agent").Call(context.Background(), "nope", nil)
	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Unknown function 'nope'", appErr.Message)
}

func TestHandleConnRejectsPeerUIDMismatch(t *testing.T) {
	restorePeer := peerUIDMatchesCurrentUserFn
	peerUIDMatchesCurrentUserFn = func(conn net.Conn) (bool, error) { return false, nil }
	defer func() {
		peerUIDMatchesCurrentUserFn = restorePeer
	}()

	s := &Server{
		logger: slog.New(slog.DiscardHandler),
		handler: func(ctx context.Context, req *Request) ([]byte, error) {
			t.Fatal("handler should not be called on peer uid mismatch")
			return nil, nil
		},
	}

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer serverConn.Close()
		s.handleConn(context.Background(), serverConn)
	}()

	data, err := io.ReadAll(clientConn)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"peer uid mismatch"}`, string(data))

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("handleConn did not return")
	}
}

func TestPeerUIDMatchesCurrentUserForSelfConnection(t *testing.T) {
	socketPath := shortSocketPath(t)
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer ln.Close()

	type outcome struct {
		ok  bool
		err error
	}
	results := make(chan outcome, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			results <- outcome{err: err}
			return
		}
		defer conn.Close()
		ok, err := peerUIDMatchesCurrentUser(conn)
		results <- outcome{ok: ok, err: err}
	}()

	client, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	_ = client.Close()

	res := <-results
	require.NoError(t, res.err)
	assert.True(t, res.ok)
}
