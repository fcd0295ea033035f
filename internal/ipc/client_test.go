package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallSucceedsAndExposesPresentFields(t *testing.T) {
	requests := make(chan *Request, 1)
	socketPath := startServer(t, func(ctx context.Context, req *Request) ([]byte, error) {
		requests <- req
		return []byte(`{"execution":"...code...","total_time":12.3,"skills_used":["groq","kimi"]}`), nil
	})

	client := NewClient(socketPath, "dojutsu-agent")
	res, err := client.Call(context.Background(), "run", []string{"Build X", "key123", "groq"})
	require.NoError(t, err)

	got := <-requests
	assert.Equal(t, "dojutsu-agent", got.Package)
	assert.Equal(t, "run", got.Function)
	assert.Equal(t, []string{"Build X", "key123", "groq"}, got.Args)

	require.NotNil(t, res.Execution)
	assert.Equal(t, "...code...", *res.Execution)
	require.NotNil(t, res.TotalTime)
	assert.InDelta(t, 12.3, *res.TotalTime, 1e-9)
	assert.Equal(t, []string{"groq", "kimi"}, res.SkillsUsed)
	assert.Nil(t, res.Byakugan)
	assert.Nil(t, res.ModeSage)
	assert.Nil(t, res.Jougan)
	assert.Nil(t, res.Error)
}

func TestCallReturnsApplicationErrorWhenErrorFieldSet(t *testing.T) {
	socketPath := startServer(t, func(ctx context.Context, req *Request) ([]byte, error) {
		return []byte(`{"error":"rate limited"}`), nil
	})

	res, err := NewClient(socketPath, "dojutsu-agent").Call(context.Background(), "run", nil)
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrApplication)

	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "rate limited", appErr.Message)
	assert.Equal(t, "run", appErr.Function)
	assert.Zero(t, KindOf(err))
}

func TestCallErrorFieldWinsOverPopulatedFields(t *testing.T) {
	socketPath := startServer(t, func(ctx context.Context, req *Request) ([]byte, error) {
		return []byte(`{"byakugan":"b","execution":"code","total_time":3,"skills_used":["x"],"error":"validator rejected skill"}`), nil
	})

	res, err := NewClient(socketPath, "dojutsu-agent").Call(context.Background(), "run", nil)
	assert.Nil(t, res)

	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "validator rejected skill", appErr.Message)
}

func TestCallConnectionFailureWhenSocketMissing(t *testing.T) {
	socketPath := shortSocketPath(t)

	res, err := NewClient(socketPath, "dojutsu-agent").Call(context.Background(), "run", nil)
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, ConnectionFailure, KindOf(err))
	assert.Contains(t, err.Error(), socketPath)
}

func TestCallConnectionFailureNeverReads(t *testing.T) {
	client := NewClient("unused.sock", "dojutsu-agent")
	client.dial = func(ctx context.Context, path string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	_, err := client.Call(context.Background(), "run", nil)
	require.ErrorIs(t, err, ErrConnection)
	assert.NotErrorIs(t, err, ErrReceive)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}

func TestCallMalformedResponseWhenDaemonReadsAndAnswersNothing(t *testing.T) {
	socketPath := startServer(t, func(ctx context.Context, req *Request) ([]byte, error) {
		return nil, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := NewClient(socketPath, "dojutsu-agent").Call(context.Background(), "run", nil)
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrMalformedResponse)
		assert.Equal(t, MalformedResponse, KindOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("Call() did not return after peer closed")
	}
}

func TestCallMalformedResponseWhenPeerClosesRightAfterAccept(t *testing.T) {
	socketPath := shortSocketPath(t)
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	client := NewClient(socketPath, "dojutsu-agent")
	for i := 0; i < 20; i++ {
		_, err := client.Call(context.Background(), "run", []string{"a"})
		require.ErrorIs(t, err, ErrMalformedResponse, "iteration %d", i)
		assert.Equal(t, MalformedResponse, KindOf(err))
	}
}

type resetConn struct {
	net.Conn
	writeErr error
}

func (c *resetConn) Write(p []byte) (int, error) { return 0, c.writeErr }
func (c *resetConn) Close() error                { return nil }

func TestCallMalformedResponseWhenWriteHitsClosedPeer(t *testing.T) {
	for _, writeErr := range []error{syscall.EPIPE, syscall.ECONNRESET} {
		client := NewClient("unused.sock", "dojutsu-agent")
		client.dial = func(ctx context.Context, path string) (net.Conn, error) {
			return &resetConn{writeErr: &net.OpError{Op: "write", Net: "unix", Err: writeErr}}, nil
		}

		_, err := client.Call(context.Background(), "run", nil)
		require.ErrorIs(t, err, ErrMalformedResponse, "write error %v", writeErr)
		assert.NotErrorIs(t, err, ErrSend)
	}
}

func TestCallSendFailureOnOtherWriteErrors(t *testing.T) {
	client := NewClient("unused.sock", "dojutsu-agent")
	client.dial = func(ctx context.Context, path string) (net.Conn, error) {
		return &resetConn{writeErr: errors.New("no buffer space")}, nil
	}

	_, err := client.Call(context.Background(), "run", nil)
	require.ErrorIs(t, err, ErrSend)
}

func TestCallMalformedResponseOnGarbage(t *testing.T) {
	socketPath := startServer(t, func(ctx context.Context, req *Request) ([]byte, error) {
		return []byte("Traceback (most recent call last):"), nil
	})

	_, err := NewClient(socketPath, "dojutsu-agent").Call(context.Background(), "run", nil)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCallToleratesUnknownFields(t *testing.T) {
	socketPath := startServer(t, func(ctx context.Context, req *Request) ([]byte, error) {
		return []byte(`{"execution":"ok","provider_meta":{"model":"kimi"},"timing":{"byakugan":1.25}}`), nil
	})

	res, err := NewClient(socketPath, "dojutsu-agent").Call(context.Background(), "run", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"byakugan": 1.25}, res.Timing)
}

func TestCallHalfClosesSoDaemonSeesEndOfRequest(t *testing.T) {
	socketPath := shortSocketPath(t)
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var buf []byte
		chunk := make([]byte, 64)
		for {
			n, err := conn.Read(chunk)
			buf = append(buf, chunk[:n]...)
			if err != nil {
				break
			}
		}
		received <- string(buf)
		conn.Write([]byte(`{"execution":"done"}`)) //nolint: errcheck
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := NewClient(socketPath, "dojutsu-agent").Call(ctx, "run", []string{"task"})
	require.NoError(t, err)
	assert.Equal(t, "done", *res.Execution)
	assert.JSONEq(t, `{"package":"dojutsu-agent","function":"run","args":["task"]}`, <-received)
}

func TestCallContextDeadlineAbortsHungDaemon(t *testing.T) {
	socketPath := shortSocketPath(t)
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer ln.Close()

	release := make(chan struct{})
	defer close(release)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = NewClient(socketPath, "dojutsu-agent").Call(ctx, "run", nil)
	require.ErrorIs(t, err, ErrReceive)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallRejectsInvalidRequestBeforeConnecting(t *testing.T) {
	client := NewClient("unused.sock", "dojutsu-agent")
	client.dial = func(ctx context.Context, path string) (net.Conn, error) {
		t.Fatal("dial should not be called for an invalid request")
		return nil, nil
	}

	_, err := client.Call(context.Background(), "", nil)
	require.Error(t, err)
	assert.Zero(t, KindOf(err))
}

func TestConcurrentCallsUseIndependentConnections(t *testing.T) {
	socketPath := startServer(t, func(ctx context.Context, req *Request) ([]byte, error) {
		return []byte(fmt.Sprintf(`{"execution":%q}`, req.Args[0])), nil
	})
	client := NewClient(socketPath, "dojutsu-agent")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("task-%d", i)
			res, err := client.Call(context.Background(), "run", []string{want})
			if err != nil {
				errs <- err
				return
			}
			if *res.Execution != want {
				errs <- fmt.Errorf("execution = %q, want %q", *res.Execution, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
