package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServe_ShutdownOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	s := New(handler, Config{ShutdownTimeout: 5 * time.Second}, testLogger())

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, name)
	}

	started := make(chan struct{})
	s.Go("ticker", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		record("worker")
		return ctx.Err()
	})
	s.OnShutdown("first", func(ctx context.Context) error { record("first"); return nil })
	s.OnShutdown("second", func(ctx context.Context) error { record("second"); return nil })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	<-started
	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	http.DefaultClient.CloseIdleConnections()
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"worker", "second", "first"}, order)
}

func TestServe_ShutdownErrorsJoined(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(http.NotFoundHandler(), Config{ShutdownTimeout: time.Second}, testLogger())
	errA := errors.New("a failed")
	s.OnShutdown("a", func(ctx context.Context) error { return errA })
	s.OnShutdown("b", func(ctx context.Context) error { return nil })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.Serve(ctx, ln)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
}
