package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{Address: ":0"})
	assert.Error(t, err)

	srv, err := New(DefaultConfig(okHandler()))
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestServerServesRequests(t *testing.T) {
	config := DefaultConfig(okHandler())
	config.Address = "127.0.0.1:0"

	srv, err := New(config)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	// Wait for the listener to come up
	var resp *http.Response
	require.Eventually(t, func() bool {
		if srv.Addr() == config.Address {
			return false
		}
		r, err := http.Get("http://" + srv.Addr() + "/")
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 10*time.Millisecond)

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	err = <-done
	assert.Equal(t, http.ErrServerClosed, err)
}

func TestLifecycleClosesInReverseOrder(t *testing.T) {
	config := DefaultConfig(okHandler())
	config.Address = "127.0.0.1:0"

	srv, err := New(config)
	require.NoError(t, err)

	life := NewLifecycle(srv, zap.NewNop(), time.Second)

	var order []string
	life.OnShutdown(func(ctx context.Context) error {
		order = append(order, "registered first")
		return nil
	})
	life.OnShutdown(func(ctx context.Context) error {
		order = append(order, "registered second")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- life.Run(ctx) }()

	// Wait for the listener to bind before cancelling
	require.Eventually(t, func() bool {
		return srv.Addr() != config.Address
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"registered second", "registered first"}, order)
}

func TestLifecycleReportsCloserFailure(t *testing.T) {
	config := DefaultConfig(okHandler())
	config.Address = "127.0.0.1:0"

	srv, err := New(config)
	require.NoError(t, err)

	life := NewLifecycle(srv, zap.NewNop(), time.Second)
	life.OnShutdown(func(ctx context.Context) error {
		return errors.New("resource stuck")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- life.Run(ctx) }()

	require.Eventually(t, func() bool {
		return srv.Addr() != config.Address
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	err = <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource stuck")
}
