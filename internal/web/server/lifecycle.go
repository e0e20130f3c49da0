package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// CloseFunc releases one resource during shutdown
type CloseFunc func(ctx context.Context) error

// Lifecycle runs a Server until its context is cancelled or a SIGINT
// or SIGTERM arrives, then drains in-flight requests and closes the
// registered resources in reverse registration order, so a resource
// never outlives the things built on top of it.
type Lifecycle struct {
	server  *Server
	logger  *zap.Logger
	timeout time.Duration
	closers []CloseFunc
}

// NewLifecycle wraps a server for signal-driven operation. A zero
// timeout drains for 30 seconds
func NewLifecycle(server *Server, logger *zap.Logger, timeout time.Duration) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Lifecycle{
		server:  server,
		logger:  logger,
		timeout: timeout,
	}
}

// OnShutdown registers fn to run after the listener has drained.
// Functions run in reverse registration order
func (l *Lifecycle) OnShutdown(fn CloseFunc) {
	l.closers = append(l.closers, fn)
}

// Run serves until the context is cancelled or a termination signal
// arrives, then shuts down. It returns the combined error of the
// drain and every close function
func (l *Lifecycle) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		l.logger.Info("listening", zap.String("addr", l.server.Addr()))
		serveErr <- l.server.Start()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		} else if err != nil {
			err = fmt.Errorf("server failed: %w", err)
		}
		return errors.Join(err, l.close(context.Background()))
	case <-ctx.Done():
	}

	l.logger.Info("draining", zap.Duration("timeout", l.timeout))
	drainCtx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	err := errors.Join(l.server.Shutdown(drainCtx), l.close(drainCtx))
	if err != nil {
		l.logger.Error("shutdown incomplete", zap.Error(err))
		return err
	}

	l.logger.Info("shutdown complete")
	return nil
}

// close runs the registered close functions last-registered first
func (l *Lifecycle) close(ctx context.Context) error {
	var err error
	for i := len(l.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, l.closers[i](ctx))
	}
	return err
}
