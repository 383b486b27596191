package unixsocketrpc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/hnakamur/mockdecrypt/internal/jsonrpc2x"
	"github.com/hnakamur/mockdecrypt/internal/myerrors"
	"golang.org/x/exp/jsonrpc2"
)

type Server struct {
	socketPath string
	listener   jsonrpc2.Listener
}

// Listen removes a stale socket file at socketPath and listens on it.
func Listen(ctx context.Context, socketPath string) (*Server, error) {
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove socket: %s", err)
	}
	listener, err := jsonrpc2x.NetListener(ctx, "unix", socketPath, jsonrpc2.NetListenOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to listen unix socket: %s", err)
	}

	return &Server{
		socketPath: socketPath,
		listener:   listener,
	}, nil
}

// Run serves connections with handler until ctx is done or a request for
// shutdownMethod arrives. After a shutdown request the listener is closed
// once shutdownGracePeriod has elapsed, which also removes the socket file.
func (s *Server) Run(ctx context.Context, handler jsonrpc2.Handler, shutdownMethod string, shutdownGracePeriod time.Duration) error {
	logger := slog.Default().With("program", "unixSocketServer", "socketPath", s.socketPath)

	shutdownCh := make(chan struct{})
	var shutdownOnce sync.Once
	wrappedHandler := func(ctx context.Context, req *jsonrpc2.Request) (any, error) {
		switch req.Method {
		case shutdownMethod:
			shutdownOnce.Do(func() { close(shutdownCh) })
			return "", nil
		default:
			return handler.Handle(ctx, req)
		}
	}

	connOpts := jsonrpc2.ConnectionOptions{
		Handler: jsonrpc2.HandlerFunc(wrappedHandler),
	}
	server, err := jsonrpc2.Serve(ctx, s.listener, connOpts)
	if err != nil {
		return fmt.Errorf("failed to serve: %s", err)
	}

	var closeErr error
	waitDone := make(chan struct{})
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		select {
		case <-shutdownCh:
			logger.DebugContext(ctx, "received shutdown request", "gracePeriod", shutdownGracePeriod)
			<-time.After(shutdownGracePeriod)
		case <-ctx.Done():
			logger.DebugContext(ctx, "received ctx.Done", "err", ctx.Err())
		case <-waitDone:
		}
		if err := s.listener.Close(); err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, net.ErrClosed) {
			closeErr = err
		}
	}()

	waitErr := server.Wait()
	close(waitDone)
	<-closed
	if errors.Is(waitErr, net.ErrClosed) {
		waitErr = nil
	}
	return myerrors.Join(waitErr, closeErr)
}
