package rpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/hnakamur/mockdecrypt/internal"
	"github.com/hnakamur/mockdecrypt/internal/unixsocketrpc"
	"golang.org/x/xerrors"
)

const shutdownGracePeriod = time.Second

// ServeSocket answers calls on a unix socket until ctx is done or a shutdown
// call arrives.
func ServeSocket(ctx context.Context, socketPath string) error {
	logger := slog.Default().With("program", "serve-socket")

	us, err := unixsocketrpc.Listen(ctx, socketPath)
	if err != nil {
		return err
	}
	logger.DebugContext(ctx, "unixSocketServer start listening", "socketPath", socketPath)

	if err := us.Run(ctx, Handler, ShutdownMethod, shutdownGracePeriod); err != nil {
		return xerrors.Errorf("failed to run server: %w", err)
	}
	return nil
}

// FetchFromSocket sends one decrypt call for handles to the server listening
// on socketPath.
func FetchFromSocket(ctx context.Context, socketPath string, timeout time.Duration, handles []string) (*internal.Response, error) {
	logger := slog.Default().With("program", "unixSocketClient")
	logger.DebugContext(ctx, "FetchFromSocket", "socketPath", socketPath)

	client, err := unixsocketrpc.Connect(ctx, socketPath, timeout)
	if err != nil {
		return nil, xerrors.Errorf("failed to connect unix socket server: %w", err)
	}
	defer client.Close()

	params := internal.Request{
		Version: internal.ProtocolVersion,
		Secrets: handles,
	}
	var res internal.Response
	if _, err := client.CallSync(ctx, DecryptMethod, params, &res); err != nil {
		return nil, xerrors.Errorf("failed to call %s: %w", DecryptMethod, err)
	}
	return &res, nil
}

// Shutdown asks the server listening on socketPath to stop.
func Shutdown(ctx context.Context, socketPath string, timeout time.Duration) error {
	client, err := unixsocketrpc.Connect(ctx, socketPath, timeout)
	if err != nil {
		return xerrors.Errorf("failed to connect unix socket server: %w", err)
	}
	defer client.Close()

	var ack string
	if _, err := client.CallSync(ctx, ShutdownMethod, nil, &ack); err != nil {
		return xerrors.Errorf("failed to call %s: %w", ShutdownMethod, err)
	}
	return nil
}
