package rpc

import (
	"context"
	"log/slog"

	"github.com/hnakamur/mockdecrypt/internal"
	"golang.org/x/exp/jsonrpc2"
	"golang.org/x/xerrors"
)

const (
	DecryptMethod   = "decrypt"
	HeartbeatMethod = "heartbeat"
	ShutdownMethod  = "shutdown"
)

// Handle answers decrypt and heartbeat calls. Other methods are not handled.
func Handle(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	logger := slog.Default().With("program", "rpcHandler")
	logger.DebugContext(ctx, "handler start", "method", req.Method)
	defer func() {
		logger.DebugContext(ctx, "handler exit", "method", req.Method)
	}()

	switch req.Method {
	case DecryptMethod:
		if len(req.Params) == 0 {
			return nil, xerrors.Errorf("%w: %s", jsonrpc2.ErrInvalidParams, internal.ErrMissingSecrets)
		}
		params, err := internal.DecodeRequest(req.Params)
		if err != nil {
			return nil, xerrors.Errorf("%w: %s", jsonrpc2.ErrInvalidParams, err)
		}
		return internal.Decrypt(params), nil
	case HeartbeatMethod:
		return "ack", nil
	default:
		return nil, jsonrpc2.ErrNotHandled
	}
}

// Handler is Handle as a jsonrpc2.Handler.
var Handler jsonrpc2.Handler = jsonrpc2.HandlerFunc(Handle)
