package unixsocketrpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hnakamur/mockdecrypt/internal/jsonrpc2x"
	"golang.org/x/exp/jsonrpc2"
)

type Client struct {
	conn *jsonrpc2.Connection
}

func Connect(ctx context.Context, socketPath string, timeout time.Duration) (*Client, error) {
	dialer := jsonrpc2.NetDialer("unix", socketPath, net.Dialer{
		Timeout: timeout,
	})
	conn, err := jsonrpc2.Dial(ctx, dialer, jsonrpc2.ConnectionOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to dial to unix socket: %s", err)
	}
	return &Client{
		conn: conn,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// CallSync calls method and waits for its result, which is unmarshaled into
// result.
func (c *Client) CallSync(ctx context.Context, method string, params, result any) (jsonrpc2.ID, error) {
	logger := slog.Default().With("program", "unixSocketClient")

	call := c.conn.Call(ctx, method, params)
	logger.DebugContext(ctx, "client: created a call", "id", call.ID(), "method", method)
	if err := call.Await(ctx, result); err != nil {
		return call.ID(), fmt.Errorf("failed to wait result from unix socket: %w", jsonrpc2x.FromWireError(err))
	}
	logger.DebugContext(ctx, "client: received response for a call", "id", call.ID())
	return call.ID(), nil
}
