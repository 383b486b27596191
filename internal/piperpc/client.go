package piperpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hnakamur/mockdecrypt/internal/jsonrpc2x"
	"golang.org/x/exp/jsonrpc2"
)

// Client sends JSON-RPC calls over a pipe and waits for each response before
// sending the next call.
type Client struct {
	w jsonrpc2.Writer
	r jsonrpc2.Reader
}

func NewClient(framer jsonrpc2.Framer, out io.Writer, in io.Reader) *Client {
	return &Client{
		w: framer.Writer(out),
		r: framer.Reader(in),
	}
}

// Call sends a call for method and unmarshals its result into result.
// An error response is returned as an error.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	logger := slog.Default().With("program", "pipeClient")

	reqID, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	id := jsonrpc2.StringID(reqID.String())
	req, err := jsonrpc2.NewCall(id, method, params)
	if err != nil {
		return err
	}
	logger.DebugContext(ctx, "client: sending request", "id", reqID, "method", method)
	if _, err := c.w.Write(ctx, req); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}

	respMsg, _, err := c.r.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	resp, ok := respMsg.(*jsonrpc2.Response)
	if !ok {
		return errors.New("expected a jsonrpc2 response")
	}
	if resp.ID != id {
		return fmt.Errorf("response ID mismatch, got=%v, want=%v", resp.ID.Raw(), id.Raw())
	}
	logger.DebugContext(ctx, "client: received response", "id", reqID)
	if resp.Error != nil {
		return jsonrpc2x.FromWireError(resp.Error)
	}
	if result == nil || resp.Result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}
