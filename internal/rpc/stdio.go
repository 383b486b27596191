package rpc

import (
	"context"
	"fmt"
	"io"

	"github.com/hnakamur/mockdecrypt/internal/piperpc"
	"golang.org/x/exp/jsonrpc2"
)

// Framer returns the jsonrpc2 framer called name, either "raw" or "header".
func Framer(name string) (jsonrpc2.Framer, error) {
	switch name {
	case "", "raw":
		return jsonrpc2.RawFramer(), nil
	case "header":
		return jsonrpc2.HeaderFramer(), nil
	default:
		return nil, fmt.Errorf("unknown framer: %s", name)
	}
}

// ServePipe answers calls read from in until EOF.
func ServePipe(ctx context.Context, framer jsonrpc2.Framer, in io.Reader, out io.Writer) error {
	return piperpc.NewServer(framer, Handler).Run(ctx, in, out)
}
