package jsonrpc2x

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/jsonrpc2"
)

var sentinels = []error{
	jsonrpc2.ErrParse,
	jsonrpc2.ErrInvalidRequest,
	jsonrpc2.ErrMethodNotFound,
	jsonrpc2.ErrInvalidParams,
	jsonrpc2.ErrInternal,
}

// FromWireError maps an error decoded from a response back to the jsonrpc2
// sentinel with the same code, so callers can use errors.Is. The detail after
// the sentinel message is kept. Errors with other codes are returned as is.
func FromWireError(err error) error {
	var wire *jsonrpc2.WireError
	if !errors.As(err, &wire) {
		return err
	}
	for _, sentinel := range sentinels {
		var s *jsonrpc2.WireError
		if !errors.As(sentinel, &s) || s.Code != wire.Code {
			continue
		}
		detail := strings.TrimPrefix(strings.TrimPrefix(wire.Message, s.Message), ": ")
		if detail == "" {
			return sentinel
		}
		return fmt.Errorf("%w: %s", sentinel, detail)
	}
	return err
}
