package internal

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/xerrors"
)

// Decryptor answers line-delimited requests with responses built by Decide.
type Decryptor struct {
	style   Style
	newline bool
}

// NewDecryptor returns a Decryptor that encodes responses with style. When
// newline is true a line separator is written after every response,
// otherwise responses are concatenated.
func NewDecryptor(style Style, newline bool) *Decryptor {
	return &Decryptor{
		style:   style,
		newline: newline,
	}
}

// Decrypt builds the response for req. Handles are processed in order and
// independently of each other.
func Decrypt(req *Request) *Response {
	res := NewResponse()
	for _, handle := range req.Secrets {
		if rec, ok := Decide(handle).Record(); ok {
			res.Set(handle, rec)
		}
	}
	return res
}

// Run reads requests from in until EOF, writing one response per line to out.
// It stops at the first malformed line and nothing is written for that line.
func (d *Decryptor) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	logger := slog.Default().With("program", "decryptor")

	r := bufio.NewReader(in)
	var buf []byte
	for lineNo := 1; ; lineNo++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, readErr := r.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return xerrors.Errorf("failed to read request: %w", readErr)
		}
		if len(line) == 0 && readErr != nil {
			logger.DebugContext(ctx, "decryptor received EOF, exiting", "lines", lineNo-1)
			return nil
		}

		req, err := DecodeRequest(line)
		if err != nil {
			return xerrors.Errorf("line %d: %w", lineNo, err)
		}
		res := Decrypt(req)
		logger.DebugContext(ctx, "decrypted request", "line", lineNo,
			"secrets", len(req.Secrets), "returned", res.Len())

		buf = res.AppendJSON(buf[:0], d.style)
		if d.newline {
			buf = append(buf, '\n')
		}
		if _, err := out.Write(buf); err != nil {
			return xerrors.Errorf("failed to write response: %w", err)
		}

		if readErr != nil {
			logger.DebugContext(ctx, "decryptor received EOF, exiting", "lines", lineNo)
			return nil
		}
	}
}
