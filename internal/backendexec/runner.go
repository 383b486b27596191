package backendexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/hnakamur/mockdecrypt/internal"
	"github.com/hnakamur/mockdecrypt/internal/piperpc"
	"golang.org/x/exp/jsonrpc2"
	"golang.org/x/xerrors"
)

const (
	// DefaultTimeout bounds a single backend run.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxOutputSize bounds the backend output, in bytes.
	DefaultMaxOutputSize = 1024 * 1024

	decryptMethod = "decrypt"
)

var ErrOutputTooLarge = errors.New("backend output exceeds the size limit")

// Runner executes a secret backend command to fetch secrets.
type Runner struct {
	Command string
	Args    []string
	// Env is appended to the environment of the current process.
	Env []string

	Timeout       time.Duration
	MaxOutputSize int

	// RPC drives the command with a JSON-RPC decrypt call instead of the line
	// protocol.
	RPC bool
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

func (r *Runner) maxOutputSize() int {
	if r.MaxOutputSize > 0 {
		return r.MaxOutputSize
	}
	return DefaultMaxOutputSize
}

func (r *Runner) command(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Env = append(cmd.Environ(), r.Env...)
	return cmd
}

// Fetch runs the backend once for handles and returns its response.
func (r *Runner) Fetch(ctx context.Context, handles []string) (*internal.Response, error) {
	logger := slog.Default().With("program", "backendRunner")

	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	var res *internal.Response
	var err error
	start := time.Now()
	if r.RPC {
		res, err = r.fetchRPC(ctx, handles)
	} else {
		res, err = r.fetchLine(ctx, handles)
	}
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return nil, xerrors.Errorf("backend %s timed out after %s: %w", r.Command, r.timeout(), ctxErr)
	}
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "fetched secrets", "command", r.Command,
		"requested", len(handles), "returned", res.Len(), "elapsed", time.Since(start))
	return res, nil
}

func (r *Runner) fetchLine(ctx context.Context, handles []string) (*internal.Response, error) {
	input, err := json.Marshal(internal.Request{
		Version: internal.ProtocolVersion,
		Secrets: handles,
	})
	if err != nil {
		return nil, err
	}

	cmd := r.command(ctx)
	stdout := newLimitBuffer(r.maxOutputSize())
	stderr := newLimitBuffer(r.maxOutputSize())
	cmd.Stdin = bytes.NewReader(append(input, '\n'))
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		// An oversized backend usually dies of SIGPIPE once the copy stops,
		// so the exit error hides the real cause.
		if stdout.exceeded || errors.Is(err, ErrOutputTooLarge) {
			return nil, xerrors.Errorf("backend %s: %w", r.Command, ErrOutputTooLarge)
		}
		return nil, xerrors.Errorf("failed to run backend %s: %s: %w", r.Command, strings.TrimSpace(stderr.String()), err)
	}

	var res internal.Response
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return nil, xerrors.Errorf("backend %s returned invalid output: %w", r.Command, err)
	}
	return &res, nil
}

func (r *Runner) fetchRPC(ctx context.Context, handles []string) (*internal.Response, error) {
	cmd := r.command(ctx)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := newLimitBuffer(r.maxOutputSize())
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, xerrors.Errorf("failed to start backend %s: %w", r.Command, err)
	}

	client := piperpc.NewClient(jsonrpc2.RawFramer(), stdin, &limitReader{r: stdout, n: r.maxOutputSize()})
	params := internal.Request{
		Version: internal.ProtocolVersion,
		Secrets: handles,
	}
	var res internal.Response
	callErr := client.Call(ctx, decryptMethod, params, &res)
	closeErr := stdin.Close()
	if callErr != nil {
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	switch {
	case callErr != nil:
		return nil, xerrors.Errorf("failed to call %s on backend %s: %w", decryptMethod, r.Command, callErr)
	case waitErr != nil:
		return nil, xerrors.Errorf("backend %s failed: %s: %w", r.Command, strings.TrimSpace(stderr.String()), waitErr)
	case closeErr != nil:
		return nil, closeErr
	}
	return &res, nil
}

// limitBuffer is a bytes.Buffer that refuses writes past max bytes.
type limitBuffer struct {
	max      int
	buf      bytes.Buffer
	exceeded bool
}

func newLimitBuffer(max int) *limitBuffer {
	return &limitBuffer{max: max}
}

func (b *limitBuffer) Write(p []byte) (int, error) {
	if b.buf.Len()+len(p) > b.max {
		b.exceeded = true
		return 0, ErrOutputTooLarge
	}
	return b.buf.Write(p)
}

func (b *limitBuffer) Bytes() []byte  { return b.buf.Bytes() }
func (b *limitBuffer) String() string { return b.buf.String() }

// limitReader fails once more than n bytes have been read.
type limitReader struct {
	r io.Reader
	n int
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, ErrOutputTooLarge
	}
	if len(p) > l.n+1 {
		p = p[:l.n+1]
	}
	n, err := l.r.Read(p)
	l.n -= n
	if l.n < 0 {
		return 0, ErrOutputTooLarge
	}
	return n, err
}
