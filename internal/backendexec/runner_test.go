package backendexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hnakamur/mockdecrypt/internal"
	"github.com/hnakamur/mockdecrypt/internal/rpc"
	"golang.org/x/exp/jsonrpc2"
)

const helperEnv = "MOCKDECRYPT_TEST_BACKEND"

// TestMain lets the test binary act as a secret backend when helperEnv is set.
func TestMain(m *testing.M) {
	if mode := os.Getenv(helperEnv); mode != "" {
		os.Exit(runHelperBackend(mode))
	}
	os.Exit(m.Run())
}

func runHelperBackend(mode string) int {
	ctx := context.Background()
	var err error
	switch mode {
	case "serve":
		err = internal.NewDecryptor(internal.SpacedStyle, false).Run(ctx, os.Stdin, os.Stdout)
	case "rpc":
		err = rpc.ServePipe(ctx, jsonrpc2.RawFramer(), os.Stdin, os.Stdout)
	case "fail":
		err = errors.New("backend exploded")
	case "sleep":
		time.Sleep(time.Minute)
	case "garbage":
		fmt.Print("not json")
	default:
		err = fmt.Errorf("unknown helper mode: %s", mode)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 3
	}
	return 0
}

func helperRunner(mode string) *Runner {
	return &Runner{
		Command: os.Args[0],
		Args:    []string{"-test.run=^$"},
		Env:     []string{helperEnv + "=" + mode},
		Timeout: 10 * time.Second,
	}
}

func TestFetch(t *testing.T) {
	for _, mode := range []string{"serve", "rpc"} {
		t.Run(mode, func(t *testing.T) {
			runner := helperRunner(mode)
			runner.RPC = mode == "rpc"
			res, err := runner.Fetch(t.Context(), []string{"a", "x_error", "y_ignore"})
			if err != nil {
				t.Fatal(err)
			}

			if got, want := res.Len(), 2; got != want {
				t.Errorf("record count mismatch, got=%d, want=%d", got, want)
			}
			if rec, ok := res.Get("a"); !ok || rec != (internal.Record{Value: "decrypted_a"}) {
				t.Errorf("record mismatch, got=%+v, ok=%v", rec, ok)
			}
			if rec, ok := res.Get("x_error"); !ok || rec != (internal.Record{Error: "cannot decrypt x_error"}) {
				t.Errorf("record mismatch, got=%+v, ok=%v", rec, ok)
			}
			if _, ok := res.Get("y_ignore"); ok {
				t.Error("ignored secret must be absent")
			}

			err = internal.Check([]string{"a"}, res)
			if err != nil {
				t.Errorf("unexpected check error, err=%v", err)
			}
		})
	}
}

func TestFetchCommandFailure(t *testing.T) {
	_, err := helperRunner("fail").Fetch(t.Context(), []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "backend exploded") {
		t.Errorf("error must include stderr, err=%v", err)
	}
}

func TestFetchInvalidOutput(t *testing.T) {
	_, err := helperRunner("garbage").Fetch(t.Context(), []string{"a"})
	if err == nil || !strings.Contains(err.Error(), "invalid output") {
		t.Errorf("expected invalid output error, err=%v", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	runner := helperRunner("sleep")
	runner.Timeout = 200 * time.Millisecond
	start := time.Now()
	_, err := runner.Fetch(t.Context(), []string{"a"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err mismatch, got=%v, want=%v", err, context.DeadlineExceeded)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took too long, elapsed=%s", elapsed)
	}
}

func TestFetchOutputTooLarge(t *testing.T) {
	for _, mode := range []string{"serve", "rpc"} {
		t.Run(mode, func(t *testing.T) {
			runner := helperRunner(mode)
			runner.RPC = mode == "rpc"
			runner.MaxOutputSize = 16
			_, err := runner.Fetch(t.Context(), []string{"a", "b", "c"})
			if !errors.Is(err, ErrOutputTooLarge) {
				t.Errorf("err mismatch, got=%v, want=%v", err, ErrOutputTooLarge)
			}
		})
	}
}

func TestFetchOutputTooLargeManyHandles(t *testing.T) {
	handles := make([]string, 20000)
	for i := range handles {
		handles[i] = fmt.Sprintf("h%05d", i)
	}
	for _, mode := range []string{"serve", "rpc"} {
		t.Run(mode, func(t *testing.T) {
			runner := helperRunner(mode)
			runner.RPC = mode == "rpc"
			runner.MaxOutputSize = 16
			_, err := runner.Fetch(t.Context(), handles)
			if !errors.Is(err, ErrOutputTooLarge) {
				t.Errorf("err mismatch, got=%v, want=%v", err, ErrOutputTooLarge)
			}
		})
	}
}

func TestFetchMissingCommand(t *testing.T) {
	runner := &Runner{Command: "/nonexistent/mockdecrypt-backend"}
	if _, err := runner.Fetch(t.Context(), []string{"a"}); err == nil {
		t.Error("expected error")
	}
}

func TestLimitBuffer(t *testing.T) {
	b := newLimitBuffer(4)
	if n, err := b.Write([]byte("abc")); n != 3 || err != nil {
		t.Errorf("write mismatch, n=%d, err=%v", n, err)
	}
	if _, err := b.Write([]byte("de")); !errors.Is(err, ErrOutputTooLarge) {
		t.Errorf("err mismatch, got=%v, want=%v", err, ErrOutputTooLarge)
	}
	if got, want := b.String(), "abc"; got != want {
		t.Errorf("content mismatch, got=%s, want=%s", got, want)
	}
	if !b.exceeded {
		t.Error("exceeded must be set after a refused write")
	}
}

func TestLimitReader(t *testing.T) {
	r := &limitReader{r: strings.NewReader("abcdef"), n: 4}
	buf := make([]byte, 2)
	if n, err := r.Read(buf); n != 2 || err != nil {
		t.Errorf("read mismatch, n=%d, err=%v", n, err)
	}
	if _, err := r.Read(make([]byte, 10)); !errors.Is(err, ErrOutputTooLarge) {
		t.Errorf("err mismatch, got=%v, want=%v", err, ErrOutputTooLarge)
	}

	r = &limitReader{r: strings.NewReader("ab"), n: 4}
	if n, err := r.Read(make([]byte, 10)); n != 2 || err != nil {
		t.Errorf("read mismatch, n=%d, err=%v", n, err)
	}
}
