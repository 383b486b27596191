package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/hnakamur/mockdecrypt/internal"
	"github.com/hnakamur/mockdecrypt/internal/backendexec"
	"github.com/hnakamur/mockdecrypt/internal/rpc"
	"golang.org/x/xerrors"
)

type CLI struct {
	Debug bool `help:"Enable debug logging to stderr."`

	Serve       ServeCmd       `cmd:"" default:"withargs" help:"Answer line-delimited secret requests read from stdin. This is the default subcommand."`
	RPC         RPCCmd         `cmd:"" name:"rpc" help:"Answer JSON-RPC decrypt calls read from stdin."`
	ServeSocket ServeSocketCmd `cmd:"" help:"Answer JSON-RPC decrypt calls on a unix socket."`
	StopSocket  StopSocketCmd  `cmd:"" help:"Ask a serve-socket server to shut down."`
	Fetch       FetchCmd       `cmd:"" help:"Fetch secrets from a backend command or a serve-socket server and print the response."`
}

var kongVars = kong.Vars{
	"default_socket_path": "/tmp/mockdecrypt.sock",
}

type ServeCmd struct {
	Newline bool `env:"MOCKDECRYPT_NEWLINE" help:"Write a line separator after each response."`
	Compact bool `env:"MOCKDECRYPT_COMPACT" help:"Encode responses without spaces after separators."`
}

func (c *ServeCmd) Run(ctx context.Context) error {
	style := internal.SpacedStyle
	if c.Compact {
		style = internal.CompactStyle
	}
	return internal.NewDecryptor(style, c.Newline).Run(ctx, os.Stdin, os.Stdout)
}

type RPCCmd struct {
	Framer string `enum:"raw,header" default:"raw" help:"JSON-RPC message framing (raw or header)."`
}

func (c *RPCCmd) Run(ctx context.Context) error {
	framer, err := rpc.Framer(c.Framer)
	if err != nil {
		return err
	}
	return rpc.ServePipe(ctx, framer, os.Stdin, os.Stdout)
}

type ServeSocketCmd struct {
	Socket string `required:"" default:"${default_socket_path}" env:"MOCKDECRYPT_SOCKET" help:"unix socket path"`
}

func (c *ServeSocketCmd) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	slog.Info("serve-socket", "socket", c.Socket)
	return rpc.ServeSocket(ctx, c.Socket)
}

type StopSocketCmd struct {
	Socket  string        `required:"" default:"${default_socket_path}" env:"MOCKDECRYPT_SOCKET" help:"unix socket path"`
	Timeout time.Duration `default:"5s" help:"connect timeout"`
}

func (c *StopSocketCmd) Run(ctx context.Context) error {
	return rpc.Shutdown(ctx, c.Socket, c.Timeout)
}

type FetchCmd struct {
	Secrets []string `name:"secret" short:"s" required:"" help:"Secret handle to fetch. Repeat for more handles."`

	Socket  string        `group:"connect" env:"MOCKDECRYPT_SOCKET" help:"unix socket path of a serve-socket server. Used instead of a command."`
	RPC     bool          `group:"exec" help:"Drive the backend command with JSON-RPC instead of the line protocol."`
	Timeout time.Duration `default:"30s" help:"Timeout for the whole fetch."`
	MaxSize int           `group:"exec" default:"1048576" help:"Maximum backend output size in bytes."`

	Query  string `help:"gojq query to run on the response instead of printing it."`
	Strict bool   `help:"Fail unless every secret was returned without an error."`

	Command string   `group:"exec" arg:"" optional:"" help:"path to the backend command"`
	Args    []string `group:"exec" arg:"" optional:"" help:"arguments for the backend command"`
}

func (c *FetchCmd) Run(ctx context.Context) error {
	res, err := c.fetch(ctx)
	if err != nil {
		return err
	}

	if c.Query != "" {
		if err := internal.RunQuery(c.Query, res, os.Stdout); err != nil {
			return err
		}
	} else {
		out := append(res.AppendJSON(nil, internal.SpacedStyle), '\n')
		if _, err := os.Stdout.Write(out); err != nil {
			return xerrors.Errorf("failed to write response: %w", err)
		}
	}

	if c.Strict {
		return internal.Check(c.Secrets, res)
	}
	return nil
}

func (c *FetchCmd) fetch(ctx context.Context) (*internal.Response, error) {
	switch {
	case c.Socket != "" && c.Command != "":
		return nil, errors.New("--socket and a backend command are mutually exclusive")
	case c.Socket != "":
		ctx, cancel := context.WithTimeout(ctx, c.Timeout)
		defer cancel()
		return rpc.FetchFromSocket(ctx, c.Socket, c.Timeout, c.Secrets)
	case c.Command != "":
		runner := &backendexec.Runner{
			Command:       c.Command,
			Args:          c.Args,
			Timeout:       c.Timeout,
			MaxOutputSize: c.MaxSize,
			RPC:           c.RPC,
		}
		return runner.Fetch(ctx, c.Secrets)
	default:
		return nil, errors.New("either --socket or a backend command is required")
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, kongVars)

	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// kong.BindTo is needed to bind a context.Context value.
	// See https://github.com/alecthomas/kong/issues/48
	ctx.BindTo(context.Background(), (*context.Context)(nil))
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
