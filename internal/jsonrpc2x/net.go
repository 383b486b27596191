// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsonrpc2x

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net"
	"os"
	"time"

	"golang.org/x/exp/jsonrpc2"
)

// NetListener returns a new Listener that listens on a socket using the net
// package. Closing a unix socket listener also removes the socket file.
func NetListener(ctx context.Context, network, address string, options jsonrpc2.NetListenOptions) (jsonrpc2.Listener, error) {
	ln, err := options.NetListenConfig.Listen(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return &netListener{net: ln}, nil
}

// netListener is the implementation of Listener for connections made using the net package.
//
// This is slightly modified version of netListner in
// golang.org/x/exp/jsonrpc2 v0.0.0-20250620022241-b7579e27df2b
type netListener struct {
	net net.Listener
}

// Accept blocks waiting for an incoming connection to the listener.
func (l *netListener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	return l.net.Accept()
}

// Close will cause the listener to stop listening. It will not close any connections that have
// already been accepted.
func (l *netListener) Close() error {
	addr := l.net.Addr()
	err := l.net.Close()
	if addr.Network() == "unix" {
		// net.UnixListener usually unlinks the file itself.
		rerr := os.Remove(addr.String())
		if rerr != nil && !errors.Is(rerr, fs.ErrNotExist) && err == nil {
			err = rerr
		}
	}
	return err
}

// Dialer returns a dialer that can be used to connect to the listener.
func (l *netListener) Dialer() jsonrpc2.Dialer {
	return jsonrpc2.NetDialer(l.net.Addr().Network(), l.net.Addr().String(), net.Dialer{
		Timeout: 5 * time.Second,
	})
}

// Addr returns the address the listener is bound to.
func (l *netListener) Addr() net.Addr {
	return l.net.Addr()
}
