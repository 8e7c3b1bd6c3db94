package client_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/jaxron/nexthttp/pkg/client/transport"
)

var errWriteFailed = errors.New("write failed")

// fakeOpener hands out fakeConns and records what it was asked to open.
type fakeOpener struct {
	mu      sync.Mutex
	err     error
	reply   func() *transport.Reply
	writeFn func(p []byte) (int, error)
	conns   []*fakeConn
	targets []*url.URL
	proxies []*url.URL
}

func (o *fakeOpener) Open(_ context.Context, target *url.URL, proxy *url.URL) (transport.Conn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.targets = append(o.targets, target)
	o.proxies = append(o.proxies, proxy)
	if o.err != nil {
		return nil, o.err
	}

	reply := &transport.Reply{StatusCode: http.StatusOK, Message: "OK", ContentLength: -1, Header: http.Header{}}
	if o.reply != nil {
		reply = o.reply()
	}
	conn := &fakeConn{
		header:  make(http.Header),
		reply:   reply,
		writeFn: o.writeFn,
	}
	o.conns = append(o.conns, conn)
	return conn, nil
}

func (o *fakeOpener) last() *fakeConn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conns[len(o.conns)-1]
}

func (o *fakeOpener) lastTarget() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.targets[len(o.targets)-1].String()
}

// fakeConn records the calls the pipeline makes, in order.
type fakeConn struct {
	calls    []string
	settings transport.Settings
	method   string
	header   http.Header
	out      *fakeBody
	reply    *transport.Reply
	writeFn  func(p []byte) (int, error)
}

func (c *fakeConn) Configure(settings transport.Settings) error {
	c.calls = append(c.calls, "configure")
	c.settings = settings
	return nil
}

func (c *fakeConn) SetMethod(method string) error {
	c.calls = append(c.calls, "method")
	c.method = method
	return nil
}

func (c *fakeConn) SetRequestHeader(key, value string) error {
	c.calls = append(c.calls, "header")
	c.header.Set(key, value)
	return nil
}

func (c *fakeConn) OutputStream() (io.WriteCloser, error) {
	c.calls = append(c.calls, "output")
	c.out = &fakeBody{writeFn: c.writeFn}
	return c.out, nil
}

func (c *fakeConn) Exchange() (*transport.Reply, error) {
	c.calls = append(c.calls, "exchange")
	return c.reply, nil
}

// fakeBody is an output stream that records what was written and how it was
// released.
type fakeBody struct {
	buf       bytes.Buffer
	writeFn   func(p []byte) (int, error)
	closed    bool
	abortErr  error
	writeSize []int
}

func (b *fakeBody) Write(p []byte) (int, error) {
	b.writeSize = append(b.writeSize, len(p))
	if b.writeFn != nil {
		return b.writeFn(p)
	}
	return b.buf.Write(p)
}

func (b *fakeBody) Close() error {
	b.closed = true
	return nil
}

func (b *fakeBody) CloseWithError(err error) error {
	b.closed = true
	b.abortErr = err
	return nil
}

// trackingBody is a response stream that remembers whether it was closed.
type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}
