package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jaxron/nexthttp/pkg/client/errors"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/net/publicsuffix"
)

const defaultKeepAlive = 30 * time.Second

// HTTPOpener opens connections backed by net/http. Each Open works on its
// own clone of the base transport, so per-connection settings, proxies and
// interceptors never leak between executions.
type HTTPOpener struct {
	base *http.Transport
}

// NewHTTPOpener returns an opener cloning base for every connection. A nil
// base means http.DefaultTransport.
func NewHTTPOpener(base *http.Transport) (*HTTPOpener, error) {
	if base == nil {
		def, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			return nil, errors.ErrInvalidTransport
		}
		base = def
	}
	return &HTTPOpener{base: base}, nil
}

// Open implements Opener. Nothing is dialed until the exchange starts.
func (o *HTTPOpener) Open(ctx context.Context, target *url.URL, proxy *url.URL) (Conn, error) {
	if target == nil {
		return nil, &url.Error{Op: "open", URL: "", Err: errors.ErrMissingHost}
	}
	switch strings.ToLower(target.Scheme) {
	case "http", "https":
	default:
		return nil, &url.Error{Op: "open", URL: target.String(), Err: errors.ErrUnsupportedScheme}
	}
	if target.Host == "" {
		return nil, &url.Error{Op: "open", URL: target.String(), Err: errors.ErrMissingHost}
	}

	tr := o.base.Clone()
	// Decompression belongs to the response decoder, and the transport lives
	// for a single exchange only.
	tr.DisableCompression = true
	tr.DisableKeepAlives = true
	if IsDirect(proxy) {
		tr.Proxy = nil
	} else {
		tr.Proxy = http.ProxyURL(proxy)
	}

	return &httpConn{
		ctx:           ctx,
		target:        target,
		transport:     tr,
		method:        http.MethodGet,
		header:        make(http.Header),
		contentLength: -1,
		done:          make(chan result, 1),
	}, nil
}

// NewCookieJar returns a cookie jar using the public suffix list, suitable
// for Settings.Jar.
func NewCookieJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

type result struct {
	resp *http.Response
	err  error
}

type httpConn struct {
	ctx       context.Context
	target    *url.URL
	transport *http.Transport
	client    *http.Client

	method        string
	header        http.Header
	host          string
	contentLength int64
	chunked       bool

	configured bool
	started    bool

	done chan result
	once sync.Once
	res  result
}

func (c *httpConn) Configure(settings Settings) error {
	if c.started {
		return errors.ErrConnStarted
	}
	s := settings.Clone()

	dial := s.DialContext
	if dial == nil {
		dialer := &net.Dialer{Timeout: s.ConnectTimeout, KeepAlive: defaultKeepAlive}
		dial = dialer.DialContext
	} else if s.ConnectTimeout > 0 {
		dial = withDialTimeout(dial, s.ConnectTimeout)
	}
	c.transport.DialContext = withDeadlines(dial, s.ReadTimeout, s.WriteTimeout)
	if s.ConnectTimeout > 0 {
		c.transport.TLSHandshakeTimeout = s.ConnectTimeout
	}
	if s.TLSConfig != nil {
		c.transport.TLSClientConfig = s.TLSConfig
	}

	var rt http.RoundTripper = c.transport
	for i := len(s.NetworkInterceptors) - 1; i >= 0; i-- {
		rt = s.NetworkInterceptors[i](rt)
	}

	c.client = &http.Client{
		Transport: rt,
		Jar:       s.Jar,
	}
	if s.NoFollowRedirects {
		c.client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	c.configured = true
	return nil
}

func (c *httpConn) ready() error {
	if !c.configured {
		return errors.ErrConnNotConfigured
	}
	if c.started {
		return errors.ErrConnStarted
	}
	return nil
}

func (c *httpConn) SetMethod(method string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return fmt.Errorf("%w: %q", errors.ErrInvalidMethod, method)
	}
	c.method = method
	return nil
}

func (c *httpConn) SetRequestHeader(key, value string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if !httpguts.ValidHeaderFieldName(key) || !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("%w: %q", errors.ErrInvalidHeader, key)
	}

	switch http.CanonicalHeaderKey(key) {
	case "Content-Length":
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: Content-Length %q", errors.ErrInvalidHeader, value)
		}
		c.contentLength = n
		c.chunked = false
	case "Transfer-Encoding":
		if !strings.EqualFold(strings.TrimSpace(value), "chunked") {
			return fmt.Errorf("%w: Transfer-Encoding %q", errors.ErrInvalidHeader, value)
		}
		c.contentLength = -1
		c.chunked = true
	case "Host":
		c.host = value
	default:
		c.header.Set(key, value)
	}
	return nil
}

func (c *httpConn) OutputStream() (io.WriteCloser, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	c.started = true

	if c.contentLength == 0 {
		c.start(http.NoBody)
		return &pipeBody{conn: c, remaining: 0}, nil
	}

	pr, pw := io.Pipe()
	c.start(pr)
	return &pipeBody{conn: c, pw: pw, remaining: c.contentLength}, nil
}

func (c *httpConn) Exchange() (*Reply, error) {
	if !c.configured {
		return nil, errors.ErrConnNotConfigured
	}
	if !c.started {
		c.started = true
		c.start(nil)
	}

	res := c.wait()
	if res.err != nil {
		return nil, res.err
	}

	resp := res.resp
	reply := &Reply{
		StatusCode:    resp.StatusCode,
		Message:       statusMessage(resp),
		ContentLength: resp.ContentLength,
		Header:        resp.Header,
	}
	if IsSuccess(resp.StatusCode) {
		reply.Body = resp.Body
	} else {
		reply.ErrorBody = resp.Body
	}
	return reply, nil
}

// start launches the round trip. With a pipe body it runs concurrently with
// the caller writing into the pipe.
func (c *httpConn) start(body io.Reader) {
	req, err := c.newRequest(body)
	if err != nil {
		if pr, ok := body.(*io.PipeReader); ok {
			pr.CloseWithError(err)
		}
		c.done <- result{err: err}
		return
	}

	if body == nil || body == http.NoBody {
		resp, err := c.client.Do(req)
		c.done <- result{resp: resp, err: err}
		return
	}

	go func() {
		resp, err := c.client.Do(req)
		if err != nil {
			if pr, ok := body.(*io.PipeReader); ok {
				pr.CloseWithError(err)
			}
		}
		c.done <- result{resp: resp, err: err}
	}()
}

func (c *httpConn) newRequest(body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(c.ctx, c.method, c.target.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = c.header
	if c.host != "" {
		req.Host = c.host
	}

	switch {
	case body == nil || body == http.NoBody:
		req.ContentLength = 0
	case c.chunked || c.contentLength < 0:
		req.ContentLength = -1
		req.TransferEncoding = []string{"chunked"}
	default:
		req.ContentLength = c.contentLength
	}
	return req, nil
}

func (c *httpConn) wait() result {
	c.once.Do(func() {
		c.res = <-c.done
	})
	return c.res
}

func statusMessage(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

// pipeBody is the write side of a streamed request body.
type pipeBody struct {
	conn      *httpConn
	pw        *io.PipeWriter
	remaining int64
}

func (b *pipeBody) Write(p []byte) (int, error) {
	if b.remaining >= 0 && int64(len(p)) > b.remaining {
		return 0, errors.ErrContentLengthExceeded
	}
	if b.pw == nil {
		return 0, nil
	}

	n, err := b.pw.Write(p)
	if b.remaining >= 0 {
		b.remaining -= int64(n)
	}
	if err == io.ErrClosedPipe {
		// The round trip gave up on the body; report why.
		if res := b.conn.wait(); res.err != nil {
			return n, res.err
		}
	}
	return n, err
}

func (b *pipeBody) Close() error {
	if b.pw == nil {
		return nil
	}
	return b.pw.Close()
}

// CloseWithError aborts the body so the round trip fails instead of
// sending a truncated request.
func (b *pipeBody) CloseWithError(err error) error {
	if b.pw == nil {
		return nil
	}
	return b.pw.CloseWithError(err)
}

func withDialTimeout(dial DialFunc, timeout time.Duration) DialFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return dial(ctx, network, addr)
	}
}

func withDeadlines(dial DialFunc, read, write time.Duration) DialFunc {
	if read <= 0 && write <= 0 {
		return dial
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return &deadlineConn{Conn: conn, read: read, write: write}, nil
	}
}

// deadlineConn turns read and write timeouts into per-operation deadlines.
// A write also pushes the read deadline forward, since the transport keeps a
// read pending while the body is still being uploaded.
type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	now := time.Now()
	if c.write > 0 {
		if err := c.Conn.SetWriteDeadline(now.Add(c.write)); err != nil {
			return 0, err
		}
	}
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(now.Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}
