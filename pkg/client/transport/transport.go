// Package transport defines the connection primitive the client drives and a
// default implementation on top of net/http.
//
// The client never speaks HTTP itself. For every execution it opens a Conn,
// configures it, sets the method and headers, optionally streams a body into
// it and finally asks it for the reply.
package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Direct is a proxy value that forces a direct connection.
var Direct = &url.URL{Scheme: "direct"}

// IsDirect reports whether proxy means "no proxy".
func IsDirect(proxy *url.URL) bool {
	return proxy == nil || proxy == Direct || proxy.Scheme == Direct.Scheme
}

// IsSuccess is the status classification shared by connections and the
// response decoder: only 2xx selects the success stream.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// NetworkInterceptor decorates the round tripper of a single connection.
// Interceptors see the request as it goes on the wire.
type NetworkInterceptor func(next http.RoundTripper) http.RoundTripper

// DialFunc opens the raw network connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Settings is the client-wide configuration applied to each connection
// before any header or body is written. A zero value means transport
// defaults.
type Settings struct {
	ConnectTimeout time.Duration
	// ReadTimeout and WriteTimeout bound each individual read or write on
	// the socket, not the exchange as a whole.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// TLSConfig carries certificates, root pools and hostname
	// verification (ServerName, VerifyConnection).
	TLSConfig *tls.Config
	// DialContext replaces the default socket dialer.
	DialContext DialFunc

	// NoFollowRedirects returns 3xx responses as they are.
	NoFollowRedirects bool
	Jar               http.CookieJar

	NetworkInterceptors []NetworkInterceptor
}

// Clone returns a copy whose slices and TLS config can be changed freely.
func (s Settings) Clone() Settings {
	c := s
	if s.TLSConfig != nil {
		c.TLSConfig = s.TLSConfig.Clone()
	}
	if s.NetworkInterceptors != nil {
		c.NetworkInterceptors = make([]NetworkInterceptor, len(s.NetworkInterceptors))
		copy(c.NetworkInterceptors, s.NetworkInterceptors)
	}
	return c
}

// Reply is what a connection returns once the response head is available.
// Exactly one of Body and ErrorBody is normally set, matching IsSuccess of
// StatusCode; either may be nil when the response has no body.
type Reply struct {
	StatusCode    int
	Message       string
	ContentLength int64
	Header        http.Header
	Body          io.ReadCloser
	ErrorBody     io.ReadCloser
}

// Opener opens connections.
type Opener interface {
	// Open prepares a connection to target, through proxy unless IsDirect
	// reports true for it.
	Open(ctx context.Context, target *url.URL, proxy *url.URL) (Conn, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, target *url.URL, proxy *url.URL) (Conn, error)

func (f OpenerFunc) Open(ctx context.Context, target *url.URL, proxy *url.URL) (Conn, error) {
	return f(ctx, target, proxy)
}

// Conn is a single request/response exchange. It is not safe for concurrent
// use and cannot be reused.
type Conn interface {
	// Configure applies settings. It must be called before SetMethod,
	// SetRequestHeader or OutputStream.
	Configure(settings Settings) error
	SetMethod(method string) error
	// SetRequestHeader sets key to value, replacing earlier values.
	// Content-Length and Transfer-Encoding control how the body is framed.
	SetRequestHeader(key, value string) error
	// OutputStream starts the exchange and returns the body sink. The
	// caller must close it before calling Exchange.
	OutputStream() (io.WriteCloser, error)
	// Exchange finishes the request and returns the reply head and body
	// streams.
	Exchange() (*Reply, error)
}
