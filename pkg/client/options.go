package client

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/middleware"
	"github.com/jaxron/nexthttp/pkg/client/response"
	"github.com/jaxron/nexthttp/pkg/client/transport"
)

// MarshalFunc is a function type that matches standard marshal functions.
type MarshalFunc func(interface{}) ([]byte, error)

// Option is a function type that modifies the Client configuration.
type Option func(*Client)

// WithMiddleware adds or replaces a middleware. Middlewares run in the order
// they were added; the first one is the outermost.
func WithMiddleware(m middleware.Middleware) Option {
	return func(c *Client) {
		c.middlewareChain.Then(m)
	}
}

// WithInterceptor sets the pre-execution interceptor.
func WithInterceptor(i middleware.Interceptor) Option {
	return func(c *Client) {
		c.SetInterceptor(i)
	}
}

// WithOpener replaces the transport used to open connections.
func WithOpener(opener transport.Opener) Option {
	return func(c *Client) {
		c.opener = opener
	}
}

// WithConnectTimeout bounds connection establishment, including the TLS
// handshake.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.SetConnectTimeout(timeout)
	}
}

// WithReadTimeout bounds each read from the socket.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.SetReadTimeout(timeout)
	}
}

// WithWriteTimeout bounds each write to the socket.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.SetWriteTimeout(timeout)
	}
}

// WithTimeout sets connect, read and write timeouts at once.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.SetConnectTimeout(timeout).SetReadTimeout(timeout).SetWriteTimeout(timeout)
	}
}

// WithTLSConfig sets the TLS configuration.
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(c *Client) {
		c.SetTLSConfig(tlsConfig)
	}
}

// WithProxy routes requests through proxy.
func WithProxy(proxy *url.URL) Option {
	return func(c *Client) {
		c.SetProxy(proxy)
	}
}

// WithFollowRedirects controls whether redirects are followed.
func WithFollowRedirects(follow bool) Option {
	return func(c *Client) {
		c.SetFollowRedirects(follow)
	}
}

// WithCookieJar sets the cookie jar.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.SetCookieJar(jar)
	}
}

// WithDebug enables wire logging for every request.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.SetDebug(debug)
	}
}

// WithHeader sets a default header.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.AddHeader(key, value)
	}
}

// WithParam sets a default parameter.
func WithParam(key, value string) Option {
	return func(c *Client) {
		c.AddParam(key, value)
	}
}

// WithLogger sets the logger for the Client and its middleware.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.middlewareChain.SetLogger(l)
	}
}

// WithMarshalFunc sets the marshal function for the Client.
func WithMarshalFunc(fn MarshalFunc) Option {
	return func(c *Client) {
		c.marshalFunc = fn
	}
}

// WithUnmarshalFunc sets the unmarshal function for the Client.
func WithUnmarshalFunc(fn response.UnmarshalFunc) Option {
	return func(c *Client) {
		c.unmarshalFunc = fn
	}
}
