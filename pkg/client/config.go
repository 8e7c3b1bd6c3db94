package client

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jaxron/nexthttp/pkg/client/middleware"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/transport"
)

// Config is the client-wide state read by every execution. Executions work
// on a deep copy taken when they start, so later setter calls never affect a
// request already in flight.
type Config struct {
	Params      request.Params
	Header      http.Header
	Debug       bool
	Proxy       *url.URL
	Settings    transport.Settings
	Interceptor middleware.Interceptor
}

func (c Config) clone() Config {
	out := c
	out.Params = c.Params.Clone()
	out.Header = c.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	if c.Proxy != nil {
		p := *c.Proxy
		out.Proxy = &p
	}
	out.Settings = c.Settings.Clone()
	return out
}

type configStore struct {
	mu  sync.RWMutex
	cfg Config
}

func (s *configStore) snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.clone()
}

func (s *configStore) update(fn func(cfg *Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
}

// Config returns a copy of the current client configuration.
func (c *Client) Config() Config {
	return c.config.snapshot()
}

// AddParam sets a default parameter sent with every request.
func (c *Client) AddParam(key, value string) *Client {
	c.config.update(func(cfg *Config) {
		cfg.Params = cfg.Params.Set(key, value)
	})
	return c
}

// AddParams sets several default parameters.
func (c *Client) AddParams(params map[string]string) *Client {
	c.config.update(func(cfg *Config) {
		for k, v := range params {
			cfg.Params = cfg.Params.Set(k, v)
		}
	})
	return c
}

// AddHeader sets a default header sent with every request.
func (c *Client) AddHeader(key, value string) *Client {
	c.config.update(func(cfg *Config) {
		if cfg.Header == nil {
			cfg.Header = make(http.Header)
		}
		cfg.Header.Set(key, value)
	})
	return c
}

// AddHeaders sets several default headers.
func (c *Client) AddHeaders(headers map[string]string) *Client {
	c.config.update(func(cfg *Config) {
		if cfg.Header == nil {
			cfg.Header = make(http.Header)
		}
		for k, v := range headers {
			cfg.Header.Set(k, v)
		}
	})
	return c
}

// SetDebug switches wire logging on for every request.
func (c *Client) SetDebug(debug bool) *Client {
	c.config.update(func(cfg *Config) { cfg.Debug = debug })
	return c
}

// SetProxy routes requests through proxy. nil or transport.Direct connects
// directly.
func (c *Client) SetProxy(proxy *url.URL) *Client {
	c.config.update(func(cfg *Config) { cfg.Proxy = proxy })
	return c
}

// SetInterceptor installs the pre-execution interceptor.
func (c *Client) SetInterceptor(i middleware.Interceptor) *Client {
	c.config.update(func(cfg *Config) { cfg.Interceptor = i })
	return c
}

func (c *Client) SetConnectTimeout(d time.Duration) *Client {
	c.config.update(func(cfg *Config) { cfg.Settings.ConnectTimeout = d })
	return c
}

func (c *Client) SetReadTimeout(d time.Duration) *Client {
	c.config.update(func(cfg *Config) { cfg.Settings.ReadTimeout = d })
	return c
}

func (c *Client) SetWriteTimeout(d time.Duration) *Client {
	c.config.update(func(cfg *Config) { cfg.Settings.WriteTimeout = d })
	return c
}

// SetTLSConfig sets certificates, root pools and hostname verification.
func (c *Client) SetTLSConfig(tlsConfig *tls.Config) *Client {
	c.config.update(func(cfg *Config) {
		if tlsConfig == nil {
			cfg.Settings.TLSConfig = nil
			return
		}
		cfg.Settings.TLSConfig = tlsConfig.Clone()
	})
	return c
}

// SetDialContext replaces the socket dialer.
func (c *Client) SetDialContext(dial transport.DialFunc) *Client {
	c.config.update(func(cfg *Config) { cfg.Settings.DialContext = dial })
	return c
}

func (c *Client) SetFollowRedirects(follow bool) *Client {
	c.config.update(func(cfg *Config) { cfg.Settings.NoFollowRedirects = !follow })
	return c
}

func (c *Client) SetCookieJar(jar http.CookieJar) *Client {
	c.config.update(func(cfg *Config) { cfg.Settings.Jar = jar })
	return c
}

// AddNetworkInterceptor appends an interceptor applied to every connection.
func (c *Client) AddNetworkInterceptor(ni transport.NetworkInterceptor) *Client {
	c.config.update(func(cfg *Config) {
		cfg.Settings.NetworkInterceptors = append(cfg.Settings.NetworkInterceptors, ni)
	})
	return c
}

// AcceptGzipEncoding asks servers for gzip bodies. They are decoded
// transparently.
func (c *Client) AcceptGzipEncoding() *Client {
	return c.AddHeader(request.HeaderAcceptEncoding, "gzip")
}

func (c *Client) SetUserAgent(userAgent string) *Client {
	return c.AddHeader(request.HeaderUserAgent, userAgent)
}

func (c *Client) SetAuthorization(authorization string) *Client {
	return c.AddHeader(request.HeaderAuthorization, authorization)
}

func (c *Client) SetReferer(referer string) *Client {
	return c.AddHeader(request.HeaderReferer, referer)
}
