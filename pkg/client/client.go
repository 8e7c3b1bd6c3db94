// Package client executes declarative HTTP requests over a pluggable
// transport and returns normalized responses.
//
// An execution runs on the caller's goroutine and blocks until the response
// head has arrived:
//
//  1. the pre-execution interceptor derives the request to send,
//  2. client default headers and parameters are merged in,
//  3. the per-call middleware chain runs,
//  4. the entity decides between Content-Length and chunked framing,
//  5. a connection is opened, configured and given the method and headers,
//  6. the body is streamed, with progress reporting when requested,
//  7. the reply is decoded, including transparent gzip decompression.
//
// Non-2xx responses are returned as responses, not errors. Transport, write
// and decode failures are returned unchanged.
package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/jaxron/nexthttp/pkg/client/errors"
	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/middleware"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
	"github.com/jaxron/nexthttp/pkg/client/transport"
)

// Client executes requests. It is safe for concurrent use; configuration
// setters may be called while requests are in flight.
type Client struct {
	middlewareChain *middleware.Chain
	opener          transport.Opener
	config          configStore
	marshalFunc     MarshalFunc
	unmarshalFunc   response.UnmarshalFunc
}

var (
	defaultClient     *Client
	defaultClientOnce sync.Once
)

// Default returns the process-wide client. It is created on first use and
// lives for the rest of the process; it is never reset.
func Default() *Client {
	defaultClientOnce.Do(func() {
		defaultClient = NewClient()
	})
	return defaultClient
}

// NewClient creates a new Client instance with default settings.
func NewClient(opts ...Option) *Client {
	client := &Client{
		middlewareChain: middleware.NewChain(&logger.NoOpLogger{}),
		opener:          nil,
		config: configStore{
			cfg: Config{
				Header: make(http.Header),
			},
		},
		marshalFunc:   sonic.Marshal,
		unmarshalFunc: sonic.Unmarshal,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.opener == nil {
		opener, err := transport.NewHTTPOpener(nil)
		if err != nil {
			panic(err)
		}
		client.opener = opener
	}

	return client
}

// Execute runs req and returns the normalized response. req itself is never
// modified.
func (c *Client) Execute(ctx context.Context, req *request.Request) (*response.Response, error) {
	if req == nil {
		return nil, errors.ErrNilRequest
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := c.config.snapshot()

	req = middleware.Intercept(cfg.Interceptor, req.Clone())
	req = applyDefaults(req, cfg)

	debug := cfg.Debug || req.Debug()
	if debug {
		cfg.Settings.NetworkInterceptors = append(cfg.Settings.NetworkInterceptors, wireLogger(c.middlewareChain.Logger()))
	}

	chain := c.middlewareChain
	if listener := req.Listener(); listener != nil {
		chain = chain.With(newListenerMiddleware(listener))
	}

	return chain.Process(ctx, req, func(ctx context.Context, req *request.Request) (*response.Response, error) {
		return c.exchange(ctx, req, cfg, debug)
	})
}

// exchange drives one connection from negotiation to decoded response.
func (c *Client) exchange(ctx context.Context, req *request.Request, cfg Config, debug bool) (*response.Response, error) {
	req, entity, err := negotiate(req)
	if err != nil {
		return nil, err
	}

	log := c.middlewareChain.Logger()
	if debug {
		log.WithFields(
			logger.String("request", req.String()),
			logger.Int("len_headers", len(req.Header())),
			logger.Bool("has_entity", entity != nil),
		).Debug("Request")
	}

	conn, err := connect(ctx, c.opener, req, cfg)
	if err != nil {
		return nil, err
	}
	if err := writeHeaders(conn, req); err != nil {
		return nil, err
	}
	if entity != nil {
		if err := writeBody(conn, entity, req.Progress()); err != nil {
			return nil, err
		}
	}

	resp, err := decode(conn)
	if err != nil {
		return nil, err
	}

	if debug {
		log.WithFields(logger.String("response", resp.Describe())).Debug("Response")
	}
	return resp, nil
}

// Head performs a HEAD request with optional query parameters and headers.
func (c *Client) Head(ctx context.Context, url string, query request.Params, header http.Header) (*response.Response, error) {
	return c.Request(ctx, http.MethodHead, url, query, header)
}

// Get performs a GET request with optional query parameters and headers.
func (c *Client) Get(ctx context.Context, url string, query request.Params, header http.Header) (*response.Response, error) {
	return c.Request(ctx, http.MethodGet, url, query, header)
}

// Delete performs a DELETE request with optional query parameters and headers.
func (c *Client) Delete(ctx context.Context, url string, query request.Params, header http.Header) (*response.Response, error) {
	return c.Request(ctx, http.MethodDelete, url, query, header)
}

// Post sends form as a url-encoded body.
func (c *Client) Post(ctx context.Context, url string, form request.Params, header http.Header) (*response.Response, error) {
	return c.Request(ctx, http.MethodPost, url, form, header)
}

// Put sends form as a url-encoded body.
func (c *Client) Put(ctx context.Context, url string, form request.Params, header http.Header) (*response.Response, error) {
	return c.Request(ctx, http.MethodPut, url, form, header)
}

// Patch sends form as a url-encoded body.
func (c *Client) Patch(ctx context.Context, url string, form request.Params, header http.Header) (*response.Response, error) {
	return c.Request(ctx, http.MethodPatch, url, form, header)
}

// Request builds and executes a request. params become the form body for
// methods that carry one and the query string otherwise.
func (c *Client) Request(ctx context.Context, method, url string, params request.Params, header http.Header) (*response.Response, error) {
	req := request.New(method, url).WithHeaders(header)
	if request.SupportsBody(req.Method()) {
		req = req.WithFormParams(params)
	} else {
		req = req.WithQueryParams(params)
	}
	return c.Execute(ctx, req)
}

// Logger returns the logger shared by the client and its middlewares.
func (c *Client) Logger() logger.Logger {
	return c.middlewareChain.Logger()
}
