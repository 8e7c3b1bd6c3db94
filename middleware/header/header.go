package header

import (
	"context"
	"net/http"

	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/middleware"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
)

// HeaderMiddleware adds headers to requests. It works both as the client's
// pre-execution interceptor and as a chain middleware.
type HeaderMiddleware struct {
	headers  http.Header
	ifAbsent bool
	logger   logger.Logger
}

// New creates a HeaderMiddleware that overwrites existing values.
func New(headers http.Header) *HeaderMiddleware {
	return &HeaderMiddleware{
		headers:  headers.Clone(),
		ifAbsent: false,
		logger:   &logger.NoOpLogger{},
	}
}

// NewIfAbsent creates a HeaderMiddleware that leaves headers the request
// already carries alone.
func NewIfAbsent(headers http.Header) *HeaderMiddleware {
	m := New(headers)
	m.ifAbsent = true
	return m
}

// Intercept returns req with the headers applied. The last value of a
// multi-valued header is used, as a request holds one value per key.
func (m *HeaderMiddleware) Intercept(req *request.Request) *request.Request {
	applied := 0
	for key, values := range m.headers {
		if len(values) == 0 || (m.ifAbsent && req.HasHeader(key)) {
			continue
		}
		req = req.WithHeader(key, values[len(values)-1])
		applied++
	}

	m.logger.WithFields(logger.Int("applied", applied)).Debug("Headers applied")
	return req
}

// Process applies headers to the request before passing it to the next middleware.
func (m *HeaderMiddleware) Process(ctx context.Context, req *request.Request, next middleware.NextFunc) (*response.Response, error) {
	return next(ctx, m.Intercept(req))
}

// SetLogger sets the logger for the middleware.
func (m *HeaderMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
