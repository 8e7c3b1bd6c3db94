package singleflight

import (
	"bytes"
	"context"
	"io"
	"net/http"

	clientErrors "github.com/jaxron/nexthttp/pkg/client/errors"
	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/middleware"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
	"golang.org/x/sync/singleflight"
)

// SingleFlightMiddleware implements the singleflight pattern to deduplicate
// concurrent identical requests. Only requests without a body or a download
// listener are shared; every caller gets its own copy of the response.
type SingleFlightMiddleware struct {
	sfGroup *singleflight.Group
	logger  logger.Logger
}

// sharedResponse is a fully read response that can be handed out many times.
type sharedResponse struct {
	statusCode    int
	message       string
	contentLength int64
	contentType   string
	header        http.Header
	body          []byte
}

func (s *sharedResponse) copy() *response.Response {
	return response.New(
		s.statusCode,
		s.message,
		s.contentLength,
		s.contentType,
		s.header.Clone(),
		io.NopCloser(bytes.NewReader(s.body)),
	)
}

// New creates a new SingleFlightMiddleware instance.
func New() *SingleFlightMiddleware {
	return &SingleFlightMiddleware{
		sfGroup: &singleflight.Group{},
		logger:  &logger.NoOpLogger{},
	}
}

// Process applies the singleflight pattern before passing the request to the next middleware.
func (m *SingleFlightMiddleware) Process(ctx context.Context, req *request.Request, next middleware.NextFunc) (*response.Response, error) {
	// A listener reports this caller's download, which a shared body never has
	if req.Entity() != nil || req.Listener() != nil {
		return next(ctx, req)
	}

	// Generate a unique key for the request
	key, ok := req.Key()
	if !ok {
		return next(ctx, req)
	}

	// Use singleflight to execute the request
	result, err, shared := m.sfGroup.Do(key, func() (interface{}, error) {
		resp, err := next(ctx, req)
		if err != nil {
			return nil, err
		}

		body, err := resp.Bytes()
		if err != nil {
			return nil, err
		}
		return &sharedResponse{
			statusCode:    resp.StatusCode,
			message:       resp.Message,
			contentLength: resp.ContentLength,
			contentType:   resp.ContentType,
			header:        resp.Header,
			body:          body,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		m.logger.WithFields(logger.String("key", key)).Debug("Shared in-flight response")
	}

	// Type assertion to get the response
	sr, ok := result.(*sharedResponse)
	if !ok {
		return nil, clientErrors.ErrUnreachable
	}

	return sr.copy(), nil
}

// SetLogger sets the logger for the middleware.
func (m *SingleFlightMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
