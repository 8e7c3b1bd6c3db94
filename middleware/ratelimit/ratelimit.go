package ratelimit

import (
	"context"
	"fmt"

	clientErrors "github.com/jaxron/nexthttp/pkg/client/errors"
	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/middleware"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
	"golang.org/x/time/rate"
)

var ErrRateLimitExceeded = clientErrors.ErrRateLimitExceeded

// RateLimiterMiddleware delays requests to stay within a token bucket rate.
type RateLimiterMiddleware struct {
	limiter *rate.Limiter
	logger  logger.Logger
}

// New creates a new RateLimiterMiddleware instance.
func New(requestsPerSecond float64, burst int) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		logger:  &logger.NoOpLogger{},
	}
}

// Process waits for a token before passing the request to the next
// middleware. A context that is already done is reported as is; a deadline
// that would expire while waiting is reported as ErrRateLimitExceeded.
func (m *RateLimiterMiddleware) Process(ctx context.Context, req *request.Request, next middleware.NextFunc) (*response.Response, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		m.logger.WithFields(logger.Err(err)).Debug("Rate limit wait rejected")
		return nil, fmt.Errorf("%w: %w", ErrRateLimitExceeded, err)
	}

	// Execute the next middleware in the chain
	return next(ctx, req)
}

// SetLogger sets the logger for the middleware.
func (m *RateLimiterMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
