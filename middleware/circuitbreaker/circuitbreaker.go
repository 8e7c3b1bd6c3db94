package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	clientErrors "github.com/jaxron/nexthttp/pkg/client/errors"
	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/middleware"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
	"github.com/sony/gobreaker"
)

var (
	ErrCircuitOpen      = clientErrors.ErrCircuitOpen
	ErrCircuitExhausted = clientErrors.ErrCircuitExhausted
)

// errServerFailure marks a 5xx response so the breaker counts it as a
// failure. It never leaves this package.
var errServerFailure = errors.New("server error status")

// CircuitBreakerMiddleware implements the circuit breaker pattern to prevent cascading failures.
type CircuitBreakerMiddleware struct {
	breaker *gobreaker.CircuitBreaker
	logger  logger.Logger
}

// New creates a new CircuitBreakerMiddleware instance.
func New(maxRequests uint32, interval, timeout time.Duration) *CircuitBreakerMiddleware {
	middleware := &CircuitBreakerMiddleware{
		breaker: nil,
		logger:  &logger.NoOpLogger{},
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "HTTPCircuitBreaker",
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			middleware.logger.WithFields(
				logger.String("name", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			).Warn("Circuit breaker state changed")
		},
		IsSuccessful: nil,
	})
	middleware.breaker = breaker

	return middleware
}

// Process applies the circuit breaker before passing the request to the next
// middleware. Errors and 5xx responses count as failures, but a 5xx response
// is still handed back to the caller.
func (m *CircuitBreakerMiddleware) Process(ctx context.Context, req *request.Request, next middleware.NextFunc) (*response.Response, error) {
	result, err := m.breaker.Execute(func() (interface{}, error) {
		resp, err := next(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errServerFailure
		}
		return resp, nil
	})

	switch {
	case err == nil, errors.Is(err, errServerFailure):
	case errors.Is(err, gobreaker.ErrOpenState):
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %w", ErrCircuitExhausted, err)
	default:
		return nil, err
	}

	// Type assertion to get the response
	resp, ok := result.(*response.Response)
	if !ok {
		return nil, clientErrors.ErrUnreachable
	}

	return resp, nil
}

// State returns the current breaker state.
func (m *CircuitBreakerMiddleware) State() gobreaker.State {
	return m.breaker.State()
}

// SetLogger sets the logger for the middleware.
func (m *CircuitBreakerMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
