package middleware

import (
	"context"
	"reflect"

	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
)

// Chain represents an ordered chain of middleware. The first middleware is
// the outermost one.
type Chain struct {
	middlewares []Middleware
	logger      logger.Logger
}

// NewChain creates a new middleware chain.
func NewChain(l logger.Logger, middlewares ...Middleware) *Chain {
	if l == nil {
		l = &logger.NoOpLogger{}
	}
	c := &Chain{logger: l}
	c.Then(middlewares...)
	return c
}

// Len returns the number of middlewares in the chain.
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Middlewares returns a copy of the middlewares in order.
func (c *Chain) Middlewares() []Middleware {
	out := make([]Middleware, len(c.middlewares))
	copy(out, c.middlewares)
	return out
}

// Then adds middleware to the chain. A middleware whose type is already
// present replaces the earlier one in place; new types are appended.
func (c *Chain) Then(middlewares ...Middleware) {
	for _, m := range middlewares {
		if m == nil {
			continue
		}
		m.SetLogger(c.logger)

		replaced := false
		for i, existing := range c.middlewares {
			if reflect.TypeOf(existing) == reflect.TypeOf(m) {
				c.middlewares[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			c.middlewares = append(c.middlewares, m)
		}
	}
}

// With returns a new chain holding c's middlewares followed by extra. c is
// not modified, so the result can be scoped to a single execution.
func (c *Chain) With(extra ...Middleware) *Chain {
	out := &Chain{
		middlewares: make([]Middleware, 0, len(c.middlewares)+len(extra)),
		logger:      c.logger,
	}
	out.middlewares = append(out.middlewares, c.middlewares...)
	for _, m := range extra {
		if m == nil {
			continue
		}
		m.SetLogger(c.logger)
		out.middlewares = append(out.middlewares, m)
	}
	return out
}

// Process runs the request through all middleware in the chain and hands it
// to final at the end.
func (c *Chain) Process(ctx context.Context, req *request.Request, final NextFunc) (*response.Response, error) {
	// If no middlewares are defined, perform the request immediately
	if len(c.middlewares) == 0 {
		return final(ctx, req)
	}

	c.logMiddlewareChain()
	return c.processMiddleware(ctx, req, 0, final)
}

// logMiddlewareChain logs the available middleware in the chain.
func (c *Chain) logMiddlewareChain() {
	for i, m := range c.middlewares {
		c.logger.WithFields(
			logger.Int("index", i),
			logger.String("type", reflect.TypeOf(m).String()),
		).Debug("Middleware in chain")
	}
}

// processMiddleware recursively applies each middleware in the chain.
func (c *Chain) processMiddleware(ctx context.Context, req *request.Request, index int, final NextFunc) (*response.Response, error) {
	// If we've reached the end of the middleware chain, perform the request
	if index == len(c.middlewares) {
		return final(ctx, req)
	}

	// Otherwise, apply the middleware and continue
	return c.middlewares[index].Process(ctx, req, func(ctx context.Context, req *request.Request) (*response.Response, error) {
		return c.processMiddleware(ctx, req, index+1, final)
	})
}

// SetLogger updates the logger for all middleware in the chain.
func (c *Chain) SetLogger(l logger.Logger) {
	for _, m := range c.middlewares {
		m.SetLogger(l)
	}
	c.logger = l
}

// Logger returns the chain's logger.
func (c *Chain) Logger() logger.Logger {
	return c.logger
}
