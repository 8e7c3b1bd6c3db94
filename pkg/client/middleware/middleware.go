package middleware

import (
	"context"

	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
)

// NextFunc is a function type that represents the next middleware in the chain.
type NextFunc func(context.Context, *request.Request) (*response.Response, error)

// Middleware interface for all middleware components layered around an execution.
type Middleware interface {
	Process(ctx context.Context, req *request.Request, next NextFunc) (*response.Response, error)
	SetLogger(l logger.Logger)
}

// Interceptor is invoked once per logical request, before any connection is
// opened. It returns the request to execute; nil keeps req unchanged.
type Interceptor interface {
	Intercept(req *request.Request) *request.Request
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(req *request.Request) *request.Request

func (f InterceptorFunc) Intercept(req *request.Request) *request.Request {
	return f(req)
}

// Intercept runs i on req, tolerating a nil interceptor and a nil result.
func Intercept(i Interceptor, req *request.Request) *request.Request {
	if i == nil {
		return req
	}
	if out := i.Intercept(req); out != nil {
		return out
	}
	return req
}
