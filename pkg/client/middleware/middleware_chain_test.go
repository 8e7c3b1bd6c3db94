package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/middleware"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMiddleware is a mock implementation of the middleware.Middleware interface.
type MockMiddleware struct {
	mock.Mock
}

func (m *MockMiddleware) Process(ctx context.Context, req *request.Request, next middleware.NextFunc) (*response.Response, error) {
	args := m.Called(ctx, req, next)
	return args.Get(0).(*response.Response), args.Error(1)
}

func (m *MockMiddleware) SetLogger(l logger.Logger) {
	m.Called(l)
}

// tagMiddleware records its name on the way in and out.
type tagMiddleware struct {
	name  string
	trace *[]string
}

func (m *tagMiddleware) Process(ctx context.Context, req *request.Request, next middleware.NextFunc) (*response.Response, error) {
	*m.trace = append(*m.trace, m.name+">")
	resp, err := next(ctx, req.WithHeader("X-Seen-"+m.name, "1"))
	*m.trace = append(*m.trace, "<"+m.name)
	return resp, err
}

func (m *tagMiddleware) SetLogger(_ logger.Logger) {}

type otherTag struct{ tagMiddleware }

func okFinal(trace *[]string) middleware.NextFunc {
	return func(_ context.Context, req *request.Request) (*response.Response, error) {
		*trace = append(*trace, "final")
		return response.New(http.StatusOK, "OK", 0, "", req.Header(), nil), nil
	}
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var trace []string
	chain := middleware.NewChain(&logger.NoOpLogger{},
		&tagMiddleware{name: "a", trace: &trace},
		&otherTag{tagMiddleware{name: "b", trace: &trace}},
	)

	resp, err := chain.Process(context.Background(), request.Get("http://h"), okFinal(&trace))
	require.NoError(t, err)

	assert.Equal(t, []string{"a>", "b>", "final", "<b", "<a"}, trace)
	assert.Equal(t, "1", resp.Header.Get("X-Seen-a"))
	assert.Equal(t, "1", resp.Header.Get("X-Seen-b"))
}

func TestChainThenReplacesSameType(t *testing.T) {
	t.Parallel()

	var trace []string
	first := &tagMiddleware{name: "first", trace: &trace}
	second := &otherTag{tagMiddleware{name: "second", trace: &trace}}
	replacement := &tagMiddleware{name: "replacement", trace: &trace}

	chain := middleware.NewChain(nil, first, second)
	chain.Then(replacement)

	require.Equal(t, 2, chain.Len())
	assert.Same(t, replacement, chain.Middlewares()[0])
	assert.Same(t, second, chain.Middlewares()[1])
}

func TestChainWith(t *testing.T) {
	t.Parallel()

	var trace []string
	chain := middleware.NewChain(nil, &tagMiddleware{name: "base", trace: &trace})
	scoped := chain.With(&otherTag{tagMiddleware{name: "extra", trace: &trace}})

	assert.Equal(t, 1, chain.Len())
	assert.Equal(t, 2, scoped.Len())

	_, err := scoped.Process(context.Background(), request.Get("http://h"), okFinal(&trace))
	require.NoError(t, err)
	assert.Equal(t, []string{"base>", "extra>", "final", "<extra", "<base"}, trace)
}

func TestChainError(t *testing.T) {
	t.Parallel()

	errStop := errors.New("stop")
	mockMiddleware := new(MockMiddleware)
	mockMiddleware.On("SetLogger", mock.Anything).Return()
	mockMiddleware.On("Process", mock.Anything, mock.Anything, mock.Anything).Return((*response.Response)(nil), errStop)

	chain := middleware.NewChain(&logger.NoOpLogger{}, mockMiddleware)

	finalCalled := false
	resp, err := chain.Process(context.Background(), request.Get("http://h"), func(context.Context, *request.Request) (*response.Response, error) {
		finalCalled = true
		return nil, nil
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, errStop)
	assert.False(t, finalCalled)
	mockMiddleware.AssertExpectations(t)
}

func TestChainSetLogger(t *testing.T) {
	t.Parallel()

	l := logger.NewBasicLogger()
	mockMiddleware := new(MockMiddleware)
	mockMiddleware.On("SetLogger", mock.Anything).Return()

	chain := middleware.NewChain(nil, mockMiddleware)
	chain.SetLogger(l)

	assert.Same(t, l, chain.Logger())
	mockMiddleware.AssertCalled(t, "SetLogger", l)
}

func TestIntercept(t *testing.T) {
	t.Parallel()

	req := request.Get("http://h")
	assert.Same(t, req, middleware.Intercept(nil, req))
	assert.Same(t, req, middleware.Intercept(middleware.InterceptorFunc(func(*request.Request) *request.Request {
		return nil
	}), req))

	derived := middleware.Intercept(middleware.InterceptorFunc(func(r *request.Request) *request.Request {
		return r.WithHeader("X-Token", "t")
	}), req)
	assert.Equal(t, "t", derived.HeaderValue("X-Token"))
	assert.False(t, req.HasHeader("X-Token"))
}
