package singleflight_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaxron/nexthttp/middleware/singleflight"
	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNetwork = errors.New("network down")

// countingHandler answers after a short delay and counts how often it ran.
func countingHandler(count *atomic.Int32) func(context.Context, *request.Request) (*response.Response, error) {
	return func(_ context.Context, req *request.Request) (*response.Response, error) {
		count.Add(1)
		time.Sleep(100 * time.Millisecond) // Simulate work
		return response.New(http.StatusOK, "OK", -1, "text/plain", http.Header{"X-Url": {req.URL()}},
			io.NopCloser(strings.NewReader("payload"))), nil
	}
}

func TestSingleFlightMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("Deduplicate concurrent identical requests", func(t *testing.T) {
		t.Parallel()

		middleware := singleflight.New()
		middleware.SetLogger(logger.NewBasicLogger())

		var count atomic.Int32
		handler := countingHandler(&count)

		var wg sync.WaitGroup
		bodies := make([]string, 5)
		for i := range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				resp, err := middleware.Process(context.Background(), request.Get("http://example.com"), handler)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				bodies[i], err = resp.String()
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), count.Load(), "Expected only one request to be processed")
		for _, body := range bodies {
			assert.Equal(t, "payload", body, "Every caller reads its own copy of the body")
		}
	})

	t.Run("Different requests are not deduplicated", func(t *testing.T) {
		t.Parallel()

		middleware := singleflight.New()

		var count atomic.Int32
		handler := countingHandler(&count)

		var wg sync.WaitGroup
		urls := []string{"http://example.com/1", "http://example.com/2", "http://example.com/3"}
		for _, url := range urls {
			wg.Add(1)
			go func() {
				defer wg.Done()
				resp, err := middleware.Process(context.Background(), request.Get(url), handler)
				if assert.NoError(t, err) {
					assert.Equal(t, url, resp.Header.Get("X-Url"))
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(len(urls)), count.Load(), "Expected each different request to be processed")
	})

	t.Run("Different credentials are not deduplicated", func(t *testing.T) {
		t.Parallel()

		middleware := singleflight.New()

		var count atomic.Int32
		handler := func(_ context.Context, req *request.Request) (*response.Response, error) {
			count.Add(1)
			time.Sleep(100 * time.Millisecond) // Keep both calls in flight
			return response.New(http.StatusOK, "OK", -1, "text/plain", nil,
				io.NopCloser(strings.NewReader("secret-for:"+req.HeaderValue(request.HeaderAuthorization)))), nil
		}

		var wg sync.WaitGroup
		users := []string{"alice", "bob"}
		bodies := make([]string, len(users))
		for i, user := range users {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := request.Get("http://example.com/private").WithHeader(request.HeaderAuthorization, user)
				resp, err := middleware.Process(context.Background(), req, handler)
				if !assert.NoError(t, err) {
					return
				}
				bodies[i], err = resp.String()
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(2), count.Load())
		assert.Equal(t, []string{"secret-for:alice", "secret-for:bob"}, bodies)
	})

	t.Run("Requests with a download listener are never shared", func(t *testing.T) {
		t.Parallel()

		middleware := singleflight.New()

		var count atomic.Int32
		handler := countingHandler(&count)

		var wg sync.WaitGroup
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := request.Get("http://example.com").WithListener(func(int64, int64) {})
				_, err := middleware.Process(context.Background(), req, handler)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(3), count.Load())
	})

	t.Run("Requests with bodies are never shared", func(t *testing.T) {
		t.Parallel()

		middleware := singleflight.New()

		var count atomic.Int32
		handler := countingHandler(&count)

		var wg sync.WaitGroup
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := request.Post("http://example.com").WithEntity(request.NewString("same body", ""))
				_, err := middleware.Process(context.Background(), req, handler)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(3), count.Load())
	})

	t.Run("Error handling", func(t *testing.T) {
		t.Parallel()

		middleware := singleflight.New()

		handler := func(context.Context, *request.Request) (*response.Response, error) {
			return nil, errNetwork
		}

		resp, err := middleware.Process(context.Background(), request.Get("http://example.com"), handler)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, errNetwork, err)
	})
}
