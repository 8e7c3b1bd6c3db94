package header_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jaxron/nexthttp/middleware/header"
	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("Apply headers to request", func(t *testing.T) {
		t.Parallel()

		headers := http.Header{
			"User-Agent": []string{"TestAgent/1.0"},
			"X-Custom":   []string{"Value1", "Value2"},
		}

		middleware := header.New(headers)
		middleware.SetLogger(logger.NewBasicLogger())

		var sent *request.Request
		resp, err := middleware.Process(context.Background(), request.Get("http://example.com"),
			func(_ context.Context, req *request.Request) (*response.Response, error) {
				sent = req
				return response.New(http.StatusOK, "OK", 0, "", nil, nil), nil
			})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		assert.Equal(t, "TestAgent/1.0", sent.HeaderValue("User-Agent"))
		assert.Equal(t, "Value2", sent.HeaderValue("X-Custom"))
	})

	t.Run("Overwrite existing headers", func(t *testing.T) {
		t.Parallel()

		middleware := header.New(http.Header{"X-Existing": []string{"NewValue"}})

		req := request.Get("http://example.com").WithHeader("X-Existing", "OriginalValue")
		out := middleware.Intercept(req)

		assert.Equal(t, "NewValue", out.HeaderValue("X-Existing"))
		assert.Equal(t, "OriginalValue", req.HeaderValue("X-Existing"))
	})

	t.Run("Keep existing headers when asked", func(t *testing.T) {
		t.Parallel()

		middleware := header.NewIfAbsent(http.Header{
			"Authorization": []string{"Bearer default"},
			"X-Added":       []string{"yes"},
		})

		out := middleware.Intercept(request.Get("http://example.com").WithHeader("Authorization", "Bearer caller"))

		assert.Equal(t, "Bearer caller", out.HeaderValue("Authorization"))
		assert.Equal(t, "yes", out.HeaderValue("X-Added"))
	})

	t.Run("Empty headers", func(t *testing.T) {
		t.Parallel()

		middleware := header.New(http.Header{})

		req := request.Get("http://example.com").WithHeader("X-A", "1")
		out := middleware.Intercept(req)
		assert.Equal(t, req.Header(), out.Header())
	})

	t.Run("Changing the source header later has no effect", func(t *testing.T) {
		t.Parallel()

		headers := http.Header{"X-Token": []string{"a"}}
		middleware := header.New(headers)
		headers.Set("X-Token", "b")

		assert.Equal(t, "a", middleware.Intercept(request.Get("http://example.com")).HeaderValue("X-Token"))
	})
}
