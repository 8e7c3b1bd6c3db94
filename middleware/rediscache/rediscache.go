package rediscache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/middleware"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
	"github.com/redis/rueidis"
)

// SkipCacheKey is a context key; a true value bypasses the cache for that
// request.
type SkipCacheKey struct{}

var errNoClient = errors.New("redis client not configured")

// RedisCacheMiddleware caches successful GET responses in Redis.
type RedisCacheMiddleware struct {
	client     rueidis.Client
	logger     logger.Logger
	expiration time.Duration
	pending    sync.WaitGroup
}

// CachedResponse represents the structure of a cached response. The body is
// stored decoded, so no content encoding survives a round trip through the
// cache.
type CachedResponse struct {
	StatusCode  int         `json:"statusCode"`
	Message     string      `json:"message"`
	ContentType string      `json:"contentType"`
	Header      http.Header `json:"header"`
	Body        []byte      `json:"body"`
}

// New creates a new RedisCacheMiddleware using an existing Redis client.
func New(redisClient rueidis.Client, expiration time.Duration) *RedisCacheMiddleware {
	return &RedisCacheMiddleware{
		client:     redisClient,
		logger:     &logger.NoOpLogger{},
		expiration: expiration,
	}
}

// NewWithOptions connects to Redis and creates a RedisCacheMiddleware.
func NewWithOptions(clientOptions rueidis.ClientOption, expiration time.Duration) (*RedisCacheMiddleware, error) {
	client, err := rueidis.NewClient(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}
	return New(client, expiration), nil
}

// Process implements the middleware.Middleware interface.
func (m *RedisCacheMiddleware) Process(ctx context.Context, req *request.Request, next middleware.NextFunc) (*response.Response, error) {
	// Check if caching should be skipped
	if skipCache, ok := ctx.Value(SkipCacheKey{}).(bool); ok && skipCache {
		return next(ctx, req)
	}
	if req.Method() != http.MethodGet {
		return next(ctx, req)
	}

	key, ok := m.GenerateKey(req)
	if !ok {
		return next(ctx, req)
	}

	// Try to get the cached response
	cachedResp, err := m.getFromCache(ctx, key)
	if err == nil {
		m.logger.WithFields(logger.String("key", key)).Debug("Cache hit")
		return m.ReconstructResponse(cachedResp), nil
	}
	if !rueidis.IsRedisNil(err) {
		m.logger.WithFields(logger.Err(err)).Warn("Failed to read cached response")
	}

	// Cache miss, proceed with the request
	resp, err := next(ctx, req)
	if err != nil {
		return resp, err
	}

	// Only cache successful responses
	if !resp.IsSuccess() {
		return resp, nil
	}

	bodyBytes, err := resp.Buffer()
	if err != nil {
		return resp, err
	}
	if !m.ShouldCacheResponse(resp, bodyBytes) {
		return resp, nil
	}

	// Cache the response after the caller is done with ctx
	cachedResp = NewCachedResponse(resp, bodyBytes)
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		m.cacheResponse(context.WithoutCancel(ctx), key, cachedResp)
	}()

	return resp, nil
}

// Close waits for pending cache writes and closes the Redis client.
func (m *RedisCacheMiddleware) Close() {
	m.pending.Wait()
	if m.client != nil {
		m.client.Close()
	}
}

// SetLogger sets the logger for the middleware.
func (m *RedisCacheMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}

// GenerateKey creates a cache key from the request method, URL, headers and
// body. Authorization is part of the key, so responses are never shared
// between credentials.
func (m *RedisCacheMiddleware) GenerateKey(req *request.Request) (string, bool) {
	key, ok := req.Key()
	if !ok {
		return "", false
	}
	return "cache:" + key, true
}

// ShouldCacheResponse reports whether a body is worth caching. A response
// declaring JSON must carry a valid JSON document.
func (m *RedisCacheMiddleware) ShouldCacheResponse(resp *response.Response, body []byte) bool {
	contentType := resp.ContentType
	if contentType == "" {
		contentType = resp.Header.Get(request.HeaderContentType)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return true
	}
	return sonic.Valid(body)
}

// getFromCache retrieves a cached response from Redis.
func (m *RedisCacheMiddleware) getFromCache(ctx context.Context, key string) (*CachedResponse, error) {
	if m.client == nil {
		return nil, errNoClient
	}

	cmd := m.client.B().Get().Key(key).Build()
	result, err := m.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		return nil, err
	}

	var cachedResp CachedResponse
	err = sonic.Unmarshal(result, &cachedResp)
	if err != nil {
		return nil, err
	}

	return &cachedResp, nil
}

// NewCachedResponse snapshots resp for storage. The header is copied, so the
// caller may keep modifying the response.
func NewCachedResponse(resp *response.Response, body []byte) *CachedResponse {
	return &CachedResponse{
		StatusCode:  resp.StatusCode,
		Message:     resp.Message,
		ContentType: resp.ContentType,
		Header:      resp.Header.Clone(),
		Body:        body,
	}
}

// cacheResponse stores the response in Redis.
func (m *RedisCacheMiddleware) cacheResponse(ctx context.Context, key string, cachedResp *CachedResponse) {
	if m.client == nil {
		return
	}

	jsonData, err := sonic.Marshal(cachedResp)
	if err != nil {
		m.logger.WithFields(logger.Err(err)).Error("Failed to marshal cached response")
		return
	}

	cmd := m.client.B().Set().Key(key).Value(rueidis.BinaryString(jsonData)).Ex(m.expiration).Build()
	err = m.client.Do(ctx, cmd).Error()
	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.WithFields(logger.Err(err)).Error("Failed to cache response")
	}
}

// ReconstructResponse creates a response from a cached one. Encoding and
// length headers describe the original wire body, so they are replaced to
// match the stored decoded body.
func (m *RedisCacheMiddleware) ReconstructResponse(cachedResp *CachedResponse) *response.Response {
	header := cachedResp.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Del(request.HeaderContentEncoding)
	header.Del(request.HeaderTransferEncoding)
	header.Set(request.HeaderContentLength, strconv.Itoa(len(cachedResp.Body)))

	return response.New(
		cachedResp.StatusCode,
		cachedResp.Message,
		int64(len(cachedResp.Body)),
		cachedResp.ContentType,
		header,
		io.NopCloser(bytes.NewReader(cachedResp.Body)),
	)
}
