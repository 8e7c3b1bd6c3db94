package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaxron/nexthttp/internal/config"
	"github.com/jaxron/nexthttp/pkg/client"
	"github.com/jaxron/nexthttp/pkg/client/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("YAML profile", func(t *testing.T) {
		t.Parallel()

		path := writeProfile(t, "profile.yaml", `
headers:
  X-Team: platform
params:
  b: "2"
  a: "1"
userAgent: nexthttp-test
proxy: http://proxy.internal:3128
connectTimeout: 2s
readTimeout: 500ms
followRedirects: false
gzip: true
rateLimit:
  requestsPerSecond: 5
  burst: 2
cache:
  addr: localhost:6379
  ttl: 30s
`)
		profile, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, map[string]string{"X-Team": "platform"}, profile.Headers)
		assert.Equal(t, "nexthttp-test", profile.UserAgent)
		require.NotNil(t, profile.FollowRedirects)
		assert.False(t, *profile.FollowRedirects)
		assert.True(t, profile.Gzip)
		require.NotNil(t, profile.RateLimit)
		assert.Equal(t, 2, profile.RateLimit.Burst)
		assert.Equal(t, 30*time.Second, profile.CacheTTL())

		proxy, err := profile.ProxyURL()
		require.NoError(t, err)
		assert.Equal(t, "proxy.internal:3128", proxy.Host)
	})

	t.Run("JSON profile", func(t *testing.T) {
		t.Parallel()

		path := writeProfile(t, "profile.json", `{"headers":{"X-A":"1"},"writeTimeout":"1s","proxy":"direct"}`)
		profile, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, "1", profile.Headers["X-A"])
		proxy, err := profile.ProxyURL()
		require.NoError(t, err)
		assert.True(t, transport.IsDirect(proxy))
	})

	t.Run("Errors", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name        string
			file        string
			contents    string
			expectedErr error
		}{
			{name: "Unknown extension", file: "profile.toml", contents: "", expectedErr: config.ErrUnsupportedFormat},
			{name: "Bad duration", file: "p.yaml", contents: "readTimeout: soon\n", expectedErr: config.ErrInvalidProfile},
			{name: "Negative duration", file: "p.yaml", contents: "connectTimeout: -1s\n", expectedErr: config.ErrInvalidProfile},
			{name: "Relative proxy", file: "p.yaml", contents: "proxy: proxy.internal\n", expectedErr: config.ErrInvalidProfile},
			{name: "Zero burst", file: "p.yaml", contents: "rateLimit:\n  requestsPerSecond: 1\n", expectedErr: config.ErrInvalidProfile},
			{name: "Cache without address", file: "p.yaml", contents: "cache:\n  ttl: 1s\n", expectedErr: config.ErrInvalidProfile},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				_, err := config.Load(writeProfile(t, tt.file, tt.contents))
				assert.ErrorIs(t, err, tt.expectedErr)
			})
		}

		_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)

		_, err = config.Load(writeProfile(t, "broken.yaml", "headers: [unclosed\n"))
		assert.Error(t, err)
	})
}

func TestApply(t *testing.T) {
	t.Parallel()

	follow := false
	profile := &config.Profile{
		Headers:         map[string]string{"X-B": "2", "X-A": "1"},
		Params:          map[string]string{"z": "26", "a": "1"},
		UserAgent:       "agent/1.0",
		Authorization:   "Bearer t",
		Proxy:           "http://proxy:8080",
		ConnectTimeout:  "3s",
		ReadTimeout:     "4s",
		WriteTimeout:    "5s",
		FollowRedirects: &follow,
		Gzip:            true,
		Debug:           true,
	}

	c := client.NewClient()
	require.NoError(t, profile.Apply(c))

	cfg := c.Config()
	assert.Equal(t, "1", cfg.Header.Get("X-A"))
	assert.Equal(t, "2", cfg.Header.Get("X-B"))
	assert.Equal(t, "agent/1.0", cfg.Header.Get("User-Agent"))
	assert.Equal(t, "Bearer t", cfg.Header.Get("Authorization"))
	assert.Equal(t, "gzip", cfg.Header.Get("Accept-Encoding"))
	assert.Equal(t, "a", cfg.Params[0].Key)
	assert.Equal(t, "z", cfg.Params[1].Key)
	assert.Equal(t, "proxy:8080", cfg.Proxy.Host)
	assert.Equal(t, 3*time.Second, cfg.Settings.ConnectTimeout)
	assert.Equal(t, 4*time.Second, cfg.Settings.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Settings.WriteTimeout)
	assert.True(t, cfg.Settings.NoFollowRedirects)
	assert.True(t, cfg.Debug)

	assert.ErrorIs(t, (&config.Profile{ReadTimeout: "x"}).Apply(c), config.ErrInvalidProfile)
}
