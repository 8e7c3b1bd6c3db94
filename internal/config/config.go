// Package config loads nexthttp profiles: reusable client defaults kept in a
// YAML or JSON file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/nexthttp/pkg/client"
	"github.com/jaxron/nexthttp/pkg/client/transport"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported profile format")
	ErrInvalidProfile    = errors.New("invalid profile")
)

// Profile holds client defaults. Durations are strings such as "5s" or
// "250ms".
type Profile struct {
	Headers map[string]string `json:"headers" yaml:"headers"`
	Params  map[string]string `json:"params" yaml:"params"`

	UserAgent     string `json:"userAgent" yaml:"userAgent"`
	Authorization string `json:"authorization" yaml:"authorization"`
	Referer       string `json:"referer" yaml:"referer"`

	Proxy           string `json:"proxy" yaml:"proxy"`
	ConnectTimeout  string `json:"connectTimeout" yaml:"connectTimeout"`
	ReadTimeout     string `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    string `json:"writeTimeout" yaml:"writeTimeout"`
	FollowRedirects *bool  `json:"followRedirects" yaml:"followRedirects"`
	Gzip            bool   `json:"gzip" yaml:"gzip"`
	Debug           bool   `json:"debug" yaml:"debug"`

	RateLimit *RateLimit `json:"rateLimit" yaml:"rateLimit"`
	Cache     *Cache     `json:"cache" yaml:"cache"`
}

// RateLimit configures the token bucket applied to every request.
type RateLimit struct {
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// Cache configures the Redis response cache.
type Cache struct {
	Addr string `json:"addr" yaml:"addr"`
	TTL  string `json:"ttl" yaml:"ttl"`
}

// Load reads a profile from path. The format follows the file extension.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile Profile

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse YAML profile: %w", err)
		}
	case ".json":
		if err := sonic.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse JSON profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s (use .yaml, .yml, or .json)", ErrUnsupportedFormat, ext)
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Validate checks durations, the proxy URL and the middleware settings.
func (p *Profile) Validate() error {
	for name, value := range map[string]string{
		"connectTimeout": p.ConnectTimeout,
		"readTimeout":    p.ReadTimeout,
		"writeTimeout":   p.WriteTimeout,
	} {
		if _, err := parseDuration(value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidProfile, name, err)
		}
	}
	if _, err := p.ProxyURL(); err != nil {
		return fmt.Errorf("%w: proxy: %w", ErrInvalidProfile, err)
	}
	if p.RateLimit != nil && (p.RateLimit.RequestsPerSecond <= 0 || p.RateLimit.Burst < 1) {
		return fmt.Errorf("%w: rateLimit needs a positive rate and a burst of at least 1", ErrInvalidProfile)
	}
	if p.Cache != nil {
		if p.Cache.Addr == "" {
			return fmt.Errorf("%w: cache.addr is required", ErrInvalidProfile)
		}
		if _, err := parseDuration(p.Cache.TTL); err != nil {
			return fmt.Errorf("%w: cache.ttl: %w", ErrInvalidProfile, err)
		}
	}
	return nil
}

// ProxyURL returns the configured proxy. "direct" forces a direct
// connection; an empty value means none is configured.
func (p *Profile) ProxyURL() (*url.URL, error) {
	switch p.Proxy {
	case "":
		return nil, nil
	case "direct":
		return transport.Direct, nil
	}
	u, err := url.Parse(p.Proxy)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", p.Proxy)
	}
	return u, nil
}

// CacheTTL returns the parsed cache TTL, defaulting to one minute.
func (p *Profile) CacheTTL() time.Duration {
	if p.Cache == nil {
		return 0
	}
	ttl, _ := parseDuration(p.Cache.TTL)
	if ttl == 0 {
		return time.Minute
	}
	return ttl
}

// Apply sets the profile's defaults on c. Map entries are applied in key
// order so the resulting parameter order is stable.
func (p *Profile) Apply(c *client.Client) error {
	if err := p.Validate(); err != nil {
		return err
	}

	for _, k := range sortedKeys(p.Headers) {
		c.AddHeader(k, p.Headers[k])
	}
	for _, k := range sortedKeys(p.Params) {
		c.AddParam(k, p.Params[k])
	}
	if p.UserAgent != "" {
		c.SetUserAgent(p.UserAgent)
	}
	if p.Authorization != "" {
		c.SetAuthorization(p.Authorization)
	}
	if p.Referer != "" {
		c.SetReferer(p.Referer)
	}

	proxy, _ := p.ProxyURL()
	if proxy != nil {
		c.SetProxy(proxy)
	}
	if d, _ := parseDuration(p.ConnectTimeout); d > 0 {
		c.SetConnectTimeout(d)
	}
	if d, _ := parseDuration(p.ReadTimeout); d > 0 {
		c.SetReadTimeout(d)
	}
	if d, _ := parseDuration(p.WriteTimeout); d > 0 {
		c.SetWriteTimeout(d)
	}
	if p.FollowRedirects != nil {
		c.SetFollowRedirects(*p.FollowRedirects)
	}
	if p.Gzip {
		c.AcceptGzipEncoding()
	}
	if p.Debug {
		c.SetDebug(true)
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
