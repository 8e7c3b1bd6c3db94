package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/jaxron/nexthttp/internal/config"
	"github.com/jaxron/nexthttp/middleware/ratelimit"
	"github.com/jaxron/nexthttp/middleware/rediscache"
	"github.com/jaxron/nexthttp/pkg/client"
	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
	"github.com/redis/rueidis"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var errNotSuccess = errors.New("request was not successful")

var (
	method         string
	headers        []string
	queryParams    []string
	formParams     []string
	data           string
	dataFile       string
	contentType    string
	gzip           bool
	proxy          string
	connectTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	noRedirects    bool
	debug          bool
	showProgress   bool
	include        bool
	profilePath    string
	rateLimit      float64
	burst          int
	redisAddr      string
	cacheTTL       time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nexthttp [flags] <url>",
	Short: "Send a single HTTP request",
	Long: `nexthttp sends one HTTP request and prints the decoded response body.

Examples:
  nexthttp https://example.com/api -q page=2
  nexthttp -X POST https://example.com/form -f name=gopher
  nexthttp -X PUT https://example.com/upload --data-file big.bin --progress
  nexthttp https://example.com -p profile.yaml -i`,
	Version:       version,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return run(ctx, cmd, args[0])
	},
}

func init() {
	rootCmd.Flags().StringVarP(&method, "request", "X", "", "HTTP method (default GET, or POST when a body is given)")
	rootCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Request header as 'Key: value' (repeatable)")
	rootCmd.Flags().StringArrayVarP(&queryParams, "query", "q", nil, "Query parameter as key=value (repeatable)")
	rootCmd.Flags().StringArrayVarP(&formParams, "form", "f", nil, "Form parameter as key=value (repeatable)")
	rootCmd.Flags().StringVarP(&data, "data", "d", "", "Request body")
	rootCmd.Flags().StringVar(&dataFile, "data-file", "", "Read the request body from a file, '-' for stdin")
	rootCmd.Flags().StringVar(&contentType, "content-type", "", "Content type of the request body")
	rootCmd.Flags().BoolVar(&gzip, "gzip", false, "Ask for a gzip encoded response")
	rootCmd.Flags().StringVar(&proxy, "proxy", "", "Proxy URL, or 'direct' to bypass the profile proxy")
	rootCmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 0, "Connect timeout")
	rootCmd.Flags().DurationVar(&readTimeout, "read-timeout", 0, "Read inactivity timeout")
	rootCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 0, "Write inactivity timeout")
	rootCmd.Flags().BoolVar(&noRedirects, "no-redirects", false, "Do not follow redirects")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Log the request and response on stderr")
	rootCmd.Flags().BoolVar(&showProgress, "progress", false, "Report transfer progress on stderr")
	rootCmd.Flags().BoolVarP(&include, "include", "i", false, "Print the status line and headers")
	rootCmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Load client defaults from a YAML or JSON profile")
	rootCmd.Flags().Float64Var(&rateLimit, "rate", 0, "Requests per second")
	rootCmd.Flags().IntVar(&burst, "burst", 1, "Rate limit burst")
	rootCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Cache GET responses in Redis at this address")
	rootCmd.Flags().DurationVar(&cacheTTL, "cache-ttl", time.Minute, "Lifetime of cached responses")
}

func run(ctx context.Context, cmd *cobra.Command, target string) error {
	profile := &config.Profile{}
	if profilePath != "" {
		loaded, err := config.Load(profilePath)
		if err != nil {
			return err
		}
		profile = loaded
	}

	c, cleanup, err := newClient(profile)
	if err != nil {
		return err
	}
	defer cleanup()

	req, err := buildRequest(target)
	if err != nil {
		return err
	}

	resp, err := c.Execute(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Close()

	out := cmd.OutOrStdout()
	if include {
		writeHead(out, resp)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: %s", errNotSuccess, resp.Status())
	}
	return nil
}

// newClient builds the client from the profile, then applies the flags over
// it. The returned cleanup flushes middleware state.
func newClient(profile *config.Profile) (*client.Client, func(), error) {
	cleanup := func() {}

	var opts []client.Option
	if debug || profile.Debug {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		opts = append(opts, client.WithLogger(logger.NewSlogLogger(slog.New(handler))))
	}

	switch {
	case rateLimit > 0:
		opts = append(opts, client.WithMiddleware(ratelimit.New(rateLimit, burst)))
	case profile.RateLimit != nil:
		opts = append(opts, client.WithMiddleware(ratelimit.New(profile.RateLimit.RequestsPerSecond, profile.RateLimit.Burst)))
	}

	addr, ttl := redisAddr, cacheTTL
	if addr == "" && profile.Cache != nil {
		addr, ttl = profile.Cache.Addr, profile.CacheTTL()
	}
	if addr != "" {
		cache, err := rediscache.NewWithOptions(rueidis.ClientOption{InitAddress: []string{addr}}, ttl)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, client.WithMiddleware(cache))
		cleanup = cache.Close
	}

	c := client.NewClient(opts...)
	if err := profile.Apply(c); err != nil {
		cleanup()
		return nil, nil, err
	}

	if proxy != "" {
		p, err := (&config.Profile{Proxy: proxy}).ProxyURL()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("invalid proxy: %w", err)
		}
		c.SetProxy(p)
	}
	if connectTimeout > 0 {
		c.SetConnectTimeout(connectTimeout)
	}
	if readTimeout > 0 {
		c.SetReadTimeout(readTimeout)
	}
	if writeTimeout > 0 {
		c.SetWriteTimeout(writeTimeout)
	}
	if noRedirects {
		c.SetFollowRedirects(false)
	}
	if gzip {
		c.AcceptGzipEncoding()
	}
	if debug {
		c.SetDebug(true)
	}
	return c, cleanup, nil
}

func buildRequest(target string) (*request.Request, error) {
	if _, err := url.Parse(target); err != nil {
		return nil, err
	}

	entity, err := bodyEntity()
	if err != nil {
		return nil, err
	}

	m := method
	if m == "" {
		m = http.MethodGet
		if entity != nil || len(formParams) > 0 {
			m = http.MethodPost
		}
	}
	req := request.New(m, target)

	h, err := parseHeaders(headers)
	if err != nil {
		return nil, err
	}
	req = req.WithHeaderMap(h)

	q, err := parseParams(queryParams)
	if err != nil {
		return nil, err
	}
	req = req.WithQueryParams(q)

	f, err := parseParams(formParams)
	if err != nil {
		return nil, err
	}
	req = req.WithFormParams(f)

	if entity != nil {
		req = req.WithEntity(entity)
	}
	if showProgress {
		req = req.WithProgress(progressPrinter("upload")).WithListener(progressPrinter("download"))
	}
	return req, nil
}

func bodyEntity() (request.Entity, error) {
	switch {
	case data != "" && dataFile != "":
		return nil, errors.New("--data and --data-file are mutually exclusive")
	case data != "":
		return request.NewString(data, contentType), nil
	case dataFile == "-":
		return request.NewReader(os.Stdin, request.UnknownLength, contentType), nil
	case dataFile != "":
		return request.NewFile(dataFile, contentType)
	}
	return nil, nil
}

func writeHead(w io.Writer, resp *response.Response) {
	fmt.Fprintln(w, resp.Status())
	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			fmt.Fprintf(w, "%s: %s\n", k, v)
		}
	}
	fmt.Fprintln(w)
}

func progressPrinter(label string) request.ProgressFunc {
	return func(transferred, total int64) {
		if total < 0 {
			fmt.Fprintf(os.Stderr, "%s: %d bytes\n", label, transferred)
			return
		}
		fmt.Fprintf(os.Stderr, "%s: %d/%d bytes\n", label, transferred, total)
	}
}
