package client

import (
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/google/uuid"
	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/transport"
)

// wireLogger returns the network interceptor installed for debug
// executions. It logs what actually goes on the wire, including redirects,
// under a per-call id. Failures are logged and returned unchanged.
func wireLogger(l logger.Logger) transport.NetworkInterceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return &loggingTransport{
			next:   next,
			logger: l,
			callID: uuid.NewString(),
		}
	}
}

type loggingTransport struct {
	next   http.RoundTripper
	logger logger.Logger
	callID string
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	log := t.logger.WithFields(logger.String("call_id", t.callID))

	fields := []logger.Field{
		logger.String("method", req.Method),
		logger.String("url", req.URL.String()),
		logger.Int("len_headers", len(req.Header)),
		logger.Int64("content_length", req.ContentLength),
		logger.Any("transfer_encoding", req.TransferEncoding),
	}
	// The body is not dumped; it is still being streamed by the caller.
	if dump, err := httputil.DumpRequestOut(req, false); err == nil {
		fields = append(fields, logger.String("head", string(dump)))
	}
	log.WithFields(fields...).Debug("Wire request")

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		log.WithFields(
			logger.Err(err),
			logger.Duration("elapsed", time.Since(start)),
		).Debug("Wire failure")
		return resp, err
	}

	log.WithFields(
		logger.Int("status", resp.StatusCode),
		logger.Int("len_headers", len(resp.Header)),
		logger.Int64("content_length", resp.ContentLength),
		logger.String("content_encoding", resp.Header.Get("Content-Encoding")),
		logger.Duration("elapsed", time.Since(start)),
	).Debug("Wire response")
	return resp, nil
}
