package client

import (
	"context"
	"io"

	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/middleware"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
)

// progressChunkSize bounds a single write through progressWriter, so a large
// write still produces intermediate progress events.
const progressChunkSize = 4 << 10

// progressWriter reports upload progress. It emits (0, total) before the
// first byte, then the cumulative count after every chunk.
type progressWriter struct {
	out     io.WriteCloser
	fn      request.ProgressFunc
	total   int64
	written int64
	started bool
}

func newProgressWriter(out io.WriteCloser, fn request.ProgressFunc, total int64) *progressWriter {
	if total < 0 {
		total = request.UnknownLength
	}
	return &progressWriter{out: out, fn: fn, total: total}
}

func (w *progressWriter) begin() {
	if !w.started {
		w.started = true
		w.fn(0, w.total)
	}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.begin()

	n := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > progressChunkSize {
			chunk = chunk[:progressChunkSize]
		}

		m, err := w.out.Write(chunk)
		n += m
		if m > 0 {
			w.written += int64(m)
			w.fn(w.written, w.total)
		}
		if err != nil {
			return n, err
		}
		if m < len(chunk) {
			return n, io.ErrShortWrite
		}
		p = p[m:]
	}
	return n, nil
}

func (w *progressWriter) Flush() error {
	w.begin()
	if f, ok := w.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func (w *progressWriter) Close() error {
	return w.out.Close()
}

func (w *progressWriter) CloseWithError(err error) error {
	if a, ok := w.out.(aborter); ok {
		return a.CloseWithError(err)
	}
	return w.out.Close()
}

// progressReader reports download progress as the caller reads the body.
type progressReader struct {
	io.ReadCloser
	fn    request.ProgressFunc
	total int64
	read  int64
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		r.read += int64(n)
		r.fn(r.read, r.total)
	}
	return n, err
}

// listenerMiddleware attaches a download progress listener to the response
// of a single execution.
type listenerMiddleware struct {
	listener request.ProgressFunc
	logger   logger.Logger
}

func newListenerMiddleware(listener request.ProgressFunc) *listenerMiddleware {
	return &listenerMiddleware{
		listener: listener,
		logger:   &logger.NoOpLogger{},
	}
}

// Process wraps the decoded body. The declared length describes the encoded
// body, so it is only used as the total when no content encoding applies.
func (m *listenerMiddleware) Process(ctx context.Context, req *request.Request, next middleware.NextFunc) (*response.Response, error) {
	resp, err := next(ctx, req)
	if err != nil || resp == nil {
		return resp, err
	}

	total := resp.ContentLength
	if resp.Header.Get(request.HeaderContentEncoding) != "" || total < 0 {
		total = request.UnknownLength
	}
	resp.Body = &progressReader{ReadCloser: resp.Body, fn: m.listener, total: total}
	return resp, nil
}

func (m *listenerMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
