package client

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
	"github.com/jaxron/nexthttp/pkg/client/transport"
)

// decode finishes the exchange and normalizes the reply. The head is read
// completely before any body stream is touched. The body is streamed: it is
// neither buffered nor closed here.
func decode(conn transport.Conn) (*response.Response, error) {
	reply, err := conn.Exchange()
	if err != nil {
		return nil, err
	}

	header := reply.Header
	if header == nil {
		header = make(http.Header)
	}
	contentType := header.Get(request.HeaderContentType)
	contentEncoding := header.Get(request.HeaderContentEncoding)

	raw, unused := reply.ErrorBody, reply.Body
	if transport.IsSuccess(reply.StatusCode) {
		raw, unused = reply.Body, reply.ErrorBody
	}
	if unused != nil {
		_ = unused.Close()
	}
	if raw == nil {
		raw = http.NoBody
	}

	return response.New(
		reply.StatusCode,
		reply.Message,
		reply.ContentLength,
		contentType,
		header,
		decodeBody(raw, contentEncoding),
	), nil
}

// decodeBody wraps raw according to the declared content encoding. Unknown
// encodings pass through untouched.
func decodeBody(raw io.ReadCloser, contentEncoding string) io.ReadCloser {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip":
		return &gzipBody{src: raw}
	case "br":
		return &brotliBody{src: raw, r: brotli.NewReader(raw)}
	default:
		return raw
	}
}

// gzipBody decompresses lazily: the gzip header is parsed on the first Read,
// so building a response never touches the network. Malformed data surfaces
// as a Read error.
type gzipBody struct {
	src io.ReadCloser
	zr  *gzip.Reader
	err error
}

func (b *gzipBody) Read(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	if b.zr == nil {
		zr, err := gzip.NewReader(b.src)
		if err != nil {
			b.err = err
			return 0, err
		}
		b.zr = zr
	}

	n, err := b.zr.Read(p)
	if err != nil {
		b.err = err
	}
	return n, err
}

func (b *gzipBody) Close() error {
	return b.src.Close()
}

type brotliBody struct {
	src io.ReadCloser
	r   *brotli.Reader
}

func (b *brotliBody) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

func (b *brotliBody) Close() error {
	return b.src.Close()
}
