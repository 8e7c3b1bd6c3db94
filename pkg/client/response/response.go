// Package response holds the normalized result of an executed request.
package response

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// UnmarshalFunc is a function type that matches standard unmarshal functions.
type UnmarshalFunc func([]byte, interface{}) error

// Response is the transport-independent result of one execution. Non-2xx
// statuses are ordinary responses; Body then carries the error body.
//
// Body is never nil. The Response owns it and the caller must close it.
type Response struct {
	StatusCode    int
	Message       string
	ContentLength int64
	ContentType   string
	Header        http.Header
	Body          io.ReadCloser
}

// New builds a Response, substituting an empty body for a nil one and an
// empty header for a nil one.
func New(code int, message string, contentLength int64, contentType string, header http.Header, body io.ReadCloser) *Response {
	if body == nil {
		body = http.NoBody
	}
	if header == nil {
		header = make(http.Header)
	}
	return &Response{
		StatusCode:    code,
		Message:       message,
		ContentLength: contentLength,
		ContentType:   contentType,
		Header:        header,
		Body:          body,
	}
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Close releases the body.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Bytes reads the remaining body and closes it.
func (r *Response) Bytes() ([]byte, error) {
	defer r.Close()
	return io.ReadAll(r.Body)
}

// String reads the remaining body as a string and closes it.
func (r *Response) String() (string, error) {
	b, err := r.Bytes()
	return string(b), err
}

// Decode reads the body as JSON into v using sonic and closes it.
func (r *Response) Decode(v interface{}) error {
	return r.DecodeWith(sonic.Unmarshal, v)
}

// DecodeWith reads the body and unmarshals it into v with fn. The body is
// closed afterwards.
func (r *Response) DecodeWith(fn UnmarshalFunc, v interface{}) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	return fn(b, v)
}

// Buffer reads the whole body into memory and replaces Body with a reader
// over the buffered bytes, so the response can be read again. The returned
// slice must not be modified.
func (r *Response) Buffer() ([]byte, error) {
	b, err := io.ReadAll(r.Body)
	closeErr := r.Body.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}
	r.Body = io.NopCloser(bytes.NewReader(b))
	return b, nil
}

// Status returns the status line, e.g. "404 Not Found".
func (r *Response) Status() string {
	if r.Message == "" {
		return fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
	}
	return fmt.Sprintf("%d %s", r.StatusCode, r.Message)
}

// Describe returns a one-line summary without touching the body.
func (r *Response) Describe() string {
	var buf strings.Builder
	buf.WriteString(r.Status())
	if r.ContentType != "" {
		buf.WriteString(" type=")
		buf.WriteString(r.ContentType)
	}
	fmt.Fprintf(&buf, " length=%d headers=%d", r.ContentLength, len(r.Header))
	return buf.String()
}
