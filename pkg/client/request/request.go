// Package request describes the logical HTTP requests executed by the client.
//
// A Request is a value: the With* and Without* methods return modified copies
// and never touch the receiver, so a request handed to the client is never
// changed behind the caller's back.
package request

import (
	"net/http"
	"net/url"
	"strings"
)

// Header names the pipeline computes or reads.
const (
	HeaderContentType      = "Content-Type"
	HeaderContentLength    = "Content-Length"
	HeaderTransferEncoding = "Transfer-Encoding"
	HeaderContentEncoding  = "Content-Encoding"
	HeaderAcceptEncoding   = "Accept-Encoding"
	HeaderUserAgent        = "User-Agent"
	HeaderAuthorization    = "Authorization"
	HeaderReferer          = "Referer"
	HeaderCookie           = "Cookie"
)

// ProgressFunc receives the cumulative number of bytes transferred and the
// expected total, which is UnknownLength when the size is not known.
type ProgressFunc func(transferred, total int64)

// Request is an immutable description of one logical HTTP call.
type Request struct {
	method   string
	url      string
	query    Params
	form     Params
	header   http.Header
	entity   Entity
	progress ProgressFunc
	listener ProgressFunc
	debug    bool
	proxy    *url.URL
}

// New creates a request for method and rawURL. An empty method means GET.
func New(method, rawURL string) *Request {
	if method == "" {
		method = http.MethodGet
	}
	return &Request{
		method: strings.ToUpper(method),
		url:    rawURL,
		header: make(http.Header),
	}
}

func Get(rawURL string) *Request    { return New(http.MethodGet, rawURL) }
func Head(rawURL string) *Request   { return New(http.MethodHead, rawURL) }
func Delete(rawURL string) *Request { return New(http.MethodDelete, rawURL) }
func Post(rawURL string) *Request   { return New(http.MethodPost, rawURL) }
func Put(rawURL string) *Request    { return New(http.MethodPut, rawURL) }
func Patch(rawURL string) *Request  { return New(http.MethodPatch, rawURL) }

// SupportsBody reports whether method carries a request body.
func SupportsBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of r.
func (r *Request) Clone() *Request {
	c := *r
	c.query = r.query.Clone()
	c.form = r.form.Clone()
	c.header = r.header.Clone()
	if c.header == nil {
		c.header = make(http.Header)
	}
	if r.proxy != nil {
		p := *r.proxy
		c.proxy = &p
	}
	return &c
}

func (r *Request) Method() string { return r.method }
func (r *Request) URL() string    { return r.url }
func (r *Request) Debug() bool    { return r.debug }

// Query returns a copy of the query parameters.
func (r *Request) Query() Params { return r.query.Clone() }

// Form returns a copy of the form parameters.
func (r *Request) Form() Params { return r.form.Clone() }

// Header returns a copy of the request header.
func (r *Request) Header() http.Header { return r.header.Clone() }

// HeaderValue returns the value of the named header.
func (r *Request) HeaderValue(key string) string { return r.header.Get(key) }

// HasHeader reports whether the named header is set.
func (r *Request) HasHeader(key string) bool {
	_, ok := r.header[http.CanonicalHeaderKey(key)]
	return ok
}

// Progress returns the upload progress callback, if any.
func (r *Request) Progress() ProgressFunc { return r.progress }

// Listener returns the download progress listener, if any.
func (r *Request) Listener() ProgressFunc { return r.listener }

// Proxy returns the per-request proxy override, or nil.
func (r *Request) Proxy() *url.URL { return r.proxy }

// ExplicitEntity returns the entity set with WithEntity, ignoring form
// parameters.
func (r *Request) ExplicitEntity() Entity { return r.entity }

// Entity returns the body to send: the explicit entity if one is set,
// otherwise a url-encoded form built from the form parameters when the
// method carries a body. It returns nil when there is nothing to send.
func (r *Request) Entity() Entity {
	if r.entity != nil {
		return r.entity
	}
	if len(r.form) > 0 && SupportsBody(r.method) {
		return NewForm(r.form)
	}
	return nil
}

// WithMethod returns a copy using method.
func (r *Request) WithMethod(method string) *Request {
	c := r.Clone()
	c.method = strings.ToUpper(method)
	return c
}

// WithURL returns a copy targeting rawURL.
func (r *Request) WithURL(rawURL string) *Request {
	c := r.Clone()
	c.url = rawURL
	return c
}

// WithHeader returns a copy where key holds value. An existing value is
// replaced.
func (r *Request) WithHeader(key, value string) *Request {
	c := r.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a copy with every entry of h set, last value winning.
func (r *Request) WithHeaders(h http.Header) *Request {
	c := r.Clone()
	for key, values := range h {
		if len(values) > 0 {
			c.header.Set(key, values[len(values)-1])
		}
	}
	return c
}

// WithHeaderMap replaces the whole header with a copy of h.
func (r *Request) WithHeaderMap(h http.Header) *Request {
	c := r.Clone()
	c.header = h.Clone()
	if c.header == nil {
		c.header = make(http.Header)
	}
	return c
}

// WithoutHeader returns a copy without key.
func (r *Request) WithoutHeader(key string) *Request {
	if !r.HasHeader(key) {
		return r
	}
	c := r.Clone()
	c.header.Del(key)
	return c
}

// WithCookie returns a copy with c appended to the Cookie header. All
// cookies share a single header line.
func (r *Request) WithCookie(cookie *http.Cookie) *Request {
	s := (&http.Cookie{Name: cookie.Name, Value: cookie.Value}).String()
	if h := r.header.Get(HeaderCookie); h != "" {
		s = h + "; " + s
	}
	return r.WithHeader(HeaderCookie, s)
}

// WithQuery returns a copy with the pair appended to the query parameters.
func (r *Request) WithQuery(key, value string) *Request {
	c := r.Clone()
	c.query = c.query.Add(key, value)
	return c
}

// WithQueryParams replaces the query parameters with a copy of p.
func (r *Request) WithQueryParams(p Params) *Request {
	c := r.Clone()
	c.query = p.Clone()
	return c
}

// WithForm returns a copy with the pair appended to the form parameters.
func (r *Request) WithForm(key, value string) *Request {
	c := r.Clone()
	c.form = c.form.Add(key, value)
	return c
}

// WithFormParams replaces the form parameters with a copy of p.
func (r *Request) WithFormParams(p Params) *Request {
	c := r.Clone()
	c.form = p.Clone()
	return c
}

// WithParam adds the pair to the form for methods that carry a body and to
// the query otherwise.
func (r *Request) WithParam(key, value string) *Request {
	if SupportsBody(r.method) {
		return r.WithForm(key, value)
	}
	return r.WithQuery(key, value)
}

// WithEntity returns a copy sending e as the body.
func (r *Request) WithEntity(e Entity) *Request {
	c := r.Clone()
	c.entity = e
	return c
}

// WithProgress returns a copy reporting upload progress to fn.
func (r *Request) WithProgress(fn ProgressFunc) *Request {
	c := r.Clone()
	c.progress = fn
	return c
}

// WithListener returns a copy reporting download progress to fn.
func (r *Request) WithListener(fn ProgressFunc) *Request {
	c := r.Clone()
	c.listener = fn
	return c
}

// WithDebug returns a copy with wire logging switched on or off.
func (r *Request) WithDebug(debug bool) *Request {
	c := r.Clone()
	c.debug = debug
	return c
}

// WithProxy returns a copy sent through proxy instead of the client's proxy.
func (r *Request) WithProxy(proxy *url.URL) *Request {
	c := r.Clone()
	if proxy == nil {
		c.proxy = nil
	} else {
		p := *proxy
		c.proxy = &p
	}
	return c
}

// String returns a short description, e.g. "GET https://example.com/?a=b".
func (r *Request) String() string {
	return r.method + " " + AppendQuery(r.url, r.query)
}
