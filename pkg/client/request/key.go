package request

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/cespare/xxhash"
)

// Key returns a hash identifying r by method, URL with query, headers and
// body. Headers named in skip are left out, and header order never matters.
// ok is false when the body is a stream that cannot be read without
// consuming it.
func (r *Request) Key(skip ...string) (key string, ok bool) {
	var body []byte
	if e := r.Entity(); e != nil {
		if body, ok = Payload(e); !ok {
			return "", false
		}
	}

	skipped := make(map[string]struct{}, len(skip))
	for _, k := range skip {
		skipped[http.CanonicalHeaderKey(k)] = struct{}{}
	}
	keys := make([]string, 0, len(r.header))
	for k := range r.header {
		if _, ok := skipped[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	h := xxhash.New()
	h.Write([]byte(r.method))
	h.Write([]byte{0})
	h.Write([]byte(AppendQuery(r.url, r.query)))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		for _, v := range r.header[k] {
			h.Write([]byte{1})
			h.Write([]byte(v))
		}
	}
	h.Write([]byte{0})
	h.Write(body)

	return strconv.FormatUint(h.Sum64(), 16), true
}
