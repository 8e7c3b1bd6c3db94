package request

import (
	"net/url"
	"strings"
)

// Param is a single key-value pair of a query string or form body.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of parameters. Unlike url.Values it keeps the
// order in which parameters were added, and a key may repeat. Keys are
// case-sensitive.
type Params []Param

// Get retrieves the first value associated with the given key.
// If there are no values associated with the key, Get returns
// the empty string.
func (p Params) Get(key string) string {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// Has reports whether key appears at least once.
func (p Params) Has(key string) bool {
	for _, kv := range p {
		if kv.Key == key {
			return true
		}
	}
	return false
}

// Add returns p with the pair appended. Like append, the result may share
// storage with p; use Clone first if p must not change.
func (p Params) Add(key, value string) Params {
	return append(p, Param{Key: key, Value: value})
}

// Set returns a copy of p where key holds exactly one value. The first
// occurrence keeps its position, later ones are dropped.
func (p Params) Set(key, value string) Params {
	out := make(Params, 0, len(p)+1)
	replaced := false
	for _, kv := range p {
		if kv.Key != key {
			out = append(out, kv)
			continue
		}
		if !replaced {
			out = append(out, Param{Key: key, Value: value})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, Param{Key: key, Value: value})
	}
	return out
}

// Del returns a copy of p without key.
func (p Params) Del(key string) Params {
	out := make(Params, 0, len(p))
	for _, kv := range p {
		if kv.Key != key {
			out = append(out, kv)
		}
	}
	return out
}

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// FromMap converts a map into Params. Map iteration order is random, so the
// result is only ordered when the map has a single key; callers needing a
// stable order should build Params directly.
func FromMap(m map[string]string) Params {
	if len(m) == 0 {
		return nil
	}
	out := make(Params, 0, len(m))
	for k, v := range m {
		out = append(out, Param{Key: k, Value: v})
	}
	return out
}

// Encode converts the Params into a URL-encoded string
// ("bar=baz&foo=quux") in insertion order.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}

	var buf strings.Builder
	for _, kv := range p {
		// Add '&' separator if it's not the first key-value pair
		if buf.Len() > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(url.QueryEscape(kv.Key))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(kv.Value))
	}
	return buf.String()
}

// AppendQuery appends params to the query component of rawURL. A query
// already present in rawURL is kept verbatim and the new parameters follow
// it, joined by exactly one separator. A fragment stays at the end.
func AppendQuery(rawURL string, params Params) string {
	encoded := params.Encode()
	if encoded == "" {
		return rawURL
	}

	base, fragment, hasFragment := strings.Cut(rawURL, "#")

	var buf strings.Builder
	buf.Grow(len(rawURL) + len(encoded) + 1)
	buf.WriteString(base)
	switch {
	case !strings.Contains(base, "?"):
		buf.WriteByte('?')
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
		// the literal query already ends in a separator
	default:
		buf.WriteByte('&')
	}
	buf.WriteString(encoded)

	if hasFragment {
		buf.WriteByte('#')
		buf.WriteString(fragment)
	}
	return buf.String()
}
