package client

import (
	"net/http"

	"github.com/jaxron/nexthttp/pkg/client/request"
)

// mergeHeader returns the effective header: every key of call, plus the
// keys of defaults that call does not set. Neither input is modified.
func mergeHeader(defaults, call http.Header) http.Header {
	merged := make(http.Header, len(defaults)+len(call))
	for key, values := range defaults {
		if _, ok := call[key]; ok {
			continue
		}
		merged[key] = append([]string(nil), values...)
	}
	for key, values := range call {
		merged[key] = append([]string(nil), values...)
	}
	return merged
}

// mergeParams applies the same rule to ordered parameters. Default entries
// that are not overridden come first in their original order, followed by
// all call entries.
func mergeParams(defaults, call request.Params) request.Params {
	merged := make(request.Params, 0, len(defaults)+len(call))
	for _, kv := range defaults {
		if call.Has(kv.Key) {
			continue
		}
		merged = append(merged, kv)
	}
	return append(merged, call...)
}

// applyDefaults merges the client defaults into req. Default parameters go
// to the form when the method carries a body built from form parameters,
// and to the query string otherwise.
func applyDefaults(req *request.Request, cfg Config) *request.Request {
	if len(cfg.Header) > 0 {
		req = req.WithHeaderMap(mergeHeader(cfg.Header, req.Header()))
	}
	if len(cfg.Params) == 0 {
		return req
	}
	if request.SupportsBody(req.Method()) && req.ExplicitEntity() == nil {
		return req.WithFormParams(mergeParams(cfg.Params, req.Form()))
	}
	return req.WithQueryParams(mergeParams(cfg.Params, req.Query()))
}
