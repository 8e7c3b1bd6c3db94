package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jaxron/nexthttp/pkg/client/request"
)

// parseHeaders turns "Key: value" flags into a header. Repeated keys are
// kept in order.
func parseHeaders(raw []string) (http.Header, error) {
	h := make(http.Header, len(raw))
	for _, line := range raw {
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Key: value'", line)
		}
		h.Add(key, strings.TrimSpace(value))
	}
	return h, nil
}

// parseParams turns "key=value" flags into parameters. A flag without '='
// becomes a key with an empty value.
func parseParams(raw []string) (request.Params, error) {
	params := make(request.Params, 0, len(raw))
	for _, pair := range raw {
		key, value, _ := strings.Cut(pair, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params = append(params, request.Param{Key: key, Value: value})
	}
	return params, nil
}
