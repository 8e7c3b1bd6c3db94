package client

import (
	"fmt"
	"strconv"

	"github.com/jaxron/nexthttp/pkg/client/errors"
	"github.com/jaxron/nexthttp/pkg/client/request"
)

// negotiate derives the framing headers from the request entity. The result
// carries exactly one of Content-Length and Transfer-Encoding when there is
// an entity, and neither when there is none.
func negotiate(req *request.Request) (*request.Request, request.Entity, error) {
	entity := req.Entity()
	if entity == nil {
		return req.
			WithoutHeader(request.HeaderContentLength).
			WithoutHeader(request.HeaderTransferEncoding), nil, nil
	}
	if !request.SupportsBody(req.Method()) {
		return nil, nil, fmt.Errorf("%w: %s", errors.ErrBodyNotAllowed, req.Method())
	}

	if contentType := entity.ContentType(); contentType != "" {
		req = req.WithHeader(request.HeaderContentType, contentType)
	}

	if length := entity.ContentLength(); length >= 0 {
		req = req.
			WithHeader(request.HeaderContentLength, strconv.FormatInt(length, 10)).
			WithoutHeader(request.HeaderTransferEncoding)
	} else {
		req = req.
			WithHeader(request.HeaderTransferEncoding, "chunked").
			WithoutHeader(request.HeaderContentLength)
	}
	return req, entity, nil
}
