package client

import (
	"context"
	"fmt"

	"github.com/jaxron/nexthttp/pkg/client/errors"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
)

// Builder helps build requests using method chaining.
type Builder struct {
	client        *Client
	marshalFunc   MarshalFunc
	unmarshalFunc response.UnmarshalFunc
	result        interface{}
	req           *request.Request
	body          request.Entity
	marshalBody   interface{}
}

// NewRequest creates a new Builder with default options.
func (c *Client) NewRequest() *Builder {
	return &Builder{
		client:        c,
		marshalFunc:   c.marshalFunc,
		unmarshalFunc: c.unmarshalFunc,
		result:        nil,
		req:           request.New("", ""),
		body:          nil,
		marshalBody:   nil,
	}
}

// Method sets the HTTP method for the request.
func (rb *Builder) Method(method string) *Builder {
	rb.req = rb.req.WithMethod(method)
	return rb
}

// URL sets the URL for the request.
func (rb *Builder) URL(url string) *Builder {
	rb.req = rb.req.WithURL(url)
	return rb
}

// MarshalWith sets the marshal function for the request body.
func (rb *Builder) MarshalWith(fn MarshalFunc) *Builder {
	rb.marshalFunc = fn
	return rb
}

// UnmarshalWith sets the unmarshal function for the response.
func (rb *Builder) UnmarshalWith(fn response.UnmarshalFunc) *Builder {
	rb.unmarshalFunc = fn
	return rb
}

// Result sets the value a successful response body is unmarshaled into.
func (rb *Builder) Result(result interface{}) *Builder {
	rb.result = result
	return rb
}

// Body sets the body of the request.
func (rb *Builder) Body(body request.Entity) *Builder {
	rb.body = body
	return rb
}

// MarshalBody sets a value marshaled into a JSON body when the request is
// built.
func (rb *Builder) MarshalBody(body interface{}) *Builder {
	rb.marshalBody = body
	return rb
}

// Query adds a query parameter to the request.
func (rb *Builder) Query(key, value string) *Builder {
	rb.req = rb.req.WithQuery(key, value)
	return rb
}

// Form adds a form parameter to the request.
func (rb *Builder) Form(key, value string) *Builder {
	rb.req = rb.req.WithForm(key, value)
	return rb
}

// Header sets a header on the request.
func (rb *Builder) Header(key, value string) *Builder {
	rb.req = rb.req.WithHeader(key, value)
	return rb
}

// Progress reports upload progress to fn.
func (rb *Builder) Progress(fn request.ProgressFunc) *Builder {
	rb.req = rb.req.WithProgress(fn)
	return rb
}

// Listener reports download progress to fn.
func (rb *Builder) Listener(fn request.ProgressFunc) *Builder {
	rb.req = rb.req.WithListener(fn)
	return rb
}

// Debug enables wire logging for this request only.
func (rb *Builder) Debug(debug bool) *Builder {
	rb.req = rb.req.WithDebug(debug)
	return rb
}

// Build returns the request to execute.
func (rb *Builder) Build() (*request.Request, error) {
	// Ensure only one of the body or marshalBody is set
	if rb.body != nil && rb.marshalBody != nil {
		return nil, errors.ErrBodyMarshalConflict
	}

	req := rb.req
	if rb.marshalBody != nil {
		data, err := rb.marshalFunc(rb.marshalBody)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrRequestCreation, err)
		}
		req = req.WithEntity(request.NewBytes(data, request.ContentTypeJSON))
	}
	if rb.body != nil {
		req = req.WithEntity(rb.body)
	}
	return req, nil
}

// Do executes the request. When a result is set and the response is
// successful, the body is unmarshaled into it and left readable again on
// the returned response.
func (rb *Builder) Do(ctx context.Context) (*response.Response, error) {
	req, err := rb.Build()
	if err != nil {
		return nil, err
	}

	resp, err := rb.client.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	if rb.result != nil && resp.IsSuccess() {
		body, err := resp.Buffer()
		if err != nil {
			return resp, err
		}
		if err := rb.unmarshalFunc(body, rb.result); err != nil {
			return resp, fmt.Errorf("%w: %w", errors.ErrUnmarshalResult, err)
		}
	}

	return resp, nil
}
