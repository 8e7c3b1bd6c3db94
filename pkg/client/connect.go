package client

import (
	"context"
	"net/url"

	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/transport"
)

// connect opens and configures the connection for req. The settings are
// applied before the method, and the method before any header. Failures are
// returned exactly as the opener or connection reported them.
func connect(ctx context.Context, opener transport.Opener, req *request.Request, cfg Config) (transport.Conn, error) {
	target, err := url.Parse(request.AppendQuery(req.URL(), req.Query()))
	if err != nil {
		return nil, err
	}

	proxy := req.Proxy()
	if proxy == nil {
		proxy = cfg.Proxy
	}

	conn, err := opener.Open(ctx, target, proxy)
	if err != nil {
		return nil, err
	}
	if err := conn.Configure(cfg.Settings); err != nil {
		return nil, err
	}
	if err := conn.SetMethod(req.Method()); err != nil {
		return nil, err
	}
	return conn, nil
}

// writeHeaders copies the request header onto conn. Request headers hold a
// single value per key; if several are present the last one wins.
func writeHeaders(conn transport.Conn, req *request.Request) error {
	for key, values := range req.Header() {
		if len(values) == 0 {
			continue
		}
		if err := conn.SetRequestHeader(key, values[len(values)-1]); err != nil {
			return err
		}
	}
	return nil
}
