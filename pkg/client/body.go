package client

import (
	"io"

	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/transport"
)

type flusher interface {
	Flush() error
}

type aborter interface {
	CloseWithError(err error) error
}

// writeBody streams entity into the connection's output stream. The stream
// is released on every path; after a failed write it is aborted rather than
// closed when the stream supports it, so a truncated body is never sent as
// complete.
func writeBody(conn transport.Conn, entity request.Entity, progress request.ProgressFunc) (err error) {
	out, err := conn.OutputStream()
	if err != nil {
		return err
	}

	var w io.WriteCloser = out
	if progress != nil {
		w = newProgressWriter(out, progress, entity.ContentLength())
	}

	defer func() {
		if err != nil {
			if a, ok := w.(aborter); ok {
				_ = a.CloseWithError(err)
				return
			}
			_ = w.Close()
			return
		}
		err = w.Close()
	}()

	if _, err = entity.WriteTo(w); err != nil {
		return err
	}
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
