package request

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
)

// Content types used by the built-in entities.
const (
	ContentTypeForm        = "application/x-www-form-urlencoded; charset=UTF-8"
	ContentTypeJSON        = "application/json; charset=UTF-8"
	ContentTypeText        = "text/plain; charset=UTF-8"
	ContentTypeOctetStream = "application/octet-stream"
)

// UnknownLength is reported by entities that cannot tell their size up
// front. Such entities are sent with chunked transfer encoding.
const UnknownLength int64 = -1

// Entity is an outgoing request body.
type Entity interface {
	// ContentType returns the media type of the body, or "" if the entity
	// does not declare one.
	ContentType() string
	// ContentLength returns the number of bytes WriteTo will produce, or
	// UnknownLength.
	ContentLength() int64
	// WriteTo writes the whole body to w.
	WriteTo(w io.Writer) (int64, error)
}

type bytesEntity struct {
	data        []byte
	contentType string
}

// NewBytes returns an entity sending data as is.
func NewBytes(data []byte, contentType string) Entity {
	return &bytesEntity{data: data, contentType: contentType}
}

// NewString returns an entity sending s.
func NewString(s, contentType string) Entity {
	if contentType == "" {
		contentType = ContentTypeText
	}
	return &bytesEntity{data: []byte(s), contentType: contentType}
}

func (e *bytesEntity) ContentType() string  { return e.contentType }
func (e *bytesEntity) ContentLength() int64 { return int64(len(e.data)) }

func (e *bytesEntity) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(e.data)
	return int64(n), err
}

// Bytes exposes the payload so middlewares can fingerprint it without
// consuming a stream.
func (e *bytesEntity) Bytes() []byte { return e.data }

type readerEntity struct {
	r           io.Reader
	length      int64
	contentType string
}

// NewReader returns an entity streaming r. Pass UnknownLength when the size
// is not known; the body is then sent chunked. The reader is consumed once.
func NewReader(r io.Reader, length int64, contentType string) Entity {
	if length < 0 {
		length = UnknownLength
	}
	return &readerEntity{r: r, length: length, contentType: contentType}
}

func (e *readerEntity) ContentType() string  { return e.contentType }
func (e *readerEntity) ContentLength() int64 { return e.length }

func (e *readerEntity) WriteTo(w io.Writer) (int64, error) {
	if e.length >= 0 {
		n, err := io.CopyN(w, e.r, e.length)
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return n, err
	}
	return io.Copy(w, e.r)
}

type fileEntity struct {
	path        string
	size        int64
	contentType string
}

// NewFile returns an entity streaming the file at path. The size is taken
// from the file at construction time.
func NewFile(path, contentType string) (Entity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", path)
	}
	if contentType == "" {
		contentType = ContentTypeOctetStream
	}
	return &fileEntity{path: path, size: info.Size(), contentType: contentType}, nil
}

func (e *fileEntity) ContentType() string  { return e.contentType }
func (e *fileEntity) ContentLength() int64 { return e.size }

func (e *fileEntity) WriteTo(w io.Writer) (int64, error) {
	f, err := os.Open(e.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := io.CopyN(w, f, e.size)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// NewForm returns a url-encoded form entity. Parameter order is preserved.
func NewForm(params Params) Entity {
	return &bytesEntity{data: []byte(params.Encode()), contentType: ContentTypeForm}
}

// NewJSON marshals v with sonic and returns it as a JSON entity.
func NewJSON(v any) (Entity, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &bytesEntity{data: data, contentType: ContentTypeJSON}, nil
}

// FilePart is a file attached to a multipart entity.
type FilePart struct {
	Field       string
	Name        string
	ContentType string
	Reader      io.Reader
}

type multipartEntity struct {
	fields   Params
	files    []FilePart
	boundary string
}

// NewMultipart returns a multipart/form-data entity. Parts are generated
// while writing, so the length is unknown and the body is sent chunked.
func NewMultipart(fields Params, files ...FilePart) Entity {
	return &multipartEntity{
		fields:   fields.Clone(),
		files:    files,
		boundary: multipart.NewWriter(io.Discard).Boundary(),
	}
}

func (e *multipartEntity) ContentType() string {
	return "multipart/form-data; boundary=" + e.boundary
}

func (e *multipartEntity) ContentLength() int64 { return UnknownLength }

func (e *multipartEntity) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	mw := multipart.NewWriter(cw)
	if err := mw.SetBoundary(e.boundary); err != nil {
		return cw.n, err
	}

	for _, kv := range e.fields {
		if err := mw.WriteField(kv.Key, kv.Value); err != nil {
			return cw.n, err
		}
	}
	for _, fp := range e.files {
		part, err := mw.CreatePart(fp.header())
		if err != nil {
			return cw.n, err
		}
		if _, err := io.Copy(part, fp.Reader); err != nil {
			return cw.n, err
		}
	}
	err := mw.Close()
	return cw.n, err
}

func (fp FilePart) header() textproto.MIMEHeader {
	ct := fp.ContentType
	if ct == "" {
		ct = ContentTypeOctetStream
	}
	name := filepath.Base(fp.Name)
	quote := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quote.Replace(fp.Field), quote.Replace(name))},
		"Content-Type": {ct},
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Payload returns the in-memory bytes of entities that hold their body in
// memory. ok is false for streaming entities.
func Payload(e Entity) (data []byte, ok bool) {
	if b, isBytes := e.(interface{ Bytes() []byte }); isBytes {
		return b.Bytes(), true
	}
	return nil, false
}
