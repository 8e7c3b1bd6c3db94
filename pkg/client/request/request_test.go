package request_test

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIsImmutable(t *testing.T) {
	t.Parallel()

	base := request.Get("http://example.com/").WithHeader("A", "1").WithQuery("q", "1")
	derived := base.
		WithHeader("A", "2").
		WithHeader("B", "3").
		WithQuery("q", "2").
		WithMethod("post").
		WithDebug(true)

	assert.Equal(t, http.MethodGet, base.Method())
	assert.Equal(t, "1", base.HeaderValue("A"))
	assert.False(t, base.HasHeader("B"))
	assert.Equal(t, request.Params{{Key: "q", Value: "1"}}, base.Query())
	assert.False(t, base.Debug())

	assert.Equal(t, http.MethodPost, derived.Method())
	assert.Equal(t, "2", derived.HeaderValue("A"))
	assert.Equal(t, "3", derived.HeaderValue("B"))
	assert.Equal(t, request.Params{{Key: "q", Value: "1"}, {Key: "q", Value: "2"}}, derived.Query())
	assert.True(t, derived.Debug())

	// Returned collections are copies
	h := base.Header()
	h.Set("A", "changed")
	assert.Equal(t, "1", base.HeaderValue("A"))
}

func TestNew(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.MethodGet, request.New("", "http://h").Method())
	assert.Equal(t, http.MethodDelete, request.New("delete", "http://h").Method())
	assert.True(t, request.SupportsBody("patch"))
	assert.False(t, request.SupportsBody(http.MethodHead))
}

func TestWithParam(t *testing.T) {
	t.Parallel()

	get := request.Get("http://h").WithParam("a", "1")
	assert.Equal(t, "1", get.Query().Get("a"))
	assert.Empty(t, get.Form())
	assert.Equal(t, "GET http://h?a=1", get.String())

	post := request.Post("http://h").WithParam("a", "1")
	assert.Equal(t, "1", post.Form().Get("a"))
	assert.Empty(t, post.Query())
}

func TestEntitySelection(t *testing.T) {
	t.Parallel()

	t.Run("Form params build a form entity", func(t *testing.T) {
		t.Parallel()

		req := request.Post("http://h").WithForm("b", "2").WithForm("a", "1")
		entity := req.Entity()
		require.NotNil(t, entity)
		assert.Equal(t, request.ContentTypeForm, entity.ContentType())

		data, ok := request.Payload(entity)
		require.True(t, ok)
		assert.Equal(t, "b=2&a=1", string(data))
		assert.Nil(t, req.ExplicitEntity())
	})

	t.Run("Explicit entity wins over form params", func(t *testing.T) {
		t.Parallel()

		explicit := request.NewString("raw", "")
		req := request.Post("http://h").WithForm("a", "1").WithEntity(explicit)
		assert.Same(t, explicit, req.Entity())
	})

	t.Run("Body-less methods ignore form params", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, request.Get("http://h").WithForm("a", "1").Entity())
	})
}

func TestWithCookie(t *testing.T) {
	t.Parallel()

	req := request.Get("http://h").
		WithCookie(&http.Cookie{Name: "a", Value: "1"}).
		WithCookie(&http.Cookie{Name: "b", Value: "2"})
	assert.Equal(t, "a=1; b=2", req.HeaderValue("Cookie"))
}

func TestWithProxy(t *testing.T) {
	t.Parallel()

	proxy, _ := url.Parse("http://proxy:8080")
	req := request.Get("http://h").WithProxy(proxy)
	proxy.Host = "other:1"

	assert.Equal(t, "proxy:8080", req.Proxy().Host)
	assert.Nil(t, req.WithProxy(nil).Proxy())
}

func TestEntities(t *testing.T) {
	t.Parallel()

	t.Run("Reader with known length", func(t *testing.T) {
		t.Parallel()

		entity := request.NewReader(strings.NewReader("abcdef"), 4, "")
		assert.Equal(t, int64(4), entity.ContentLength())

		var buf bytes.Buffer
		n, err := entity.WriteTo(&buf)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
		assert.Equal(t, "abcd", buf.String())
	})

	t.Run("Reader shorter than its length", func(t *testing.T) {
		t.Parallel()

		entity := request.NewReader(strings.NewReader("ab"), 4, "")
		_, err := entity.WriteTo(io.Discard)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("Reader with unknown length", func(t *testing.T) {
		t.Parallel()

		entity := request.NewReader(strings.NewReader("abc"), -5, "")
		assert.Equal(t, request.UnknownLength, entity.ContentLength())
		_, ok := request.Payload(entity)
		assert.False(t, ok)
	})

	t.Run("File", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "upload.bin")
		require.NoError(t, os.WriteFile(path, []byte("file contents"), 0o600))

		entity, err := request.NewFile(path, "")
		require.NoError(t, err)
		assert.Equal(t, int64(13), entity.ContentLength())
		assert.Equal(t, request.ContentTypeOctetStream, entity.ContentType())

		var buf bytes.Buffer
		_, err = entity.WriteTo(&buf)
		require.NoError(t, err)
		assert.Equal(t, "file contents", buf.String())

		_, err = request.NewFile(filepath.Join(t.TempDir(), "missing"), "")
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()

		entity, err := request.NewJSON(map[string]int{"n": 1})
		require.NoError(t, err)
		assert.Equal(t, request.ContentTypeJSON, entity.ContentType())

		data, ok := request.Payload(entity)
		require.True(t, ok)
		assert.JSONEq(t, `{"n":1}`, string(data))
	})

	t.Run("Multipart", func(t *testing.T) {
		t.Parallel()

		entity := request.NewMultipart(
			request.Params{{Key: "title", Value: "report"}},
			request.FilePart{Field: "doc", Name: "dir/report.txt", ContentType: "text/plain", Reader: strings.NewReader("body")},
		)
		assert.Equal(t, request.UnknownLength, entity.ContentLength())

		var buf bytes.Buffer
		n, err := entity.WriteTo(&buf)
		require.NoError(t, err)
		assert.Equal(t, int64(buf.Len()), n)

		_, params, err := mime.ParseMediaType(entity.ContentType())
		require.NoError(t, err)
		form, err := multipart.NewReader(&buf, params["boundary"]).ReadForm(1 << 20)
		require.NoError(t, err)

		assert.Equal(t, []string{"report"}, form.Value["title"])
		require.Len(t, form.File["doc"], 1)
		assert.Equal(t, "report.txt", form.File["doc"][0].Filename)
	})
}

func TestKey(t *testing.T) {
	t.Parallel()

	key := func(r *request.Request, skip ...string) string {
		t.Helper()
		k, ok := r.Key(skip...)
		require.True(t, ok)
		return k
	}

	base := request.Get("http://example.com/a").WithHeader("X-A", "1").WithHeader("X-B", "2")
	reordered := request.Get("http://example.com/a").WithHeader("X-B", "2").WithHeader("X-A", "1")

	assert.Equal(t, key(base), key(reordered))
	assert.NotEqual(t, key(base), key(base.WithURL("http://example.com/b")))
	assert.NotEqual(t, key(base), key(base.WithMethod(http.MethodDelete)))
	assert.NotEqual(t, key(base), key(base.WithQuery("q", "1")))
	assert.NotEqual(t, key(base), key(base.WithHeader("Authorization", "t")))
	assert.Equal(t, key(base), key(base.WithHeader("Authorization", "t"), "authorization"))

	post := request.Post("http://example.com/a")
	assert.NotEqual(t, key(post.WithForm("a", "1")), key(post.WithForm("a", "2")))

	_, ok := post.WithEntity(request.NewReader(strings.NewReader("x"), 1, "")).Key()
	assert.False(t, ok)
}
