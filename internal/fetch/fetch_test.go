package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	t.Run("returns body, status and content type", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("hello from the other side"))
		}))
		defer srv.Close()

		f := &Fetcher{}
		res, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, srv.URL, res.URL)
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Equal(t, "text/plain; charset=utf-8", res.ContentType)
		assert.Equal(t, "hello from the other side", res.Body)
		assert.False(t, res.Truncated)
	})

	t.Run("non-2xx status is a result, not an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		f := &Fetcher{}
		res, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.Status)
		assert.Contains(t, res.Body, "gone")
	})

	t.Run("caps the body at MaxBody", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
		}))
		defer srv.Close()

		f := &Fetcher{MaxBody: 100}
		res, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Len(t, res.Body, 100)
		assert.True(t, res.Truncated)
	})

	t.Run("body exactly at the cap is not truncated", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		}))
		defer srv.Close()

		f := &Fetcher{MaxBody: 100}
		res, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Len(t, res.Body, 100)
		assert.False(t, res.Truncated)
	})

	t.Run("replaces invalid UTF-8 in the body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte{0xff, 0xfe, ' ', 'o', 'k'})
		}))
		defer srv.Close()

		f := &Fetcher{}
		res, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Contains(t, res.Body, "�")
		assert.True(t, strings.HasSuffix(res.Body, " ok"))
	})

	t.Run("rejects non-http schemes", func(t *testing.T) {
		f := &Fetcher{}
		_, err := f.Fetch(context.Background(), "ftp://example.com/file")

		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, "fetch_failure", fetchErr.Kind())
		assert.Contains(t, fetchErr.Error(), "unsupported scheme")
	})

	t.Run("wraps transport failures", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // nothing is listening anymore

		f := &Fetcher{}
		_, err := f.Fetch(context.Background(), srv.URL)

		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr)
		assert.NotNil(t, errors.Unwrap(fetchErr))
	})
}
