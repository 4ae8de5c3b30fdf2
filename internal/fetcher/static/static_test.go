package static

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetParsesDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div id="manylawsections"><a href="#one">One</a></div></body></html>`))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second}, nil)
	doc, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	sel := doc.Find("#manylawsections a")
	assert.Equal(t, 1, sel.Length())
	assert.Equal(t, "One", sel.First().Text())
}

func TestGetStatusErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second}, nil)
	_, err := f.Get(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestGetHonorsContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	f := New(Config{Timeout: 30 * time.Second}, nil)
	_, err := f.Get(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
