package nodeclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/cryptoshard/internal/nodeclient"
)

func TestUpload_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/store/3", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := nodeclient.New(srv.URL)
	ok := c.Upload(context.Background(), "3", []byte("shard-bytes"))
	assert.True(t, ok)
}

func TestUpload_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := nodeclient.New(srv.URL)
	ok := c.Upload(context.Background(), "3", []byte("x"))
	assert.False(t, ok)
}

func TestUpload_Unreachable(t *testing.T) {
	c := nodeclient.New("http://127.0.0.1:1")
	ok := c.Upload(context.Background(), "0", []byte("x"))
	assert.False(t, ok)
}

func TestDownload_Success(t *testing.T) {
	want := []byte("shard payload")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/retrieve/7", r.URL.Path)
		w.Write(want)
	}))
	defer srv.Close()

	c := nodeclient.New(srv.URL)
	got, ok := c.Download(context.Background(), "7")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestDownload_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := nodeclient.New(srv.URL)
	_, ok := c.Download(context.Background(), "7")
	assert.False(t, ok)
}

func TestDelete_IdempotentOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := nodeclient.New(srv.URL)
	ok := c.Delete(context.Background(), "2")
	assert.True(t, ok)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := nodeclient.New(srv.URL)
	assert.True(t, c.Health(context.Background()))
}

func TestHealth_Unreachable(t *testing.T) {
	c := nodeclient.New("http://127.0.0.1:1")
	assert.False(t, c.Health(context.Background()))
}
