package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	backoffUnit = time.Millisecond
}

func TestCompileSendsSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req compileRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "lualatex", req.Compiler)
		if !assert.Len(t, req.Resources, 1) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.True(t, req.Resources[0].Main)
		assert.Equal(t, `\documentclass{standalone}`, req.Resources[0].Content)

		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.5 body"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "lualatex", time.Second)
	pdf, err := c.Compile(context.Background(), `\documentclass{standalone}`)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.5 body"), pdf)
}

func TestCompileReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"COMPILATION_ERROR","detail":"Undefined control sequence"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Compile(context.Background(), "x")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "COMPILATION_ERROR - Undefined control sequence")
	assert.False(t, statusErr.Retryable())
}

func TestCompileRejectsNonPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Compile(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a PDF")
}

func TestCompileWithRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("%PDF ok"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL, "", time.Second).CompileWithRetry(context.Background(), "x", 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF ok"), pdf)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompileWithRetryStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).CompileWithRetry(context.Background(), "x", 5)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompileWithRetryGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).CompileWithRetry(context.Background(), "x", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 retries")
}

func TestCompileWithRetryHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("http://127.0.0.1:1", "", time.Second).CompileWithRetry(ctx, "x", 3)
	assert.ErrorIs(t, err, context.Canceled)
}
