package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundpool/snapsync/internal/logger"
)

func newTestClient(baseURL string, retries int) *Client {
	return NewClient(Config{
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		RetryCount:    retries,
		RetryWaitTime: time.Millisecond,
	}, logger.Nop())
}

func TestFetchBlob_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	body, err := newTestClient(srv.URL, 2).FetchBlob(context.Background(), srv.URL+"/blob")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), body)
}

func TestFetchBlob_ServerErrorRetriedThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("eventually"))
	}))
	defer srv.Close()

	body, err := newTestClient(srv.URL, 2).FetchBlob(context.Background(), srv.URL+"/blob")
	require.NoError(t, err)
	assert.Equal(t, []byte("eventually"), body)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchBlob_ServerErrorExhaustsBudget(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).FetchBlob(context.Background(), srv.URL+"/blob")
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Status)
	assert.Equal(t, int32(3), attempts.Load(), "3 attempts total for the budget")
}

func TestFetchBlob_ClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).FetchBlob(context.Background(), srv.URL+"/blob")
	require.Error(t, err)
	assert.Equal(t, ErrorKindHTTP, Classify(err))
	assert.Equal(t, int32(1), attempts.Load(), "client errors are fatal immediately")
}

func TestFetchBlob_TimeoutRetriedThenFatal(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:       srv.URL,
		Timeout:       30 * time.Millisecond,
		RetryCount:    2,
		RetryWaitTime: time.Millisecond,
	}, logger.Nop())

	_, err := client.FetchBlob(context.Background(), srv.URL+"/blob")
	require.Error(t, err)
	assert.Equal(t, ErrorKindOther, Classify(err), "a per-attempt timeout must not look like a caller abort")
	assert.Equal(t, int32(3), attempts.Load(), "timeouts consume the same retry budget as 5xx")
}

func TestNewClient_ZeroRetryCountKeepsBudget(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:       srv.URL,
		RetryWaitTime: time.Millisecond,
	}, logger.Nop())

	_, err := client.FetchBlob(context.Background(), srv.URL+"/blob")
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load(), "a zero-value config still gets 3 attempts")
}

func TestFetchBlob_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(srv.URL, 2).FetchBlob(ctx, srv.URL+"/blob")
	require.Error(t, err)
	assert.Equal(t, ErrorKindCancelled, Classify(err))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorKindNone, Classify(nil))
	assert.Equal(t, ErrorKindHTTP, Classify(&HTTPError{Status: 500}))
	assert.Equal(t, ErrorKindCancelled, Classify(context.Canceled))
	assert.Equal(t, ErrorKindOther, Classify(errors.New("connection reset")))

	// A deadline error is a per-attempt timeout, not a caller abort.
	assert.Equal(t, ErrorKindOther, Classify(context.DeadlineExceeded))
	assert.Equal(t, ErrorKindOther, Classify(fmt.Errorf("fetch http://x/blob: %w", context.DeadlineExceeded)))
}

func TestHTTPError_Error(t *testing.T) {
	assert.Equal(t, "http 502", (&HTTPError{Status: 502}).Error())
	assert.Equal(t, "http 500: boom", (&HTTPError{Status: 500, Body: "boom"}).Error())
}

func TestGetSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/p1/snapshots/s1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"s1","file_url":"http://x/blob","blocks":[{"hash":"AB","url":"http://x/b/AB"}]}`))
	}))
	defer srv.Close()

	info, err := newTestClient(srv.URL, 0).GetSnapshot(context.Background(), "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", info.ID)
	require.Len(t, info.Blocks, 1)
	assert.Equal(t, "AB", info.Blocks[0].Hash)
}
