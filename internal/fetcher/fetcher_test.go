package fetcher

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dno-gatherer/internal/config"
	"github.com/ternarybob/dno-gatherer/internal/model"
)

func testConfig() config.FetcherConfig {
	return config.FetcherConfig{
		UserAgent:      "DNO-Data-Gatherer/test",
		RequestTimeout: 2 * time.Second,
		MaxRetries:     3,
		BaseBackoff:    5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		JitterFraction: 0.1,
		MaxRedirects:   5,
		MaxBodyBytes:   1024,
		PerHostCap:     2,
		PerHostDelay:   0,
		CancelGrace:    time.Second,
	}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(200)
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := New(testConfig(), arbor.NewLogger())
	result, err := f.Fetch(t.Context(), srv.URL, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 200, result.Status)
	assert.Contains(t, string(result.Body), "ok")
}

func TestFetch_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(503)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(testConfig(), arbor.NewLogger())
	result, err := f.Fetch(t.Context(), srv.URL, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 200, result.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_FatalStatusNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(404)
	}))
	defer srv.Close()

	f := New(testConfig(), arbor.NewLogger())
	_, err := f.Fetch(t.Context(), srv.URL, time.Time{})
	require.Error(t, err)
	kind, ok := model.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.FailurePermanentFetch, kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_OversizeBodyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	f := New(testConfig(), arbor.NewLogger())
	_, err := f.Fetch(t.Context(), srv.URL, time.Time{})
	require.Error(t, err)
	kind, ok := model.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.FailurePermanentFetch, kind)
}

func TestFetch_SameSchemeRedirectFollowed(t *testing.T) {
	insecure := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer insecure.Close()

	secure := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, insecure.URL, http.StatusFound)
	}))
	defer secure.Close()

	f := New(testConfig(), arbor.NewLogger())
	// httptest servers are both http://, so this exercises the redirect
	// count path rather than true scheme downgrade; a same-scheme chain of
	// one redirect must still succeed.
	result, err := f.Fetch(t.Context(), secure.URL, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 200, result.Status)
}
