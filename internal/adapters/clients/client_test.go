package clients

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

// remoteConfig mirrors the shipped sync client settings: one attempt and a
// short breaker. Tests that exercise retries raise MaxAttempts.
func remoteConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		ServiceName: "quote-remote",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: time.Millisecond,
			MaxInterval:     10 * time.Millisecond,
			Multiplier:      2.0,
			JitterFactor:    0.25,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Second,
			HalfOpenLimit: 1,
		},
	}
}

// postsRemote is a JSONPlaceholder-style /posts collection. Each entry in
// statuses answers one request in order; the last one repeats.
type postsRemote struct {
	*httptest.Server

	mu       sync.Mutex
	statuses []int
	requests []recordedRequest
}

type recordedRequest struct {
	method string
	path   string
	header http.Header
	body   string
}

func newPostsRemote(t *testing.T, statuses ...int) *postsRemote {
	t.Helper()

	if len(statuses) == 0 {
		statuses = []int{http.StatusOK}
	}

	r := &postsRemote{statuses: statuses}
	r.Server = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.Close)

	return r
}

func (r *postsRemote) serve(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	r.requests = append(r.requests, recordedRequest{
		method: req.Method,
		path:   req.URL.Path,
		header: req.Header.Clone(),
		body:   string(body),
	})
	status := r.statuses[min(len(r.requests), len(r.statuses))-1]
	r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if status == http.StatusOK && req.Method == http.MethodGet {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"userId": 1, "id": 1, "title": "sunt aut facere", "body": "quia et suscipit"},
		})
	}
}

func (r *postsRemote) calls(method string) []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []recordedRequest

	for _, req := range r.requests {
		if req.method == method {
			out = append(out, req)
		}
	}

	return out
}

func closeBody(t *testing.T, resp *http.Response) {
	t.Helper()

	if err := resp.Body.Close(); err != nil {
		t.Errorf("closing response body: %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "config is required")

	cfg := remoteConfig("https://jsonplaceholder.typicode.com")
	cfg.ServiceName = ""

	_, err = New(cfg)
	require.ErrorContains(t, err, "service name is required")
}

func TestNew_DefaultsAndTransport(t *testing.T) {
	cfg := remoteConfig("https://jsonplaceholder.typicode.com/")
	cfg.Timeout = 0
	cfg.Retry.MaxAttempts = 0
	cfg.Transport = config.TransportConfig{
		MaxIdleConns:        7,
		MaxIdleConnsPerHost: 3,
		IdleConnTimeout:     time.Minute,
	}

	client, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, defaultTimeout, client.http.Timeout)
	assert.Equal(t, 1, client.cfg.Retry.MaxAttempts)
	assert.Equal(t, "quote-remote", client.ServiceName())
	assert.Equal(t, "https://jsonplaceholder.typicode.com/posts", client.buildURL("posts"))
	assert.Equal(t, "https://jsonplaceholder.typicode.com/posts", client.buildURL("/posts"))

	transport, ok := client.http.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 7, transport.MaxIdleConns)
	assert.Equal(t, 3, transport.MaxIdleConnsPerHost)
	assert.Equal(t, time.Minute, transport.IdleConnTimeout)
}

func TestClient_FetchPosts(t *testing.T) {
	remote := newPostsRemote(t)

	client, err := New(remoteConfig(remote.URL))
	require.NoError(t, err)

	ctx := middleware.ContextWithRequestID(context.Background(), "req-42")
	ctx = middleware.ContextWithCorrelationID(ctx, "sync-7")

	resp, err := client.Get(ctx, "/posts")
	require.NoError(t, err)
	defer closeBody(t, resp)

	var posts []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "sunt aut facere", posts[0]["title"])

	gets := remote.calls(http.MethodGet)
	require.Len(t, gets, 1)
	assert.Equal(t, "/posts", gets[0].path)
	assert.Equal(t, "application/json", gets[0].header.Get("Accept"))
	assert.Equal(t, "req-42", gets[0].header.Get(middleware.HeaderRequestID))
	assert.Equal(t, "sync-7", gets[0].header.Get(middleware.HeaderCorrelationID))
}

func TestClient_PostQuote(t *testing.T) {
	remote := newPostsRemote(t, http.StatusCreated)

	client, err := New(remoteConfig(remote.URL))
	require.NoError(t, err)

	resp, err := client.PostJSON(context.Background(), "/posts",
		map[string]string{"text": "Stay hungry.", "category": "Motivation"})
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	posts := remote.calls(http.MethodPost)
	require.Len(t, posts, 1)
	assert.Equal(t, "application/json; charset=UTF-8", posts[0].header.Get("Content-Type"))
	assert.JSONEq(t, `{"text":"Stay hungry.","category":"Motivation"}`, posts[0].body)
}

// A failed cycle is retried by the next sync tick, so the shipped settings
// send one request per call.
func TestClient_ServerErrorSingleAttempt(t *testing.T) {
	remote := newPostsRemote(t, http.StatusInternalServerError)

	client, err := New(remoteConfig(remote.URL))
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/posts")
	require.ErrorIs(t, err, ErrMaxRetriesExceeded)

	_, err = client.PostJSON(context.Background(), "/posts", map[string]string{"text": "once"})
	require.ErrorIs(t, err, ErrMaxRetriesExceeded)

	assert.Len(t, remote.calls(http.MethodGet), 1)
	assert.Len(t, remote.calls(http.MethodPost), 1)
}

func TestClient_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		statuses  []int
		attempts  int
		wantCalls int
		wantErr   error
		wantCode  int
	}{
		{
			name:      "fetch recovers on a later attempt",
			method:    http.MethodGet,
			statuses:  []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusOK},
			attempts:  3,
			wantCalls: 3,
			wantCode:  http.StatusOK,
		},
		{
			name:      "fetch gives up after max attempts",
			method:    http.MethodGet,
			statuses:  []int{http.StatusServiceUnavailable},
			attempts:  3,
			wantCalls: 3,
			wantErr:   ErrMaxRetriesExceeded,
		},
		{
			name:      "client errors are returned without retry",
			method:    http.MethodGet,
			statuses:  []int{http.StatusNotFound},
			attempts:  3,
			wantCalls: 1,
			wantCode:  http.StatusNotFound,
		},
		{
			name:      "post is never resent",
			method:    http.MethodPost,
			statuses:  []int{http.StatusInternalServerError, http.StatusCreated},
			attempts:  3,
			wantCalls: 1,
			wantErr:   ErrMaxRetriesExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newPostsRemote(t, tt.statuses...)

			cfg := remoteConfig(remote.URL)
			cfg.Retry.MaxAttempts = tt.attempts

			client, err := New(cfg)
			require.NoError(t, err)

			var resp *http.Response
			if tt.method == http.MethodPost {
				resp, err = client.PostJSON(context.Background(), "/posts", map[string]string{"text": "x"})
			} else {
				resp, err = client.Get(context.Background(), "/posts")
			}

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				defer closeBody(t, resp)
				assert.Equal(t, tt.wantCode, resp.StatusCode)
			}

			assert.Len(t, remote.calls(tt.method), tt.wantCalls)
		})
	}
}

func TestClient_AuthAppliedToEveryAttempt(t *testing.T) {
	remote := newPostsRemote(t, http.StatusServiceUnavailable, http.StatusOK)

	cfg := remoteConfig(remote.URL)
	cfg.Retry.MaxAttempts = 2
	cfg.AuthFunc = func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer sync-token")
	}

	client, err := New(cfg)
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/posts")
	require.NoError(t, err)
	defer closeBody(t, resp)

	gets := remote.calls(http.MethodGet)
	require.Len(t, gets, 2)

	for _, g := range gets {
		assert.Equal(t, "Bearer sync-token", g.header.Get("Authorization"))
	}
}

func TestClient_SlowRemote(t *testing.T) {
	release := make(chan struct{})

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer remote.Close()
	defer close(release)

	t.Run("attempt timeout", func(t *testing.T) {
		cfg := remoteConfig(remote.URL)
		cfg.Timeout = 50 * time.Millisecond

		client, err := New(cfg)
		require.NoError(t, err)

		_, err = client.Get(context.Background(), "/posts")
		require.Error(t, err)
	})

	t.Run("caller cancels", func(t *testing.T) {
		client, err := New(remoteConfig(remote.URL))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err = client.Get(ctx, "/posts")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestCalculateBackoff(t *testing.T) {
	cfg := remoteConfig("http://remote.invalid")
	cfg.Retry.InitialInterval = 100 * time.Millisecond
	cfg.Retry.MaxInterval = time.Second

	client, err := New(cfg)
	require.NoError(t, err)

	assert.InDelta(t, 100*time.Millisecond, client.calculateBackoff(0), float64(25*time.Millisecond))
	assert.InDelta(t, 200*time.Millisecond, client.calculateBackoff(1), float64(50*time.Millisecond))
	assert.InDelta(t, 400*time.Millisecond, client.calculateBackoff(2), float64(100*time.Millisecond))
	assert.LessOrEqual(t, client.calculateBackoff(10), cfg.Retry.MaxInterval+cfg.Retry.MaxInterval/4)
}

type timeoutError struct{ timeout bool }

func (e timeoutError) Error() string   { return "i/o timeout" }
func (e timeoutError) Timeout() bool   { return e.timeout }
func (e timeoutError) Temporary() bool { return e.timeout }

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"network timeout", timeoutError{timeout: true}, true},
		{"other network error", timeoutError{timeout: false}, false},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestIsIdempotent(t *testing.T) {
	assert.True(t, isIdempotent(http.MethodGet))
	assert.True(t, isIdempotent(http.MethodPut))
	assert.False(t, isIdempotent(http.MethodPost))
	assert.False(t, isIdempotent(http.MethodPatch))
}
