package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sse(w http.ResponseWriter, deltas ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, d := range deltas {
		fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func newTestClient(url string) *Client {
	c := NewClient(Config{URL: url, APIKey: "k", Model: "m", SystemPrompt: "be brief"})
	c.SetRetry(3, time.Millisecond)
	return c
}

func collect(t *testing.T, c *Client) (string, error) {
	t.Helper()
	var sb strings.Builder
	err := c.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, func(d string) error {
		sb.WriteString(d)
		return nil
	})
	return sb.String(), err
}

func TestStreamPrependsSystemPromptAndJoinsDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.Stream)
		require.Equal(t, "m", req.Model)
		require.Len(t, req.Messages, 2)
		require.Equal(t, "system", req.Messages[0].Role)
		require.Equal(t, "be brief", req.Messages[0].Content)
		sse(w, "Hel", "lo")
	}))
	defer srv.Close()

	out, err := collect(t, newTestClient(srv.URL))
	require.NoError(t, err)
	require.Equal(t, "Hello", out)
}

func TestStreamRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		sse(w, "ok")
	}))
	defer srv.Close()

	out, err := collect(t, newTestClient(srv.URL))
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestStreamRateLimitedAfterBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := collect(t, newTestClient(srv.URL))
	var rl *RateLimitedError
	require.True(t, errors.As(err, &rl))
}

func TestStreamPaymentRequiredIsFatal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	_, err := collect(t, newTestClient(srv.URL))
	require.ErrorIs(t, err, ErrPaymentRequired)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestStreamDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := collect(t, newTestClient(srv.URL))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusBadRequest, se.Code)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestStreamRetriesServerErrorBeforeFirstDelta(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		sse(w, "third time")
	}))
	defer srv.Close()

	out, err := collect(t, newTestClient(srv.URL))
	require.NoError(t, err)
	require.Equal(t, "third time", out)
}

func TestStreamOutlivesIdleTimeoutWhileFramesKeepComing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 5; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"t%d \"}}]}\n\n", i)
			flusher.Flush()
			time.Sleep(100 * time.Millisecond)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetIdleTimeout(250 * time.Millisecond)
	require.Zero(t, c.httpClient.Timeout)

	out, err := collect(t, c)
	require.NoError(t, err)
	require.Equal(t, "t0 t1 t2 t3 t4 ", out)
}

func TestStreamStalledAfterFirstDelta(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"part\"}}]}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetIdleTimeout(100 * time.Millisecond)

	out, err := collect(t, c)
	require.ErrorIs(t, err, ErrStreamStalled)
	require.Equal(t, "part", out)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestStreamNotConfigured(t *testing.T) {
	err := NewClient(Config{}).Stream(context.Background(), nil, func(string) error { return nil })
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestParseRetryAfter(t *testing.T) {
	require.Equal(t, 3*time.Second, parseRetryAfter("3"))
	require.Zero(t, parseRetryAfter(""))
	require.Zero(t, parseRetryAfter("soon"))
}
