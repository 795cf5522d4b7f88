package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	perr "sibyl/internal/platform/errors"
)

func testClient(url string) *Client {
	return NewClient(Options{
		BaseURL:          url,
		APIKey:           "k",
		Model:            "test-model",
		Timeout:          2 * time.Second,
		BreakerThreshold: 3,
		BreakerCooldown:  time.Minute,
	})
}

func TestChat_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("auth header = %q", got)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"sql\":\"SELECT 1\"}"}}]}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Chat(context.Background(), "sys", "user", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(got, "SELECT 1") {
		t.Fatalf("content = %q", got)
	}
}

func TestChat_Streaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"SELECT\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\" 1\"}}]}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer srv.Close()

	var tokens []string
	got, err := testClient(srv.URL).Chat(context.Background(), "sys", "user", func(tok string) {
		tokens = append(tokens, tok)
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "SELECT 1" {
		t.Fatalf("content = %q", got)
	}
	if len(tokens) != 2 || tokens[0] != "SELECT" || tokens[1] != " 1" {
		t.Fatalf("tokens = %v", tokens)
	}
}

func TestChat_AuthRejectedNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Chat(context.Background(), "s", "u", nil)
	if !perr.IsCode(err, perr.ErrorCodeLLMUnavailable) {
		t.Fatalf("code = %v, want llm unavailable", perr.CodeOf(err))
	}
	if perr.Retryable(err) {
		t.Fatalf("auth rejection must not be retryable")
	}
}

func TestChat_UpstreamErrorsRetryable(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := testClient(srv.URL).Chat(context.Background(), "s", "u", nil)
		srv.Close()
		if !perr.IsCode(err, perr.ErrorCodeTransientNetwork) {
			t.Fatalf("status %d: code = %v, want transient network", status, perr.CodeOf(err))
		}
		if !perr.Retryable(err) {
			t.Fatalf("status %d must be retryable", status)
		}
	}
}

func TestChat_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Chat(context.Background(), "s", "u", nil)
	if !perr.IsCode(err, perr.ErrorCodeLLMMalformed) {
		t.Fatalf("code = %v, want llm malformed", perr.CodeOf(err))
	}
}

func TestChat_CallTimeoutMapsToLLMTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// drain the body so the server's background read can observe the
		// client disconnect and cancel the request context
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Chat(context.Background(), "s", "u", nil)
	if !perr.IsCode(err, perr.ErrorCodeLLMTimeout) {
		t.Fatalf("code = %v, want llm timeout", perr.CodeOf(err))
	}
	if !perr.Retryable(err) {
		t.Fatalf("llm timeout must be retryable")
	}
}

func TestChat_RequestDeadlineMapsToTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// drain the body so the server's background read can observe the
		// client disconnect and cancel the request context
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 10 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Chat(ctx, "s", "u", nil)
	if !perr.IsCode(err, perr.ErrorCodeTimeout) {
		t.Fatalf("code = %v, want timeout", perr.CodeOf(err))
	}
}

func TestChat_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for range 3 {
		_, err := c.Chat(context.Background(), "s", "u", nil)
		if !perr.IsCode(err, perr.ErrorCodeTransientNetwork) {
			t.Fatalf("warmup code = %v", perr.CodeOf(err))
		}
	}

	_, err := c.Chat(context.Background(), "s", "u", nil)
	if !perr.IsCode(err, perr.ErrorCodeLLMUnavailable) {
		t.Fatalf("code = %v, want llm unavailable after breaker opens", perr.CodeOf(err))
	}
}
