// ABOUTME: Tests for the OpenAI provider against a local HTTP server
// ABOUTME: Verifies request shape, answer extraction and error classification
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harper/transdoc/internal/errs"
)

func newOpenAITestServer(t *testing.T, status int, body string, seen *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if seen != nil && len(req.Messages) == 2 {
			*seen = req.Messages[1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(""); err == nil {
		t.Error("NewOpenAIClient(\"\") should fail")
	}
}

func TestOpenAIClient_Translate(t *testing.T) {
	var seen string
	body := `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"<output>\nBonjour le monde.\n</output>"},"finish_reason":"stop"}]}`
	srv := newOpenAITestServer(t, http.StatusOK, body, &seen)

	cfg := DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	client, err := NewOpenAIClientWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewOpenAIClientWithConfig() error = %v", err)
	}

	got, err := client.Translate(context.Background(), Request{Text: "Hello world.", Source: "en", Target: "fr"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Bonjour le monde." {
		t.Errorf("Translate() = %q", got)
	}
	if !strings.Contains(seen, "<input>\nHello world.\n</input>") {
		t.Errorf("user message = %q", seen)
	}
}

func TestOpenAIClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"bad request is permanent", http.StatusBadRequest, false},
		{"unauthorized is permanent", http.StatusUnauthorized, false},
		{"rate limited is retryable", http.StatusTooManyRequests, true},
		{"server error is retryable", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"error":{"message":"nope","type":"invalid_request_error"}}`
			srv := newOpenAITestServer(t, tt.status, body, nil)
			cfg := DefaultConfig("test-key")
			cfg.BaseURL = srv.URL + "/v1"
			client, _ := NewOpenAIClientWithConfig(cfg)

			_, err := client.Translate(context.Background(), Request{Text: "x", Source: "en", Target: "fr"})
			if !errors.Is(err, errs.ErrProvider) {
				t.Fatalf("Translate() error = %v, want ErrProvider", err)
			}
			if got := Retryable(err); got != tt.retryable {
				t.Errorf("Retryable(%v) = %v, want %v", err, got, tt.retryable)
			}
		})
	}
}
