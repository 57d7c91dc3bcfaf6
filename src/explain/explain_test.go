package explain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"latex-ocr/src/apperr"
)

func newTestClient(url string) *Client {
	c := New(url, "test-model", time.Second)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestExplainSendsChatRequest(t *testing.T) {
	var got ChatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  **Pythagoras** $a^2$ \n"}}]}`))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Explain(context.Background(), " a^2+b^2=c^2 ", "key")
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if text != "**Pythagoras** $a^2$" {
		t.Errorf("Unexpected explanation %q", text)
	}
	if auth != "Bearer key" {
		t.Errorf("Unexpected Authorization header %q", auth)
	}
	if got.Model != "test-model" || len(got.Messages) != 2 || got.Stream {
		t.Fatalf("Unexpected request %+v", got)
	}
	if !strings.Contains(got.Messages[1].Content, "$$a^2+b^2=c^2$$") {
		t.Errorf("Expected trimmed formula in prompt, got %q", got.Messages[1].Content)
	}
}

func TestExplainFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind apperr.Kind
		wantMsg  string
		attempts int32
	}{
		{"api error", 401, `{"error":{"message":"invalid key","type":"auth"}}`, apperr.KindRemote, "invalid key", 1},
		{"bad request status", 400, `<html>bad</html>`, apperr.KindRemote, "status 400", 1},
		{"server error retried", 503, `{"error":{"message":"busy"}}`, apperr.KindRemote, "busy", maxRetries},
		{"rate limited retried", 429, ``, apperr.KindRemote, "status 429", maxRetries},
		{"malformed", 200, `not json`, apperr.KindParse, "failed to parse response", 1},
		{"no choices", 200, `{"choices":[]}`, apperr.KindValidation, "empty explanation", 1},
		{"blank content", 200, `{"choices":[{"message":{"content":"  "}}]}`, apperr.KindValidation, "empty explanation", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Explain(context.Background(), "x", "key")
			if kind := apperr.KindOf(err); kind != tt.wantKind {
				t.Errorf("Expected kind %v, got %v (%v)", tt.wantKind, kind, err)
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected message containing %q, got %v", tt.wantMsg, err)
			}
			if n := calls.Load(); n != tt.attempts {
				t.Errorf("Expected %d attempts, got %d", tt.attempts, n)
			}
		})
	}
}

func TestExplainRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Explain(context.Background(), "x", "key")
	if err != nil || text != "ok" {
		t.Fatalf("Expected success on retry, got %q, %v", text, err)
	}
}

func TestExplainValidatesInput(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	if _, err := c.Explain(context.Background(), "  ", "key"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("Expected Validation error for empty formula, got %v", err)
	}
	if _, err := c.Explain(context.Background(), "x", " "); !apperr.IsKind(err, apperr.KindConfig) {
		t.Errorf("Expected Config error for missing key, got %v", err)
	}
}

func TestExplainNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, err := newTestClient(url).Explain(context.Background(), "x", "key"); !apperr.IsKind(err, apperr.KindNetwork) {
		t.Errorf("Expected Network error, got %v", err)
	}
}

func TestStartDeliversOneResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var results []Result
	for r := range newTestClient("http://127.0.0.1:1").Start(ctx, "x", "key") {
		results = append(results, r)
	}
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("Expected a single failed result, got %+v", results)
	}
}
