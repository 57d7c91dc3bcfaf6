package recognize

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"latex-ocr/src/apperr"
	"latex-ocr/src/config"
	"latex-ocr/src/signer"
	"latex-ocr/src/simpletex"
)

var testCreds = config.Credentials{AppID: "app", AppSecret: "secret"}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formula.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newPipeline(url string) *Pipeline {
	p := New(simpletex.New(url, time.Second))
	p.Signer = &signer.Signer{
		Now:   func() time.Time { return time.Unix(1700000000, 0) },
		Nonce: func() string { return "AbCdEfGh12345678" },
	}
	return p
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunInterpretsResponses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantLatex string
		wantKind  apperr.Kind
		wantMsg   string
	}{
		{"success", 200, `{"status":true,"res":{"latex":"x^2","conf":0.9}}`, "x^2", 0, ""},
		{"success trimmed", 200, `{"status":true,"res":{"latex":"  \\alpha \n"}}`, `\alpha`, 0, ""},
		{"empty latex", 200, `{"status":true,"res":{"latex":""}}`, "", apperr.KindValidation, "empty result"},
		{"whitespace latex", 200, `{"status":true,"res":{"latex":"   "}}`, "", apperr.KindValidation, "empty result"},
		{"missing res", 200, `{"status":true}`, "", apperr.KindValidation, "empty result"},
		{"remote message", 200, `{"status":false,"message":"invalid sign"}`, "", apperr.KindRemote, "invalid sign"},
		{"remote no message", 401, `{"status":false}`, "", apperr.KindRemote, "unknown error"},
		{"malformed", 502, `<html>bad gateway</html>`, "", apperr.KindParse, "failed to parse response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			res := newPipeline(srv.URL).Run(context.Background(), writeImage(t), testCreds, nil)

			if tt.wantMsg == "" {
				if !res.Success() {
					t.Fatalf("Expected success, got %v", res.Err)
				}
				if res.Latex != tt.wantLatex {
					t.Errorf("Expected latex %q, got %q", tt.wantLatex, res.Latex)
				}
				if res.Message() != "" {
					t.Errorf("Expected empty message on success, got %q", res.Message())
				}
				return
			}
			if res.Success() {
				t.Fatalf("Expected failure, got latex %q", res.Latex)
			}
			if kind := apperr.KindOf(res.Err); kind != tt.wantKind {
				t.Errorf("Expected kind %v, got %v", tt.wantKind, kind)
			}
			if !strings.HasPrefix(res.Message(), tt.wantMsg) {
				t.Errorf("Expected message starting with %q, got %q", tt.wantMsg, res.Message())
			}
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	p := newPipeline("http://127.0.0.1:1")
	res := p.Run(context.Background(), filepath.Join(t.TempDir(), "missing.png"), testCreds, nil)
	if !apperr.IsKind(res.Err, apperr.KindIO) {
		t.Errorf("Expected IO failure, got %v", res.Err)
	}
	if !errors.Is(res.Err, os.ErrNotExist) {
		t.Errorf("Expected cause to be kept, got %v", res.Err)
	}
}

func TestRunMissingCredentials(t *testing.T) {
	p := newPipeline("http://127.0.0.1:1")
	res := p.Run(context.Background(), writeImage(t), config.Credentials{AppID: " "}, nil)
	if !apperr.IsKind(res.Err, apperr.KindConfig) {
		t.Errorf("Expected Config failure, got %v", res.Err)
	}
}

func TestRunNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := newPipeline(url).Run(context.Background(), writeImage(t), testCreds, nil)
	if !apperr.IsKind(res.Err, apperr.KindNetwork) {
		t.Errorf("Expected Network failure, got %v", res.Err)
	}
}

func TestRunCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := newPipeline(srv.URL).Run(ctx, writeImage(t), testCreds, nil)
	if !apperr.IsKind(res.Err, apperr.KindNetwork) {
		t.Errorf("Expected Network failure on cancellation, got %v", res.Err)
	}
}

func TestRunSendsSignedHeaders(t *testing.T) {
	var gotSign, gotNonce, gotTimestamp string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSign = r.Header.Get(signer.HeaderSign)
		gotNonce = r.Header.Get(signer.HeaderNonce)
		gotTimestamp = r.Header.Get(signer.HeaderTimestamp)
		w.Write([]byte(`{"status":true,"res":{"latex":"y"}}`))
	}))
	defer srv.Close()

	newPipeline(srv.URL).Run(context.Background(), writeImage(t), testCreds, nil)

	want := signer.Digest("app-id=app&random-str=AbCdEfGh12345678&timestamp=1700000000&secret=secret")
	if gotSign != want {
		t.Errorf("Expected sign %s, got %s", want, gotSign)
	}
	if gotNonce != "AbCdEfGh12345678" || gotTimestamp != "1700000000" {
		t.Errorf("Unexpected nonce/timestamp %q %q", gotNonce, gotTimestamp)
	}
}

func TestRecognizeEventOrder(t *testing.T) {
	srv := serve(t, 200, `{"status":true,"res":{"latex":"E=mc^2"}}`)
	events := newPipeline(srv.URL).Recognize(context.Background(), writeImage(t), testCreds)

	var progress []string
	var results []Result
	for ev := range events {
		if ev.Result != nil {
			results = append(results, *ev.Result)
			continue
		}
		if len(results) > 0 {
			t.Errorf("Progress %q arrived after the result", ev.Progress)
		}
		progress = append(progress, ev.Progress)
	}

	want := []string{ProgressPreparing, ProgressBuilding, ProgressSending, ProgressParsing}
	if strings.Join(progress, "|") != strings.Join(want, "|") {
		t.Errorf("Expected progress %v, got %v", want, progress)
	}
	if len(results) != 1 {
		t.Fatalf("Expected exactly one result, got %d", len(results))
	}
	if results[0].Latex != "E=mc^2" {
		t.Errorf("Expected E=mc^2, got %q", results[0].Latex)
	}
}

func TestRecognizeFailureStillTerminates(t *testing.T) {
	events := newPipeline("http://127.0.0.1:1").Recognize(context.Background(), filepath.Join(t.TempDir(), "nope.png"), testCreds)

	var count int
	var last Event
	for ev := range events {
		count++
		last = ev
	}
	if count != 2 {
		t.Errorf("Expected one progress event and one result, got %d events", count)
	}
	if last.Result == nil || last.Result.Success() {
		t.Errorf("Expected failing terminal result, got %+v", last)
	}
}
