package signer

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"strings"
	"testing"
	"time"
)

func fixedSigner() *Signer {
	return &Signer{
		Now:   func() time.Time { return time.Unix(1700000000, 0) },
		Nonce: func() string { return "AbCdEfGh12345678" },
	}
}

func TestPreSignStringOrder(t *testing.T) {
	h := Header{Timestamp: "1700000000", Nonce: "AbCdEfGh12345678", AppID: "app"}
	got := PreSignString(map[string]string{"z": "26", "a": "1"}, h, "s3cr3t")
	want := "a=1&z=26&app-id=app&random-str=AbCdEfGh12345678&timestamp=1700000000&secret=s3cr3t"
	if got != want {
		t.Errorf("PreSignString() =\n%q\nwant\n%q", got, want)
	}
}

func TestSignMatchesMD5OfPreSignString(t *testing.T) {
	h := fixedSigner().Sign(nil, "app", "s3cr3t")

	if h.Timestamp != "1700000000" {
		t.Errorf("Expected unix timestamp, got %q", h.Timestamp)
	}
	if h.AppID != "app" || h.Nonce != "AbCdEfGh12345678" {
		t.Errorf("Unexpected header %+v", h)
	}

	sum := md5.Sum([]byte("app-id=app&random-str=AbCdEfGh12345678&timestamp=1700000000&secret=s3cr3t"))
	if want := hex.EncodeToString(sum[:]); h.Sign != want {
		t.Errorf("Sign = %s, want %s", h.Sign, want)
	}
	if strings.ToLower(h.Sign) != h.Sign || len(h.Sign) != 32 {
		t.Errorf("Expected 32 lowercase hex chars, got %q", h.Sign)
	}
}

func TestSignDeterministic(t *testing.T) {
	s := fixedSigner()
	fields := map[string]string{"a": "1", "b": "2"}
	if s.Sign(fields, "app", "secret").Sign != s.Sign(fields, "app", "secret").Sign {
		t.Error("Expected identical signatures for identical inputs")
	}
}

func TestSignChangesWithInputs(t *testing.T) {
	s := fixedSigner()
	base := s.Sign(map[string]string{"a": "1", "b": "23"}, "app", "secret").Sign

	tests := []struct {
		name   string
		fields map[string]string
		appID  string
		secret string
	}{
		{"shifted boundary", map[string]string{"a": "12", "b": "3"}, "app", "secret"},
		{"changed value", map[string]string{"a": "1", "b": "24"}, "app", "secret"},
		{"changed app id", map[string]string{"a": "1", "b": "23"}, "other", "secret"},
		{"changed secret", map[string]string{"a": "1", "b": "23"}, "app", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sign(tt.fields, tt.appID, tt.secret).Sign; got == base {
				t.Errorf("Expected signature to change, both are %s", got)
			}
		})
	}
}

func TestRandomNonce(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n := RandomNonce()
		if len(n) != NonceLength {
			t.Fatalf("Expected %d characters, got %q", NonceLength, n)
		}
		for _, r := range n {
			if !strings.ContainsRune(nonceAlphabet, r) {
				t.Fatalf("Unexpected character %q in nonce %q", r, n)
			}
		}
		seen[n] = true
	}
	if len(seen) < 45 {
		t.Errorf("Expected nonces to be unique, got %d distinct of 50", len(seen))
	}
}

func TestHeaderApply(t *testing.T) {
	h := fixedSigner().Sign(nil, "app", "secret")
	dst := http.Header{}
	h.Apply(dst)
	for _, key := range []string{HeaderTimestamp, HeaderNonce, HeaderAppID, HeaderSign} {
		if dst.Get(key) == "" {
			t.Errorf("Expected header %s to be set", key)
		}
	}
	if dst.Get(HeaderSign) != h.Sign {
		t.Errorf("Expected sign header %s, got %s", h.Sign, dst.Get(HeaderSign))
	}
}
