package logutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRedactKey(t *testing.T) {
	if got := RedactKey("short"); got != "********" {
		t.Errorf("Expected full mask for short keys, got %q", got)
	}
	if got := RedactKey("abcd12345678wxyz"); got != "abcd...wxyz" {
		t.Errorf("Expected abcd...wxyz, got %q", got)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"x^2", "x^2"},
		{"a\nb", "a\\nb"},
		{"a\tb", "a\\tb"},
		{"a\x01b", "a?b"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	if got := Sanitize(string(long)); len(got) != maxLogLength+3 {
		t.Errorf("Expected truncated output of %d chars, got %d", maxLogLength+3, len(got))
	}

	greek := strings.Repeat("α", maxLogLength+10)
	got := Sanitize(greek)
	if !utf8.ValidString(got) || strings.ContainsRune(got, utf8.RuneError) {
		t.Errorf("Expected whole runes after truncation, got %q", got)
	}
	if want := strings.Repeat("α", maxLogLength) + "..."; got != want {
		t.Errorf("Expected %d runes plus ellipsis, got %q", maxLogLength, got)
	}
}

func TestRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), logFileName)
	if err := os.WriteFile(path, []byte("current"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(archiveName(path, 1), []byte("older"), 0o644); err != nil {
		t.Fatal(err)
	}

	rotate(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected current log to be moved, stat err=%v", err)
	}
	data, err := os.ReadFile(archiveName(path, 1))
	if err != nil || string(data) != "current" {
		t.Errorf("Expected .1 to hold current log, got %q (%v)", data, err)
	}
	data, err = os.ReadFile(archiveName(path, 2))
	if err != nil || string(data) != "older" {
		t.Errorf("Expected .2 to hold older log, got %q (%v)", data, err)
	}
}
