package main

import (
	"image"
	"testing"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"latex-ocr", "-data-dir", "/tmp/data", "-endpoint", "http://x"},
			out:  []string{"latex-ocr", "--data-dir", "/tmp/data", "--endpoint", "http://x"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"latex-ocr", "-data-dir=/tmp/data"},
			out:  []string{"latex-ocr", "--data-dir=/tmp/data"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"latex-ocr", "--endpoint", "http://x", "--other"},
			out:  []string{"latex-ocr", "--endpoint", "http://x", "--other"},
		},
		{
			name: "Empty args keep program name",
			in:   nil,
			out:  []string{"latex-ocr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--data-dir", "/tmp/data", "--endpoint", "http://localhost:1"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.dataDir != "/tmp/data" {
		t.Fatalf("Expected dataDir=/tmp/data, got %q", opts.dataDir)
	}
	if opts.endpoint != "http://localhost:1" {
		t.Fatalf("Expected endpoint override, got %q", opts.endpoint)
	}
}

func TestScreenSourceRejectsEmptyRegion(t *testing.T) {
	if _, err := (screenSource{}).CaptureToTemp(image.Rect(5, 5, 5, 5)); err == nil {
		t.Fatal("Expected error for an empty region")
	}
}
