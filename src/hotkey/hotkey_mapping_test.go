package hotkey

import (
	"testing"
)

func TestKeyNameToRawcodes(t *testing.T) {
	tests := []struct {
		keyName  string
		expected []uint16
	}{
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"cmd", []uint16{91, 92}},

		{"a", []uint16{65}},
		{"c", []uint16{67}},
		{"v", []uint16{86}},
		{"z", []uint16{90}},

		{"0", []uint16{48}},
		{"9", []uint16{57}},

		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},

		{"space", []uint16{32}},
		{"enter", []uint16{13}},
		{"esc", []uint16{27}},
		{"pgdn", []uint16{34}},

		{"f25", nil},
		{"f01", nil},
		{"unknown", nil},
	}

	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			result := keyNameToRawcodes(tt.keyName)
			if len(result) != len(tt.expected) {
				t.Errorf("keyNameToRawcodes(%q) returned %d rawcodes, expected %d",
					tt.keyName, len(result), len(tt.expected))
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("keyNameToRawcodes(%q)[%d] = %d, expected %d",
						tt.keyName, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Alt+C", []string{"alt", "c"}},
		{"Alt+V", []string{"alt", "v"}},
		{"Ctrl+Shift+F13", []string{"ctrl", "shift", "f13"}},
		{"Control+alt+e", []string{"ctrl", "alt", "e"}},
		{"Win+Shift+S", []string{"cmd", "shift", "s"}},
		{"Meta+ x ", []string{"cmd", "x"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseHotkey(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("parseHotkey(%q) returned %d keys, expected %d",
					tt.input, len(result), len(tt.expected))
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("parseHotkey(%q)[%d] = %q, expected %q",
						tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}
