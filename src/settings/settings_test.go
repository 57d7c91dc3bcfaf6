package settings

import "testing"

type memPrefs map[string]string

func (m memPrefs) StringWithFallback(key, fallback string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

func (m memPrefs) SetString(key, value string) { m[key] = value }

func TestLoadDefaults(t *testing.T) {
	got := NewStore(memPrefs{}).Load()
	if got != Defaults() {
		t.Errorf("Expected defaults, got %+v", got)
	}
}

func TestLoadFallsBackOnEmptyValues(t *testing.T) {
	got := NewStore(memPrefs{keyCapture: "  ", keyUpload: "Ctrl+Shift+U"}).Load()
	if got.Capture != DefaultCapture {
		t.Errorf("Expected empty capture binding to fall back, got %q", got.Capture)
	}
	if got.Upload != "Ctrl+Shift+U" {
		t.Errorf("Expected stored upload binding, got %q", got.Upload)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	prefs := memPrefs{}
	s := NewStore(prefs)
	saved := s.Save(Hotkeys{Capture: " Ctrl+Alt+Q ", Upload: ""})
	if saved.Capture != "Ctrl+Alt+Q" || saved.Upload != DefaultUpload {
		t.Errorf("Unexpected saved value %+v", saved)
	}
	if got := s.Load(); got != saved {
		t.Errorf("Expected %+v after reload, got %+v", saved, got)
	}
	if prefs[keyUpload] != DefaultUpload {
		t.Errorf("Expected default upload binding to be written, got %q", prefs[keyUpload])
	}
}

func TestWithDefaults(t *testing.T) {
	got := Hotkeys{Capture: "  Ctrl+Q ", Upload: " "}.WithDefaults()
	if got != (Hotkeys{Capture: "Ctrl+Q", Upload: DefaultUpload}) {
		t.Errorf("Unexpected hotkeys %+v", got)
	}
}
