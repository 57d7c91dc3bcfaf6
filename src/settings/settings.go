// Package settings persists the global hotkey bindings in the platform preference store.
package settings

import "strings"

const (
	DefaultCapture = "Alt+C"
	DefaultUpload  = "Alt+V"

	keyCapture = "shortcuts.capture"
	keyUpload  = "shortcuts.upload"
)

// Hotkeys holds the two global key combinations.
type Hotkeys struct {
	Capture string
	Upload  string
}

// Defaults returns the built-in bindings.
func Defaults() Hotkeys {
	return Hotkeys{Capture: DefaultCapture, Upload: DefaultUpload}
}

// WithDefaults trims both bindings and replaces empty ones with the defaults.
func (h Hotkeys) WithDefaults() Hotkeys {
	return Hotkeys{
		Capture: orDefault(h.Capture, DefaultCapture),
		Upload:  orDefault(h.Upload, DefaultUpload),
	}
}

// Preferences is the subset of fyne.Preferences the store needs.
type Preferences interface {
	StringWithFallback(key, fallback string) string
	SetString(key, value string)
}

type Store struct {
	prefs Preferences
}

func NewStore(prefs Preferences) *Store {
	return &Store{prefs: prefs}
}

// Load reads the bindings; empty values fall back to the defaults.
func (s *Store) Load() Hotkeys {
	return Hotkeys{
		Capture: orDefault(s.prefs.StringWithFallback(keyCapture, DefaultCapture), DefaultCapture),
		Upload:  orDefault(s.prefs.StringWithFallback(keyUpload, DefaultUpload), DefaultUpload),
	}
}

// Save writes the bindings, replacing empty values with the defaults, and returns
// what was stored.
func (s *Store) Save(h Hotkeys) Hotkeys {
	h = h.WithDefaults()
	s.prefs.SetString(keyCapture, h.Capture)
	s.prefs.SetString(keyUpload, h.Upload)
	return h
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}
