// Package hotkey registers process-wide key combinations on top of a single gohook listener.
package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"

	"latex-ocr/src/apperr"
)

// Binding ties a combination such as "Alt+C" to an action. Action runs on the hook
// goroutine and must not block.
type Binding struct {
	Name   string
	Combo  string
	Action func()
}

type combo struct {
	binding Binding
	keys    [][]uint16
}

// Manager owns the global hook. The hook is started on the first Bind and runs until Stop.
type Manager struct {
	mu      sync.Mutex
	combos  []combo
	pressed map[uint16]bool
	started bool
	stopped bool
}

func NewManager() *Manager {
	return &Manager{pressed: make(map[uint16]bool)}
}

// Bind replaces the active bindings. The previous set is dropped before the new one
// takes effect, so no combination can fire twice. Unparseable combinations are
// skipped and reported in the returned error; the rest stay active.
func (m *Manager) Bind(bindings []Binding) error {
	var next []combo
	var bad []string
	for _, b := range bindings {
		keys, err := parseCombo(b.Combo)
		if err != nil {
			log.Printf("Hotkey: %s: %v", b.Name, err)
			bad = append(bad, b.Combo)
			continue
		}
		next = append(next, combo{binding: b, keys: keys})
		log.Printf("Hotkey: bound %s to %s", b.Name, b.Combo)
	}

	m.mu.Lock()
	m.combos = next
	m.pressed = make(map[uint16]bool)
	start := !m.started && !m.stopped
	m.started = true
	m.mu.Unlock()

	if start {
		go m.listen()
	}
	if len(bad) > 0 {
		return apperr.Newf(apperr.KindConfig, "invalid hotkey: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Stop ends the hook. The manager cannot be restarted.
func (m *Manager) Stop() {
	m.mu.Lock()
	wasStarted := m.started && !m.stopped
	m.stopped = true
	m.combos = nil
	m.mu.Unlock()
	if wasStarted {
		gohook.End()
	}
}

func (m *Manager) listen() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in hotkey goroutine: %v", r)
		}
	}()

	evChan := gohook.Start()
	if evChan == nil {
		log.Printf("ERROR: gohook.Start() returned nil channel")
		return
	}
	log.Printf("Hotkey: listener started")
	for ev := range evChan {
		switch ev.Kind {
		case gohook.KeyDown:
			for _, action := range m.keyDown(ev.Rawcode) {
				action()
			}
		case gohook.KeyUp:
			m.keyUp(ev.Rawcode)
		}
	}
	log.Printf("Hotkey: event channel closed")
}

// keyDown records the key and returns the actions of every combination that is now
// fully held and contains the key. Key state is reset after a match.
func (m *Manager) keyDown(rawcode uint16) []func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pressed[rawcode] = true

	var fired []func()
	for _, c := range m.combos {
		if c.contains(rawcode) && c.held(m.pressed) {
			log.Printf("Hotkey: %s (%s) activated", c.binding.Name, c.binding.Combo)
			if c.binding.Action != nil {
				fired = append(fired, c.binding.Action)
			}
		}
	}
	if len(fired) > 0 {
		m.pressed = make(map[uint16]bool)
	}
	return fired
}

func (m *Manager) keyUp(rawcode uint16) {
	m.mu.Lock()
	delete(m.pressed, rawcode)
	m.mu.Unlock()
}

func (c combo) contains(rawcode uint16) bool {
	for _, alts := range c.keys {
		for _, code := range alts {
			if code == rawcode {
				return true
			}
		}
	}
	return false
}

func (c combo) held(pressed map[uint16]bool) bool {
	for _, alts := range c.keys {
		down := false
		for _, code := range alts {
			if pressed[code] {
				down = true
				break
			}
		}
		if !down {
			return false
		}
	}
	return true
}

// Validate reports every combo that cannot be bound.
func Validate(combos ...string) error {
	var bad []string
	for _, c := range combos {
		if _, err := parseCombo(c); err != nil {
			bad = append(bad, c)
		}
	}
	if len(bad) > 0 {
		return apperr.Newf(apperr.KindConfig, "invalid hotkey: %s", strings.Join(bad, ", "))
	}
	return nil
}

func parseCombo(s string) ([][]uint16, error) {
	names := parseHotkey(s)
	if len(names) == 0 {
		return nil, fmt.Errorf("empty hotkey")
	}
	keys := make([][]uint16, 0, len(names))
	for _, name := range names {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("unknown key %q in %q", name, s)
		}
		keys = append(keys, codes)
	}
	return keys, nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names.
func parseHotkey(hotkey string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkey), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			keys = append(keys, "ctrl")
		case "win", "cmd", "super", "meta":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

var namedKeys = map[string][]uint16{
	// modifiers: left and right variants
	"ctrl":  {162, 163},
	"alt":   {164, 165},
	"shift": {160, 161},
	"cmd":   {91, 92},

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes.
func keyNameToRawcodes(name string) []uint16 {
	name = strings.ToLower(strings.TrimSpace(name))
	if codes, ok := namedKeys[name]; ok {
		return codes
	}
	if len(name) == 1 {
		switch c := name[0]; {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48}
		}
	}
	var n int
	if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 24 && name == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 is 112
	}
	return nil
}
