// Package keyboard tracks modifier state, the configured toggle shortcut,
// and the set of keys currently being forwarded.
//
// Grounded on original_source/src/KeyboardState.h/.cpp: modifier tracking,
// ParseKey/SetToggleShortcut string parsing, and the pressed-key ledger
// used to drain forwarded keys on toggle-off.
package keyboard

import (
	"fmt"
	"strconv"
	"strings"
)

// Windows virtual key codes named in spec.md's shortcut grammar. Values
// match golang.org/x/sys/windows's VK_* constants so the hook package can
// use them directly without a translation table.
const (
	VKControl  = 0x11
	VKLControl = 0xA2
	VKRControl = 0xA3
	VKLWin     = 0x5B
	VKRWin     = 0x5C
	VKMenu     = 0x12
	VKLMenu    = 0xA4
	VKRMenu    = 0xA5
	VKShift    = 0x10
	VKLShift   = 0xA0
	VKRShift   = 0xA1
	VKF1       = 0x70
	VKSpace    = 0x20
	VKReturn   = 0x0D
	VKEscape   = 0x1B
	VKTab      = 0x09
	VKUp       = 0x26
	VKDown     = 0x28
	VKLeft     = 0x25
	VKRight    = 0x27
	VKHome     = 0x24
	VKEnd      = 0x23
	VKPrior    = 0x21
	VKNext     = 0x22
	VKInsert   = 0x2D
	VKDelete   = 0x2E
	VKBack     = 0x08
	VKPause    = 0x13
	VKSnapshot = 0x2C
	VKCapital  = 0x14
	VKNumlock  = 0x90
)

var namedKeys = map[string]uint32{
	"space": VKSpace, "enter": VKReturn, "return": VKReturn,
	"escape": VKEscape, "esc": VKEscape, "tab": VKTab,
	"up": VKUp, "down": VKDown, "left": VKLeft, "right": VKRight,
	"home": VKHome, "end": VKEnd,
	"pageup": VKPrior, "pgup": VKPrior,
	"pagedown": VKNext, "pgdn": VKNext,
	"insert": VKInsert, "ins": VKInsert,
	"delete": VKDelete, "del": VKDelete,
	"backspace": VKBack, "bs": VKBack,
	"pause": VKPause, "printscreen": VKSnapshot,
	"capslock": VKCapital, "numlock": VKNumlock,
}

// ModifierState tracks which modifier keys are currently held, updated from
// every key-down/key-up edge the hook reports (spec.md §4.G).
type ModifierState struct {
	Ctrl  bool
	Win   bool
	Alt   bool
	Shift bool
}

// IsControlKey reports whether vkCode is any Ctrl key variant.
func IsControlKey(vkCode uint32) bool {
	return vkCode == VKControl || vkCode == VKLControl || vkCode == VKRControl
}

// IsWinKey reports whether vkCode is either Windows key.
func IsWinKey(vkCode uint32) bool {
	return vkCode == VKLWin || vkCode == VKRWin
}

// IsAltKey reports whether vkCode is any Alt key variant.
func IsAltKey(vkCode uint32) bool {
	return vkCode == VKMenu || vkCode == VKLMenu || vkCode == VKRMenu
}

// IsShiftKey reports whether vkCode is any Shift key variant.
func IsShiftKey(vkCode uint32) bool {
	return vkCode == VKShift || vkCode == VKLShift || vkCode == VKRShift
}

// Update applies one key-down/key-up edge to the modifier ledger.
func (m *ModifierState) Update(vkCode uint32, pressed bool) {
	if IsControlKey(vkCode) {
		m.Ctrl = pressed
	}
	if IsWinKey(vkCode) {
		m.Win = pressed
	}
	if IsAltKey(vkCode) {
		m.Alt = pressed
	}
	if IsShiftKey(vkCode) {
		m.Shift = pressed
	}
}

// Reset clears all tracked modifiers, used right after a toggle fires.
func (m *ModifierState) Reset() {
	*m = ModifierState{}
}

// ShortcutSpec is a parsed toggle-shortcut chord.
type ShortcutSpec struct {
	Ctrl  bool
	Win   bool
	Alt   bool
	Shift bool
	Key   uint32
}

// DefaultShortcut is ctrl+win+f11, the reference toggle chord.
func DefaultShortcut() ShortcutSpec {
	return ShortcutSpec{Ctrl: true, Win: true, Key: VKF1 + 10}
}

// ParseShortcut parses a case-insensitive "mod[+mod...]+key" string.
// Recognized modifiers are ctrl/control, win/windows/cmd, alt, shift;
// recognized keys are f1-f24, a-z, 0-9, and the named keys in namedKeys.
func ParseShortcut(s string) (ShortcutSpec, error) {
	var spec ShortcutSpec
	haveKey := false

	for _, segment := range strings.Split(s, "+") {
		token := strings.ToLower(strings.TrimSpace(segment))
		if token == "" {
			continue
		}
		switch token {
		case "ctrl", "control":
			spec.Ctrl = true
			continue
		case "win", "windows", "cmd":
			spec.Win = true
			continue
		case "alt":
			spec.Alt = true
			continue
		case "shift":
			spec.Shift = true
			continue
		}

		vk, err := parseKeyToken(token)
		if err != nil {
			return ShortcutSpec{}, fmt.Errorf("unknown key in shortcut: %q", segment)
		}
		spec.Key = vk
		haveKey = true
	}

	if !haveKey {
		return ShortcutSpec{}, fmt.Errorf("shortcut %q has no key", s)
	}
	return spec, nil
}

func parseKeyToken(token string) (uint32, error) {
	if strings.HasPrefix(token, "f") && len(token) > 1 {
		if num, err := strconv.Atoi(token[1:]); err == nil && num >= 1 && num <= 24 {
			return VKF1 + uint32(num-1), nil
		}
	}
	if len(token) == 1 {
		c := token[0]
		if c >= 'a' && c <= 'z' {
			return uint32(c - 'a' + 'A'), nil
		}
		if c >= '0' && c <= '9' {
			return uint32(c), nil
		}
	}
	if vk, ok := namedKeys[token]; ok {
		return vk, nil
	}
	return 0, fmt.Errorf("unrecognized key token %q", token)
}

// String renders the shortcut back out in canonical form, for logging
// and round-trip tests.
func (s ShortcutSpec) String() string {
	var parts []string
	if s.Ctrl {
		parts = append(parts, "ctrl")
	}
	if s.Win {
		parts = append(parts, "win")
	}
	if s.Alt {
		parts = append(parts, "alt")
	}
	if s.Shift {
		parts = append(parts, "shift")
	}
	parts = append(parts, keyTokenFor(s.Key))
	return strings.Join(parts, "+")
}

func keyTokenFor(vk uint32) string {
	if vk >= VKF1 && vk < VKF1+24 {
		return fmt.Sprintf("f%d", vk-VKF1+1)
	}
	if vk >= 'A' && vk <= 'Z' {
		return strings.ToLower(string(rune(vk)))
	}
	if vk >= '0' && vk <= '9' {
		return string(rune(vk))
	}
	for name, code := range namedKeys {
		if code == vk {
			return name
		}
	}
	return fmt.Sprintf("0x%02x", vk)
}

// Matches reports whether the current modifier state plus a just-pressed
// key exactly matches this shortcut (spec.md's strict-match requirement:
// no extra modifiers held).
func (s ShortcutSpec) Matches(vkCode uint32, mods ModifierState) bool {
	return vkCode == s.Key &&
		mods.Ctrl == s.Ctrl &&
		mods.Win == s.Win &&
		mods.Alt == s.Alt &&
		mods.Shift == s.Shift
}

// PressedKey records one key currently being forwarded, kept in press
// order so release-on-toggle-off can replay it deterministically.
type PressedKey struct {
	VKCode   uint32
	ScanCode uint16
	Extended bool
}

// PressedSet is an insertion-order-preserving ledger of forwarded keys.
type PressedSet struct {
	order []uint32
	keys  map[uint32]PressedKey
}

// NewPressedSet constructs an empty ledger.
func NewPressedSet() *PressedSet {
	return &PressedSet{keys: make(map[uint32]PressedKey)}
}

// Track records a key-down, if not already tracked (matching
// TrackKeyPress's insert-if-absent semantics).
func (p *PressedSet) Track(vkCode uint32, scanCode uint16, extended bool) {
	if _, ok := p.keys[vkCode]; ok {
		return
	}
	p.keys[vkCode] = PressedKey{VKCode: vkCode, ScanCode: scanCode, Extended: extended}
	p.order = append(p.order, vkCode)
}

// Release removes a key-up's corresponding entry, if present.
func (p *PressedSet) Release(vkCode uint32) {
	if _, ok := p.keys[vkCode]; !ok {
		return
	}
	delete(p.keys, vkCode)
	for i, vk := range p.order {
		if vk == vkCode {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// All returns every tracked key in press order.
func (p *PressedSet) All() []PressedKey {
	out := make([]PressedKey, 0, len(p.order))
	for _, vk := range p.order {
		out = append(out, p.keys[vk])
	}
	return out
}

// Clear empties the ledger.
func (p *PressedSet) Clear() {
	p.order = nil
	p.keys = make(map[uint32]PressedKey)
}
