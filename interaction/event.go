package interaction

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Paranoid-AF/codelet"
)

// RawEvent is an unclassified input or window notification.
type RawEvent interface {
	rawEvent()
}

// Key identifies a keyboard key. KeyRune carries its character in KeyEvent.Rune.
type Key int

const (
	KeyRune Key = iota
	KeyBackspace
	KeyTab
	KeyEscape
	KeyEnter
	KeyDelete
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
)

var keyNames = map[string]Key{
	"backspace": KeyBackspace,
	"tab":       KeyTab,
	"esc":       KeyEscape,
	"escape":    KeyEscape,
	"enter":     KeyEnter,
	"delete":    KeyDelete,
	"up":        KeyUp,
	"down":      KeyDown,
	"left":      KeyLeft,
	"right":     KeyRight,
	"home":      KeyHome,
	"end":       KeyEnd,
	"pageup":    KeyPageUp,
	"pagedown":  KeyPageDown,
}

func (k Key) String() string {
	if k == KeyRune {
		return "rune"
	}
	for name, key := range keyNames {
		if key == k && name != "esc" {
			return name
		}
	}
	return fmt.Sprintf("key(%d)", int(k))
}

// Navigation reports whether k only moves the caret.
func (k Key) Navigation() bool {
	switch k {
	case KeyUp, KeyDown, KeyLeft, KeyRight, KeyHome, KeyEnd, KeyPageUp, KeyPageDown:
		return true
	}
	return false
}

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
)

// KeyEvent is a key press.
type KeyEvent struct {
	Key  Key
	Rune rune
	Mods Modifier
}

// MouseButton identifies a mouse button.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
)

// MouseEvent is a button press (Down) or release.
type MouseEvent struct {
	Button MouseButton
	Down   bool
}

// WindowEventType is the kind of host window notification.
type WindowEventType int

const (
	WindowFocus WindowEventType = iota
	WindowKillFocus
	WindowMove
	WindowSize
	WindowClose
)

func (t WindowEventType) String() string {
	switch t {
	case WindowFocus:
		return "focus"
	case WindowKillFocus:
		return "kill-focus"
	case WindowMove:
		return "move"
	case WindowSize:
		return "size"
	case WindowClose:
		return "close"
	}
	return "unknown"
}

// WindowEvent is a host window notification.
type WindowEvent struct {
	Type   WindowEventType
	Window codelet.WindowHandle
}

func (KeyEvent) rawEvent()    {}
func (MouseEvent) rawEvent()  {}
func (WindowEvent) rawEvent() {}

// Shortcut is a key combination such as "ctrl+alt+c".
type Shortcut struct {
	Mods Modifier
	Key  Key
	Rune rune
}

// ParseShortcut parses a "+"-separated combination of modifiers
// (ctrl, alt, shift) followed by a key name or a single character.
// An empty string yields the zero Shortcut, which matches nothing.
func ParseShortcut(s string) (Shortcut, error) {
	var sc Shortcut
	if s == "" {
		return sc, nil
	}
	parts := strings.Split(strings.ToLower(s), "+")
	// "ctrl++" names the plus key.
	if strings.HasSuffix(s, "++") {
		parts = append(parts[:len(parts)-2], "+")
	}
	for i, p := range parts {
		last := i == len(parts)-1
		switch {
		case !last && p == "ctrl":
			sc.Mods |= ModCtrl
		case !last && p == "alt":
			sc.Mods |= ModAlt
		case !last && p == "shift":
			sc.Mods |= ModShift
		case !last:
			return Shortcut{}, fmt.Errorf("shortcut %q: unknown modifier %q", s, p)
		default:
			if k, ok := keyNames[p]; ok {
				sc.Key = k
			} else if utf8.RuneCountInString(p) == 1 {
				sc.Key = KeyRune
				sc.Rune, _ = utf8.DecodeRuneInString(p)
			} else {
				return Shortcut{}, fmt.Errorf("shortcut %q: unknown key %q", s, p)
			}
		}
	}
	return sc, nil
}

// Zero reports whether the shortcut is unset.
func (s Shortcut) Zero() bool { return s == Shortcut{} }

// Matches reports whether ev is this combination.
func (s Shortcut) Matches(ev KeyEvent) bool {
	if s.Zero() || ev.Mods != s.Mods || ev.Key != s.Key {
		return false
	}
	return s.Key != KeyRune || strings.EqualFold(string(ev.Rune), string(s.Rune))
}
