package input

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Key is a normalised key name: single letters are lowercase ("a"), special
// keys use their canonical name ("ArrowUp").
type Key string

const (
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
	KeyEnter      Key = "Enter"
	KeyEscape     Key = "Escape"
	KeySpace      Key = "Space"
	KeyBackspace  Key = "Backspace"
	KeyTab        Key = "Tab"
)

var keyAliases = map[string]Key{
	"arrowup":    KeyArrowUp,
	"up":         KeyArrowUp,
	"arrowdown":  KeyArrowDown,
	"down":       KeyArrowDown,
	"arrowleft":  KeyArrowLeft,
	"left":       KeyArrowLeft,
	"arrowright": KeyArrowRight,
	"right":      KeyArrowRight,
	"enter":      KeyEnter,
	"return":     KeyEnter,
	"escape":     KeyEscape,
	"esc":        KeyEscape,
	" ":          KeySpace,
	"space":      KeySpace,
	"spacebar":   KeySpace,
	"backspace":  KeyBackspace,
	"tab":        KeyTab,
}

// ParseKey normalises a raw key name as reported by the host.
func ParseKey(raw string) Key {
	if k, ok := keyAliases[strings.ToLower(raw)]; ok {
		return k
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		return Key(string(unicode.ToLower(r)))
	}
	return Key(strings.TrimSpace(raw))
}

// Letter returns the key as a lowercase letter, if it is one.
func (k Key) Letter() (rune, bool) {
	if utf8.RuneCountInString(string(k)) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(string(k))
	if !unicode.IsLetter(r) {
		return 0, false
	}
	return unicode.ToLower(r), true
}
