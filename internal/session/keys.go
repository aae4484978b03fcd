package session

import (
	"strings"

	"github.com/alchemmist/termreel/internal/timeline"
)

// KeySequence is input for the terminal. Literal sequences are typed
// character by character; others are parsed by tmux as key names such as
// Enter or C-c.
type KeySequence struct {
	Keys    string `yaml:"keys" json:"keys"`
	Literal bool   `yaml:"literal" json:"literal"`
}

func NewKeySequence(keys string, literal bool) (KeySequence, error) {
	if keys == "" {
		return KeySequence{}, timeline.Invalid("keys", "key sequence cannot be empty")
	}
	return KeySequence{Keys: keys, Literal: literal}, nil
}

// Literal is shorthand for a literal sequence. It does not validate.
func Literal(text string) KeySequence {
	return KeySequence{Keys: text, Literal: true}
}

func (k KeySequence) Validate() error {
	if k.Keys == "" {
		return timeline.Invalid("keys", "key sequence cannot be empty")
	}
	return nil
}

// IsSpecial reports whether a non-literal sequence uses key notation.
func (k KeySequence) IsSpecial() bool {
	if k.Literal {
		return false
	}
	return strings.Contains(k.Keys, "<") || strings.Contains(k.Keys, "C-") || strings.Contains(k.Keys, "M-")
}

func (k KeySequence) String() string {
	if k.Literal {
		return "literal:" + k.Keys
	}
	return k.Keys
}

var (
	KeyEscape    = KeySequence{Keys: "Escape"}
	KeyEnter     = KeySequence{Keys: "Enter"}
	KeyTab       = KeySequence{Keys: "Tab"}
	KeyCtrlC     = KeySequence{Keys: "C-c"}
	KeyCtrlD     = KeySequence{Keys: "C-d"}
	KeyUp        = KeySequence{Keys: "Up"}
	KeyDown      = KeySequence{Keys: "Down"}
	KeyLeft      = KeySequence{Keys: "Left"}
	KeyRight     = KeySequence{Keys: "Right"}
	KeyBackspace = KeySequence{Keys: "BSpace"}
	KeyHome      = KeySequence{Keys: "Home"}
	KeyEnd       = KeySequence{Keys: "End"}
	KeyPageUp    = KeySequence{Keys: "PageUp"}
	KeyPageDown  = KeySequence{Keys: "PageDown"}
	KeySpace     = KeySequence{Keys: "Space"}
)

// namedKeys maps the names accepted in scripts and tool calls to keys.
var namedKeys = map[string]KeySequence{
	"escape":    KeyEscape,
	"esc":       KeyEscape,
	"enter":     KeyEnter,
	"return":    KeyEnter,
	"tab":       KeyTab,
	"ctrl+c":    KeyCtrlC,
	"ctrl+d":    KeyCtrlD,
	"up":        KeyUp,
	"down":      KeyDown,
	"left":      KeyLeft,
	"right":     KeyRight,
	"backspace": KeyBackspace,
	"home":      KeyHome,
	"end":       KeyEnd,
	"pageup":    KeyPageUp,
	"pagedown":  KeyPageDown,
	"space":     KeySpace,
}

// ParseKey resolves a friendly key name (case-insensitive) and falls back to
// passing name through as tmux key notation.
func ParseKey(name string) (KeySequence, error) {
	if k, ok := namedKeys[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return NewKeySequence(name, false)
}

// Ctrl returns the Ctrl chord for c, e.g. Ctrl('a') is C-a.
func Ctrl(c rune) KeySequence {
	return KeySequence{Keys: "C-" + string(c)}
}

// Alt returns the Meta chord for c.
func Alt(c rune) KeySequence {
	return KeySequence{Keys: "M-" + string(c)}
}
