package cli

import (
	"fmt"
	"strings"

	"github.com/eshaffer321/cartsync/internal/application/cart"
)

// ParseFieldFlags turns repeated name=value flags into an ordered list of
// pairs. Values may contain '='.
func ParseFieldFlags(raw []string) ([][2]string, error) {
	out := make([][2]string, 0, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q: want name=value", kv)
		}
		out = append(out, [2]string{name, value})
	}
	return out, nil
}

// ParseKeys turns key names such as "+", "down" or "ctrl+backspace" into
// line key presses.
func ParseKeys(raw []string) ([]cart.Key, error) {
	keys := make([]cart.Key, 0, len(raw))
	for _, name := range raw {
		k, ok := parseKey(name)
		if !ok {
			return nil, fmt.Errorf("unknown key %q: want +, -, up, down, ctrl+delete or ctrl+backspace", name)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func parseKey(name string) (cart.Key, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "+", "up", "arrowup":
		return cart.Key{Name: "ArrowUp"}, true
	case "-", "down", "arrowdown":
		return cart.Key{Name: "ArrowDown"}, true
	case "ctrl+delete", "ctrl+del":
		return cart.Key{Name: "Delete", Ctrl: true}, true
	case "ctrl+backspace":
		return cart.Key{Name: "Backspace", Ctrl: true}, true
	default:
		return cart.Key{}, false
	}
}
