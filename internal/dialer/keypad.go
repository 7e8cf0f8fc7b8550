package dialer

import "strings"

// MaxDigits bounds the number the keypad accepts.
const MaxDigits = 15

const keypadKeys = "0123456789*#"

// Keypad collects dialed keys.
type Keypad struct {
	buf []byte
}

// Press appends key. It reports false for unknown keys or a full pad.
func (k *Keypad) Press(key rune) bool {
	if !strings.ContainsRune(keypadKeys, key) || len(k.buf) >= MaxDigits {
		return false
	}
	k.buf = append(k.buf, byte(key))
	return true
}

// Type presses every rune of s and returns how many were accepted.
func (k *Keypad) Type(s string) int {
	n := 0
	for _, r := range s {
		if k.Press(r) {
			n++
		}
	}
	return n
}

// Backspace removes the last key.
func (k *Keypad) Backspace() {
	if len(k.buf) > 0 {
		k.buf = k.buf[:len(k.buf)-1]
	}
}

func (k *Keypad) Clear() { k.buf = k.buf[:0] }

func (k *Keypad) String() string { return string(k.buf) }
