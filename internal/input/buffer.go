package input

import "strings"

// KeyBuffer keeps the last cap letters typed.
type KeyBuffer struct {
	cap int
	buf []rune
}

func NewKeyBuffer(capacity int) *KeyBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &KeyBuffer{cap: capacity, buf: make([]rune, 0, capacity)}
}

// Push appends r and trims the oldest letters beyond capacity.
func (b *KeyBuffer) Push(r rune) {
	b.buf = append(b.buf, r)
	if over := len(b.buf) - b.cap; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
}

func (b *KeyBuffer) Contains(word string) bool {
	return word != "" && strings.Contains(string(b.buf), word)
}

func (b *KeyBuffer) Reset() { b.buf = b.buf[:0] }

func (b *KeyBuffer) String() string { return string(b.buf) }

func (b *KeyBuffer) Cap() int { return b.cap }
