package input

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/narrative-engine/internal/bus"
)

var konami = []Key{
	KeyArrowUp, KeyArrowUp, KeyArrowDown, KeyArrowDown,
	KeyArrowLeft, KeyArrowRight, KeyArrowLeft, KeyArrowRight,
	"b", "a",
}

func feed(c *Controller, keys ...string) []Trigger {
	var fired []Trigger
	for _, k := range keys {
		fired = append(fired, c.HandleKey(Key(k))...)
	}
	return fired
}

func TestParseKey(t *testing.T) {
	cases := map[string]Key{
		"A":       "a",
		"a":       "a",
		"ArrowUp": KeyArrowUp,
		"arrowup": KeyArrowUp,
		"Up":      KeyArrowUp,
		" ":       KeySpace,
		"Esc":     KeyEscape,
		"Enter":   KeyEnter,
		"F5":      "F5",
		"7":       "7",
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseKey(raw), "raw %q", raw)
	}
}

func TestKeyBuffer_TrimsToCapacity(t *testing.T) {
	b := NewKeyBuffer(4)
	for _, r := range "abcdef" {
		b.Push(r)
	}
	assert.Equal(t, "cdef", b.String())
	assert.True(t, b.Contains("def"))
	assert.False(t, b.Contains("abc"))
	assert.False(t, b.Contains(""))
}

func TestController_WordFiresOnceInsideStream(t *testing.T) {
	c, err := NewController(Config{Words: []Word{{Name: "matrix", Text: "matrix"}}})
	require.NoError(t, err)

	var handled []Trigger
	c.OnTrigger(func(tr Trigger) { handled = append(handled, tr) })

	fired := feed(c, "x", "z", "m", "a", "t", "r", "i", "x", "z", "y")
	assert.Equal(t, []Trigger{{Kind: TriggerWord, Name: "matrix"}}, fired)
	assert.Equal(t, fired, handled)
	assert.Equal(t, "zy", c.Buffer())
}

func TestController_IncompleteWordNeverFires(t *testing.T) {
	c, err := NewController(Config{Words: []Word{{Name: "matrix", Text: "matrix"}}})
	require.NoError(t, err)

	assert.Empty(t, feed(c, "m", "a", "t", "r", "i"))
	assert.Empty(t, feed(c, "ArrowDown", "Enter"))
	assert.Equal(t, "matri", c.Buffer())
}

func TestController_NonLettersDoNotExtendBuffer(t *testing.T) {
	c, err := NewController(Config{Words: []Word{{Name: "matrix", Text: "matrix"}}})
	require.NoError(t, err)

	fired := feed(c, "m", "a", "1", "t", "Shift", "r", "i", "X")
	assert.Len(t, fired, 1)
}

func TestController_NoDoubleFireOnRepeatedWord(t *testing.T) {
	c, err := NewController(Config{Words: []Word{{Name: "aa", Text: "aa"}}})
	require.NoError(t, err)

	// "aaa" holds "aa" twice overlapping; the buffer reset means only one fire.
	assert.Len(t, feed(c, "a", "a", "a"), 1)
	assert.Len(t, feed(c, "a"), 1)
}

func TestController_BufferGrowsToLongestWord(t *testing.T) {
	long := strings.Repeat("q", DefaultBufferSize+4)
	c, err := NewController(Config{BufferSize: 4, Words: []Word{{Name: "long", Text: long}}})
	require.NoError(t, err)

	var keys []string
	for range long {
		keys = append(keys, "q")
	}
	assert.Len(t, feed(c, keys...), 1)
}

func TestController_CodeMatchesCaseInsensitively(t *testing.T) {
	c, err := NewController(Config{Codes: []Code{{Name: "konami", Keys: konami}}})
	require.NoError(t, err)

	fired := feed(c, "ArrowUp", "ArrowUp", "ArrowDown", "ArrowDown", "ArrowLeft", "ArrowRight", "ArrowLeft", "ArrowRight", "B", "A")
	assert.Equal(t, []Trigger{{Kind: TriggerCode, Name: "konami"}}, fired)
}

func TestController_CodeMismatchResets(t *testing.T) {
	c, err := NewController(Config{Codes: []Code{{Name: "konami", Keys: konami}}})
	require.NoError(t, err)

	assert.Empty(t, feed(c, "ArrowUp", "ArrowUp", "ArrowDown", "x"))
	assert.Equal(t, 0, c.codes[0].matcher.Index())
	assert.Empty(t, feed(c, "ArrowDown", "ArrowLeft", "ArrowRight", "ArrowLeft", "ArrowRight", "b", "a"))
}

func TestCodeMatcher_MismatchThatStartsNewPrefix(t *testing.T) {
	m := NewCodeMatcher(konami)

	// A third "up" mismatches "down" but is itself a valid two-key prefix.
	stream := append([]Key{KeyArrowUp}, konami...)
	var fired int
	for _, k := range stream {
		if m.Feed(k) {
			fired++
		}
	}
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, m.Index())
}

func TestCodeMatcher_FallbackAfterPartialRepeat(t *testing.T) {
	m := NewCodeMatcher([]Key{"a", "b", "a", "c"})

	for _, k := range []Key{"a", "b", "a", "b", "a"} {
		assert.False(t, m.Feed(k))
	}
	assert.Equal(t, 3, m.Index())
	assert.True(t, m.Feed("c"))
	assert.Equal(t, 0, m.Index())
}

func TestCodeMatcher_ConsecutiveCodesFireEachTime(t *testing.T) {
	m := NewCodeMatcher([]Key{"x", "y"})
	fired := 0
	for _, k := range []Key{"x", "y", "x", "y"} {
		if m.Feed(k) {
			fired++
		}
	}
	assert.Equal(t, 2, fired)
}

func TestController_AttachDetachPairsWithBus(t *testing.T) {
	keys := bus.New[Key]()
	c, err := NewController(Config{Words: []Word{{Name: "hi", Text: "hi"}}})
	require.NoError(t, err)

	fired := 0
	c.OnTrigger(func(Trigger) { fired++ })

	for i := 0; i < 5; i++ {
		c.Attach(keys)
		c.Attach(keys)
		assert.Equal(t, 1, keys.Len())
		c.Detach()
	}
	assert.Equal(t, 0, keys.Len())

	c.Attach(keys)
	keys.Publish("h")
	keys.Publish("i")
	assert.Equal(t, 1, fired)

	c.Detach()
	keys.Publish("h")
	keys.Publish("i")
	assert.Equal(t, 1, fired)
}

func TestNewController_Validation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "empty word", cfg: Config{Words: []Word{{Name: "w"}}}, want: ErrEmptyTrigger},
		{name: "digits in word", cfg: Config{Words: []Word{{Name: "w", Text: "abc1"}}}, want: ErrInvalidWord},
		{name: "empty code", cfg: Config{Codes: []Code{{Name: "c"}}}, want: ErrEmptyTrigger},
		{
			name: "duplicate name",
			cfg:  Config{Words: []Word{{Name: "x", Text: "abc"}}, Codes: []Code{{Name: "x", Keys: []Key{"a"}}}},
			want: ErrDuplicateTrigger,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewController(tc.cfg)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
