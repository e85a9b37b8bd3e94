package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"

	"github.com/DoyleJ11/narrative-engine/internal/input"
	"github.com/DoyleJ11/narrative-engine/internal/visibility"
)

func TestKeyName(t *testing.T) {
	cases := []struct {
		ev   *tcell.EventKey
		want input.Key
	}{
		{tcell.NewEventKey(tcell.KeyRune, 'M', tcell.ModNone), "m"},
		{tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), input.KeySpace},
		{tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), input.KeyArrowUp},
		{tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone), input.KeyArrowRight},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), input.KeyEnter},
		{tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), input.KeyEscape},
	}
	for _, tc := range cases {
		name, ok := keyName(tc.ev)
		assert.True(t, ok)
		assert.Equal(t, tc.want, input.ParseKey(name))
	}

	_, ok := keyName(tcell.NewEventKey(tcell.KeyF1, 0, tcell.ModNone))
	assert.False(t, ok)
}

func TestPage_ScrollClampsAndReportsBounds(t *testing.T) {
	p := &page{elements: []string{"bonus-panel"}}
	ev := p.resize(30)
	assert.Equal(t, visibility.EventResize, ev.Kind)
	assert.Equal(t, float64(30*rowPx), ev.Viewport.Height)

	ev = p.scroll(-100)
	assert.Equal(t, 0.0, ev.Viewport.ScrollY)

	ev = p.scroll(wheelPx)
	assert.Equal(t, float64(wheelPx), ev.Viewport.ScrollY)
	assert.Equal(t, visibility.Rect{Top: panelTop, Height: panelLen}, ev.Bounds["bonus-panel"])

	ev = p.scroll(10 * pagePx)
	assert.Equal(t, float64(pagePx-30*rowPx), ev.Viewport.ScrollY)
}

func TestGrey(t *testing.T) {
	assert.Equal(t, tcell.NewRGBColor(255, 255, 255), grey(1))
	assert.Equal(t, tcell.NewRGBColor(60, 60, 60), grey(0))
	assert.Equal(t, tcell.NewRGBColor(60, 60, 60), grey(-3))
}
