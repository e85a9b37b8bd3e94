package main

import (
	"github.com/gdamore/tcell/v2"

	"github.com/DoyleJ11/narrative-engine/internal/visibility"
)

const (
	rowPx    = 20 // one terminal row stands in for this many page pixels
	wheelPx  = 3 * rowPx
	pagePx   = 400 * rowPx
	panelTop = 10 * rowPx
	panelLen = 20 * rowPx
)

// keyName maps a terminal key event onto the names the session understands.
// ok is false for keys the page never sees.
func keyName(ev *tcell.EventKey) (string, bool) {
	switch ev.Key() {
	case tcell.KeyRune:
		return string(ev.Rune()), true
	case tcell.KeyUp:
		return "ArrowUp", true
	case tcell.KeyDown:
		return "ArrowDown", true
	case tcell.KeyLeft:
		return "ArrowLeft", true
	case tcell.KeyRight:
		return "ArrowRight", true
	case tcell.KeyEnter:
		return "Enter", true
	case tcell.KeyEscape:
		return "Escape", true
	case tcell.KeyTab:
		return "Tab", true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return "Backspace", true
	}
	return "", false
}

// page tracks the simulated document scroll of the terminal preview.
type page struct {
	scrollY  float64
	rows     int
	elements []string
}

func (p *page) viewport() visibility.Viewport {
	return visibility.Viewport{ScrollY: p.scrollY, Height: float64(p.rows * rowPx)}
}

// scroll moves by delta pixels, clamped to the page.
func (p *page) scroll(delta float64) visibility.Event {
	limit := max(float64(pagePx-p.rows*rowPx), 0)
	p.scrollY = min(max(p.scrollY+delta, 0), limit)
	return p.event(visibility.EventScroll)
}

func (p *page) resize(rows int) visibility.Event {
	p.rows = max(rows, 1)
	return p.event(visibility.EventResize)
}

// event reports every overlay element at the same fixed panel position.
func (p *page) event(kind visibility.EventKind) visibility.Event {
	ev := visibility.Event{Kind: kind, Viewport: p.viewport()}
	if len(p.elements) > 0 {
		ev.Bounds = make(map[string]visibility.Rect, len(p.elements))
		for _, id := range p.elements {
			ev.Bounds[id] = visibility.Rect{Top: panelTop, Height: panelLen}
		}
	}
	return ev
}

// grey maps an opacity onto a foreground shade so fading is visible.
func grey(opacity float64) tcell.Color {
	c := int32(60 + 195*min(max(opacity, 0), 1))
	return tcell.NewRGBColor(c, c, c)
}
