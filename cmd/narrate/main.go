// Command narrate previews the experience catalog in a terminal. Keys go to
// the page session as they would in a browser, the mouse wheel scrolls the
// simulated page and Ctrl-C quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/DoyleJ11/narrative-engine/internal/catalog"
	"github.com/DoyleJ11/narrative-engine/internal/engine"
	"github.com/DoyleJ11/narrative-engine/internal/logging"
	"github.com/DoyleJ11/narrative-engine/internal/narrative"
	"github.com/DoyleJ11/narrative-engine/internal/stage"
)

func main() {
	catalogPath := flag.String("catalog", "", "experience catalog (TOML); embedded default when empty")
	start := flag.String("play", "", "experience to start immediately")
	resume := flag.String("resume", "restart", "resume policy after pause: restart|remaining")
	logPath := flag.String("log", "", "write debug logs to this file")
	flag.Parse()

	if err := run(*catalogPath, *start, *resume, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "narrate: %v\n", err)
		os.Exit(1)
	}
}

func run(catalogPath, start, resume, logPath string) error {
	load := catalog.Default
	if catalogPath != "" {
		load = func() (*catalog.Catalog, error) { return catalog.Load(catalogPath) }
	}
	cat, err := load()
	if err != nil {
		return err
	}
	policy, err := engine.ParseResumePolicy(resume)
	if err != nil {
		return err
	}

	// The screen owns stdout, so logs only go to a file.
	logger := zap.NewNop()
	if logPath != "" {
		logger, err = logging.NewFile("debug", logPath)
		if err != nil {
			return err
		}
		defer logger.Sync()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := stage.NewStage(ctx, stage.Config{
		Code:    "local",
		Session: narrative.Config{Catalog: cat, ResumePolicy: policy},
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	p := &page{}
	for _, name := range cat.Names() {
		if exp, _ := cat.Get(name); exp.Overlay != nil && exp.Overlay.Element != "" {
			p.elements = append(p.elements, exp.Overlay.Element)
		}
	}
	_, rows := screen.Size()
	st.Inbox() <- stage.Viewport{Event: p.resize(rows)}

	out := make(chan narrative.Snapshot, 64)
	st.Inbox() <- stage.Join{ClientID: "terminal", Outbox: out}
	if start != "" {
		st.Inbox() <- stage.Command{Kind: stage.CmdActivate, Arg: start}
	}

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	var last narrative.Snapshot
	for {
		select {
		case snap, ok := <-out:
			if !ok {
				return nil
			}
			last = snap
			draw(screen, p, last, cat.Names())

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyCtrlC {
					st.Inbox() <- stage.Shutdown{}
					<-st.Done()
					return nil
				}
				switch ev.Key() {
				case tcell.KeyPgDn:
					st.Inbox() <- stage.Viewport{Event: p.scroll(float64(p.rows * rowPx))}
					continue
				case tcell.KeyPgUp:
					st.Inbox() <- stage.Viewport{Event: p.scroll(-float64(p.rows * rowPx))}
					continue
				}
				if name, ok := keyName(ev); ok {
					st.Inbox() <- stage.Key{Raw: name}
				}

			case *tcell.EventMouse:
				switch {
				case ev.Buttons()&tcell.WheelDown != 0:
					st.Inbox() <- stage.Viewport{Event: p.scroll(wheelPx)}
				case ev.Buttons()&tcell.WheelUp != 0:
					st.Inbox() <- stage.Viewport{Event: p.scroll(-wheelPx)}
				}
				draw(screen, p, last, cat.Names())

			case *tcell.EventResize:
				screen.Sync()
				_, rows := screen.Size()
				st.Inbox() <- stage.Viewport{Event: p.resize(rows)}
				draw(screen, p, last, cat.Names())
			}
		}
	}
}

func draw(screen tcell.Screen, p *page, snap narrative.Snapshot, names []string) {
	screen.Clear()
	width, height := screen.Size()
	dim := tcell.StyleDefault.Foreground(tcell.ColorGray)

	y := 0
	if !snap.Active() {
		puts(screen, 0, y, width, dim, "idle  experiences: "+strings.Join(names, ", "))
		if snap.LastClose != "" {
			y++
			puts(screen, 0, y, width, dim, "last closed: "+string(snap.LastClose))
		}
	} else {
		status := fmt.Sprintf("%s  %d/%d  %s", snap.Experience, snap.Index+1, snap.Total, snap.PhaseID)
		if snap.Section != "" {
			status += "  [" + snap.Section + "]"
		}
		if snap.Paused {
			status += "  paused"
		}
		if snap.Terminal {
			status += "  (enter to finish)"
		}
		puts(screen, 0, y, width, tcell.StyleDefault.Bold(true), status)

		body := tcell.StyleDefault.Foreground(grey(snap.Opacity))
		y += 2
		if snap.Text != "" {
			puts(screen, 2, y, width, body, snap.Text)
			y++
		}
		for _, line := range snap.Lines {
			puts(screen, 2, y, width, body, line)
			y++
		}
	}

	help := fmt.Sprintf("scroll %.0fpx  ←/→ phase  space pause  enter confirm  esc close  ctrl-c quit", p.scrollY)
	puts(screen, 0, height-1, width, dim, help)
	screen.Show()
}

func puts(screen tcell.Screen, x, y, width int, style tcell.Style, s string) {
	for _, r := range s {
		if x >= width {
			return
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}
