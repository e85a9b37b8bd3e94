// Package catalog loads experience definitions and supplies per-phase
// content. The engine only sees ids, order and durations; text and lines
// stay here.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/DoyleJ11/narrative-engine/internal/engine"
	"github.com/DoyleJ11/narrative-engine/internal/input"
	"github.com/DoyleJ11/narrative-engine/internal/reveal"
	"github.com/DoyleJ11/narrative-engine/internal/visibility"
)

//go:embed default.toml
var defaultCatalog []byte

var (
	ErrNoExperiences      = errors.New("catalog defines no experiences")
	ErrMissingName        = errors.New("experience name is required")
	ErrDuplicateName      = errors.New("duplicate experience name")
	ErrUnknownKeys        = errors.New("unknown catalog keys")
	ErrUnknownReveal      = errors.New("unknown reveal kind")
	ErrAmbiguousTrigger   = errors.New("trigger sets both word and code")
	ErrOverlayNeedsTarget = errors.New("ratio overlay needs an element")
)

type RevealKind string

const (
	RevealNone  RevealKind = ""
	RevealType  RevealKind = "type"
	RevealLines RevealKind = "lines"
)

type fileCatalog struct {
	Experiences []fileExperience `toml:"experience"`
}

type fileExperience struct {
	Name    string       `toml:"name"`
	Trigger *fileTrigger `toml:"trigger"`
	Overlay *fileOverlay `toml:"overlay"`
	Phases  []filePhase  `toml:"phase"`
}

type fileTrigger struct {
	Word string   `toml:"word"`
	Code []string `toml:"code"`
}

type fileOverlay struct {
	Mode         string  `toml:"mode"`
	Element      string  `toml:"element"`
	Threshold    float64 `toml:"threshold"`
	FadeDistance float64 `toml:"fade_distance"`
}

type filePhase struct {
	ID         string     `toml:"id"`
	Section    string     `toml:"section"`
	DurationMS int64      `toml:"duration_ms"`
	Terminal   bool       `toml:"terminal"`
	Reveal     string     `toml:"reveal"`
	Text       string     `toml:"text"`
	Lines      []fileLine `toml:"lines"`
}

type fileLine struct {
	Text    string `toml:"text"`
	DelayMS int64  `toml:"delay_ms"`
}

// Content is what a renderer shows for one phase.
type Content struct {
	Reveal RevealKind
	Text   string
	Lines  []reveal.Line
}

type Overlay struct {
	Mode         visibility.Mode
	Element      string
	Threshold    float64
	FadeDistance float64
}

type Experience struct {
	Name     string
	Sequence *engine.Sequence
	Word     string
	Code     []input.Key
	Overlay  *Overlay
	content  map[string]Content
}

// Content looks up the payload for a phase id.
func (e *Experience) Content(phaseID string) (Content, bool) {
	c, ok := e.content[phaseID]
	return c, ok
}

type Catalog struct {
	byName map[string]*Experience
	names  []string
}

func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog load failed (%s): %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog parse failed (%s): %w", path, err)
	}
	return c, nil
}

func Parse(data []byte) (*Catalog, error) {
	var raw fileCatalog
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
	}
	if len(raw.Experiences) == 0 {
		return nil, ErrNoExperiences
	}

	c := &Catalog{byName: make(map[string]*Experience, len(raw.Experiences))}
	for i, fe := range raw.Experiences {
		exp, err := buildExperience(fe)
		if err != nil {
			return nil, fmt.Errorf("experience[%d] invalid: %w", i, err)
		}
		if _, dup := c.byName[exp.Name]; dup {
			return nil, fmt.Errorf("experience %q: %w", exp.Name, ErrDuplicateName)
		}
		c.byName[exp.Name] = exp
		c.names = append(c.names, exp.Name)
	}
	return c, nil
}

func buildExperience(fe fileExperience) (*Experience, error) {
	name := strings.TrimSpace(fe.Name)
	if name == "" {
		return nil, ErrMissingName
	}

	exp := &Experience{Name: name, content: make(map[string]Content, len(fe.Phases))}

	phases := make([]engine.Phase, 0, len(fe.Phases))
	sections := map[string]int{}
	for i, fp := range fe.Phases {
		phases = append(phases, engine.Phase{
			ID:       fp.ID,
			Duration: time.Duration(fp.DurationMS) * time.Millisecond,
			Terminal: fp.Terminal,
		})
		if fp.Section != "" {
			if _, exists := sections[fp.Section]; !exists {
				sections[fp.Section] = i
			}
		}

		content, err := buildContent(fp)
		if err != nil {
			return nil, fmt.Errorf("%s: phase %q: %w", name, fp.ID, err)
		}
		exp.content[fp.ID] = content
	}

	seq, err := engine.NewSequence(phases, sections)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	exp.Sequence = seq

	if t := fe.Trigger; t != nil {
		if t.Word != "" && len(t.Code) > 0 {
			return nil, fmt.Errorf("%s: %w", name, ErrAmbiguousTrigger)
		}
		exp.Word = strings.ToLower(strings.TrimSpace(t.Word))
		for _, k := range t.Code {
			exp.Code = append(exp.Code, input.ParseKey(k))
		}
	}

	if o := fe.Overlay; o != nil {
		mode, err := visibility.ParseMode(o.Mode)
		if err != nil {
			return nil, fmt.Errorf("%s: overlay: %w", name, err)
		}
		if mode == visibility.ModeViewportRatio && strings.TrimSpace(o.Element) == "" {
			return nil, fmt.Errorf("%s: %w", name, ErrOverlayNeedsTarget)
		}
		exp.Overlay = &Overlay{
			Mode:         mode,
			Element:      strings.TrimSpace(o.Element),
			Threshold:    o.Threshold,
			FadeDistance: o.FadeDistance,
		}
	}

	return exp, nil
}

func buildContent(fp filePhase) (Content, error) {
	kind := RevealKind(strings.TrimSpace(fp.Reveal))
	switch kind {
	case RevealNone, RevealType, RevealLines:
	default:
		return Content{}, fmt.Errorf("%w: %q", ErrUnknownReveal, fp.Reveal)
	}

	c := Content{Reveal: kind, Text: fp.Text}
	for _, l := range fp.Lines {
		c.Lines = append(c.Lines, reveal.Line{
			Text:  l.Text,
			Delay: time.Duration(l.DelayMS) * time.Millisecond,
		})
	}
	return c, nil
}

func (c *Catalog) Get(name string) (*Experience, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// Names lists experiences in file order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Triggers builds the input controller configuration for every experience
// that declares a trigger. Trigger names are experience names.
func (c *Catalog) Triggers() input.Config {
	var cfg input.Config
	names := c.Names()
	sort.Strings(names)
	for _, n := range names {
		e := c.byName[n]
		switch {
		case e.Word != "":
			cfg.Words = append(cfg.Words, input.Word{Name: e.Name, Text: e.Word})
		case len(e.Code) > 0:
			cfg.Codes = append(cfg.Codes, input.Code{Name: e.Name, Keys: e.Code})
		}
	}
	return cfg
}
