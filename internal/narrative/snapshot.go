package narrative

import (
	"github.com/DoyleJ11/narrative-engine/internal/engine"
)

// Snapshot is everything a renderer needs to draw the session. Version grows
// by one on every published change.
type Snapshot struct {
	Version    int
	Experience string
	PhaseID    string
	Index      int
	Total      int
	Section    string
	Paused     bool
	Terminal   bool
	Text       string
	Lines      []string
	Opacity    float64
	Trigger    string
	LastClose  engine.Reason
}

// Active reports whether the snapshot shows a running experience.
func (s Snapshot) Active() bool { return s.Experience != "" }

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Version:   s.version,
		Index:     -1,
		Opacity:   1,
		Trigger:   s.lastTrigger,
		LastClose: s.lastClose,
	}
	if s.exp == nil || !s.seq.Active() {
		return snap
	}
	p, _ := s.seq.Current()
	st := s.seq.State()
	snap.Experience = s.exp.Name
	snap.PhaseID = p.ID
	snap.Index = st.CurrentIndex
	snap.Total = s.seq.Sequence().Len()
	snap.Section = engine.SectionOf(s.seq.Sequence(), st.CurrentIndex)
	snap.Paused = st.Paused
	snap.Terminal = p.Terminal
	snap.Text = s.text
	snap.Lines = s.lines.Visible()
	snap.Opacity = s.opacity
	return snap
}
