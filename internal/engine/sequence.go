package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrEmptySequence = errors.New("sequence has no phases")
var ErrEmptyPhaseID = errors.New("phase id is empty")
var ErrDuplicatePhaseID = errors.New("duplicate phase id")
var ErrInvalidDuration = errors.New("non-terminal phase needs a positive duration")
var ErrSectionOutOfRange = errors.New("section start out of range")

type Phase struct {
	ID       string
	Order    int
	Duration time.Duration
	Terminal bool
}

// Sequence is an ordered, immutable list of phases with named section starts.
type Sequence struct {
	phases   []Phase
	byID     map[string]int
	sections map[string]int
}

// NewSequence validates phases and copies them. Order is assigned from the
// slice position; sections map a label to the index its section starts at.
func NewSequence(phases []Phase, sections map[string]int) (*Sequence, error) {
	if len(phases) == 0 {
		return nil, ErrEmptySequence
	}

	s := &Sequence{
		phases:   make([]Phase, len(phases)),
		byID:     make(map[string]int, len(phases)),
		sections: make(map[string]int, len(sections)),
	}

	for i, p := range phases {
		if p.ID == "" {
			return nil, fmt.Errorf("phase %d: %w", i, ErrEmptyPhaseID)
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, fmt.Errorf("phase %q: %w", p.ID, ErrDuplicatePhaseID)
		}
		if !p.Terminal && p.Duration <= 0 {
			return nil, fmt.Errorf("phase %q: %w", p.ID, ErrInvalidDuration)
		}
		p.Order = i
		s.phases[i] = p
		s.byID[p.ID] = i
	}

	for label, idx := range sections {
		if idx < 0 || idx >= len(phases) {
			return nil, fmt.Errorf("section %q -> %d: %w", label, idx, ErrSectionOutOfRange)
		}
		s.sections[label] = idx
	}

	return s, nil
}

func (s *Sequence) Len() int { return len(s.phases) }

func (s *Sequence) Phase(i int) (Phase, bool) {
	if i < 0 || i >= len(s.phases) {
		return Phase{}, false
	}
	return s.phases[i], true
}

func (s *Sequence) Phases() []Phase {
	out := make([]Phase, len(s.phases))
	copy(out, s.phases)
	return out
}

func (s *Sequence) SectionStart(label string) (int, bool) {
	i, ok := s.sections[label]
	return i, ok
}

// Sections lists labels ordered by their start index.
func (s *Sequence) Sections() []string {
	labels := make([]string, 0, len(s.sections))
	for l := range s.sections {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(a, b int) bool {
		ia, ib := s.sections[labels[a]], s.sections[labels[b]]
		if ia != ib {
			return ia < ib
		}
		return labels[a] < labels[b]
	})
	return labels
}
