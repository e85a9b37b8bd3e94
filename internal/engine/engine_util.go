package engine

// SectionOf returns the label of the section containing index: the section
// with the greatest start not after index.
func SectionOf(s *Sequence, index int) string {
	if s == nil || index < 0 || index >= s.Len() {
		return ""
	}
	best, bestStart := "", -1
	for _, label := range s.Sections() {
		start := s.sections[label]
		if start <= index && start > bestStart {
			best, bestStart = label, start
		}
	}
	return best
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
