package types

// Snapshot is the render state of one page session.
//
//	experience: "" when nothing is running
//	index: -1 when nothing is running
//	last_close: "completed" | "cancelled" | ""
type Snapshot struct {
	Experience string   `json:"experience,omitempty"`
	PhaseID    string   `json:"phase_id,omitempty"`
	Index      int      `json:"index"`
	Total      int      `json:"total"`
	Section    string   `json:"section,omitempty"`
	Paused     bool     `json:"paused"`
	Terminal   bool     `json:"terminal"`
	Text       string   `json:"text"`
	Lines      []string `json:"lines"`
	Opacity    float64  `json:"opacity"`
	Trigger    string   `json:"trigger,omitempty"`
	LastClose  string   `json:"last_close,omitempty"`
}
