package types

// Client -> Server
// key:      { "type": "key", "key": "ArrowRight" }
// viewport: { "type": "viewport", "kind": "scroll"|"resize",
//             "scroll_y": number, "height": number,
//             "bounds": { [element]: { "top": number, "height": number } } }
// activate: { "type": "activate", "experience": string }
// jump:     { "type": "jump", "section": string }
// next | prev | pause | confirm | close: { "type": ... }
//
// Server -> Client
// Snapshot: { "type": "Snapshot", "version": number, "snapshot": Snapshot }
// Error:    { "type": "Error", "error": string }

const (
	MsgKey      = "key"
	MsgViewport = "viewport"
	MsgActivate = "activate"
	MsgNext     = "next"
	MsgPrev     = "prev"
	MsgJump     = "jump"
	MsgPause    = "pause"
	MsgConfirm  = "confirm"
	MsgClose    = "close"

	MsgSnapshot = "Snapshot"
	MsgError    = "Error"
)

type ClientMessage struct {
	Type       string          `json:"type"`
	Key        string          `json:"key,omitempty"`
	Kind       string          `json:"kind,omitempty"`
	ScrollY    float64         `json:"scroll_y,omitempty"`
	Height     float64         `json:"height,omitempty"`
	Bounds     map[string]Rect `json:"bounds,omitempty"`
	Experience string          `json:"experience,omitempty"`
	Section    string          `json:"section,omitempty"`
}

type Rect struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

type ServerMessage struct {
	Type     string    `json:"type"` // "Snapshot" | "Error"
	Version  int       `json:"version,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// ExperienceInfo describes one catalog entry for GET /experiences.
type ExperienceInfo struct {
	Name     string   `json:"name"`
	Phases   []string `json:"phases"`
	Sections []string `json:"sections,omitempty"`
	Trigger  string   `json:"trigger,omitempty"` // "word" | "code"
	Overlay  string   `json:"overlay,omitempty"` // "ratio" | "distance"
}
