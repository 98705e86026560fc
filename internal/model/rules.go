package model

// WritingRules are the author's standing instructions. PerChapterOverrides
// holds partial rule sets; only their non-empty fields apply.
type WritingRules struct {
	Tone                []string                `json:"tone"`
	Avoid               []string                `json:"avoid"`
	Prefer              []string                `json:"prefer"`
	PovConsistency      string                  `json:"povConsistency"`
	TenseConsistency    string                  `json:"tenseConsistency"`
	DialogueStyle       string                  `json:"dialogueStyle"`
	RevisionFocus       []string                `json:"revisionFocus"`
	CustomInstructions  string                  `json:"customInstructions"`
	PerChapterOverrides map[string]WritingRules `json:"perChapterOverrides,omitempty"`
}

// ForChapter returns the rules with chapterID's override merged in.
// The returned value never carries PerChapterOverrides.
func (r WritingRules) ForChapter(chapterID string) WritingRules {
	out := r
	out.PerChapterOverrides = nil
	if chapterID == "" {
		return out
	}
	o, ok := r.PerChapterOverrides[chapterID]
	if !ok {
		return out
	}
	if len(o.Tone) > 0 {
		out.Tone = o.Tone
	}
	if len(o.Avoid) > 0 {
		out.Avoid = o.Avoid
	}
	if len(o.Prefer) > 0 {
		out.Prefer = o.Prefer
	}
	if o.PovConsistency != "" {
		out.PovConsistency = o.PovConsistency
	}
	if o.TenseConsistency != "" {
		out.TenseConsistency = o.TenseConsistency
	}
	if o.DialogueStyle != "" {
		out.DialogueStyle = o.DialogueStyle
	}
	if len(o.RevisionFocus) > 0 {
		out.RevisionFocus = o.RevisionFocus
	}
	if o.CustomInstructions != "" {
		out.CustomInstructions = o.CustomInstructions
	}
	return out
}

const (
	ResponseAccepted = "accepted"
	ResponseRejected = "rejected"
)

// LearnedPreference is a pattern the author keeps accepting or rejecting.
type LearnedPreference struct {
	Pattern        string `json:"pattern"`
	AuthorResponse string `json:"authorResponse"`
	Count          int    `json:"count"`
	LastSeen       int64  `json:"lastSeen"`
	InferredRule   string `json:"inferredRule,omitempty"`
}

// Citation is a research source attached to the book.
type Citation struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	URL      string   `json:"url,omitempty"`
	Note     string   `json:"note"`
	Chapters []string `json:"chapters,omitempty"`
}

// RevisionEntry records one applied AI update.
type RevisionEntry struct {
	ID        string   `json:"id"`
	Timestamp int64    `json:"timestamp"`
	Kind      string   `json:"kind"`
	Targets   []string `json:"targets"`
	Summary   string   `json:"summary"`
}
