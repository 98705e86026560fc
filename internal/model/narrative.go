package model

// NarrativeState is the singleton reader-facing state of the story.
type NarrativeState struct {
	CurrentPoint  string   `json:"currentPoint"`
	ReaderKnows   []string `json:"readerKnows"`
	ReaderExpects []string `json:"readerExpects"`
	DramaticIrony []string `json:"dramaticIrony"`
	Override      bool     `json:"_override,omitempty"`
}

func (n NarrativeState) Locked() bool { return n.Override }

// NarrativePromise is a setup the story owes the reader a payoff for.
type NarrativePromise struct {
	ID            string `json:"id"`
	Setup         string `json:"setup"`
	SetupChapter  string `json:"setupChapter"`
	PayoffChapter string `json:"payoffChapter,omitempty"`
	Status        string `json:"status"`
	Urgency       string `json:"urgency"`
	Override      bool   `json:"_override,omitempty"`
}

func (p NarrativePromise) EntityID() string { return p.ID }
func (p NarrativePromise) Locked() bool     { return p.Override }

// Open reports whether the promise still awaits a payoff.
func (p NarrativePromise) Open() bool {
	return p.Status != PromisePaid && p.Status != PromiseAbandoned
}

// Due reports whether the promise should be surfaced as due.
// Author-pinned promises are excluded.
func (p NarrativePromise) Due() bool {
	if p.Override {
		return false
	}
	switch p.Status {
	case PromisePlanted, PromiseGrowing, PromiseDue:
		return true
	}
	return false
}

const (
	PromisePlanted   = "planted"
	PromiseGrowing   = "growing"
	PromiseDue       = "due"
	PromisePaid      = "paid"
	PromiseAbandoned = "abandoned"
)

// ValidPromiseStatuses are the allowed promise statuses.
var ValidPromiseStatuses = map[string]bool{
	PromisePlanted:   true,
	PromiseGrowing:   true,
	PromiseDue:       true,
	PromisePaid:      true,
	PromiseAbandoned: true,
}

// ValidUrgencies are the allowed promise urgencies.
var ValidUrgencies = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

// PlotThread is a storyline tracked across chapters.
type PlotThread struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Chapters []string `json:"chapters"`
	Summary  string   `json:"summary"`
	Override bool     `json:"_override,omitempty"`
}

func (t PlotThread) EntityID() string { return t.ID }
func (t PlotThread) Locked() bool     { return t.Override }

// Active reports whether the thread is still in play.
func (t PlotThread) Active() bool {
	return t.Status == "open" || t.Status == "progressing"
}

// ValidThreadStatuses are the allowed plot thread statuses.
var ValidThreadStatuses = map[string]bool{
	"open":        true,
	"progressing": true,
	"resolved":    true,
	"dropped":     true,
}

// TensionData is the tension reading for one chapter, keyed by ChapterID.
type TensionData struct {
	ChapterID     string `json:"chapterId"`
	TensionLevel  int    `json:"tensionLevel"`
	PacingNote    string `json:"pacingNote"`
	EmotionalBeat string `json:"emotionalBeat"`
	Override      bool   `json:"_override,omitempty"`
}

func (d TensionData) EntityID() string { return d.ChapterID }
func (d TensionData) Locked() bool     { return d.Override }

// Narrative bundles the four narrative sub-stores.
type Narrative struct {
	State    NarrativeState
	Promises []NarrativePromise
	Threads  []PlotThread
	Tension  []TensionData
}
