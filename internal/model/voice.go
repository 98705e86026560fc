package model

// VoiceMetrics are the measured style characteristics of the author.
type VoiceMetrics struct {
	AvgSentenceLength        float64 `json:"avgSentenceLength"`
	VocabularyRichness       float64 `json:"vocabularyRichness"`
	PovStyle                 string  `json:"povStyle"`
	DialogueToNarrationRatio float64 `json:"dialogueToNarrationRatio"`
	MetaphorUsage            string  `json:"metaphorUsage"`
	ParagraphRhythm          string  `json:"paragraphRhythm"`
	TenseUsage               string  `json:"tenseUsage"`
}

// VoiceProfile is the singleton description of the author's voice.
type VoiceProfile struct {
	Summary          string       `json:"summary"`
	Metrics          VoiceMetrics `json:"metrics"`
	GenreCalibration string       `json:"genreCalibration"`
	LastUpdated      int64        `json:"lastUpdated"`
	AnalyzedChapters []string     `json:"analyzedChapters"`
	Override         bool         `json:"_override,omitempty"`
}

func (v VoiceProfile) Locked() bool { return v.Override }

// VoiceExemplar is a passage that shows the voice at its best.
type VoiceExemplar struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Chapter string   `json:"chapter"`
	Tags    []string `json:"tags"`
	Quality string   `json:"quality"`
}

// qualityRank orders exemplar quality; lower is better.
var qualityRank = map[string]int{
	"signature": 0,
	"strong":    1,
	"reference": 2,
}

// QualityRank returns the exemplar's rank; unknown qualities sort last.
func (e VoiceExemplar) QualityRank() int {
	if r, ok := qualityRank[e.Quality]; ok {
		return r
	}
	return len(qualityRank)
}

// HasAnyTag reports whether the exemplar carries at least one of tags.
func (e VoiceExemplar) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range e.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// AntiPattern is a phrasing the author has corrected away from.
type AntiPattern struct {
	ID         string   `json:"id"`
	Original   string   `json:"original"`
	Correction string   `json:"correction,omitempty"`
	Reason     string   `json:"reason"`
	Tags       []string `json:"tags"`
	Source     string   `json:"source"`
}

// DriftReport is one measurement of how far a chapter strays from the profile.
type DriftReport struct {
	ChapterID  string  `json:"chapterId"`
	Score      float64 `json:"score"`
	Notes      string  `json:"notes"`
	MeasuredAt int64   `json:"measuredAt"`
}
