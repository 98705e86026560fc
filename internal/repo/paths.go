package repo

// Dir is the reserved directory holding book state.
const Dir = ".scriva"

// Paths of every persisted store. These are the wire format shared with any
// tool reading the repository directly.
const (
	ConfigPath     = Dir + "/config.json"
	RulesPath      = Dir + "/rules.json"
	CharactersPath = Dir + "/characters.json"
	CitationsPath  = Dir + "/citations.json"

	PlacesPath     = Dir + "/world/places.json"
	TimelinePath   = Dir + "/world/timeline.json"
	ObjectsPath    = Dir + "/world/objects.json"
	WorldRulesPath = Dir + "/world/rules.json"

	NarrativeStatePath = Dir + "/narrative/state.json"
	PromisesPath       = Dir + "/narrative/promises.json"
	ThreadsPath        = Dir + "/narrative/threads.json"
	TensionPath        = Dir + "/narrative/tension.json"

	VoiceProfilePath = Dir + "/voice/profile.json"
	ExemplarsPath    = Dir + "/voice/exemplars.json"
	AntiPatternsPath = Dir + "/voice/antipatterns.json"
	DriftPath        = Dir + "/voice/drift.json"

	BookSummaryPath = Dir + "/memory/book.md"

	ChunksPath   = Dir + "/embeddings/chunks.json"
	VectorsPath  = Dir + "/embeddings/vectors.json"
	ManifestPath = Dir + "/embeddings/manifest.json"

	RevisionLogPath = Dir + "/revision/log.json"
	LearnedPath     = Dir + "/revision/learned.json"
)

// ArcSummaryPath is the summary of one structural part.
func ArcSummaryPath(partID string) string {
	return Dir + "/memory/arcs/" + partID + ".md"
}

// ChapterSummaryPath is the summary of one chapter.
func ChapterSummaryPath(chapterID string) string {
	return Dir + "/memory/chapters/" + chapterID + ".md"
}
