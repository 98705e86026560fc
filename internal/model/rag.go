package model

// Chunk types assigned by the chunker's classifier.
const (
	ChunkNarrative   = "narrative"
	ChunkDialogue    = "dialogue"
	ChunkDescription = "description"
	ChunkInteriority = "interiority"
	ChunkAction      = "action"
)

// TextChunk is a bounded span of chapter text, the unit of retrieval.
type TextChunk struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Tokens     int      `json:"tokens"`
	Source     string   `json:"source"`
	ChapterID  string   `json:"chapterId"`
	Type       string   `json:"type"`
	Characters []string `json:"characters"`
	Position   float64  `json:"position"`
}

// EmbeddingManifest records what the index was built from.
type EmbeddingManifest struct {
	Version       int               `json:"version"`
	Model         string            `json:"model"`
	Dimensions    int               `json:"dimensions"`
	ChunkCount    int               `json:"chunkCount"`
	LastIndexed   int64             `json:"lastIndexed"`
	ChapterHashes map[string]string `json:"chapterHashes"`
}

// RAGFilters restrict which chunks a search may return.
// Empty lists do not filter.
type RAGFilters struct {
	ChapterIDs []string `json:"chapterIds,omitempty"`
	Types      []string `json:"types,omitempty"`
	Characters []string `json:"characters,omitempty"`
}

// RAGQuery is a nearest-neighbour search request.
type RAGQuery struct {
	Text    string     `json:"text"`
	TopK    int        `json:"topK"`
	Filters RAGFilters `json:"filters"`
}

// RAGResult is a scored search hit.
type RAGResult struct {
	Chunk   TextChunk `json:"chunk"`
	Score   float64   `json:"score"`
	Context string    `json:"context"`
}
