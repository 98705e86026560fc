// Package retrieval indexes chapter chunks with embeddings and serves
// filtered nearest-neighbour search over them.
package retrieval

import (
	"sort"
	"strconv"
	"time"

	"github.com/rcliao/scriva/internal/embedding"
	"github.com/rcliao/scriva/internal/model"
)

// ManifestVersion is written into every manifest this package produces.
const ManifestVersion = 1

// DefaultTopK is used when a query asks for zero or fewer results.
const DefaultTopK = 5

// Index holds chunks and their embeddings as parallel slices plus the
// manifest they were built under. An Index is never mutated once shared;
// WithChapter returns a new one.
type Index struct {
	Chunks     []model.TextChunk
	Embeddings []embedding.Vector
	Manifest   model.EmbeddingManifest
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		Chunks:     []model.TextChunk{},
		Embeddings: []embedding.Vector{},
		Manifest:   model.EmbeddingManifest{Version: ManifestVersion, ChapterHashes: map[string]string{}},
	}
}

// WithChapter returns a copy of ix whose chunks for chapterID are replaced
// by chunks and vecs, appended at the end. Other chapters keep their order.
func (ix *Index) WithChapter(chapterID string, chunks []model.TextChunk, vecs []embedding.Vector) *Index {
	out := &Index{Manifest: ix.Manifest}
	out.Chunks = make([]model.TextChunk, 0, len(ix.Chunks)+len(chunks))
	out.Embeddings = make([]embedding.Vector, 0, len(ix.Chunks)+len(chunks))
	for i, c := range ix.Chunks {
		if c.ChapterID == chapterID || i >= len(ix.Embeddings) {
			continue
		}
		out.Chunks = append(out.Chunks, c)
		out.Embeddings = append(out.Embeddings, ix.Embeddings[i])
	}
	out.Chunks = append(out.Chunks, chunks...)
	out.Embeddings = append(out.Embeddings, vecs...)
	return out
}

// RollingHash is an order-sensitive 32-bit fingerprint of content, used
// only to detect edits. It is not collision resistant and must not be used
// for integrity or deduplication.
func RollingHash(content string) string {
	var h int32
	for _, r := range content {
		h = h*31 + int32(r)
	}
	return strconv.FormatInt(int64(h), 36)
}

// IsChapterStale reports whether content differs from what chapterID was
// last indexed from. A chapter never indexed is stale.
func IsChapterStale(m model.EmbeddingManifest, chapterID, content string) bool {
	h, ok := m.ChapterHashes[chapterID]
	return !ok || h != RollingHash(content)
}

// UpdateManifestForChapter records content as the indexed version of
// chapterID and sets the aggregate chunk count. Other chapter hashes are
// untouched. m is not modified.
func UpdateManifestForChapter(m model.EmbeddingManifest, chapterID, content string, chunkCount int) model.EmbeddingManifest {
	hashes := make(map[string]string, len(m.ChapterHashes)+1)
	for k, v := range m.ChapterHashes {
		hashes[k] = v
	}
	hashes[chapterID] = RollingHash(content)
	m.ChapterHashes = hashes
	m.ChunkCount = chunkCount
	m.LastIndexed = time.Now().UnixMilli()
	if m.Version == 0 {
		m.Version = ManifestVersion
	}
	return m
}

// Search filters chunks by q.Filters, scores the survivors against
// queryEmb by cosine similarity and returns the best q.TopK, highest
// first. Equal scores keep index order.
func Search(queryEmb embedding.Vector, embs []embedding.Vector, chunks []model.TextChunk, q model.RAGQuery) []model.RAGResult {
	topK := q.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	n := min(len(chunks), len(embs))
	results := []model.RAGResult{}
	for i := 0; i < n; i++ {
		c := chunks[i]
		if !matches(c, q.Filters) {
			continue
		}
		results = append(results, model.RAGResult{
			Chunk:   c,
			Score:   embedding.CosineSimilarity(queryEmb, embs[i]),
			Context: c.Text,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func matches(c model.TextChunk, f model.RAGFilters) bool {
	if len(f.ChapterIDs) > 0 && !contains(f.ChapterIDs, c.ChapterID) {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, c.Type) {
		return false
	}
	if len(f.Characters) > 0 {
		for _, name := range c.Characters {
			if contains(f.Characters, name) {
				return true
			}
		}
		return false
	}
	return true
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
