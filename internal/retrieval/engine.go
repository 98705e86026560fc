package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rcliao/scriva/internal/chunker"
	"github.com/rcliao/scriva/internal/embedding"
	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
	"github.com/rcliao/scriva/internal/state"
)

// ErrNoEmbedder is returned when an operation needs embeddings but no
// provider is configured.
var ErrNoEmbedder = errors.New("no embedding provider configured")

// ErrIndexMismatch is returned when the persisted index was built by a
// different embedding model or dimension than the configured provider.
var ErrIndexMismatch = errors.New("index built with a different embedding model")

// Engine loads, builds and searches per-book indexes. Loaded indexes are
// kept in the injected Cache keyed by book.
type Engine struct {
	books     repo.Books
	embedder  embedding.Embedder
	cache     *Cache
	log       *zap.Logger
	batchSize int

	mu sync.Mutex // serialises index rebuilds
}

// NewEngine returns an Engine. embedder may be nil, in which case indexing
// and search fail with ErrNoEmbedder. A nil cache gets a default one.
func NewEngine(books repo.Books, embedder embedding.Embedder, cache *Cache, log *zap.Logger) *Engine {
	if cache == nil {
		cache = NewCache(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		books:     books,
		embedder:  embedder,
		cache:     cache,
		log:       log,
		batchSize: embedding.DefaultBatchSize,
	}
}

// Load returns the book's index from cache, or from the persisted files.
// Missing or inconsistent files yield an empty index.
func (e *Engine) Load(ctx context.Context, key model.BookKey) (*Index, error) {
	if ix, ok := e.cache.Get(key); ok {
		return ix, nil
	}
	cs := e.books.Book(key)
	chunks, err := repo.ReadJSON(ctx, cs, repo.ChunksPath, []model.TextChunk{})
	if err != nil {
		return nil, err
	}
	vecs, err := repo.ReadJSON(ctx, cs, repo.VectorsPath, []embedding.Vector{})
	if err != nil {
		return nil, err
	}
	manifest, err := repo.ReadJSON(ctx, cs, repo.ManifestPath, model.EmbeddingManifest{})
	if err != nil {
		return nil, err
	}

	ix := NewIndex()
	if len(chunks) == len(vecs) {
		ix.Chunks, ix.Embeddings = chunks, vecs
		if manifest.ChapterHashes != nil {
			ix.Manifest = manifest
		}
	} else {
		e.log.Warn("index files disagree, starting empty",
			zap.String("book", key.String()),
			zap.Int("chunks", len(chunks)),
			zap.Int("vectors", len(vecs)),
		)
	}
	e.cache.Set(key, ix)
	return ix, nil
}

// Save persists ix and caches it. The manifest is written last so an
// interrupted save leaves chapters looking stale rather than indexed.
func (e *Engine) Save(ctx context.Context, key model.BookKey, ix *Index) error {
	cs := e.books.Book(key)
	if err := repo.WriteJSON(ctx, cs, repo.ChunksPath, ix.Chunks); err != nil {
		return err
	}
	if err := repo.WriteJSON(ctx, cs, repo.VectorsPath, ix.Embeddings); err != nil {
		return err
	}
	if err := repo.WriteJSON(ctx, cs, repo.ManifestPath, ix.Manifest); err != nil {
		return err
	}
	e.cache.Set(key, ix)
	return nil
}

// IndexChapter chunks, embeds and stores one chapter, replacing whatever
// was indexed for it before. Returns the number of chunks produced.
func (e *Engine) IndexChapter(ctx context.Context, key model.BookKey, chapterID, source, content string) (int, error) {
	if e.embedder == nil {
		return 0, ErrNoEmbedder
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ix, err := e.Load(ctx, key)
	if err != nil {
		return 0, err
	}
	ix = e.resetIfMismatched(key, ix)
	world, err := state.New(e.books.Book(key)).ReadWorld(ctx)
	if err != nil {
		return 0, err
	}
	next, n, err := e.indexInto(ctx, ix, chapterID, source, content, &world)
	if err != nil {
		return 0, err
	}
	if err := e.Save(ctx, key, next); err != nil {
		return 0, err
	}
	e.log.Info("chapter indexed",
		zap.String("book", key.String()),
		zap.String("chapter_id", chapterID),
		zap.Int("chunks", n),
	)
	return n, nil
}

func (e *Engine) indexInto(ctx context.Context, ix *Index, chapterID, source, content string, world *model.WorldModel) (*Index, int, error) {
	chunks := chunker.ChunkChapter(content, chapterID, source, world)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := embedding.EmbedBatched(ctx, e.embedder, texts, e.batchSize)
	if err != nil {
		return nil, 0, fmt.Errorf("index %s: %w", chapterID, err)
	}
	next := ix.WithChapter(chapterID, chunks, vecs)
	next.Manifest = UpdateManifestForChapter(ix.Manifest, chapterID, content, len(next.Chunks))
	next.Manifest.Model = e.embedder.Model()
	next.Manifest.Dimensions = e.embedder.Dims()
	return next, len(chunks), nil
}

// compatible reports whether vectors in an index described by m can be
// compared with vectors from the configured provider. An index that
// recorded no model yet is compatible with any provider.
func (e *Engine) compatible(m model.EmbeddingManifest) bool {
	if e.embedder == nil || m.Model == "" {
		return true
	}
	return m.Model == e.embedder.Model() && m.Dimensions == e.embedder.Dims()
}

// resetIfMismatched discards an index built by another model, leaving
// every chapter stale so the next run rebuilds it with one model.
func (e *Engine) resetIfMismatched(key model.BookKey, ix *Index) *Index {
	if e.compatible(ix.Manifest) {
		return ix
	}
	e.log.Warn("embedding model changed, rebuilding index",
		zap.String("book", key.String()),
		zap.String("indexed_model", ix.Manifest.Model),
		zap.Int("indexed_dims", ix.Manifest.Dimensions),
		zap.String("model", e.embedder.Model()),
		zap.Int("dims", e.embedder.Dims()),
	)
	return NewIndex()
}

// IndexReport summarises an IndexBook run.
type IndexReport struct {
	Indexed []string `json:"indexed"`
	Fresh   []string `json:"fresh"`
	Missing []string `json:"missing"`
	Chunks  int      `json:"chunks"`
}

// IndexBook re-indexes every stale chapter in book and persists once. Any
// embedding failure aborts the run before anything is written.
func (e *Engine) IndexBook(ctx context.Context, book model.Book) (IndexReport, error) {
	var rep IndexReport
	if e.embedder == nil {
		return rep, ErrNoEmbedder
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cs := e.books.Book(book.Key)
	ix, err := e.Load(ctx, book.Key)
	if err != nil {
		return rep, err
	}
	ix = e.resetIfMismatched(book.Key, ix)
	world, err := state.New(cs).ReadWorld(ctx)
	if err != nil {
		return rep, err
	}

	for _, ch := range book.Chapters() {
		f, err := cs.ReadFile(ctx, ch.ManuscriptPath())
		if errors.Is(err, repo.ErrNotFound) {
			rep.Missing = append(rep.Missing, ch.ID)
			continue
		}
		if err != nil {
			return rep, err
		}
		if !IsChapterStale(ix.Manifest, ch.ID, f.Content) {
			rep.Fresh = append(rep.Fresh, ch.ID)
			continue
		}
		next, _, err := e.indexInto(ctx, ix, ch.ID, ch.ManuscriptPath(), f.Content, &world)
		if err != nil {
			return IndexReport{}, err
		}
		ix = next
		rep.Indexed = append(rep.Indexed, ch.ID)
	}
	rep.Chunks = len(ix.Chunks)

	if len(rep.Indexed) > 0 {
		if err := e.Save(ctx, book.Key, ix); err != nil {
			return IndexReport{}, err
		}
	}
	e.log.Info("book indexed",
		zap.String("book", book.Key.String()),
		zap.Int("indexed", len(rep.Indexed)),
		zap.Int("fresh", len(rep.Fresh)),
		zap.Int("missing", len(rep.Missing)),
		zap.Int("chunks", rep.Chunks),
	)
	return rep, nil
}

// Stale lists the chapters of book whose manuscript changed since indexing.
// Chapters without a manuscript file are skipped. Every chapter is stale
// when the index was built by another embedding model.
func (e *Engine) Stale(ctx context.Context, book model.Book) ([]string, error) {
	ix, err := e.Load(ctx, book.Key)
	if err != nil {
		return nil, err
	}
	cs := e.books.Book(book.Key)
	stale := []string{}
	for _, ch := range book.Chapters() {
		f, err := cs.ReadFile(ctx, ch.ManuscriptPath())
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !e.compatible(ix.Manifest) || IsChapterStale(ix.Manifest, ch.ID, f.Content) {
			stale = append(stale, ch.ID)
		}
	}
	return stale, nil
}

// Search embeds q.Text and searches the book's index. An empty index
// returns no results without calling the provider. An index built by
// another model yields ErrIndexMismatch until it is rebuilt.
func (e *Engine) Search(ctx context.Context, key model.BookKey, q model.RAGQuery) ([]model.RAGResult, error) {
	ix, err := e.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(ix.Chunks) == 0 {
		return []model.RAGResult{}, nil
	}
	if e.embedder == nil {
		return nil, ErrNoEmbedder
	}
	if !e.compatible(ix.Manifest) {
		return nil, fmt.Errorf("%w: index has %s (%d dims), provider is %s (%d dims)",
			ErrIndexMismatch, ix.Manifest.Model, ix.Manifest.Dimensions, e.embedder.Model(), e.embedder.Dims())
	}
	qv, err := embedding.EmbedOne(ctx, e.embedder, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return Search(qv, ix.Embeddings, ix.Chunks, q), nil
}
