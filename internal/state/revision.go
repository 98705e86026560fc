package state

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
)

var (
	entropyMu sync.Mutex
	entropy   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NewID returns a fresh sortable id.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

func (s *Store) ReadRevisionLog(ctx context.Context) ([]model.RevisionEntry, error) {
	return repo.ReadJSON(ctx, s.cs, repo.RevisionLogPath, []model.RevisionEntry{})
}

// AppendRevision adds an entry to the revision log, filling id and timestamp.
func (s *Store) AppendRevision(ctx context.Context, e model.RevisionEntry) (model.RevisionEntry, error) {
	log, err := s.ReadRevisionLog(ctx)
	if err != nil {
		return e, err
	}
	now := s.now()
	if e.ID == "" {
		e.ID = NewID(now)
	}
	if e.Timestamp == 0 {
		e.Timestamp = now.UnixMilli()
	}
	if err := repo.WriteJSON(ctx, s.cs, repo.RevisionLogPath, append(log, e)); err != nil {
		return e, err
	}
	return e, nil
}

func (s *Store) ReadCitations(ctx context.Context) ([]model.Citation, error) {
	return repo.ReadJSON(ctx, s.cs, repo.CitationsPath, []model.Citation{})
}

func (s *Store) WriteCitations(ctx context.Context, cs []model.Citation) error {
	cs = slices.Clone(cs)
	for i := range cs {
		if cs[i].ID == "" {
			cs[i].ID = NewID(s.now())
		}
	}
	return repo.WriteJSON(ctx, s.cs, repo.CitationsPath, nonNil(cs))
}

// CitationsToContext renders research citations, those tied to chapterID
// first. An empty chapterID keeps stored order.
func CitationsToContext(cs []model.Citation, chapterID string, lim Limits) string {
	if len(cs) == 0 {
		return ""
	}
	lim = lim.normalize()
	var tied, rest []model.Citation
	for _, c := range cs {
		if chapterID != "" && contains(c.Chapters, chapterID) {
			tied = append(tied, c)
		} else {
			rest = append(rest, c)
		}
	}
	var b strings.Builder
	b.WriteString("## Research Notes\n")
	for _, c := range append(tied, rest...) {
		fmt.Fprintf(&b, "- %s: %s", Truncate(c.Source, lim.Field), Truncate(c.Note, lim.Field))
		if c.URL != "" {
			fmt.Fprintf(&b, " <%s>", c.URL)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
