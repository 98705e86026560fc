package model

import (
	"fmt"
	"strings"
)

// BookKey identifies one book repository branch.
type BookKey struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
}

// String renders the key as owner/repo/branch.
func (k BookKey) String() string {
	return k.Owner + "/" + k.Repo + "/" + k.Branch
}

// ParseBookKey parses owner/repo[/branch]; branch defaults to main.
func ParseBookKey(s string) (BookKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return BookKey{}, fmt.Errorf("invalid book key %q (want owner/repo[/branch])", s)
	}
	k := BookKey{Owner: parts[0], Repo: parts[1], Branch: "main"}
	if len(parts) == 3 && parts[2] != "" {
		k.Branch = parts[2]
	}
	return k, nil
}

// ChapterRef points at a chapter manuscript file.
type ChapterRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path,omitempty"`
}

// ManuscriptPath returns where the chapter text lives.
func (c ChapterRef) ManuscriptPath() string {
	if c.Path != "" {
		return c.Path
	}
	return "chapters/" + c.ID + ".md"
}

// Part is a structural grouping of chapters (an arc).
type Part struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Chapters []ChapterRef `json:"chapters"`
}

// ScrivaFeatures toggles optional context sources.
type ScrivaFeatures struct {
	Characters     bool `json:"characters"`
	VoiceProfile   bool `json:"voiceProfile"`
	NarrativeState bool `json:"narrativeState"`
	PlotThreads    bool `json:"plotThreads"`
	RAG            bool `json:"rag"`
	Citations      bool `json:"citations"`
}

// ScrivaConfig is the book configuration stored at .scriva/config.json.
type ScrivaConfig struct {
	Title         string         `json:"title"`
	Author        string         `json:"author,omitempty"`
	Genre         string         `json:"genre,omitempty"`
	Features      ScrivaFeatures `json:"features"`
	ContextBudget int            `json:"contextBudget,omitempty"`
	Structure     []Part         `json:"structure,omitempty"`
}

// Book is the caller's view of the book being compiled for.
type Book struct {
	Key   BookKey
	Title string
	Parts []Part
}

// NewBook builds a Book from its key and configuration.
func NewBook(key BookKey, cfg ScrivaConfig) Book {
	return Book{Key: key, Title: cfg.Title, Parts: cfg.Structure}
}

// Chapters returns all chapters in reading order.
func (b Book) Chapters() []ChapterRef {
	var out []ChapterRef
	for _, p := range b.Parts {
		out = append(out, p.Chapters...)
	}
	return out
}

// PartOf returns the part containing chapterID.
func (b Book) PartOf(chapterID string) (Part, bool) {
	for _, p := range b.Parts {
		for _, c := range p.Chapters {
			if c.ID == chapterID {
				return p, true
			}
		}
	}
	return Part{}, false
}

// Chapter returns the chapter ref for chapterID.
func (b Book) Chapter(chapterID string) (ChapterRef, bool) {
	for _, c := range b.Chapters() {
		if c.ID == chapterID {
			return c, true
		}
	}
	return ChapterRef{}, false
}

// Adjacent returns the ids of the chapters before and after chapterID in
// reading order. Either may be empty.
func (b Book) Adjacent(chapterID string) (prev, next string) {
	chapters := b.Chapters()
	for i, c := range chapters {
		if c.ID != chapterID {
			continue
		}
		if i > 0 {
			prev = chapters[i-1].ID
		}
		if i+1 < len(chapters) {
			next = chapters[i+1].ID
		}
		return prev, next
	}
	return "", ""
}
