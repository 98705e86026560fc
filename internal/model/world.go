// Package model defines the book-state data types shared by the stores,
// the merge engine, the compiler and the retrieval engine.
package model

// Entity is anything the merge engine reconciles by id.
// Locked reports whether the author pinned the entity with `_override`.
type Entity interface {
	EntityID() string
	Locked() bool
}

// Relationship links a character to another character by id.
// The target may dangle; consumers must tolerate it.
type Relationship struct {
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
	Note     string `json:"note,omitempty"`
}

// CharacterNode is a character in the world model.
type CharacterNode struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Aliases       []string       `json:"aliases,omitempty"`
	Role          string         `json:"role"`
	Alive         bool           `json:"alive"`
	Description   string         `json:"description"`
	CurrentState  string         `json:"currentState"`
	Traits        []string       `json:"traits,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Appearances   []string       `json:"appearances,omitempty"`
	Override      bool           `json:"_override,omitempty"`
}

func (c CharacterNode) EntityID() string { return c.ID }
func (c CharacterNode) Locked() bool     { return c.Override }

// AppearsIn reports whether the character appears in chapterID.
func (c CharacterNode) AppearsIn(chapterID string) bool {
	for _, a := range c.Appearances {
		if a == chapterID {
			return true
		}
	}
	return false
}

// PlaceNode is a location in the world model.
type PlaceNode struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Region      string   `json:"region,omitempty"`
	Appearances []string `json:"appearances,omitempty"`
	Override    bool     `json:"_override,omitempty"`
}

func (p PlaceNode) EntityID() string { return p.ID }
func (p PlaceNode) Locked() bool     { return p.Override }

// TimelineEvent is an in-world event.
type TimelineEvent struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	When         string   `json:"when"`
	ChapterID    string   `json:"chapterId,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Override     bool     `json:"_override,omitempty"`
}

func (e TimelineEvent) EntityID() string { return e.ID }
func (e TimelineEvent) Locked() bool     { return e.Override }

// ObjectNode is a significant object.
type ObjectNode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Holder      string `json:"holder,omitempty"`
	Override    bool   `json:"_override,omitempty"`
}

func (o ObjectNode) EntityID() string { return o.ID }
func (o ObjectNode) Locked() bool     { return o.Override }

// WorldRule is a rule of the fictional world (magic system, physics, law).
type WorldRule struct {
	ID       string `json:"id"`
	Rule     string `json:"rule"`
	Category string `json:"category,omitempty"`
	Override bool   `json:"_override,omitempty"`
}

func (r WorldRule) EntityID() string { return r.ID }
func (r WorldRule) Locked() bool     { return r.Override }

// WorldModel groups the five world sub-collections.
type WorldModel struct {
	Characters []CharacterNode `json:"characters"`
	Places     []PlaceNode     `json:"places"`
	Timeline   []TimelineEvent `json:"timeline"`
	Objects    []ObjectNode    `json:"objects"`
	Rules      []WorldRule     `json:"rules"`
}

// CharactersIn returns the characters appearing in chapterID, in stored order.
func (w WorldModel) CharactersIn(chapterID string) []CharacterNode {
	var out []CharacterNode
	for _, c := range w.Characters {
		if c.AppearsIn(chapterID) {
			out = append(out, c)
		}
	}
	return out
}

// ValidRoles are the allowed character roles.
var ValidRoles = map[string]bool{
	"protagonist": true,
	"antagonist":  true,
	"supporting":  true,
	"minor":       true,
	"mentioned":   true,
}
