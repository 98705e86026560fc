package chunker

import (
	"regexp"
	"strings"

	"github.com/rcliao/scriva/internal/model"
)

var (
	interiorityAny    = regexp.MustCompile(`(?i)\b(thought|felt|wondered|realized|remembered|knew|believed)\b`)
	interiorityStrong = regexp.MustCompile(`(?i)\b(thought|felt|wondered)\b`)
	actionVerbs       = regexp.MustCompile(`(?i)\b(ran|jumped|grabbed|slammed|punched|fought|chased|dodged)\b`)
	descriptionCues   = regexp.MustCompile(`(?i)\b(the room|the sky|the light|the air|looked like|smelled|the sound)\b`)
)

// Classify assigns a chunk type. Rules are tried in order and the first
// match wins: dialogue, interiority, action, description, else narrative.
func Classify(text string) string {
	var lines, quoted int
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines++
		if strings.ContainsAny(l, "\"“”") {
			quoted++
		}
	}
	switch {
	case lines > 0 && quoted*2 > lines:
		return model.ChunkDialogue
	case interiorityAny.MatchString(text) && interiorityStrong.MatchString(text):
		return model.ChunkInteriority
	case actionVerbs.MatchString(text):
		return model.ChunkAction
	case descriptionCues.MatchString(text):
		return model.ChunkDescription
	}
	return model.ChunkNarrative
}

// castName is one searchable name and the canonical name it resolves to.
type castName struct {
	needle    string
	canonical string
}

func castNames(world *model.WorldModel) []castName {
	if world == nil {
		return nil
	}
	var out []castName
	for _, c := range world.Characters {
		for _, n := range append([]string{c.Name}, c.Aliases...) {
			if n = strings.TrimSpace(n); n != "" {
				out = append(out, castName{needle: strings.ToLower(n), canonical: c.Name})
			}
		}
	}
	return out
}

// tagCharacters returns the canonical names of characters whose name or
// alias appears in text, case-insensitively, in world order.
func tagCharacters(text string, names []castName) []string {
	lower := strings.ToLower(text)
	seen := map[string]bool{}
	out := []string{}
	for _, n := range names {
		if seen[n.canonical] || !strings.Contains(lower, n.needle) {
			continue
		}
		seen[n.canonical] = true
		out = append(out, n.canonical)
	}
	return out
}
