// Package proposal validates AI-proposed state updates and applies them
// through the merge engine.
//
// A proposal is a single JSON object whose keys name the stores it touches.
// Every entity must carry its full field set; anything else makes the whole
// proposal malformed, and a malformed proposal changes nothing.
package proposal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rcliao/scriva/internal/model"
)

// ErrMalformed marks AI output that failed validation.
var ErrMalformed = errors.New("malformed proposal")

// Proposal is a validated update. Nil or empty fields leave their store
// untouched.
type Proposal struct {
	Characters     []model.CharacterNode
	Places         []model.PlaceNode
	Timeline       []model.TimelineEvent
	Objects        []model.ObjectNode
	WorldRules     []model.WorldRule
	NarrativeState *model.NarrativeState
	Promises       []model.NarrativePromise
	Threads        []model.PlotThread
	Tension        []model.TensionData
	VoiceProfile   *model.VoiceProfile
}

// Store keys accepted at the top level of a proposal.
const (
	KeyCharacters     = "characters"
	KeyPlaces         = "places"
	KeyTimeline       = "timeline"
	KeyObjects        = "objects"
	KeyWorldRules     = "worldRules"
	KeyNarrativeState = "narrativeState"
	KeyPromises       = "promises"
	KeyThreads        = "threads"
	KeyTension        = "tension"
	KeyVoiceProfile   = "voiceProfile"
)

// required lists the fields every entity of a kind must carry. Merge
// replaces whole entities, so an absent collection would erase stored data;
// only payoffChapter and correction may be left out.
var required = map[string][]string{
	KeyCharacters:     {"id", "name", "aliases", "role", "alive", "description", "currentState", "traits", "relationships", "appearances"},
	KeyPlaces:         {"id", "name", "description", "region", "appearances"},
	KeyTimeline:       {"id", "description", "when", "chapterId", "participants"},
	KeyObjects:        {"id", "name", "description", "holder"},
	KeyWorldRules:     {"id", "rule", "category"},
	KeyNarrativeState: {"currentPoint", "readerKnows", "readerExpects", "dramaticIrony"},
	KeyPromises:       {"id", "setup", "setupChapter", "status", "urgency"},
	KeyThreads:        {"id", "name", "status", "chapters", "summary"},
	KeyTension:        {"chapterId", "tensionLevel", "pacingNote", "emotionalBeat"},
	KeyVoiceProfile:   {"summary", "metrics", "genreCalibration", "lastUpdated", "analyzedChapters"},
}

// requiredMetrics are the voice profile metrics fields.
var requiredMetrics = []string{
	"avgSentenceLength", "vocabularyRichness", "povStyle", "dialogueToNarrationRatio",
	"metaphorUsage", "paragraphRhythm", "tenseUsage",
}

// Targets returns the store keys the proposal touches, sorted.
func (p Proposal) Targets() []string {
	var out []string
	add := func(key string, n int) {
		if n > 0 {
			out = append(out, key)
		}
	}
	add(KeyCharacters, len(p.Characters))
	add(KeyPlaces, len(p.Places))
	add(KeyTimeline, len(p.Timeline))
	add(KeyObjects, len(p.Objects))
	add(KeyWorldRules, len(p.WorldRules))
	if p.NarrativeState != nil {
		out = append(out, KeyNarrativeState)
	}
	add(KeyPromises, len(p.Promises))
	add(KeyThreads, len(p.Threads))
	add(KeyTension, len(p.Tension))
	if p.VoiceProfile != nil {
		out = append(out, KeyVoiceProfile)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the proposal touches nothing.
func (p Proposal) Empty() bool { return len(p.Targets()) == 0 }

// Extract pulls the JSON object out of a completion, tolerating code
// fences and prose around it.
func Extract(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// Parse validates raw and returns the proposal it describes. Any
// validation failure wraps ErrMalformed.
func Parse(raw string) (Proposal, error) {
	body, ok := Extract(raw)
	if !ok {
		return Proposal{}, fmt.Errorf("%w: no JSON object found", ErrMalformed)
	}
	if !gjson.Valid(body) {
		return Proposal{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.Parse(body)
	if !root.IsObject() {
		return Proposal{}, fmt.Errorf("%w: top level is not an object", ErrMalformed)
	}

	var p Proposal
	var perr error
	root.ForEach(func(key, value gjson.Result) bool {
		perr = p.set(key.String(), value)
		return perr == nil
	})
	if perr != nil {
		return Proposal{}, perr
	}
	return p, nil
}

func (p *Proposal) set(key string, v gjson.Result) error {
	var err error
	switch key {
	case KeyCharacters:
		p.Characters, err = decodeList[model.CharacterNode](key, v, checkCharacter)
	case KeyPlaces:
		p.Places, err = decodeList[model.PlaceNode](key, v, nil)
	case KeyTimeline:
		p.Timeline, err = decodeList[model.TimelineEvent](key, v, nil)
	case KeyObjects:
		p.Objects, err = decodeList[model.ObjectNode](key, v, nil)
	case KeyWorldRules:
		p.WorldRules, err = decodeList[model.WorldRule](key, v, nil)
	case KeyPromises:
		p.Promises, err = decodeList[model.NarrativePromise](key, v, checkPromise)
	case KeyThreads:
		p.Threads, err = decodeList[model.PlotThread](key, v, checkThread)
	case KeyTension:
		p.Tension, err = decodeList[model.TensionData](key, v, checkTension)
	case KeyNarrativeState:
		var st model.NarrativeState
		if err = decodeOne(key, v, &st); err == nil {
			err = checkFields(key, key, v)
		}
		if err == nil {
			p.NarrativeState = &st
		}
	case KeyVoiceProfile:
		var vp model.VoiceProfile
		if err = decodeOne(key, v, &vp); err == nil {
			err = checkFields(key, key, v)
		}
		if err == nil {
			err = checkMetrics(v.Get("metrics"))
		}
		if err == nil {
			p.VoiceProfile = &vp
		}
	default:
		return fmt.Errorf("%w: unknown key %q", ErrMalformed, key)
	}
	return err
}

func decodeList[T model.Entity](key string, v gjson.Result, check func(T) error) ([]T, error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: %s must be an array", ErrMalformed, key)
	}
	items := v.Array()
	out := make([]T, 0, len(items))
	for i, item := range items {
		where := fmt.Sprintf("%s[%d]", key, i)
		var e T
		if err := decodeOne(where, item, &e); err != nil {
			return nil, err
		}
		if err := checkFields(key, where, item); err != nil {
			return nil, err
		}
		if strings.TrimSpace(e.EntityID()) == "" {
			return nil, fmt.Errorf("%w: %s[%d] has an empty id", ErrMalformed, key, i)
		}
		if check != nil {
			if err := check(e); err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %v", ErrMalformed, key, i, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// decodeOne strictly decodes a single object. Only the author may lock an
// entity, so a proposed `_override` is rejected.
func decodeOne(where string, v gjson.Result, dst any) error {
	if !v.IsObject() {
		return fmt.Errorf("%w: %s must be an object", ErrMalformed, where)
	}
	if v.Get("_override").Exists() {
		return fmt.Errorf("%w: %s sets _override", ErrMalformed, where)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(v.Raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, where, err)
	}
	return nil
}

// checkFields rejects partially-shaped entities; replacement is whole-entity.
func checkFields(key, where string, v gjson.Result) error {
	for _, f := range required[key] {
		if !v.Get(f).Exists() {
			return fmt.Errorf("%w: %s missing %q", ErrMalformed, where, f)
		}
	}
	return nil
}

func checkCharacter(c model.CharacterNode) error {
	if !model.ValidRoles[c.Role] {
		return fmt.Errorf("invalid role %q", c.Role)
	}
	return nil
}

func checkPromise(p model.NarrativePromise) error {
	if !model.ValidPromiseStatuses[p.Status] {
		return fmt.Errorf("invalid status %q", p.Status)
	}
	if !model.ValidUrgencies[p.Urgency] {
		return fmt.Errorf("invalid urgency %q", p.Urgency)
	}
	return nil
}

func checkThread(t model.PlotThread) error {
	if !model.ValidThreadStatuses[t.Status] {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	return nil
}

func checkMetrics(m gjson.Result) error {
	if !m.IsObject() {
		return fmt.Errorf("%w: %s.metrics must be an object", ErrMalformed, KeyVoiceProfile)
	}
	for _, f := range requiredMetrics {
		if !m.Get(f).Exists() {
			return fmt.Errorf("%w: %s.metrics missing %q", ErrMalformed, KeyVoiceProfile, f)
		}
	}
	return nil
}

func checkTension(t model.TensionData) error {
	if t.TensionLevel < 1 || t.TensionLevel > 10 {
		return fmt.Errorf("tension level %d out of range 1-10", t.TensionLevel)
	}
	return nil
}
