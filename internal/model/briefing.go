package model

// TaskType is the authoring mode an AI request runs in.
type TaskType string

const (
	TaskChat         TaskType = "chat"
	TaskWrite        TaskType = "write"
	TaskContinue     TaskType = "continue"
	TaskEdit         TaskType = "edit"
	TaskCritique     TaskType = "critique"
	TaskResearch     TaskType = "research"
	TaskRevisionPlan TaskType = "revision-plan"
)

// ValidTaskTypes are the accepted task types.
var ValidTaskTypes = map[TaskType]bool{
	TaskChat:         true,
	TaskWrite:        true,
	TaskContinue:     true,
	TaskEdit:         true,
	TaskCritique:     true,
	TaskResearch:     true,
	TaskRevisionPlan: true,
}

// Drafting reports whether the task produces prose in the author's voice.
func (t TaskType) Drafting() bool {
	return t == TaskWrite || t == TaskContinue || t == TaskEdit
}

// CompileTask describes what the AI is about to do.
type CompileTask struct {
	Type        TaskType `json:"type"`
	ChapterID   string   `json:"chapterId,omitempty"`
	PartID      string   `json:"partId,omitempty"`
	Characters  []string `json:"characters,omitempty"`
	Selection   string   `json:"selection,omitempty"`
	UserMessage string   `json:"userMessage,omitempty"`
}

// Priority orders briefing sections during budget fill.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Priorities is the fixed bucket order used by the budget fill.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// BriefingSection is one labelled block of context.
type BriefingSection struct {
	Label    string   `json:"label"`
	Content  string   `json:"content"`
	Tokens   int      `json:"tokens"`
	Priority Priority `json:"priority"`
	Source   string   `json:"source"`
}

// ContextBriefing is the budgeted context for one AI request.
type ContextBriefing struct {
	Budget      int               `json:"budget"`
	Sections    []BriefingSection `json:"sections"`
	TotalTokens int               `json:"totalTokens"`
}

// Labels returns the section labels in order.
func (b ContextBriefing) Labels() []string {
	out := make([]string, len(b.Sections))
	for i, s := range b.Sections {
		out[i] = s.Label
	}
	return out
}
