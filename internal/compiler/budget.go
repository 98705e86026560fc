package compiler

import "github.com/rcliao/scriva/internal/model"

// DefaultBudget applies to task types without an entry in Budgets.
const DefaultBudget = 3000

// Budgets is the base token budget per task type.
var Budgets = map[model.TaskType]int{
	model.TaskChat:         2000,
	model.TaskWrite:        4000,
	model.TaskContinue:     3500,
	model.TaskEdit:         3000,
	model.TaskCritique:     5000,
	model.TaskResearch:     4000,
	model.TaskRevisionPlan: 6000,
}

// BudgetFor resolves the budget for a task. A positive ContextBudget in
// the book configuration replaces the per-type default.
func BudgetFor(t model.TaskType, cfg model.ScrivaConfig) int {
	if cfg.ContextBudget > 0 {
		return cfg.ContextBudget
	}
	if b, ok := Budgets[t]; ok {
		return b
	}
	return DefaultBudget
}
