package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rcliao/scriva/internal/compiler"
	"github.com/rcliao/scriva/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the context briefing for an AI task",
		Long: "Compile the token-budgeted context briefing for a task. With --prompt, print the " +
			"system prompt built from it; with --format text, list the sections that made it in.",
		Run: runCompile,
	}

	cmd.Flags().StringP("type", "t", "", "Task type: chat, write, continue, edit, critique, research, revision-plan (required)")
	cmd.Flags().String("chapter", "", "Chapter id")
	cmd.Flags().String("part", "", "Part id, used when no chapter is given")
	cmd.Flags().String("characters", "", "Comma-separated character names in focus")
	cmd.Flags().String("selection", "", "Selected manuscript text")
	cmd.Flags().StringP("message", "m", "", "The author's request")
	cmd.Flags().Bool("prompt", false, "Print the rendered system prompt")

	cmd.MarkFlagRequired("type")

	RootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	chapter, _ := cmd.Flags().GetString("chapter")
	part, _ := cmd.Flags().GetString("part")
	characters, _ := cmd.Flags().GetString("characters")
	selection, _ := cmd.Flags().GetString("selection")
	message, _ := cmd.Flags().GetString("message")
	prompt, _ := cmd.Flags().GetBool("prompt")

	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()
	book, cfg := s.book(ctx)

	var r compiler.Retriever
	if e := s.engine(); e != nil {
		r = e
	}
	b, err := compiler.New(s.store(), r, s.log).Compile(ctx, model.CompileTask{
		Type:        model.TaskType(typ),
		ChapterID:   chapter,
		PartID:      part,
		Characters:  splitList(characters),
		Selection:   selection,
		UserMessage: message,
	}, cfg, book)
	if err != nil {
		exitErr("compile", err)
	}

	switch {
	case prompt:
		fmt.Println(compiler.BriefingToPrompt(b, book.Title))
	case formatFlag == "text":
		printSections(b)
	default:
		printJSON(b)
	}
}

var priorityColor = map[model.Priority]*color.Color{
	model.PriorityCritical: color.New(color.FgRed, color.Bold),
	model.PriorityHigh:     color.New(color.FgYellow),
	model.PriorityMedium:   color.New(color.FgCyan),
	model.PriorityLow:      color.New(color.FgWhite),
}

func printSections(b model.ContextBriefing) {
	for _, sec := range b.Sections {
		c, ok := priorityColor[sec.Priority]
		if !ok {
			c = color.New(color.Reset)
		}
		fmt.Printf("%s %-20s %5d tokens  %s\n", c.Sprintf("%-8s", sec.Priority), sec.Label, sec.Tokens, sec.Source)
	}
	fmt.Printf("%d / %d tokens\n", b.TotalTokens, b.Budget)
}
