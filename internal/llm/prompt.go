package llm

import (
	"fmt"
	"strings"
)

const routineSystemPrompt = `You are an expert at converting external facing help center articles into internal facing policies that can be understood and followed by a customer service agent.
Rewrite the article as a numbered routine: concrete, unambiguous steps the agent executes in order. Reference only actions the agent can take through instructions or tool calls. Use conditional sub-steps ("2a", "2b") for branching cases. Do not invent policies that the article does not state.`

// RoutinePrompt renders the completion prompt that converts one support
// article into a step-numbered machine-executable routine.
func RoutinePrompt(category, content string) Prompt {
	var sb strings.Builder
	if category != "" {
		fmt.Fprintf(&sb, "Category: %s\n\n", category)
	}
	sb.WriteString("Help center article:\n\n")
	sb.WriteString(content)
	sb.WriteString("\n\nProduce the numbered routine now.")

	return Prompt{
		System: routineSystemPrompt,
		User:   sb.String(),
	}
}
