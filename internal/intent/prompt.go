package intent

import (
	"strings"

	"promptboard/internal/llm"
)

var systemInstruction = strings.Join([]string{
	"You convert a user's request about a task dashboard into a UI plan.",
	"Respond with ONLY a JSON object, no prose and no markdown, with exactly these fields:",
	`{"showKanban": boolean, "filterStatus": "All" | "Todo" | "In Progress" | "Blocked" | "Done", "showPrioritySelector": boolean, "showTeamAssignment": boolean}`,
	"showKanban: true when the task board should be visible. Set it to false only when the user asks to hide the board or kanban.",
	`filterStatus: the task status the user wants to see. Map synonyms: stuck or impeded means "Blocked", wip or working on means "In Progress", backlog or to do means "Todo", completed or finished means "Done". Use "All" when no status is requested.`,
	"showPrioritySelector: true when the user wants to view, set or change priorities.",
	"showTeamAssignment: true only when the user wants to assign tasks to people. Assigning priorities is not team assignment.",
	`If unsure, return {"showKanban": true, "filterStatus": "All", "showPrioritySelector": false, "showTeamAssignment": false}.`,
}, "\n")

// buildMessages returns the fixed system instruction followed by the prompt
// verbatim.
func buildMessages(prompt string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemInstruction},
		{Role: llm.RoleUser, Content: prompt},
	}
}
