package intent

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   Plan
	}{
		{
			name:   "blocked tasks with priority assignment",
			prompt: "Show me blocked tasks and assign priorities",
			want:   Plan{ShowKanban: true, FilterStatus: FilterBlocked, ShowPrioritySelector: true},
		},
		{
			name:   "blocked wins over todo",
			prompt: "which todo items are blocked",
			want:   Plan{ShowKanban: true, FilterStatus: FilterBlocked},
		},
		{
			name:   "hide board beats priority signal",
			prompt: "hide the kanban board and show priorities",
			want:   Plan{ShowKanban: false, FilterStatus: FilterAll, ShowPrioritySelector: true},
		},
		{
			name:   "qualifier keeps board visible",
			prompt: "don't just show the kanban, also show priorities",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll, ShowPrioritySelector: true},
		},
		{
			name:   "assigning priorities is not team assignment",
			prompt: "assign priorities to the urgent tasks",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll, ShowPrioritySelector: true},
		},
		{
			name:   "assigning a bug to a person",
			prompt: "assign the login bug to Asha",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll, ShowTeamAssignment: true},
		},
		{
			name:   "team mention alongside priority assignment",
			prompt: "assign priorities to the team's most urgent items",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll, ShowPrioritySelector: true},
		},
		{
			name:   "priority assignment with explicit assignee",
			prompt: "set priorities, then assign to Maria",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll, ShowPrioritySelector: true, ShowTeamAssignment: true},
		},
		{
			name:   "reassign to team",
			prompt: "reassign the stuck work to the team",
			want:   Plan{ShowKanban: true, FilterStatus: FilterBlocked, ShowTeamAssignment: true},
		},
		{
			name:   "assignee noun",
			prompt: "who is the assignee for the auth task",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll, ShowTeamAssignment: true},
		},
		{
			name:   "people without assignment verb",
			prompt: "the team owner wants a summary",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll},
		},
		{
			name:   "in progress variants",
			prompt: "what is everyone working on",
			want:   Plan{ShowKanban: true, FilterStatus: FilterInProgress},
		},
		{
			name:   "wip",
			prompt: "show WIP",
			want:   Plan{ShowKanban: true, FilterStatus: FilterInProgress},
		},
		{
			name:   "hyphenated in-progress",
			prompt: "list in-progress items",
			want:   Plan{ShowKanban: true, FilterStatus: FilterInProgress},
		},
		{
			name:   "backlog",
			prompt: "open the backlog",
			want:   Plan{ShowKanban: true, FilterStatus: FilterTodo},
		},
		{
			name:   "to-do",
			prompt: "my to-do list",
			want:   Plan{ShowKanban: true, FilterStatus: FilterTodo},
		},
		{
			name:   "finished",
			prompt: "Completed work from last sprint",
			want:   Plan{ShowKanban: true, FilterStatus: FilterDone},
		},
		{
			name:   "without the board",
			prompt: "list everything without the board",
			want:   Plan{ShowKanban: false, FilterStatus: FilterAll},
		},
		{
			name:   "board noun before negator",
			prompt: "keep the kanban hidden for now",
			want:   Plan{ShowKanban: false, FilterStatus: FilterAll},
		},
		{
			name:   "negated show verb",
			prompt: "please don't show the board",
			want:   Plan{ShowKanban: false, FilterStatus: FilterAll},
		},
		{
			name:   "curly apostrophe",
			prompt: "don’t display the kanban",
			want:   Plan{ShowKanban: false, FilterStatus: FilterAll},
		},
		{
			name:   "double negation keeps board",
			prompt: "don't hide the board",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll},
		},
		{
			name:   "negator too far from board",
			prompt: "no priorities, just the board",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll, ShowPrioritySelector: true},
		},
		{
			name:   "hide applies to priority selector",
			prompt: "show the kanban board and hide the priority selector",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll, ShowPrioritySelector: true},
		},
		{
			name:   "hide after board applies to priorities",
			prompt: "show the board, hide priorities",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll, ShowPrioritySelector: true},
		},
		{
			name:   "turn off applies to team assignment",
			prompt: "show the kanban and turn off team assignment",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll},
		},
		{
			name:   "show verb ends negation window",
			prompt: "no problem, show board",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll},
		},
		{
			name:   "linking word before trailing negator",
			prompt: "the kanban is hidden today",
			want:   Plan{ShowKanban: false, FilterStatus: FilterAll},
		},
		{
			name:   "board switched off",
			prompt: "turn the board off",
			want:   Plan{ShowKanban: false, FilterStatus: FilterAll},
		},
		{
			name:   "prioritize verb",
			prompt: "help me prioritize",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll, ShowPrioritySelector: true},
		},
		{
			name:   "word boundaries",
			prompt: "unblockedness is not a word and neither is redone",
			want:   Plan{ShowKanban: true, FilterStatus: FilterAll},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.prompt)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Classify(%q) mismatch (-want +got):\n%s", tt.prompt, diff)
			}
		})
	}
}

var promptWords = []string{
	"show", "me", "the", "kanban", "board", "hide", "without", "no", "don't", "just", "also",
	"blocked", "stuck", "todo", "backlog", "wip", "in", "progress", "done", "finished",
	"assign", "reassign", "to", "team", "people", "owner", "assignee", "priority", "priorities",
	"set", "tasks", "list", "Asha", "urgent", "please", ",", ".",
}

func promptGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		words := rapid.SliceOfN(rapid.SampledFrom(promptWords), 1, 16).Draw(t, "words")
		return strings.Join(words, " ")
	})
}

// TestProperty01_ClassifyDeterministic verifies repeated classification of
// the same text yields identical plans with a valid status.
func TestProperty01_ClassifyDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		prompt := promptGen().Draw(rt, "prompt")
		first := Classify(prompt)
		second := Classify(prompt)
		if first != second {
			rt.Fatalf("Classify(%q) not deterministic: %+v vs %+v", prompt, first, second)
		}
		if !first.FilterStatus.Valid() {
			rt.Fatalf("Classify(%q) produced invalid status %d", prompt, first.FilterStatus)
		}
	})
}

// TestProperty02_BlockedPrecedence verifies that any prompt mentioning both
// "blocked" and "todo" is classified as Blocked.
func TestProperty02_BlockedPrecedence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		words := rapid.SliceOfN(rapid.SampledFrom(promptWords), 0, 10).Draw(rt, "words")
		words = append(words, "blocked", "todo")
		perm := rapid.Permutation(words).Draw(rt, "order")
		prompt := strings.Join(perm, " ")
		if got := Classify(prompt).FilterStatus; got != FilterBlocked {
			rt.Fatalf("Classify(%q).FilterStatus = %v, want Blocked", prompt, got)
		}
	})
}

// TestProperty03_HideBoardWins verifies an explicit hide request disables
// the board whatever else the prompt asks for.
func TestProperty03_HideBoardWins(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		before := rapid.SliceOfN(rapid.SampledFrom([]string{"blocked", "priorities", "assign", "team", "show", "tasks"}), 0, 5).Draw(rt, "before")
		after := rapid.SliceOfN(rapid.SampledFrom([]string{"blocked", "priorities", "assign", "team", "show", "tasks"}), 0, 5).Draw(rt, "after")
		noun := rapid.SampledFrom([]string{"kanban", "board"}).Draw(rt, "noun")
		parts := append(append(append([]string{}, before...), "hide", "the", noun), after...)
		prompt := strings.Join(parts, " ")
		if Classify(prompt).ShowKanban {
			rt.Fatalf("Classify(%q).ShowKanban = true, want false", prompt)
		}
	})
}

// TestProperty03b_OtherPanelNegationKeepsBoard verifies a negator aimed at a
// non-board panel after the board is requested never hides the board.
func TestProperty03b_OtherPanelNegationKeepsBoard(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		noun := rapid.SampledFrom([]string{"kanban", "board", "kanban board"}).Draw(rt, "noun")
		sep := rapid.SampledFrom([]string{"", ",", "and", "then", "but please"}).Draw(rt, "sep")
		negator := rapid.SampledFrom([]string{"hide", "hide the", "turn off", "turn off the", "without", "no"}).Draw(rt, "negator")
		panel := rapid.SampledFrom([]string{"priorities", "priority selector", "team assignment", "assignee", "people"}).Draw(rt, "panel")
		prompt := strings.Join([]string{"show the", noun, sep, negator, panel}, " ")
		if !Classify(prompt).ShowKanban {
			rt.Fatalf("Classify(%q).ShowKanban = false, want true", prompt)
		}
	})
}
