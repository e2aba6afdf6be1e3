package intent

import (
	"regexp"
	"strings"
)

type statusRule struct {
	status  FilterStatus
	pattern *regexp.Regexp
}

// statusRules are evaluated in order; the first match wins. Blocked comes
// first so a prompt that also mentions "todo" cannot shadow it.
var statusRules = []statusRule{
	{FilterBlocked, regexp.MustCompile(`(?i)\b(blocked|stuck|impeded)\b`)},
	{FilterInProgress, regexp.MustCompile(`(?i)\b(in[\s-]?progress|wip|working\s+on)\b`)},
	{FilterTodo, regexp.MustCompile(`(?i)\b(todo|to[\s-]do|backlog)\b`)},
	{FilterDone, regexp.MustCompile(`(?i)\b(done|completed|finished)\b`)},
}

var (
	priorityRe           = regexp.MustCompile(`(?i)\b(priority|priorities|prioriti[sz]e[sd]?|prioritizing|prioritising)\b`)
	mentionsPeopleRe     = regexp.MustCompile(`(?i)\b(assign|assignee|owner|team|people)\b`)
	priorityAssignmentRe = regexp.MustCompile(`(?i)\bassign(ing|ed)?\s+((a|the)\s+)?priorit(y|ies)\b|\bset(ting)?\s+priorit(y|ies)\b`)
	explicitAssigneeRe   = regexp.MustCompile(`(?i)\bassigned\s+to\b|\bassign\s+to\b|\bassignee\b`)
	assignVerbRe         = regexp.MustCompile(`(?i)\b(re)?assign\b`)
)

// Classify maps normalized prompt text to a plan using keyword rules only.
// It is total and pure.
func Classify(text string) Plan {
	// The board is visible by default and the other panels only ever push it
	// further towards visible, so an explicit hide request is the one thing
	// that can turn it off.
	return Plan{
		ShowKanban:           !negatesBoard(text),
		FilterStatus:         detectStatus(text),
		ShowPrioritySelector: priorityRe.MatchString(text),
		ShowTeamAssignment:   wantsTeamAssignment(text),
	}
}

func detectStatus(text string) FilterStatus {
	for _, r := range statusRules {
		if r.pattern.MatchString(text) {
			return r.status
		}
	}
	return FilterAll
}

// "assign priorities to the team" is about priorities, so the people signal
// alone is not enough once a priority assignment phrase is present.
func wantsTeamAssignment(text string) bool {
	explicit := explicitAssigneeRe.MatchString(text)
	if priorityAssignmentRe.MatchString(text) {
		return explicit
	}
	return explicit || (mentionsPeopleRe.MatchString(text) && assignVerbRe.MatchString(text))
}

const negationWindow = 2

var (
	boardNouns = map[string]bool{"kanban": true, "board": true}

	// Words that negate a board noun appearing after them.
	leadingNegators = map[string]bool{"hide": true, "hiding": true, "hidden": true, "without": true, "no": true}

	// Words that negate a board noun directly before them ("board hidden").
	trailingNegators = map[string]bool{"hidden": true, "off": true}

	// Linking words allowed between a board noun and a trailing negator.
	linkingWords = map[string]bool{"is": true, "be": true, "stays": true, "stay": true, "kept": true, "remains": true}

	// Other panels a trailing negator may apply to instead ("board off priorities").
	panelNouns = map[string]bool{
		"priority": true, "priorities": true, "selector": true, "team": true,
		"assignment": true, "assignments": true, "assignee": true, "people": true,
	}

	// "show"/"display" negate only when directly preceded by one of these.
	negatedVerbPrefixes = map[string]bool{"don't": true, "dont": true, "not": true, "never": true}

	// A qualifier between the negator and the noun moves the negation off the
	// board: "don't just show the kanban".
	qualifiers = map[string]bool{"just": true, "only": true, "also": true, "even": true, "simply": true}
)

var tokenSplitRe = regexp.MustCompile(`[^a-z0-9']+`)

func tokenize(text string) []string {
	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	fields := tokenSplitRe.Split(lower, -1)
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func negatesBoard(text string) bool {
	tokens := tokenize(text)
	for i, tok := range tokens {
		if isLeadingNegator(tokens, i) && boardAhead(tokens, i) {
			return true
		}
		if boardNouns[tok] && trailingNegatorFollows(tokens, i) {
			return true
		}
	}
	return false
}

func isLeadingNegator(tokens []string, i int) bool {
	tok := tokens[i]
	if leadingNegators[tok] {
		// "don't hide the board"
		return i == 0 || !negatedVerbPrefixes[tokens[i-1]]
	}
	if isShowVerb(tok) && i > 0 {
		return negatedVerbPrefixes[tokens[i-1]]
	}
	return false
}

func isShowVerb(tok string) bool {
	return tok == "show" || tok == "display"
}

// boardAhead reports whether a board noun follows tokens[i] with at most
// negationWindow words between them. A qualifier or a fresh show verb ends
// the window: "no problem, show board".
func boardAhead(tokens []string, i int) bool {
	for j := i + 1; j < len(tokens) && j <= i+negationWindow+1; j++ {
		if boardNouns[tokens[j]] {
			return true
		}
		if qualifiers[tokens[j]] || isShowVerb(tokens[j]) {
			return false
		}
	}
	return false
}

// trailingNegatorFollows reports whether the board noun at tokens[i] is
// directly followed by "hidden" or "off", optionally through one linking
// word, and the negator is not attached to another panel noun.
func trailingNegatorFollows(tokens []string, i int) bool {
	j := i + 1
	if j < len(tokens) && linkingWords[tokens[j]] {
		j++
	}
	if j >= len(tokens) || !trailingNegators[tokens[j]] {
		return false
	}
	return j+1 >= len(tokens) || !panelNouns[tokens[j+1]]
}
