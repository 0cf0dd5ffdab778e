package usecase

import (
	"regexp"
	"strings"
)

// Markers of the ReAct text protocol.
const (
	MarkerThought     = "Thought:"
	MarkerAction      = "Action:"
	MarkerActionInput = "Action Input:"
	MarkerObservation = "Observation:"
	MarkerFinalAnswer = "Final Answer:"
)

// Decision is the parsed form of one reasoning step: DecisionAction,
// DecisionFinal or DecisionInvalid.
type Decision interface {
	decision()
}

// DecisionAction asks the agent to run Tool with Input.
type DecisionAction struct {
	Thought string
	Tool    string
	Input   string
}

// DecisionFinal ends the run with Answer.
type DecisionFinal struct {
	Thought string
	Answer  string
}

// DecisionInvalid means the text did not follow the protocol. Problem is
// phrased for the model so it can correct itself.
type DecisionInvalid struct {
	Thought string
	Problem string
}

func (DecisionAction) decision()  {}
func (DecisionFinal) decision()   {}
func (DecisionInvalid) decision() {}

var (
	actionPattern      = regexp.MustCompile(`(?im)^[ \t]*action[ \t]*\d*[ \t]*:`)
	actionInputPattern = regexp.MustCompile(`(?im)^[ \t]*action[ \t]*\d*[ \t]*input[ \t]*\d*[ \t]*:`)
	finalAnswerPattern = regexp.MustCompile(`(?im)^[ \t]*final[ \t]+answer[ \t]*:`)
	observationPattern = regexp.MustCompile(`(?i)\n\s*observation\s*:`)
	thoughtPrefix      = regexp.MustCompile(`(?i)^\s*thought\s*:`)
)

// ParseReasoning classifies model output. Markers count only at the start of
// a line; whichever of "Action:" and "Final Answer:" comes first decides the
// kind of step, so an answer the model invents after its own action is
// ignored. It never fails; malformed text yields DecisionInvalid.
func ParseReasoning(text string) Decision {
	text = strings.TrimSpace(text)

	actionLoc := actionPattern.FindStringIndex(text)
	finalLoc := finalAnswerPattern.FindStringIndex(text)

	switch {
	case finalLoc != nil && (actionLoc == nil || finalLoc[0] < actionLoc[0]):
		thought := cleanThought(text[:finalLoc[0]])
		answer := strings.TrimSpace(text[finalLoc[1]:])
		if answer == "" {
			return DecisionInvalid{Thought: thought, Problem: "'Final Answer:' is empty"}
		}
		return DecisionFinal{Thought: thought, Answer: answer}

	case actionLoc != nil:
		thought := cleanThought(text[:actionLoc[0]])
		rest := text[actionLoc[1]:]

		inputLoc := actionInputPattern.FindStringIndex(rest)
		if inputLoc == nil {
			return DecisionInvalid{Thought: thought, Problem: "missing 'Action Input:' after 'Action:'"}
		}

		tool := cleanToolName(rest[:inputLoc[0]])
		if tool == "" {
			return DecisionInvalid{Thought: thought, Problem: "missing tool name after 'Action:'"}
		}

		input := rest[inputLoc[1]:]
		if obs := observationPattern.FindStringIndex(input); obs != nil {
			input = input[:obs[0]]
		}
		return DecisionAction{Thought: thought, Tool: tool, Input: cleanInput(input)}

	default:
		return DecisionInvalid{
			Thought: cleanThought(text),
			Problem: "missing 'Action:' after 'Thought:' and no 'Final Answer:' given",
		}
	}
}

func cleanThought(s string) string {
	s = thoughtPrefix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func cleanToolName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(strings.TrimSpace(s), "`*\"'[]")
}

func cleanInput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
