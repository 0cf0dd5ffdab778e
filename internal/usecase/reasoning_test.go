package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReasoning(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Decision
	}{
		{
			name: "action",
			text: "Thought: I need the WHO list.\nAction: WHO_Medicine_Tool\nAction Input: amoxicillin indications",
			want: DecisionAction{Thought: "I need the WHO list.", Tool: "WHO_Medicine_Tool", Input: "amoxicillin indications"},
		},
		{
			name: "action without thought prefix",
			text: "I should search.\nAction: WHO_Medicine_Tool\nAction Input: x",
			want: DecisionAction{Thought: "I should search.", Tool: "WHO_Medicine_Tool", Input: "x"},
		},
		{
			name: "quoted input and decorated tool",
			text: "Thought: t\nAction: `Oncology_Treatment_Tool`\nAction Input: \"doxorubicin dosing\"",
			want: DecisionAction{Thought: "t", Tool: "Oncology_Treatment_Tool", Input: "doxorubicin dosing"},
		},
		{
			name: "hallucinated observation is cut",
			text: "Thought: t\nAction: WHO_Medicine_Tool\nAction Input: q\nObservation: made up\nThought: done\nFinal Answer: fake",
			want: DecisionAction{Thought: "t", Tool: "WHO_Medicine_Tool", Input: "q"},
		},
		{
			name: "multiline input",
			text: "Thought: t\nAction: WHO_Medicine_Tool\nAction Input: line one\nline two",
			want: DecisionAction{Thought: "t", Tool: "WHO_Medicine_Tool", Input: "line one\nline two"},
		},
		{
			name: "final answer",
			text: "Thought: I now know the final answer\nFinal Answer: Amoxicillin treats bacterial infections.",
			want: DecisionFinal{Thought: "I now know the final answer", Answer: "Amoxicillin treats bacterial infections."},
		},
		{
			name: "final answer case insensitive",
			text: "final answer:   42 ",
			want: DecisionFinal{Answer: "42"},
		},
		{
			name: "final answer before action wins",
			text: "Thought: t\nFinal Answer: yes\nAction: WHO_Medicine_Tool\nAction Input: q",
			want: DecisionFinal{Thought: "t", Answer: "yes\nAction: WHO_Medicine_Tool\nAction Input: q"},
		},
		{
			name: "empty final answer",
			text: "Thought: t\nFinal Answer:   ",
			want: DecisionInvalid{Thought: "t", Problem: "'Final Answer:' is empty"},
		},
		{
			name: "missing action input",
			text: "Thought: t\nAction: WHO_Medicine_Tool",
			want: DecisionInvalid{Thought: "t", Problem: "missing 'Action Input:' after 'Action:'"},
		},
		{
			name: "missing tool name",
			text: "Thought: t\nAction:\nAction Input: q",
			want: DecisionInvalid{Thought: "t", Problem: "missing tool name after 'Action:'"},
		},
		{
			name: "prose only",
			text: "Thought: amoxicillin is probably a penicillin",
			want: DecisionInvalid{
				Thought: "amoxicillin is probably a penicillin",
				Problem: "missing 'Action:' after 'Thought:' and no 'Final Answer:' given",
			},
		},
		{
			name: "word containing action is not a marker",
			text: "Thought: the transaction: unclear",
			want: DecisionInvalid{
				Thought: "the transaction: unclear",
				Problem: "missing 'Action:' after 'Thought:' and no 'Final Answer:' given",
			},
		},
		{
			name: "final answer mentioned inside thought",
			text: "Thought: Before giving a final answer: I should check the WHO list.\nAction: WHO_Medicine_Tool\nAction Input: amoxicillin",
			want: DecisionAction{
				Thought: "Before giving a final answer: I should check the WHO list.",
				Tool:    "WHO_Medicine_Tool",
				Input:   "amoxicillin",
			},
		},
		{
			name: "action mentioned inside thought",
			text: "Thought: My next action: consult the WHO list.\nAction: WHO_Medicine_Tool\nAction Input: amoxicillin",
			want: DecisionAction{
				Thought: "My next action: consult the WHO list.",
				Tool:    "WHO_Medicine_Tool",
				Input:   "amoxicillin",
			},
		},
		{
			name: "indented markers",
			text: "Thought: t\n  Action: WHO_Medicine_Tool\n  Action Input: q",
			want: DecisionAction{Thought: "t", Tool: "WHO_Medicine_Tool", Input: "q"},
		},
		{
			name: "markers only in prose",
			text: "Thought: the final answer: unknown, no action: taken",
			want: DecisionInvalid{
				Thought: "the final answer: unknown, no action: taken",
				Problem: "missing 'Action:' after 'Thought:' and no 'Final Answer:' given",
			},
		},
		{
			name: "empty",
			text: "",
			want: DecisionInvalid{Problem: "missing 'Action:' after 'Thought:' and no 'Final Answer:' given"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReasoning(tt.text))
		})
	}
}
