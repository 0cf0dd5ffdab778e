package domain

// Metadata keys set on every ingested document.
const (
	MetaSource = "source"
	MetaDomain = "domain"
	MetaPage   = "page" // 1-based, PDF sources only
)

// Document is one unit of ingested text.
type Document struct {
	Text     string
	Metadata map[string]string
}

// Source returns the document's source path, if known.
func (d Document) Source() string {
	return d.Metadata[MetaSource]
}

// Chunk is a contiguous slice of a document's text.
// Start and End are rune offsets into the parent text; Index is the
// chunk's position within its document.
type Chunk struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Index    int               `json:"index"`
	Start    int               `json:"start"`
	End      int               `json:"end"`
}

// Source returns the source path of the chunk's parent document.
func (c Chunk) Source() string {
	return c.Metadata[MetaSource]
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Step is one Thought/Action/Observation cycle of an agent run.
type Step struct {
	Thought     string `json:"thought,omitempty"`
	Action      string `json:"action,omitempty"`
	ActionInput string `json:"action_input,omitempty"`
	Observation string `json:"observation"`
}

// AgentState names the states of the reasoning loop.
type AgentState string

const (
	StateThinking  AgentState = "thinking"
	StateActing    AgentState = "acting"
	StateObserving AgentState = "observing"
	StateDone      AgentState = "done"
	StateFailed    AgentState = "failed"
)

// FailureReason explains why a run ended in StateFailed.
type FailureReason string

const (
	FailureIterationLimit    FailureReason = "iteration_limit"
	FailureOracleUnavailable FailureReason = "oracle_unavailable"
	FailureToolFailures      FailureReason = "tool_failures"
	FailureCanceled          FailureReason = "canceled"
)

// AgentResult is the outcome of one question.
// Output is only meaningful when State is StateDone.
type AgentResult struct {
	RunID      string        `json:"run_id"`
	State      AgentState    `json:"state"`
	Output     string        `json:"output,omitempty"`
	Reason     FailureReason `json:"reason,omitempty"`
	Iterations int           `json:"iterations"`
	Transcript []Step        `json:"transcript,omitempty"`
}

// Done reports whether the agent reached a final answer.
func (r *AgentResult) Done() bool {
	return r != nil && r.State == StateDone
}
