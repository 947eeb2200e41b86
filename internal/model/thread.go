package model

// Thread is a discussion attached to a dataset. Only the fields used for
// deduplication are modelled.
type Thread struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	AuthorID string `json:"author_id"`
	Open     bool   `json:"open"`
}

// ThreadPage is one page of a thread listing. NextCursor is empty on the
// last page.
type ThreadPage struct {
	Threads    []Thread
	NextCursor string
}

// DecisionKind identifies what the notifier did for a dataset.
type DecisionKind string

const (
	DecisionCreateNew DecisionKind = "create_new"
	DecisionAppendTo  DecisionKind = "append_to"
	DecisionSkip      DecisionKind = "skip"
)

// Decision is the outcome of notification deduplication. ThreadID is set
// for DecisionAppendTo, and for DecisionCreateNew once the thread exists.
type Decision struct {
	Kind     DecisionKind `json:"kind"`
	ThreadID string       `json:"thread_id,omitempty"`
}

// CreateNew returns a decision to open a new thread.
func CreateNew() Decision { return Decision{Kind: DecisionCreateNew} }

// AppendTo returns a decision to comment on an existing thread.
func AppendTo(threadID string) Decision {
	return Decision{Kind: DecisionAppendTo, ThreadID: threadID}
}

// Skip returns a decision to send nothing.
func Skip() Decision { return Decision{Kind: DecisionSkip} }
