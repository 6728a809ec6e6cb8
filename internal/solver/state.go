package solver

import "github.com/abhisek/solveur/internal/topic"

// Phase is the lifecycle position of the current submission.
type Phase int

const (
	Idle Phase = iota
	Submitting
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// State is a snapshot of one solving session.
type State struct {
	Topic    topic.Topic
	Problem  string
	Solution string
	Loading  bool
	Error    string
	Phase    Phase
}

// SubmitLabel returns the label for the submit control in this state.
func (s State) SubmitLabel() string {
	if s.Loading {
		return BusyLabel
	}
	return SubmitLabel
}

// Waiting reports whether a submission is running but no text has arrived.
func (s State) Waiting() bool {
	return s.Loading && s.Solution == ""
}
