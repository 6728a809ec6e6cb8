package solver

import (
	"fmt"

	"github.com/abhisek/solveur/internal/topic"
)

// GenerationFailure is any failure between request initiation and stream
// completion. Err carries the internal detail for logs; the user only ever
// sees ErrorMessage.
type GenerationFailure struct {
	SubmissionID string
	Topic        topic.Topic
	Err          error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed (submission %s, topic %s): %v", e.SubmissionID, e.Topic, e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// UserMessage returns the text shown to the user for this failure.
func (e *GenerationFailure) UserMessage() string { return ErrorMessage }
