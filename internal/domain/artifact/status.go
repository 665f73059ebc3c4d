// Package artifact defines the audio artifact aggregate and its lifecycle.
package artifact

import "errors"

// Status represents the lifecycle status of an audio artifact.
type Status string

const (
	// Non-terminal states
	StatusRegistered              Status = "registered"                // Row created, upload may still be in flight
	StatusUploaded                Status = "uploaded"                  // Store event observed
	StatusTranscriptionRequested  Status = "transcription_requested"   // Engine job start requested
	StatusTranscriptionInProgress Status = "transcription_in_progress" // Engine accepted the job

	// Terminal states (no further transitions allowed)
	StatusTranscriptionComplete Status = "transcription_complete"
	StatusTranscriptionFailed   Status = "transcription_failed"
)

// ErrInvalidTransition is returned when a status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidTransitions defines allowed status transitions. No transition skips a
// state except the two failure edges.
var ValidTransitions = map[Status][]Status{
	StatusRegistered:              {StatusUploaded},
	StatusUploaded:                {StatusTranscriptionRequested},
	StatusTranscriptionRequested:  {StatusTranscriptionInProgress, StatusTranscriptionFailed},
	StatusTranscriptionInProgress: {StatusTranscriptionComplete, StatusTranscriptionFailed},
	// Terminal states have no valid transitions
	StatusTranscriptionComplete: {},
	StatusTranscriptionFailed:   {},
}

// statusRank orders states along the pipeline; writers only ever move the
// rank forward, which makes duplicate and out-of-order delivery harmless.
var statusRank = map[Status]int{
	StatusRegistered:              0,
	StatusUploaded:                1,
	StatusTranscriptionRequested:  2,
	StatusTranscriptionInProgress: 3,
	StatusTranscriptionComplete:   4,
	StatusTranscriptionFailed:     4,
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusTranscriptionComplete || s == StatusTranscriptionFailed
}

// Rank returns the position of the status along the pipeline.
func (s Status) Rank() int {
	return statusRank[s]
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if a transition from current status to target status is valid.
func (s Status) CanTransitionTo(target Status) bool {
	validTargets, ok := ValidTransitions[s]
	if !ok {
		return false
	}
	for _, t := range validTargets {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo attempts to transition to the target status and returns error if invalid.
func (s Status) TransitionTo(target Status) (Status, error) {
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidTransition
	}
	return target, nil
}
