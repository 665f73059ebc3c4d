package artifact_test

import (
	"testing"

	"casescribe/internal/domain/artifact"
)

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		status   artifact.Status
		expected bool
	}{
		{"registered is not terminal", artifact.StatusRegistered, false},
		{"uploaded is not terminal", artifact.StatusUploaded, false},
		{"transcription_requested is not terminal", artifact.StatusTranscriptionRequested, false},
		{"transcription_in_progress is not terminal", artifact.StatusTranscriptionInProgress, false},
		{"transcription_complete is terminal", artifact.StatusTranscriptionComplete, true},
		{"transcription_failed is terminal", artifact.StatusTranscriptionFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.expected {
				t.Errorf("Status.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name  string
		from  artifact.Status
		to    artifact.Status
		canDo bool
	}{
		{"registered to uploaded", artifact.StatusRegistered, artifact.StatusUploaded, true},
		{"registered to transcription_requested - skips a state", artifact.StatusRegistered, artifact.StatusTranscriptionRequested, false},
		{"registered to transcription_complete - invalid", artifact.StatusRegistered, artifact.StatusTranscriptionComplete, false},

		{"uploaded to transcription_requested", artifact.StatusUploaded, artifact.StatusTranscriptionRequested, true},
		{"uploaded to registered - backward", artifact.StatusUploaded, artifact.StatusRegistered, false},

		{"transcription_requested to transcription_in_progress", artifact.StatusTranscriptionRequested, artifact.StatusTranscriptionInProgress, true},
		{"transcription_requested to transcription_failed", artifact.StatusTranscriptionRequested, artifact.StatusTranscriptionFailed, true},
		{"transcription_requested to transcription_complete - skips a state", artifact.StatusTranscriptionRequested, artifact.StatusTranscriptionComplete, false},

		{"transcription_in_progress to transcription_complete", artifact.StatusTranscriptionInProgress, artifact.StatusTranscriptionComplete, true},
		{"transcription_in_progress to transcription_failed", artifact.StatusTranscriptionInProgress, artifact.StatusTranscriptionFailed, true},
		{"transcription_in_progress to uploaded - backward", artifact.StatusTranscriptionInProgress, artifact.StatusUploaded, false},

		// Terminal states have no valid transitions
		{"transcription_complete to anything - invalid", artifact.StatusTranscriptionComplete, artifact.StatusTranscriptionFailed, false},
		{"transcription_failed to anything - invalid", artifact.StatusTranscriptionFailed, artifact.StatusUploaded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.canDo {
				t.Errorf("Status.CanTransitionTo() = %v, want %v", got, tt.canDo)
			}
		})
	}
}

func TestStatus_TransitionTo(t *testing.T) {
	// Valid transition
	s := artifact.StatusRegistered
	newStatus, err := s.TransitionTo(artifact.StatusUploaded)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if newStatus != artifact.StatusUploaded {
		t.Errorf("Expected status to be uploaded, got %v", newStatus)
	}

	// Invalid transition
	s = artifact.StatusTranscriptionComplete
	_, err = s.TransitionTo(artifact.StatusTranscriptionFailed)
	if err != artifact.ErrInvalidTransition {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestStatus_Rank(t *testing.T) {
	ordered := []artifact.Status{
		artifact.StatusRegistered,
		artifact.StatusUploaded,
		artifact.StatusTranscriptionRequested,
		artifact.StatusTranscriptionInProgress,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("Rank of %v (%d) should exceed rank of %v (%d)",
				ordered[i], ordered[i].Rank(), ordered[i-1], ordered[i-1].Rank())
		}
	}
	if artifact.StatusTranscriptionComplete.Rank() != artifact.StatusTranscriptionFailed.Rank() {
		t.Errorf("Terminal states should share a rank")
	}
}
