package transcription

import (
	"context"
	"time"
)

// JobStatus mirrors the engine-reported state of an external job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal returns true if the job reached a final state.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job links an artifact to an external engine job. At most one non-terminal
// job exists per artifact; that row is the idempotency anchor for duplicate
// queue deliveries.
type Job struct {
	ID             string    `json:"job_id"`
	ArtifactID     string    `json:"artifact_id"`
	Status         JobStatus `json:"status"`
	TranscriptText string    `json:"transcript_text,omitempty"`
	Attempts       int       `json:"attempts"`
	Abandoned      bool      `json:"abandoned"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EngineStatus is the engine's view of a job.
type EngineStatus string

const (
	EngineQueued     EngineStatus = "queued"
	EngineInProgress EngineStatus = "in_progress"
	EngineCompleted  EngineStatus = "completed"
	EngineFailed     EngineStatus = "failed"
)

// StartInput describes the audio location handed to the engine.
type StartInput struct {
	MediaURI     string
	MediaFormat  string
	LanguageCode string
	JobName      string
}

// JobState is one engine poll result.
type JobState struct {
	Status        EngineStatus
	TranscriptURI string
	FailureReason string
}

// Engine is the external speech-to-text capability, treated as a black box
// with an asynchronous job contract.
type Engine interface {
	Start(ctx context.Context, input StartInput) (string, error)
	Poll(ctx context.Context, jobID string) (JobState, error)
	FetchTranscript(ctx context.Context, transcriptURI string) (string, error)
}
