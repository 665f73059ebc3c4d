// Package transcription owns the artifact state machine between the store
// event and a terminal transcription outcome.
package transcription

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"casescribe/internal/config"
	"casescribe/internal/domain/artifact"
	"casescribe/internal/domain/dispatch"
	"casescribe/internal/domain/notify"
	"casescribe/internal/domain/retry"
)

// Artifacts exposes the metadata writes the worker needs. Status writes are
// compare-and-set so duplicate and out-of-order deliveries never move an
// artifact backwards.
type Artifacts interface {
	GetByObjectKey(ctx context.Context, objectKey string) (*artifact.Artifact, error)
	Exists(ctx context.Context, id string) (bool, error)
	AdvanceStatus(ctx context.Context, id string, from, to artifact.Status) (bool, error)
	MarkFailed(ctx context.Context, id string) (bool, error)
}

// Jobs persists transcription job linkage.
type Jobs interface {
	Create(ctx context.Context, job *Job) error
	FindActive(ctx context.Context, artifactID string) (*Job, error)
	SetRunning(ctx context.Context, jobID string) error
	IncrementAttempts(ctx context.Context, jobID string) (int, error)
	// IsAbandoned reports true when the job row is flagged abandoned or gone.
	IsAbandoned(ctx context.Context, jobID string) (bool, error)
	// Complete writes the transcript and flips the artifact status to
	// complete inside one transaction.
	Complete(ctx context.Context, jobID, artifactID, transcript string) error
	// Fail marks the job and the artifact failed inside one transaction.
	Fail(ctx context.Context, jobID, artifactID string) error
}

// MediaLocator resolves object keys to engine-readable locations.
type MediaLocator interface {
	MediaURI(objectKey string) string
}

// Service is the transcription worker. It is stateless; every invocation is
// an independently schedulable consumption of one work item.
type Service struct {
	cfg       *config.Config
	artifacts Artifacts
	jobs      Jobs
	engine    Engine
	media     MediaLocator
	broker    notify.Broker
	policy    retry.Policy
	log       zerolog.Logger
}

func NewService(cfg *config.Config, artifacts Artifacts, jobs Jobs, engine Engine, media MediaLocator, broker notify.Broker, log zerolog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		artifacts: artifacts,
		jobs:      jobs,
		engine:    engine,
		media:     media,
		broker:    broker,
		policy: retry.Policy{
			MaxAttempts:     cfg.PollMaxAttempts,
			InitialDelay:    cfg.PollInitialDelay,
			MaxDelay:        cfg.PollMaxDelay,
			BackoffStrategy: retry.BackoffExponential,
			JitterFactor:    0.25,
		},
		log: log.With().Str("component", "transcription-worker").Logger(),
	}
}

// Process consumes one work item. A nil return acknowledges the message;
// returning an error leaves it on the queue for redelivery. Once an engine
// job has started, failures resolve to a terminal status write plus a
// failure notification instead of bubbling, so a client is never left
// waiting on an artifact stuck in a non-terminal state.
func (s *Service) Process(ctx context.Context, item dispatch.WorkItem) error {
	art, err := s.artifacts.GetByObjectKey(ctx, item.ObjectKey)
	if err != nil {
		return err
	}
	if art == nil {
		s.log.Info().Str("object_key", item.ObjectKey).Msg("no artifact registered for object, skipping")
		return nil
	}
	if art.Status.IsTerminal() {
		s.log.Debug().Str("artifact_id", art.ID).Str("status", art.Status.String()).Msg("duplicate delivery for finished artifact")
		return nil
	}

	// Store event observed.
	if _, err := s.artifacts.AdvanceStatus(ctx, art.ID, artifact.StatusRegistered, artifact.StatusUploaded); err != nil {
		return err
	}

	job, err := s.jobs.FindActive(ctx, art.ID)
	if err != nil {
		return err
	}
	if job != nil {
		// Duplicate queue delivery: resume polling the existing job instead
		// of starting a second one.
		s.log.Info().Str("artifact_id", art.ID).Str("job_id", job.ID).Msg("resuming existing transcription job")
		return s.pollUntilDone(ctx, art.ID, job)
	}

	return s.startAndPoll(ctx, art, item)
}

func (s *Service) startAndPoll(ctx context.Context, art *artifact.Artifact, item dispatch.WorkItem) error {
	if _, err := s.artifacts.AdvanceStatus(ctx, art.ID, artifact.StatusUploaded, artifact.StatusTranscriptionRequested); err != nil {
		return err
	}

	jobName := fmt.Sprintf("transcription-%s-%s", art.ID, uuid.NewString()[:8])
	jobID, err := s.engine.Start(ctx, StartInput{
		MediaURI:     s.media.MediaURI(item.ObjectKey),
		MediaFormat:  item.Extension,
		LanguageCode: s.cfg.TranscribeLanguageCode,
		JobName:      jobName,
	})
	if err != nil {
		s.log.Error().Err(err).Str("artifact_id", art.ID).Msg("engine rejected transcription job")
		return s.failTerminal(ctx, art.ID, "")
	}

	job := &Job{ID: jobID, ArtifactID: art.ID, Status: JobQueued}
	if err := s.jobs.Create(ctx, job); err != nil {
		return err
	}

	// Engine accepted the job.
	if _, err := s.artifacts.AdvanceStatus(ctx, art.ID, artifact.StatusTranscriptionRequested, artifact.StatusTranscriptionInProgress); err != nil {
		return err
	}
	if err := s.jobs.SetRunning(ctx, job.ID); err != nil {
		return err
	}
	job.Status = JobRunning

	s.log.Info().Str("artifact_id", art.ID).Str("job_id", job.ID).Msg("transcription job started")
	return s.pollUntilDone(ctx, art.ID, job)
}

// pollUntilDone polls the engine with exponential backoff until the job
// reaches a terminal state or the attempt bound is exceeded.
func (s *Service) pollUntilDone(ctx context.Context, artifactID string, job *Job) error {
	attempts := job.Attempts
	for {
		if s.policy.Exhausted(attempts) {
			s.log.Warn().Str("artifact_id", artifactID).Str("job_id", job.ID).Int("attempts", attempts).
				Msg("transcription polling bound exceeded")
			return s.failTerminal(ctx, artifactID, job.ID)
		}

		stop, err := s.abandonedOrGone(ctx, artifactID, job.ID)
		if err != nil {
			return err
		}
		if stop {
			s.log.Info().Str("artifact_id", artifactID).Str("job_id", job.ID).Msg("artifact deleted, stopping poll")
			return nil
		}

		state, err := s.engine.Poll(ctx, job.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("job_id", job.ID).Msg("engine poll failed")
		} else {
			switch state.Status {
			case EngineCompleted:
				return s.complete(ctx, artifactID, job.ID, state.TranscriptURI)
			case EngineFailed:
				s.log.Error().Str("job_id", job.ID).Str("reason", state.FailureReason).Msg("engine reported job failure")
				return s.failTerminal(ctx, artifactID, job.ID)
			}
		}

		attempts, err = s.jobs.IncrementAttempts(ctx, job.ID)
		if err != nil {
			return err
		}
		if err := retry.Wait(ctx, s.policy.CalculateDelay(attempts)); err != nil {
			return err
		}
	}
}

func (s *Service) complete(ctx context.Context, artifactID, jobID, transcriptURI string) error {
	text, err := s.engine.FetchTranscript(ctx, transcriptURI)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("failed to fetch transcript")
		return s.failTerminal(ctx, artifactID, jobID)
	}

	stop, err := s.abandonedOrGone(ctx, artifactID, jobID)
	if err != nil {
		return err
	}
	if stop {
		return nil
	}

	if err := s.jobs.Complete(ctx, jobID, artifactID, text); err != nil {
		return err
	}
	s.log.Info().Str("artifact_id", artifactID).Str("job_id", jobID).Msg("transcription complete")
	s.publish(ctx, artifactID, notify.EventTranscriptionComplete)
	return nil
}

// failTerminal resolves the artifact to its terminal failure state and emits
// the failure notification. jobID may be empty when the engine rejected the
// job before any linkage was persisted.
func (s *Service) failTerminal(ctx context.Context, artifactID, jobID string) error {
	if jobID != "" {
		stop, err := s.abandonedOrGone(ctx, artifactID, jobID)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		if err := s.jobs.Fail(ctx, jobID, artifactID); err != nil {
			return err
		}
	} else {
		if _, err := s.artifacts.MarkFailed(ctx, artifactID); err != nil {
			return err
		}
	}
	s.publish(ctx, artifactID, notify.EventTranscriptionFailed)
	return nil
}

func (s *Service) abandonedOrGone(ctx context.Context, artifactID, jobID string) (bool, error) {
	abandoned, err := s.jobs.IsAbandoned(ctx, jobID)
	if err != nil {
		return false, err
	}
	if abandoned {
		return true, nil
	}
	exists, err := s.artifacts.Exists(ctx, artifactID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (s *Service) publish(ctx context.Context, artifactID string, event notify.Event) {
	n := notify.Notification{ArtifactID: artifactID, Message: event}
	if err := s.broker.Publish(ctx, n); err != nil {
		// Best-effort channel; clients fall back to polling the artifact.
		s.log.Warn().Err(err).Str("artifact_id", artifactID).Msg("failed to publish notification")
	}
}
