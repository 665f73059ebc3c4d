package job

import (
	"context"

	"gorm.io/gorm"

	artifactdomain "casescribe/internal/domain/artifact"
	"casescribe/internal/domain/transcription"
	"casescribe/internal/infrastructure/database/entities"
	"casescribe/utils/platformerrors"
)

var activeStatuses = []string{
	string(transcription.JobQueued),
	string(transcription.JobRunning),
}

// Repository handles transcription job persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, job *transcription.Job) error {
	entity := entities.TranscriptionJob{
		ID:         job.ID,
		ArtifactID: job.ArtifactID,
		Status:     string(job.Status),
		Attempts:   job.Attempts,
	}
	err := r.db.WithContext(ctx).Create(&entity).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create transcription job",
			err,
			"b3e7a1d5-8c2f-4b9e-a6d0-4f8c2e7a1b5d",
		)
	}
	job.CreatedAt = entity.CreatedAt
	job.UpdatedAt = entity.UpdatedAt
	return nil
}

// FindActive returns the single non-terminal, non-abandoned job for an
// artifact, or nil when there is none. A partial unique index guarantees at
// most one such row exists.
func (r *Repository) FindActive(ctx context.Context, artifactID string) (*transcription.Job, error) {
	var entity entities.TranscriptionJob
	err := r.db.WithContext(ctx).
		Where("artifact_id = ? AND status IN ? AND NOT abandoned", artifactID, activeStatuses).
		First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find active transcription job",
			err,
			"e9c4b2f7-0a6d-4c3e-8b1f-7d5a9e3c0b4f",
		)
	}
	job := mapEntity(entity)
	return &job, nil
}

func (r *Repository) SetRunning(ctx context.Context, jobID string) error {
	err := r.db.WithContext(ctx).
		Model(&entities.TranscriptionJob{}).
		Where("id = ? AND status = ?", jobID, string(transcription.JobQueued)).
		Update("status", string(transcription.JobRunning)).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to mark transcription job running",
			err,
			"a6f2d8b4-3e7c-4a0d-9f5b-1c8e4a6d2f7b",
		)
	}
	return nil
}

// IncrementAttempts bumps the persisted attempt counter and returns the new
// value, so a redelivered work item resumes against the same polling bound
// instead of restarting it.
func (r *Repository) IncrementAttempts(ctx context.Context, jobID string) (int, error) {
	err := r.db.WithContext(ctx).
		Model(&entities.TranscriptionJob{}).
		Where("id = ?", jobID).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to increment transcription job attempts",
			err,
			"d1b8e4a7-6f3c-4d9b-a2e5-8c0f6b4d1a7e",
		)
	}

	var attempts int
	err = r.db.WithContext(ctx).
		Model(&entities.TranscriptionJob{}).
		Where("id = ?", jobID).
		Pluck("attempts", &attempts).Error
	if err != nil {
		return 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to read transcription job attempts",
			err,
			"f7a3c9e1-2d5b-4f8a-b0c6-9e4d7a1f3c5b",
		)
	}
	return attempts, nil
}

// IsAbandoned reports true when the job row is flagged abandoned or no longer
// exists. Both mean the worker must stop writing.
func (r *Repository) IsAbandoned(ctx context.Context, jobID string) (bool, error) {
	var entity entities.TranscriptionJob
	err := r.db.WithContext(ctx).
		Select("abandoned").
		Where("id = ?", jobID).
		First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return true, nil
		}
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to check transcription job abandonment",
			err,
			"c5d9f3a6-8b1e-4c7d-9a4f-2e6b8d0c5a3f",
		)
	}
	return entity.Abandoned, nil
}

// Complete writes the transcript and flips the artifact to its terminal
// complete status in one transaction, so a crash cannot leave a completed
// artifact without its transcript.
func (r *Repository) Complete(ctx context.Context, jobID, artifactID, transcript string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.TranscriptionJob{}).
			Where("id = ? AND NOT abandoned", jobID).
			Updates(map[string]interface{}{
				"status":          string(transcription.JobCompleted),
				"transcript_text": transcript,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Abandoned between the caller's check and this write; leave the
			// artifact alone.
			return nil
		}
		// A resumed job can finish while the artifact is still at an earlier
		// non-terminal status (a crash before the in-progress advance landed),
		// so the guard accepts any non-terminal post-upload status.
		return tx.Model(&entities.AudioArtifact{}).
			Where("id = ? AND status IN ?", artifactID, []string{
				artifactdomain.StatusUploaded.String(),
				artifactdomain.StatusTranscriptionRequested.String(),
				artifactdomain.StatusTranscriptionInProgress.String(),
			}).
			Update("status", artifactdomain.StatusTranscriptionComplete.String()).Error
	})
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to complete transcription job",
			err,
			"1e6a8d3f-7c2b-4e5a-8f9d-0b3c7e1a6d4f",
		)
	}
	return nil
}

// Fail marks the job and the artifact failed in one transaction.
func (r *Repository) Fail(ctx context.Context, jobID, artifactID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.TranscriptionJob{}).
			Where("id = ? AND NOT abandoned", jobID).
			Update("status", string(transcription.JobFailed))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&entities.AudioArtifact{}).
			Where("id = ? AND status IN ?", artifactID, []string{
				artifactdomain.StatusUploaded.String(),
				artifactdomain.StatusTranscriptionRequested.String(),
				artifactdomain.StatusTranscriptionInProgress.String(),
			}).
			Update("status", artifactdomain.StatusTranscriptionFailed.String()).Error
	})
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fail transcription job",
			err,
			"9a4e7c2d-5b8f-4a1e-b6d3-8f0c2a7e4d9b",
		)
	}
	return nil
}

// AbandonByArtifact flags any active job for the artifact so a concurrently
// polling worker stops without further status writes.
func (r *Repository) AbandonByArtifact(ctx context.Context, artifactID string) error {
	err := r.db.WithContext(ctx).
		Model(&entities.TranscriptionJob{}).
		Where("artifact_id = ? AND status IN ?", artifactID, activeStatuses).
		Update("abandoned", true).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to abandon transcription jobs",
			err,
			"4c0f8b5a-1d7e-4c3a-9b6f-2e8d4a0c7f5b",
		)
	}
	return nil
}

// CompletedTranscript returns the transcript text of the most recent completed
// job for an artifact.
func (r *Repository) CompletedTranscript(ctx context.Context, artifactID string) (string, error) {
	var entity entities.TranscriptionJob
	err := r.db.WithContext(ctx).
		Where("artifact_id = ? AND status = ?", artifactID, string(transcription.JobCompleted)).
		Order("updated_at DESC").
		First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				"no completed transcript for artifact",
				err,
				"6e2b9d4c-8a5f-4e0b-a7c1-3f9d5b2e8c4a",
			)
		}
		return "", platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to load completed transcript",
			err,
			"8f5c1a7e-3b9d-4f2c-8e6a-0d4b8f2c5a9e",
		)
	}
	return entity.TranscriptText, nil
}

func mapEntity(entity entities.TranscriptionJob) transcription.Job {
	return transcription.Job{
		ID:             entity.ID,
		ArtifactID:     entity.ArtifactID,
		Status:         transcription.JobStatus(entity.Status),
		TranscriptText: entity.TranscriptText,
		Attempts:       entity.Attempts,
		Abandoned:      entity.Abandoned,
		CreatedAt:      entity.CreatedAt,
		UpdatedAt:      entity.UpdatedAt,
	}
}
