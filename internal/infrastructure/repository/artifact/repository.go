package artifact

import (
	"context"

	"gorm.io/gorm"

	domain "casescribe/internal/domain/artifact"
	"casescribe/internal/infrastructure/database/entities"
	"casescribe/utils/platformerrors"
)

// Repository handles audio artifact persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, obj *domain.Artifact) error {
	entity := entities.AudioArtifact{
		ID:        obj.ID,
		OwnerID:   obj.OwnerID,
		CaseID:    obj.CaseID,
		ObjectKey: obj.ObjectKey,
		Title:     obj.Title,
		Status:    obj.Status.String(),
	}
	err := r.db.WithContext(ctx).Create(&entity).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create audio artifact",
			err,
			"4e8b2c6a-9d1f-4e3b-a7c5-8f0d2b6e4a9c",
		)
	}
	obj.CreatedAt = entity.CreatedAt
	obj.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Artifact, error) {
	var entity entities.AudioArtifact
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				"audio artifact not found",
				err,
				"6a1d9f3c-2e7b-4c5a-8d0e-3b9f7a1c5e2d",
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to get audio artifact by id",
			err,
			"0c5e8a2f-7b3d-4f1c-9e6a-2d8b4f0c7a3e",
		)
	}
	obj := mapEntity(entity)
	return &obj, nil
}

// GetByObjectKey returns nil, nil when no artifact claims the key. A store
// event for an unregistered key is expected after a delete and must not be an
// error.
func (r *Repository) GetByObjectKey(ctx context.Context, objectKey string) (*domain.Artifact, error) {
	var entity entities.AudioArtifact
	err := r.db.WithContext(ctx).Where("object_key = ?", objectKey).First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to get audio artifact by object key",
			err,
			"9f2b7e4d-1a6c-4b8e-a3f0-5c7d9e2b4a6f",
		)
	}
	obj := mapEntity(entity)
	return &obj, nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Artifact, error) {
	var rows []entities.AudioArtifact
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list audio artifacts",
			err,
			"3d6f1a8c-5e9b-4d2f-b7a4-0e8c6a3f1d5b",
		)
	}
	objs := make([]domain.Artifact, 0, len(rows))
	for _, row := range rows {
		objs = append(objs, mapEntity(row))
	}
	return objs, nil
}

func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.AudioArtifact{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to check audio artifact existence",
			err,
			"8b4c7f2e-6d0a-4e9c-b1f8-3a5e7c9d2b4f",
		)
	}
	return count > 0, nil
}

// AdvanceStatus performs a compare-and-set status transition. It returns false
// without error when the row no longer matches the expected current status,
// which makes duplicate deliveries harmless.
func (r *Repository) AdvanceStatus(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.AudioArtifact{}).
		Where("id = ? AND status = ?", id, from.String()).
		Update("status", to.String())
	if res.Error != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to advance audio artifact status",
			res.Error,
			"2a7e4d9b-8f1c-4a6e-9d3b-5c0f8e2a7d4b",
		)
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed flips a non-terminal artifact to transcription_failed.
func (r *Repository) MarkFailed(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.AudioArtifact{}).
		Where("id = ? AND status IN ?", id, []string{
			domain.StatusUploaded.String(),
			domain.StatusTranscriptionRequested.String(),
			domain.StatusTranscriptionInProgress.String(),
		}).
		Update("status", domain.StatusTranscriptionFailed.String())
	if res.Error != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to mark audio artifact failed",
			res.Error,
			"7d0b3e6f-4a8c-4d1e-b9f2-6e4a8c0d3b7f",
		)
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entities.AudioArtifact{}).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete audio artifact",
			err,
			"5f8a2d7c-9b3e-4f6a-8c1d-0e7b5a3f9c2e",
		)
	}
	return nil
}

func mapEntity(entity entities.AudioArtifact) domain.Artifact {
	return domain.Artifact{
		ID:        entity.ID,
		OwnerID:   entity.OwnerID,
		CaseID:    entity.CaseID,
		ObjectKey: entity.ObjectKey,
		Title:     entity.Title,
		Status:    domain.Status(entity.Status),
		CreatedAt: entity.CreatedAt,
		UpdatedAt: entity.UpdatedAt,
	}
}
