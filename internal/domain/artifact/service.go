package artifact

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"casescribe/internal/config"
	"casescribe/utils/platformerrors"
)

// allowedAudioTypes maps file extensions accepted by the transcription engine
// to their expected MIME types.
var allowedAudioTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"mp4":  "audio/mp4",
	"wav":  "audio/wav",
	"flac": "audio/flac",
	"amr":  "audio/amr",
	"ogg":  "audio/ogg",
	"webm": "audio/webm",
	"m4a":  "audio/m4a",
}

// Repository defines persistence operations needed by the service.
type Repository interface {
	Create(ctx context.Context, obj *Artifact) error
	GetByID(ctx context.Context, id string) (*Artifact, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Artifact, error)
	Delete(ctx context.Context, id string) error
}

// Jobs exposes the transcription job operations the artifact lifecycle needs.
type Jobs interface {
	AbandonByArtifact(ctx context.Context, artifactID string) error
	CompletedTranscript(ctx context.Context, artifactID string) (string, error)
}

// Storage defines object store operations.
type Storage interface {
	PresignPut(ctx context.Context, key string, contentType string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Service orchestrates artifact registration, upload grants and deletion.
type Service struct {
	cfg     *config.Config
	repo    Repository
	jobs    Jobs
	storage Storage
	log     zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, jobs Jobs, storage Storage, log zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		repo:    repo,
		jobs:    jobs,
		storage: storage,
		log:     log.With().Str("component", "artifact-service").Logger(),
	}
}

// PrepareUpload mints a short-lived write URL scoped to exactly one object
// key. It has no persisted side effect; registration is a separate step.
func (s *Service) PrepareUpload(ctx context.Context, callerID string, req PrepareUploadRequest) (*UploadGrant, error) {
	if callerID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"caller identity is required", nil, "3f1a7c2d-9e4b-4f6a-8d0c-5b2e7a1f4c9d")
	}
	if err := validateUpload(ctx, req.Filename, req.ContentType); err != nil {
		return nil, err
	}

	key := ObjectKey(req.CaseID, req.ArtifactID, req.Filename)
	url, err := s.storage.PresignPut(ctx, key, req.ContentType)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "presign upload URL")
	}

	return &UploadGrant{
		ArtifactID: req.ArtifactID,
		ObjectKey:  key,
		UploadURL:  url,
		ExpiresIn:  int(s.cfg.UploadURLTTL.Seconds()),
	}, nil
}

// Register creates the artifact row in state registered. The client calls
// this after receiving an upload grant and before (or while) uploading.
func (s *Service) Register(ctx context.Context, callerID string, req RegisterRequest) (*Artifact, error) {
	if callerID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"caller identity is required", nil, "8c4e2b9f-1d7a-4e3c-b6f0-9a5d8e2c7b1a")
	}
	if err := validateFilename(ctx, req.Filename); err != nil {
		return nil, err
	}

	obj := &Artifact{
		ID:        req.ArtifactID,
		OwnerID:   callerID,
		CaseID:    req.CaseID,
		ObjectKey: ObjectKey(req.CaseID, req.ArtifactID, req.Filename),
		Title:     req.Title,
		Status:    StatusRegistered,
	}
	if err := s.repo.Create(ctx, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Get returns the artifact if the caller owns it. This is the durable poll
// path clients fall back to when no notification arrives.
func (s *Service) Get(ctx context.Context, callerID, id string) (*Artifact, error) {
	obj, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj.OwnerID != callerID {
		return nil, forbidden(ctx, id)
	}
	return obj, nil
}

// List returns the caller's artifacts.
func (s *Service) List(ctx context.Context, callerID string) ([]Artifact, error) {
	return s.repo.ListByOwner(ctx, callerID)
}

// Transcript returns the transcript text once transcription completed.
func (s *Service) Transcript(ctx context.Context, callerID, id string) (string, error) {
	obj, err := s.Get(ctx, callerID, id)
	if err != nil {
		return "", err
	}
	if obj.Status != StatusTranscriptionComplete {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			fmt.Sprintf("transcript not available, artifact is %s", obj.Status), nil,
			"b7d3f9a1-4c8e-4b2d-a6f5-0e9c1d7b3a8e")
	}
	return s.jobs.CompletedTranscript(ctx, id)
}

// Delete removes the artifact row and the underlying object. It is permitted
// from any state; any in-flight job is marked abandoned so a concurrently
// running poll stops without further writes.
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	obj, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if obj.OwnerID != callerID {
		return forbidden(ctx, id)
	}

	if err := s.jobs.AbandonByArtifact(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, obj.ObjectKey); err != nil {
		// The row is gone; the orphaned object is harmless because keys are
		// never reused.
		s.log.Warn().Err(err).Str("object_key", obj.ObjectKey).Msg("failed to delete stored object")
	}
	return nil
}

func forbidden(ctx context.Context, id string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
		fmt.Sprintf("artifact %s does not belong to caller", id), nil,
		"5a9c1e3b-7f2d-4a8c-9b6e-4d0f8a2c5e7b")
}

func validateFilename(ctx context.Context, filename string) error {
	if filename == "" || filename != path.Base(filename) || strings.ContainsAny(filename, "\\") {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"filename must be a plain file name without path separators", nil,
			"d2e8b4f6-0a3c-4d7e-8f1b-6c9a5e2d0b4f")
	}
	return nil
}

func validateUpload(ctx context.Context, filename, contentType string) error {
	if err := validateFilename(ctx, filename); err != nil {
		return err
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	want, ok := allowedAudioTypes[ext]
	if !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("unsupported audio file type %q", ext), nil,
			"1f6b9d3a-8e2c-4f0a-b5d7-3c8e1a6f9b2d")
	}
	if strings.EqualFold(contentType, want) {
		return nil
	}

	// Tolerate MIME aliases (audio/x-m4a vs audio/m4a and the like) as long
	// as the declared type resolves to the same extension.
	if mt := mimetype.Lookup(contentType); mt != nil {
		if strings.EqualFold(strings.TrimPrefix(mt.Extension(), "."), ext) {
			return nil
		}
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
		fmt.Sprintf("content type %q does not match file extension %q", contentType, ext), nil,
		"7c0d5a8e-2b4f-4c9a-8e6d-1a3b7f5c9e0d")
}
