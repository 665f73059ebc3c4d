package artifact_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"casescribe/internal/config"
	"casescribe/internal/domain/artifact"
	"casescribe/utils/platformerrors"
)

type fakeRepository struct {
	objects map[string]*artifact.Artifact
	deleted []string
}

func newFakeRepository(objs ...*artifact.Artifact) *fakeRepository {
	f := &fakeRepository{objects: map[string]*artifact.Artifact{}}
	for _, o := range objs {
		f.objects[o.ID] = o
	}
	return f
}

func (f *fakeRepository) Create(ctx context.Context, obj *artifact.Artifact) error {
	f.objects[obj.ID] = obj
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id string) (*artifact.Artifact, error) {
	if obj, ok := f.objects[id]; ok {
		return obj, nil
	}
	return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound, "audio artifact not found", nil, "test-not-found")
}

func (f *fakeRepository) ListByOwner(ctx context.Context, ownerID string) ([]artifact.Artifact, error) {
	var out []artifact.Artifact
	for _, o := range f.objects {
		if o.OwnerID == ownerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeRepository) Delete(ctx context.Context, id string) error {
	delete(f.objects, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeJobs struct {
	abandoned  []string
	transcript string
}

func (f *fakeJobs) AbandonByArtifact(ctx context.Context, artifactID string) error {
	f.abandoned = append(f.abandoned, artifactID)
	return nil
}

func (f *fakeJobs) CompletedTranscript(ctx context.Context, artifactID string) (string, error) {
	return f.transcript, nil
}

type fakeStorage struct {
	presigned []string
	deleted   []string
	deleteErr error
}

func (f *fakeStorage) PresignPut(ctx context.Context, key string, contentType string) (string, error) {
	f.presigned = append(f.presigned, key)
	return "https://store.example.com/" + key + "?sig=abc", nil
}

func (f *fakeStorage) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://store.example.com/" + key + "?sig=get", nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{UploadURLTTL: 5 * time.Minute}
}

func newService(repo *fakeRepository, jobs *fakeJobs, storage *fakeStorage) *artifact.Service {
	return artifact.NewService(testConfig(), repo, jobs, storage, zerolog.Nop())
}

func TestService_PrepareUpload(t *testing.T) {
	tests := []struct {
		name        string
		callerID    string
		filename    string
		contentType string
		expectType  platformerrors.ErrorType
	}{
		{"valid mp3", "user-1", "recording.mp3", "audio/mpeg", ""},
		{"valid wav", "user-1", "recording.wav", "audio/wav", ""},
		{"m4a alias tolerated", "user-1", "memo.m4a", "audio/x-m4a", ""},
		{"missing caller", "", "recording.mp3", "audio/mpeg", platformerrors.ErrorTypeUnauthorized},
		{"unsupported extension", "user-1", "notes.txt", "text/plain", platformerrors.ErrorTypeValidation},
		{"extension content type mismatch", "user-1", "recording.mp3", "audio/wav", platformerrors.ErrorTypeValidation},
		{"path separator in filename", "user-1", "../../etc/recording.mp3", "audio/mpeg", platformerrors.ErrorTypeValidation},
		{"empty filename", "user-1", "", "audio/mpeg", platformerrors.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &fakeStorage{}
			svc := newService(newFakeRepository(), &fakeJobs{}, storage)

			grant, err := svc.PrepareUpload(context.Background(), tt.callerID, artifact.PrepareUploadRequest{
				ArtifactID:  "aud_01TEST",
				CaseID:      "case-1",
				Filename:    tt.filename,
				ContentType: tt.contentType,
			})
			if tt.expectType != "" {
				if err == nil {
					t.Fatalf("Expected %s error, got grant %+v", tt.expectType, grant)
				}
				platformErr := platformerrors.GetPlatformError(err)
				if platformErr == nil || platformErr.Type != tt.expectType {
					t.Errorf("Expected error type %s, got %v", tt.expectType, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			wantKey := "case-1/aud_01TEST/" + tt.filename
			if grant.ObjectKey != wantKey {
				t.Errorf("grant.ObjectKey = %q, want %q", grant.ObjectKey, wantKey)
			}
			if grant.ExpiresIn != 300 {
				t.Errorf("grant.ExpiresIn = %d, want 300", grant.ExpiresIn)
			}
			if len(storage.presigned) != 1 || storage.presigned[0] != wantKey {
				t.Errorf("presign called with %v, want [%s]", storage.presigned, wantKey)
			}
		})
	}
}

func TestService_PrepareUpload_NoPersistence(t *testing.T) {
	repo := newFakeRepository()
	svc := newService(repo, &fakeJobs{}, &fakeStorage{})

	_, err := svc.PrepareUpload(context.Background(), "user-1", artifact.PrepareUploadRequest{
		ArtifactID:  "aud_01TEST",
		CaseID:      "case-1",
		Filename:    "recording.mp3",
		ContentType: "audio/mpeg",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// An abandoned upload must not leave any record behind.
	if len(repo.objects) != 0 {
		t.Errorf("PrepareUpload persisted %d objects, want 0", len(repo.objects))
	}
}

func TestService_Register(t *testing.T) {
	repo := newFakeRepository()
	svc := newService(repo, &fakeJobs{}, &fakeStorage{})

	obj, err := svc.Register(context.Background(), "user-1", artifact.RegisterRequest{
		ArtifactID: "aud_01TEST",
		CaseID:     "case-1",
		Filename:   "recording.mp3",
		Title:      "Interview",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if obj.Status != artifact.StatusRegistered {
		t.Errorf("status = %v, want registered", obj.Status)
	}
	if obj.ObjectKey != "case-1/aud_01TEST/recording.mp3" {
		t.Errorf("object key = %q", obj.ObjectKey)
	}
	if obj.OwnerID != "user-1" {
		t.Errorf("owner = %q, want user-1", obj.OwnerID)
	}
	if _, ok := repo.objects["aud_01TEST"]; !ok {
		t.Errorf("artifact not persisted")
	}
}

func TestService_Get_Ownership(t *testing.T) {
	obj := &artifact.Artifact{ID: "aud_01TEST", OwnerID: "user-1", Status: artifact.StatusRegistered}
	svc := newService(newFakeRepository(obj), &fakeJobs{}, &fakeStorage{})

	if _, err := svc.Get(context.Background(), "user-1", "aud_01TEST"); err != nil {
		t.Errorf("Owner read failed: %v", err)
	}

	_, err := svc.Get(context.Background(), "user-2", "aud_01TEST")
	platformErr := platformerrors.GetPlatformError(err)
	if platformErr == nil || platformErr.Type != platformerrors.ErrorTypeForbidden {
		t.Errorf("Expected forbidden for non-owner, got %v", err)
	}

	_, err = svc.Get(context.Background(), "user-1", "aud_MISSING")
	if !platformerrors.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestService_Transcript(t *testing.T) {
	obj := &artifact.Artifact{ID: "aud_01TEST", OwnerID: "user-1", Status: artifact.StatusTranscriptionInProgress}
	jobs := &fakeJobs{transcript: "hello world"}
	svc := newService(newFakeRepository(obj), jobs, &fakeStorage{})

	// Not available before completion.
	_, err := svc.Transcript(context.Background(), "user-1", "aud_01TEST")
	platformErr := platformerrors.GetPlatformError(err)
	if platformErr == nil || platformErr.Type != platformerrors.ErrorTypeConflict {
		t.Errorf("Expected conflict before completion, got %v", err)
	}

	obj.Status = artifact.StatusTranscriptionComplete
	text, err := svc.Transcript(context.Background(), "user-1", "aud_01TEST")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("transcript = %q, want %q", text, "hello world")
	}
}

func TestService_Delete(t *testing.T) {
	t.Run("abandons job, removes row and object", func(t *testing.T) {
		obj := &artifact.Artifact{
			ID:        "aud_01TEST",
			OwnerID:   "user-1",
			ObjectKey: "case-1/aud_01TEST/recording.mp3",
			Status:    artifact.StatusTranscriptionInProgress,
		}
		repo := newFakeRepository(obj)
		jobs := &fakeJobs{}
		storage := &fakeStorage{}
		svc := newService(repo, jobs, storage)

		if err := svc.Delete(context.Background(), "user-1", "aud_01TEST"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(jobs.abandoned) != 1 || jobs.abandoned[0] != "aud_01TEST" {
			t.Errorf("jobs abandoned = %v, want [aud_01TEST]", jobs.abandoned)
		}
		if len(repo.deleted) != 1 {
			t.Errorf("row not deleted")
		}
		if len(storage.deleted) != 1 || storage.deleted[0] != obj.ObjectKey {
			t.Errorf("object not deleted: %v", storage.deleted)
		}
	})

	t.Run("succeeds even when object delete fails", func(t *testing.T) {
		obj := &artifact.Artifact{ID: "aud_01TEST", OwnerID: "user-1", ObjectKey: "k", Status: artifact.StatusUploaded}
		repo := newFakeRepository(obj)
		storage := &fakeStorage{deleteErr: errors.New("store unavailable")}
		svc := newService(repo, &fakeJobs{}, storage)

		if err := svc.Delete(context.Background(), "user-1", "aud_01TEST"); err != nil {
			t.Errorf("Delete should tolerate object delete failure, got %v", err)
		}
		if len(repo.deleted) != 1 {
			t.Errorf("row should be deleted before the object")
		}
	})

	t.Run("forbidden for non-owner", func(t *testing.T) {
		obj := &artifact.Artifact{ID: "aud_01TEST", OwnerID: "user-1", Status: artifact.StatusUploaded}
		jobs := &fakeJobs{}
		svc := newService(newFakeRepository(obj), jobs, &fakeStorage{})

		err := svc.Delete(context.Background(), "user-2", "aud_01TEST")
		platformErr := platformerrors.GetPlatformError(err)
		if platformErr == nil || platformErr.Type != platformerrors.ErrorTypeForbidden {
			t.Errorf("Expected forbidden, got %v", err)
		}
		if len(jobs.abandoned) != 0 {
			t.Errorf("non-owner delete must not abandon jobs")
		}
	})
}
