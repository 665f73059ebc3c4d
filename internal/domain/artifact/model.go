package artifact

import (
	"fmt"
	"time"
)

// Artifact represents one uploaded audio recording and its transcription lifecycle.
type Artifact struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	CaseID    string    `json:"case_id"`
	ObjectKey string    `json:"object_key"`
	Title     string    `json:"title,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PrepareUploadRequest asks for a presigned upload URL. Nothing is persisted
// until the separate registration call, so an abandoned upload never creates
// a dangling job.
type PrepareUploadRequest struct {
	ArtifactID  string `json:"artifact_id" binding:"required"`
	CaseID      string `json:"case_id" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// RegisterRequest creates the artifact row in state registered.
type RegisterRequest struct {
	ArtifactID string `json:"artifact_id" binding:"required"`
	CaseID     string `json:"case_id" binding:"required"`
	Filename   string `json:"filename" binding:"required"`
	Title      string `json:"title"`
}

// UploadGrant is a short-lived write grant scoped to exactly one object key.
type UploadGrant struct {
	ArtifactID string `json:"artifact_id"`
	ObjectKey  string `json:"object_key"`
	UploadURL  string `json:"upload_url"`
	ExpiresIn  int    `json:"expires_in"`
}

// ObjectKey derives the storage location for an upload. Keys are
// deterministic so the store event can be mapped back to the artifact.
func ObjectKey(caseID, artifactID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", caseID, artifactID, filename)
}
