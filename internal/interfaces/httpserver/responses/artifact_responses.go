package responses

import (
	"time"

	"casescribe/internal/domain/artifact"
)

// ArtifactResponse represents one audio artifact
type ArtifactResponse struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	ObjectKey string    `json:"object_key"`
	Title     string    `json:"title,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BuildArtifactResponse creates response from domain object
func BuildArtifactResponse(obj *artifact.Artifact) *ArtifactResponse {
	return &ArtifactResponse{
		ID:        obj.ID,
		CaseID:    obj.CaseID,
		ObjectKey: obj.ObjectKey,
		Title:     obj.Title,
		Status:    obj.Status.String(),
		CreatedAt: obj.CreatedAt,
		UpdatedAt: obj.UpdatedAt,
	}
}

// ArtifactListResponse wraps the caller's artifacts
type ArtifactListResponse struct {
	Artifacts []ArtifactResponse `json:"artifacts"`
}

// BuildArtifactListResponse creates response from domain objects
func BuildArtifactListResponse(objs []artifact.Artifact) *ArtifactListResponse {
	out := make([]ArtifactResponse, 0, len(objs))
	for i := range objs {
		out = append(out, *BuildArtifactResponse(&objs[i]))
	}
	return &ArtifactListResponse{Artifacts: out}
}

// UploadGrantResponse contains presigned upload information
type UploadGrantResponse struct {
	ArtifactID string `json:"artifact_id"`
	ObjectKey  string `json:"object_key"`
	UploadURL  string `json:"upload_url"`
	ExpiresIn  int    `json:"expires_in"`
}

// BuildUploadGrantResponse creates upload grant response
func BuildUploadGrantResponse(grant *artifact.UploadGrant) *UploadGrantResponse {
	return &UploadGrantResponse{
		ArtifactID: grant.ArtifactID,
		ObjectKey:  grant.ObjectKey,
		UploadURL:  grant.UploadURL,
		ExpiresIn:  grant.ExpiresIn,
	}
}

// TranscriptResponse contains the transcript text for a completed artifact
type TranscriptResponse struct {
	ArtifactID string `json:"artifact_id"`
	Transcript string `json:"transcript"`
}

// BuildTranscriptResponse creates transcript response
func BuildTranscriptResponse(artifactID, transcript string) *TranscriptResponse {
	return &TranscriptResponse{
		ArtifactID: artifactID,
		Transcript: transcript,
	}
}
