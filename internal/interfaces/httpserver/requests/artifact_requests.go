package requests

// RegisterArtifactRequest creates an artifact in state registered.
type RegisterArtifactRequest struct {
	CaseID   string `json:"case_id" binding:"required"`
	Filename string `json:"filename" binding:"required"`
	Title    string `json:"title"`
}

// UploadURLRequest asks for a presigned upload URL for an artifact.
type UploadURLRequest struct {
	CaseID      string `json:"case_id" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}
