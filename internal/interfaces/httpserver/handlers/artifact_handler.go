package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"casescribe/internal/config"
	domain "casescribe/internal/domain/artifact"
	"casescribe/internal/infrastructure/auth"
	"casescribe/internal/infrastructure/metrics"
	"casescribe/internal/interfaces/httpserver/requests"
	"casescribe/internal/interfaces/httpserver/responses"
	"casescribe/utils/artifactid"
	"casescribe/utils/platformerrors"
)

// ArtifactHandler exposes audio artifact endpoints.
type ArtifactHandler struct {
	cfg     *config.Config
	service *domain.Service
	log     zerolog.Logger
}

func NewArtifactHandler(cfg *config.Config, service *domain.Service, log zerolog.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "artifact-handler").Logger(),
	}
}

// Register godoc
// @Summary      Register an audio artifact
// @Description  Creates the artifact record in state registered. The client uploads the audio separately using an upload URL.
// @Tags         artifacts
// @Accept       json
// @Produce      json
// @Param        request  body      requests.RegisterArtifactRequest  true  "Artifact registration"
// @Success      201      {object}  responses.ArtifactResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/artifacts [post]
func (h *ArtifactHandler) Register(c *gin.Context) {
	var req requests.RegisterArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obj, err := h.service.Register(c.Request.Context(), auth.UserID(c), domain.RegisterRequest{
		ArtifactID: artifactid.New(),
		CaseID:     req.CaseID,
		Filename:   req.Filename,
		Title:      req.Title,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to register artifact")
		return
	}

	c.JSON(http.StatusCreated, responses.BuildArtifactResponse(obj))
}

// UploadURL godoc
// @Summary      Request presigned upload URL
// @Description  Mints a short-lived URL granting a single PUT of the declared content type to one object key. No state is persisted.
// @Tags         artifacts
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Artifact ID (aud_xxx)"
// @Param        request  body      requests.UploadURLRequest  true  "Upload URL request"
// @Success      200      {object}  responses.UploadGrantResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/artifacts/{id}/upload-url [post]
func (h *ArtifactHandler) UploadURL(c *gin.Context) {
	id := c.Param("id")
	if !artifactid.IsValid(id) {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid artifact id",
			"e4a7c1d9-3b6f-4e8a-b2d5-7f0c9e4a1d6b")
		return
	}

	var req requests.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	grant, err := h.service.PrepareUpload(c.Request.Context(), auth.UserID(c), domain.PrepareUploadRequest{
		ArtifactID:  id,
		CaseID:      req.CaseID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to prepare upload")
		return
	}
	metrics.RecordPresign(time.Since(start).Seconds())

	c.JSON(http.StatusOK, responses.BuildUploadGrantResponse(grant))
}

// List godoc
// @Summary      List the caller's artifacts
// @Tags         artifacts
// @Produce      json
// @Success      200  {object}  responses.ArtifactListResponse
// @Security     ApiKeyAuth
// @Router       /v1/artifacts [get]
func (h *ArtifactHandler) List(c *gin.Context) {
	objs, err := h.service.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		responses.HandleError(c, err, "failed to list artifacts")
		return
	}
	c.JSON(http.StatusOK, responses.BuildArtifactListResponse(objs))
}

// Get godoc
// @Summary      Get one artifact
// @Description  Returns the artifact with its current status. This is the durable poll path for transcription progress.
// @Tags         artifacts
// @Produce      json
// @Param        id   path      string  true  "Artifact ID (aud_xxx)"
// @Success      200  {object}  responses.ArtifactResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/artifacts/{id} [get]
func (h *ArtifactHandler) Get(c *gin.Context) {
	obj, err := h.service.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "failed to get artifact")
		return
	}
	c.JSON(http.StatusOK, responses.BuildArtifactResponse(obj))
}

// Transcript godoc
// @Summary      Get the transcript
// @Description  Returns the transcript text once transcription completed; 409 before that.
// @Tags         artifacts
// @Produce      json
// @Param        id   path      string  true  "Artifact ID (aud_xxx)"
// @Success      200  {object}  responses.TranscriptResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      409  {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/artifacts/{id}/transcript [get]
func (h *ArtifactHandler) Transcript(c *gin.Context) {
	id := c.Param("id")
	text, err := h.service.Transcript(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		responses.HandleError(c, err, "failed to get transcript")
		return
	}
	c.JSON(http.StatusOK, responses.BuildTranscriptResponse(id, text))
}

// Delete godoc
// @Summary      Delete an artifact
// @Description  Removes the artifact and its stored object. An in-flight transcription is abandoned, not interrupted.
// @Tags         artifacts
// @Produce      json
// @Param        id   path      string  true  "Artifact ID (aud_xxx)"
// @Success      204  "no content"
// @Failure      404  {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/artifacts/{id} [delete]
func (h *ArtifactHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		responses.HandleError(c, err, "failed to delete artifact")
		return
	}
	c.Status(http.StatusNoContent)
}
