package v1

import (
	"github.com/gin-gonic/gin"

	"casescribe/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")
	group.POST("/artifacts", r.handlers.Artifact.Register)
	group.GET("/artifacts", r.handlers.Artifact.List)
	group.POST("/artifacts/:id/upload-url", r.handlers.Artifact.UploadURL)
	group.GET("/artifacts/:id", r.handlers.Artifact.Get)
	group.GET("/artifacts/:id/transcript", r.handlers.Artifact.Transcript)
	group.GET("/artifacts/:id/events", r.handlers.Events.Stream)
	group.DELETE("/artifacts/:id", r.handlers.Artifact.Delete)
}
