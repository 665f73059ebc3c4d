package handlers

import (
	"github.com/rs/zerolog"

	"casescribe/internal/config"
	domain "casescribe/internal/domain/artifact"
	"casescribe/internal/domain/notify"
)

// Provider wires HTTP handlers.
type Provider struct {
	Artifact *ArtifactHandler
	Events   *EventsHandler
}

func NewProvider(cfg *config.Config, service *domain.Service, broker notify.Broker, log zerolog.Logger) *Provider {
	return &Provider{
		Artifact: NewArtifactHandler(cfg, service, log),
		Events:   NewEventsHandler(service, broker, log),
	}
}
