package handlers

import (
	"github.com/rs/zerolog"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Solicitud *SolicitudHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(solicitudService SolicitudService, log zerolog.Logger) *Provider {
	return &Provider{
		Solicitud: NewSolicitudHandler(solicitudService, log),
	}
}
