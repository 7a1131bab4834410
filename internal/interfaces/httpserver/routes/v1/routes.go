package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes builds the route registrar.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// Register attaches all routes under the /vigia prefix the frontends have
// always called.
func (r *Routes) Register(engine *gin.Engine) {
	group := engine.Group("/vigia")
	registerSolicitudRoutes(group, r.handlers.Solicitud)
}
