package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/interfaces/httpserver/handlers"
)

func registerSolicitudRoutes(router gin.IRoutes, handler *handlers.SolicitudHandler) {
	router.POST("/solicitud", handler.Create)
	router.GET("/solicitud", handler.List)
	router.GET("/solicitud/:solicitud_id", handler.Get)
	router.PATCH("/solicitud/:solicitud_id", handler.Update)
	router.DELETE("/solicitud/:solicitud_id", handler.Delete)
	router.GET("/solicitud/:solicitud_id/report", handler.Report)
}
