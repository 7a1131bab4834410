package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/document"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/solicitud"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/observability"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/interfaces/httpserver/dto"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/interfaces/httpserver/responses"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/utils/platformerrors"
)

// SolicitudService is the slice of the coordinator the HTTP layer needs.
type SolicitudService interface {
	Create(ctx context.Context, input solicitud.CreateInput) (*solicitud.Solicitud, error)
	Get(ctx context.Context, solicitudID string) (*solicitud.Solicitud, error)
	List(ctx context.Context) ([]solicitud.Solicitud, error)
	Update(ctx context.Context, solicitudID string, input solicitud.UpdateInput) (*solicitud.Solicitud, error)
	Delete(ctx context.Context, solicitudID string) error
	Report(ctx context.Context, solicitudID string) ([]byte, error)
}

// SolicitudHandler exposes HTTP entrypoints for supplier evaluation requests.
type SolicitudHandler struct {
	service SolicitudService
	log     zerolog.Logger
}

// NewSolicitudHandler constructs the handler.
func NewSolicitudHandler(service SolicitudService, log zerolog.Logger) *SolicitudHandler {
	return &SolicitudHandler{
		service: service,
		log:     log.With().Str("handler", "solicitud").Logger(),
	}
}

// Create handles POST /vigia/solicitud
// @Summary Create an evaluation request
// @Description Receives the questionnaire and supporting files, uploads them to the assistant store and schedules the evaluation
// @Tags Solicitudes
// @Accept multipart/form-data
// @Produce json
// @Param codigo_proyecto formData string true "Project code"
// @Param proveedor_nombre formData string true "Supplier name"
// @Param proveedor_nit formData string true "Supplier tax id"
// @Param usuario_solicitante formData string false "Requesting user"
// @Param excel_file formData file true "Questionnaire workbook"
// @Param anexos formData file false "Supporting documents"
// @Success 200 {object} dto.SolicitudPayload
// @Failure 400 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /vigia/solicitud [post]
func (h *SolicitudHandler) Create(c *gin.Context) {
	ctx, span := observability.StartIntakeSpan(
		c.Request.Context(),
		c.PostForm("codigo_proyecto"),
		c.PostForm("proveedor_nombre"),
	)
	defer span.End()

	cuestionario, err := readFormFile(c, "excel_file")
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "excel_file is required", "9d41c7ae-55f0-47a2-8d68-3b1e0c92a517")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid multipart form", "c2e73d19-8b04-4f6a-b5d1-20ab9e6f4c83")
		return
	}

	anexos, err := readFormFiles(form.File["anexos"])
	if err != nil {
		responses.HandleError(c, err, "failed to read anexos")
		return
	}

	input := solicitud.CreateInput{
		CodigoProyecto:     c.PostForm("codigo_proyecto"),
		ProveedorNombre:    c.PostForm("proveedor_nombre"),
		ProveedorNIT:       c.PostForm("proveedor_nit"),
		EstadoGeneral:      c.PostForm("estado_general"),
		UsuarioSolicitante: c.PostForm("usuario_solicitante"),
		Cuestionario:       cuestionario,
		Anexos:             anexos,
	}

	sol, err := h.service.Create(ctx, input)
	if err != nil {
		observability.RecordError(span, err, "error")
		responses.HandleError(c, err, "failed to create solicitud")
		return
	}

	h.log.Info().
		Str("solicitud_id", sol.SolicitudID).
		Str("codigo_proyecto", sol.CodigoProyecto).
		Int("anexos", len(sol.Anexos)).
		Msg("solicitud created")

	// Creation reports success as soon as the record is persisted. Later
	// evaluation failures land in the record, not in this response.
	c.JSON(http.StatusOK, dto.FromDomain(sol))
}

// Get handles GET /vigia/solicitud/:solicitud_id
// @Summary Get an evaluation request
// @Tags Solicitudes
// @Produce json
// @Param solicitud_id path string true "Solicitud ID"
// @Success 200 {object} dto.SolicitudPayload
// @Failure 404 {object} responses.ErrorResponse
// @Router /vigia/solicitud/{solicitud_id} [get]
func (h *SolicitudHandler) Get(c *gin.Context) {
	sol, err := h.service.Get(c.Request.Context(), c.Param("solicitud_id"))
	if err != nil {
		responses.HandleError(c, err, "failed to get solicitud")
		return
	}

	c.JSON(http.StatusOK, dto.FromDomain(sol))
}

// List handles GET /vigia/solicitud
// @Summary List evaluation requests
// @Tags Solicitudes
// @Produce json
// @Success 200 {object} dto.ListSolicitudesResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /vigia/solicitud [get]
func (h *SolicitudHandler) List(c *gin.Context) {
	sols, err := h.service.List(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to list solicitudes")
		return
	}

	payload := dto.ListSolicitudesResponse{Data: make([]dto.SolicitudPayload, 0, len(sols))}
	for i := range sols {
		payload.Data = append(payload.Data, dto.FromDomain(&sols[i]))
	}

	c.JSON(http.StatusOK, payload)
}

// Update handles PATCH /vigia/solicitud/:solicitud_id
// @Summary Update an evaluation request
// @Tags Solicitudes
// @Accept json
// @Produce json
// @Param solicitud_id path string true "Solicitud ID"
// @Param request body dto.UpdateSolicitudRequest true "Fields to update"
// @Success 200 {object} dto.SolicitudPayload
// @Failure 400 {object} responses.ErrorResponse
// @Failure 404 {object} responses.ErrorResponse
// @Router /vigia/solicitud/{solicitud_id} [patch]
func (h *SolicitudHandler) Update(c *gin.Context) {
	var req dto.UpdateSolicitudRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "7f06a9d2-4c31-48be-9e57-d8a2b10f6e94")
		return
	}

	sol, err := h.service.Update(c.Request.Context(), c.Param("solicitud_id"), solicitud.UpdateInput{
		ProveedorNombre:    req.ProveedorNombre,
		ProveedorNIT:       req.ProveedorNIT,
		UsuarioSolicitante: req.UsuarioSolicitante,
		EstadoGeneral:      req.EstadoGeneral,
		Mensaje:            req.Mensaje,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to update solicitud")
		return
	}

	c.JSON(http.StatusOK, dto.FromDomain(sol))
}

// Delete handles DELETE /vigia/solicitud/:solicitud_id
// @Summary Delete an evaluation request
// @Tags Solicitudes
// @Param solicitud_id path string true "Solicitud ID"
// @Success 204
// @Failure 404 {object} responses.ErrorResponse
// @Router /vigia/solicitud/{solicitud_id} [delete]
func (h *SolicitudHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("solicitud_id")); err != nil {
		responses.HandleError(c, err, "failed to delete solicitud")
		return
	}

	c.Status(http.StatusNoContent)
}

// Report handles GET /vigia/solicitud/:solicitud_id/report
// @Summary Download the evaluation report
// @Description Renders the questionnaire evaluation as a PDF document
// @Tags Solicitudes
// @Produce application/pdf
// @Param solicitud_id path string true "Solicitud ID"
// @Success 200 {file} binary
// @Failure 404 {object} responses.ErrorResponse
// @Failure 409 {object} responses.ErrorResponse
// @Router /vigia/solicitud/{solicitud_id}/report [get]
func (h *SolicitudHandler) Report(c *gin.Context) {
	solicitudID := c.Param("solicitud_id")

	report, err := h.service.Report(c.Request.Context(), solicitudID)
	if err != nil {
		responses.HandleError(c, err, "failed to render report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", solicitudID))
	c.Data(http.StatusOK, "application/pdf", report)
}

func readFormFile(c *gin.Context, field string) (document.File, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return document.File{}, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return document.File{}, fmt.Errorf("read %s: %w", field, err)
	}

	return document.File{Name: header.Filename, Content: content}, nil
}

func readFormFiles(headers []*multipart.FileHeader) ([]document.File, error) {
	files := make([]document.File, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", header.Filename, err)
		}

		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", header.Filename, err)
		}

		files = append(files, document.File{Name: header.Filename, Content: content})
	}
	return files, nil
}
