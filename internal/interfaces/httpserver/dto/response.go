package dto

import (
	"time"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/solicitud"
)

// AnexoPayload is one supporting document in the HTTP contract.
type AnexoPayload struct {
	Nombre string `json:"nombre"`
	FileID string `json:"file_id,omitempty"`
}

// SolicitudPayload is returned to clients. The extracted questionnaire and
// the composed prompt stay server-side.
type SolicitudPayload struct {
	SolicitudID        string         `json:"solicitud_id"`
	CodigoProyecto     string         `json:"codigo_proyecto"`
	ProveedorNombre    string         `json:"proveedor_nombre"`
	ProveedorNIT       string         `json:"proveedor_nit"`
	UsuarioSolicitante string         `json:"usuario_solicitante"`
	EstadoGeneral      string         `json:"estado_general"`
	Fase               string         `json:"fase"`
	Anexos             []AnexoPayload `json:"anexos,omitempty"`
	Evaluacion         map[string]any `json:"evaluacion,omitempty"`
	Respuesta          string         `json:"respuesta,omitempty"`
	Mensaje            string         `json:"mensaje,omitempty"`
	Intentos           int            `json:"intentos"`
	FechaCreacion      time.Time      `json:"fecha_creacion"`
	FechaActualizacion time.Time      `json:"fecha_actualizacion"`
	FechaFinalizacion  *time.Time     `json:"fecha_finalizacion,omitempty"`
}

// FromDomain maps the domain record to its HTTP payload.
func FromDomain(s *solicitud.Solicitud) SolicitudPayload {
	anexos := make([]AnexoPayload, 0, len(s.Anexos))
	for _, a := range s.Anexos {
		anexos = append(anexos, AnexoPayload{Nombre: a.Nombre, FileID: a.FileID})
	}
	return SolicitudPayload{
		SolicitudID:        s.SolicitudID,
		CodigoProyecto:     s.CodigoProyecto,
		ProveedorNombre:    s.ProveedorNombre,
		ProveedorNIT:       s.ProveedorNIT,
		UsuarioSolicitante: s.UsuarioSolicitante,
		EstadoGeneral:      s.EstadoGeneral,
		Fase:               string(s.Fase),
		Anexos:             anexos,
		Evaluacion:         s.Evaluacion,
		Respuesta:          s.Respuesta,
		Mensaje:            s.Mensaje,
		Intentos:           s.Intentos,
		FechaCreacion:      s.FechaCreacion,
		FechaActualizacion: s.FechaActualizacion,
		FechaFinalizacion:  s.FechaFinalizacion,
	}
}

// ListSolicitudesResponse wraps the collection listing.
type ListSolicitudesResponse struct {
	Data []SolicitudPayload `json:"data"`
}
