// Package solicitud owns the supplier evaluation request: its model, its
// persistence contract, and the coordinator service that takes one request
// from intake to an evaluated record.
package solicitud

import (
	"time"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/status"
)

// EstadoGeneral values persisted on the record. The intake value is the
// free-text the frontends have always sent.
const (
	EstadoEnProgreso = "En progreso"
	EstadoDone       = "done"
	EstadoFailed     = "failed"
)

// Anexo is one supporting document attached to a request, with the remote
// file id it got on upload. FileID is empty for files that were skipped.
type Anexo struct {
	Nombre string `json:"nombre"`
	FileID string `json:"file_id,omitempty"`
}

// Solicitud is one supplier evaluation request.
type Solicitud struct {
	SolicitudID        string         `json:"solicitud_id"`
	CodigoProyecto     string         `json:"codigo_proyecto"`
	ProveedorNombre    string         `json:"proveedor_nombre"`
	ProveedorNIT       string         `json:"proveedor_nit"`
	UsuarioSolicitante string         `json:"usuario_solicitante"`
	EstadoGeneral      string         `json:"estado_general"`
	Fase               status.Phase   `json:"fase"`
	Cuestionario       string         `json:"cuestionario,omitempty"`
	Anexos             []Anexo        `json:"anexos,omitempty"`
	Prompt             string         `json:"prompt,omitempty"`
	Evaluacion         map[string]any `json:"evaluacion,omitempty"`
	Respuesta          string         `json:"respuesta,omitempty"`
	Mensaje            string         `json:"mensaje,omitempty"`
	Intentos           int            `json:"intentos"`
	FechaCreacion      time.Time      `json:"fecha_creacion"`
	FechaActualizacion time.Time      `json:"fecha_actualizacion"`
	FechaFinalizacion  *time.Time     `json:"fecha_finalizacion,omitempty"`
}

// FileIDs returns the remote ids of the anexos that were actually uploaded.
func (s *Solicitud) FileIDs() []string {
	ids := make([]string, 0, len(s.Anexos))
	for _, a := range s.Anexos {
		if a.FileID != "" {
			ids = append(ids, a.FileID)
		}
	}
	return ids
}

// Evaluated reports whether the assistant produced a structured evaluation.
func (s *Solicitud) Evaluated() bool {
	return len(s.Evaluacion) > 0
}
