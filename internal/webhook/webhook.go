// Package webhook notifies external systems about terminal evaluation
// states.
package webhook

// Payload is the structure sent to the configured webhook URL.
type Payload struct {
	SolicitudID    string         `json:"solicitud_id"`
	Event          string         `json:"event"` // "solicitud.completed" or "solicitud.failed"
	EstadoGeneral  string         `json:"estado_general"`
	CodigoProyecto string         `json:"codigo_proyecto"`
	Proveedor      string         `json:"proveedor"`
	Evaluacion     map[string]any `json:"evaluacion,omitempty"`
	Respuesta      string         `json:"respuesta,omitempty"`
	Mensaje        string         `json:"mensaje,omitempty"`
	Intentos       int            `json:"intentos"`
}
