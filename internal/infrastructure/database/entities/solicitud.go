package entities

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task statuses for the background evaluation queue embedded in the
// solicitud row.
const (
	TaskQueued     = "queued"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
	TaskFailed     = "failed"
)

// Solicitud is the persisted supplier evaluation request.
type Solicitud struct {
	ID                 uint           `gorm:"primaryKey"`
	SolicitudID        string         `gorm:"uniqueIndex;size:64"`
	CodigoProyecto     string         `gorm:"size:64;index"`
	ProveedorNombre    string         `gorm:"size:256"`
	ProveedorNIT       string         `gorm:"size:64"`
	UsuarioSolicitante string         `gorm:"size:128"`
	EstadoGeneral      string         `gorm:"size:32"`
	Fase               string         `gorm:"size:32"`
	Cuestionario       *string        `gorm:"type:text"`
	Anexos             datatypes.JSON `gorm:"type:jsonb"`
	Prompt             *string        `gorm:"type:text"`
	Evaluacion         datatypes.JSON `gorm:"type:jsonb"`
	Respuesta          *string        `gorm:"type:text"`
	Mensaje            *string        `gorm:"type:text"`
	Intentos           int
	FechaFinalizacion  *time.Time

	// Background task bookkeeping used by the postgres queue.
	TaskStatus  string `gorm:"size:32;index"`
	TaskError   datatypes.JSON `gorm:"type:jsonb"`
	QueuedAt    *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate ensures defaults.
func (s *Solicitud) BeforeCreate(tx *gorm.DB) error {
	if s.EstadoGeneral == "" {
		s.EstadoGeneral = "En progreso"
	}
	return nil
}
