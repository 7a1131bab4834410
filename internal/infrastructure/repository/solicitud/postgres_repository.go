// Package solicitud persists evaluation requests through GORM.
package solicitud

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/solicitud"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/status"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/database/entities"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/utils/platformerrors"
)

// PostgresRepository provides persistence for solicitudes.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new solicitud record.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Solicitud) error {
	entity, err := mapToEntity(s)
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeInternal,
			"failed to map solicitud to entity",
			err,
			"3f8a2b1c-5d6e-4f7a-8b9c-0d1e2f3a4b5c",
		)
	}

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create solicitud",
			err,
			"4a9b3c2d-6e7f-4a8b-9c0d-1e2f3a4b5c6d",
		)
	}

	return mapFromEntity(entity, s)
}

// GetByID fetches a solicitud by its public id.
func (r *PostgresRepository) GetByID(ctx context.Context, solicitudID string) (*domain.Solicitud, error) {
	var entity entities.Solicitud
	if err := r.db.WithContext(ctx).
		Where("solicitud_id = ?", solicitudID).
		First(&entity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				"solicitud not found",
				err,
				solicitudID,
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find solicitud",
			err,
			"5b0c4d3e-7f8a-4b9c-0d1e-2f3a4b5c6d7e",
		)
	}

	s := &domain.Solicitud{}
	if err := mapFromEntity(&entity, s); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns every solicitud, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]domain.Solicitud, error) {
	var rows []entities.Solicitud
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list solicitudes",
			err,
			"6c1d5e4f-8a9b-4c0d-1e2f-3a4b5c6d7e8f",
		)
	}

	out := make([]domain.Solicitud, len(rows))
	for i := range rows {
		if err := mapFromEntity(&rows[i], &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Update persists changes to a solicitud.
func (r *PostgresRepository) Update(ctx context.Context, s *domain.Solicitud) error {
	entity, err := mapToEntity(s)
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeInternal,
			"failed to map solicitud to entity for update",
			err,
			"7d2e6f5a-9b0c-4d1e-2f3a-4b5c6d7e8f9a",
		)
	}

	result := r.db.WithContext(ctx).
		Model(&entities.Solicitud{}).
		Where("solicitud_id = ?", s.SolicitudID).
		Updates(entity)
	if result.Error != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update solicitud",
			result.Error,
			"8e3f7a6b-0c1d-4e2f-3a4b-5c6d7e8f9a0b",
		)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"solicitud not found",
			nil,
			s.SolicitudID,
		)
	}
	return nil
}

// Delete removes a solicitud by its public id.
func (r *PostgresRepository) Delete(ctx context.Context, solicitudID string) error {
	result := r.db.WithContext(ctx).
		Where("solicitud_id = ?", solicitudID).
		Delete(&entities.Solicitud{})
	if result.Error != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete solicitud",
			result.Error,
			"9f4a8b7c-1d2e-4f3a-4b5c-6d7e8f9a0b1c",
		)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"solicitud not found",
			nil,
			solicitudID,
		)
	}
	return nil
}

func mapToEntity(s *domain.Solicitud) (*entities.Solicitud, error) {
	anexos, err := marshalJSON(s.Anexos)
	if err != nil {
		return nil, fmt.Errorf("marshal anexos: %w", err)
	}
	evaluacion, err := marshalJSON(s.Evaluacion)
	if err != nil {
		return nil, fmt.Errorf("marshal evaluacion: %w", err)
	}

	return &entities.Solicitud{
		SolicitudID:        s.SolicitudID,
		CodigoProyecto:     s.CodigoProyecto,
		ProveedorNombre:    s.ProveedorNombre,
		ProveedorNIT:       s.ProveedorNIT,
		UsuarioSolicitante: s.UsuarioSolicitante,
		EstadoGeneral:      s.EstadoGeneral,
		Fase:               string(s.Fase),
		Cuestionario:       optional(s.Cuestionario),
		Anexos:             anexos,
		Prompt:             optional(s.Prompt),
		Evaluacion:         evaluacion,
		Respuesta:          optional(s.Respuesta),
		Mensaje:            optional(s.Mensaje),
		Intentos:           s.Intentos,
		FechaFinalizacion:  s.FechaFinalizacion,
	}, nil
}

func mapFromEntity(entity *entities.Solicitud, s *domain.Solicitud) error {
	s.SolicitudID = entity.SolicitudID
	s.CodigoProyecto = entity.CodigoProyecto
	s.ProveedorNombre = entity.ProveedorNombre
	s.ProveedorNIT = entity.ProveedorNIT
	s.UsuarioSolicitante = entity.UsuarioSolicitante
	s.EstadoGeneral = entity.EstadoGeneral
	s.Fase = status.Phase(entity.Fase)
	s.Intentos = entity.Intentos
	s.FechaCreacion = entity.CreatedAt
	s.FechaActualizacion = entity.UpdatedAt
	s.FechaFinalizacion = entity.FechaFinalizacion

	if entity.Cuestionario != nil {
		s.Cuestionario = *entity.Cuestionario
	}
	if entity.Prompt != nil {
		s.Prompt = *entity.Prompt
	}
	if entity.Respuesta != nil {
		s.Respuesta = *entity.Respuesta
	}
	if entity.Mensaje != nil {
		s.Mensaje = *entity.Mensaje
	}

	if len(entity.Anexos) > 0 {
		if err := json.Unmarshal(entity.Anexos, &s.Anexos); err != nil {
			return fmt.Errorf("unmarshal anexos: %w", err)
		}
	}
	if len(entity.Evaluacion) > 0 {
		if err := json.Unmarshal(entity.Evaluacion, &s.Evaluacion); err != nil {
			return fmt.Errorf("unmarshal evaluacion: %w", err)
		}
	}
	return nil
}

func marshalJSON(value interface{}) (datatypes.JSON, error) {
	if value == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(value)
	return datatypes.JSON(bytes), err
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// Ensure interface compliance.
var _ domain.Repository = (*PostgresRepository)(nil)
