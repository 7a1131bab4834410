package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/database/entities"
)

// PostgresQueue implements TaskQueue over the solicitud table.
type PostgresQueue struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewPostgresQueue creates a new PostgreSQL-backed task queue.
func NewPostgresQueue(db *gorm.DB, log zerolog.Logger) *PostgresQueue {
	return &PostgresQueue{
		db:  db,
		log: log.With().Str("component", "postgres-queue").Logger(),
	}
}

// Enqueue marks a solicitud as pending evaluation.
func (q *PostgresQueue) Enqueue(ctx context.Context, solicitudID string) error {
	now := time.Now()
	result := q.db.WithContext(ctx).
		Model(&entities.Solicitud{}).
		Where("solicitud_id = ?", solicitudID).
		Updates(map[string]interface{}{
			"task_status": entities.TaskQueued,
			"queued_at":   now,
			"updated_at":  now,
		})

	if result.Error != nil {
		return fmt.Errorf("enqueue solicitud: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("solicitud not found: %s", solicitudID)
	}

	q.log.Debug().Str("solicitud_id", solicitudID).Msg("solicitud enqueued")
	return nil
}

// Dequeue fetches the next queued solicitud using FOR UPDATE SKIP LOCKED.
func (q *PostgresQueue) Dequeue(ctx context.Context) (*Task, error) {
	var entity entities.Solicitud

	err := q.db.WithContext(ctx).
		Raw("SELECT * FROM solicitud WHERE task_status = ? ORDER BY queued_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED", entities.TaskQueued).
		Scan(&entity).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // No tasks available
		}
		return nil, fmt.Errorf("dequeue task: %w", err)
	}

	// Check if no rows were returned (entity.ID will be 0)
	if entity.ID == 0 {
		return nil, nil // No tasks available
	}

	task := &Task{SolicitudID: entity.SolicitudID}
	if entity.QueuedAt != nil {
		task.QueuedAt = *entity.QueuedAt
	}
	return task, nil
}

// MarkProcessing updates the task status to in_progress.
func (q *PostgresQueue) MarkProcessing(ctx context.Context, solicitudID string) error {
	now := time.Now()
	result := q.db.WithContext(ctx).
		Model(&entities.Solicitud{}).
		Where("solicitud_id = ?", solicitudID).
		Updates(map[string]interface{}{
			"task_status": entities.TaskInProgress,
			"started_at":  now,
			"updated_at":  now,
		})

	if result.Error != nil {
		return fmt.Errorf("mark processing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("solicitud not found: %s", solicitudID)
	}
	return nil
}

// MarkCompleted updates the task status to completed.
func (q *PostgresQueue) MarkCompleted(ctx context.Context, solicitudID string) error {
	now := time.Now()
	result := q.db.WithContext(ctx).
		Model(&entities.Solicitud{}).
		Where("solicitud_id = ?", solicitudID).
		Updates(map[string]interface{}{
			"task_status":  entities.TaskCompleted,
			"completed_at": now,
			"updated_at":   now,
		})

	if result.Error != nil {
		return fmt.Errorf("mark completed: %w", result.Error)
	}
	return nil
}

// MarkFailed updates the task status to failed and records the error.
func (q *PostgresQueue) MarkFailed(ctx context.Context, solicitudID string, taskErr error) error {
	now := time.Now()
	errorJSON := map[string]interface{}{
		"code":    "task_execution_failed",
		"message": taskErr.Error(),
	}

	result := q.db.WithContext(ctx).
		Model(&entities.Solicitud{}).
		Where("solicitud_id = ?", solicitudID).
		Updates(map[string]interface{}{
			"task_status": entities.TaskFailed,
			"task_error":  errorJSON,
			"failed_at":   now,
			"updated_at":  now,
		})

	if result.Error != nil {
		return fmt.Errorf("mark failed: %w", result.Error)
	}
	return nil
}

// GetQueueDepth returns the number of queued tasks.
func (q *PostgresQueue) GetQueueDepth(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&entities.Solicitud{}).
		Where("task_status = ?", entities.TaskQueued).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("get queue depth: %w", err)
	}
	return count, nil
}
