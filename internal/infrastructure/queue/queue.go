// Package queue schedules solicitudes for background evaluation over the
// solicitudes table itself, so scheduling commits atomically with the record.
package queue

import (
	"context"
	"time"
)

// Task is one pending background evaluation.
type Task struct {
	SolicitudID string
	QueuedAt    time.Time
}

// TaskQueue defines the queue operations the worker pool drains.
type TaskQueue interface {
	// Enqueue marks a solicitud as pending evaluation.
	Enqueue(ctx context.Context, solicitudID string) error

	// Dequeue fetches the next pending task using SELECT FOR UPDATE SKIP LOCKED.
	Dequeue(ctx context.Context) (*Task, error)

	// MarkProcessing updates the task status to in_progress.
	MarkProcessing(ctx context.Context, solicitudID string) error

	// MarkCompleted updates the task status to completed.
	MarkCompleted(ctx context.Context, solicitudID string) error

	// MarkFailed updates the task status to failed and records the error.
	MarkFailed(ctx context.Context, solicitudID string, err error) error

	// GetQueueDepth returns the number of pending tasks.
	GetQueueDepth(ctx context.Context) (int64, error)
}
