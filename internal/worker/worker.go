// Package worker drains the background evaluation queue.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/metrics"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/observability"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/queue"
)

// Evaluator executes the background evaluation of one solicitud.
type Evaluator interface {
	Evaluate(ctx context.Context, solicitudID string) error
}

// Worker processes background tasks from the queue.
type Worker struct {
	id          int
	queue       queue.TaskQueue
	evaluator   Evaluator
	taskTimeout time.Duration
	log         zerolog.Logger
	stopChan    chan struct{}
}

// NewWorker creates a new background worker.
func NewWorker(
	id int,
	taskQueue queue.TaskQueue,
	evaluator Evaluator,
	taskTimeout time.Duration,
	log zerolog.Logger,
) *Worker {
	return &Worker{
		id:          id,
		queue:       taskQueue,
		evaluator:   evaluator,
		taskTimeout: taskTimeout,
		log:         log.With().Int("worker_id", id).Str("component", "worker").Logger(),
		stopChan:    make(chan struct{}),
	}
}

// Start begins processing tasks from the queue.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Msg("worker started")

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopped by context")
			return
		case <-w.stopChan:
			w.log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
			w.processNextTask(ctx)
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	close(w.stopChan)
}

func (w *Worker) processNextTask(ctx context.Context) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to dequeue task")
		return
	}
	if task == nil {
		return
	}

	log := w.log.With().Str("solicitud_id", task.SolicitudID).Logger()
	log.Info().Msg("processing background evaluation")

	if err := w.queue.MarkProcessing(ctx, task.SolicitudID); err != nil {
		log.Error().Err(err).Msg("failed to mark processing")
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()

	taskCtx, span := observability.StartEvaluationSpan(taskCtx, task.SolicitudID)
	defer span.End()

	started := time.Now()
	if err := w.evaluate(taskCtx, task.SolicitudID); err != nil {
		metrics.RecordBackgroundJob("failed", time.Since(started))
		observability.RecordError(span, err, "error")
		log.Error().Err(err).Msg("evaluation failed")
		if markErr := w.queue.MarkFailed(ctx, task.SolicitudID, err); markErr != nil {
			log.Error().Err(markErr).Msg("failed to mark task as failed")
		}
		return
	}

	metrics.RecordBackgroundJob("completed", time.Since(started))
	if err := w.queue.MarkCompleted(ctx, task.SolicitudID); err != nil {
		log.Error().Err(err).Msg("failed to mark task as completed")
		return
	}
	log.Info().Msg("evaluation completed")
}

// evaluate runs the evaluator and converts panics into errors so one bad
// task cannot take the worker down.
func (w *Worker) evaluate(ctx context.Context, solicitudID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation panicked: %v", r)
		}
	}()
	return w.evaluator.Evaluate(ctx, solicitudID)
}
