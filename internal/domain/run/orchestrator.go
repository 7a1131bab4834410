package run

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/retry"
)

const (
	// attachmentBatchSize is the maximum number of attachments one thread
	// message may carry.
	attachmentBatchSize = 5

	// toolAckOutput acknowledges a tool call so the assistant resumes.
	toolAckOutput = "Ok, función ejecutada correctamente."

	// repromptContent asks the assistant to execute its configured function
	// after a run completed without ever requesting it.
	repromptContent = "Por favor, ejecuta la función configurada en el assistant y entrega el resultado de la revisión."

	attachmentBatchContent = "Estos son los archivos que debes revisar"
)

// Options tunes the poll loop budgets.
type Options struct {
	// PollInterval is the pause between status observations.
	PollInterval time.Duration
	// Timeout bounds the total wait for a terminal state.
	Timeout time.Duration
	// RepromptCap bounds how many fresh runs may be started after silent
	// completions before giving up.
	RepromptCap int
	// FailedRetries is how many failed observations are tolerated before the
	// run is declared terminal.
	FailedRetries int
	// BatchPause is the pause between attachment batches.
	BatchPause time.Duration
}

// DefaultOptions mirrors the production budgets.
func DefaultOptions() Options {
	return Options{
		PollInterval:  10 * time.Second,
		Timeout:       10000 * time.Second,
		RepromptCap:   5,
		FailedRetries: 4,
		BatchPause:    5 * time.Second,
	}
}

// Orchestrator drives a full assistant invocation from thread creation to a
// terminal outcome.
type Orchestrator struct {
	provider Provider
	opts     Options
	log      zerolog.Logger

	statusPolicy  retry.Policy
	messagePolicy retry.Policy
}

// NewOrchestrator builds an orchestrator around a provider.
func NewOrchestrator(provider Provider, opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts = DefaultOptions()
	}
	return &Orchestrator{
		provider:      provider,
		opts:          opts,
		log:           logger.With().Str("component", "run_orchestrator").Logger(),
		statusPolicy:  retry.StatusFetchPolicy(),
		messagePolicy: retry.MessageFetchPolicy(),
	}
}

// RunFlow opens a thread, posts the prompt and any file attachments, starts a
// run and waits for its terminal outcome. It returns ErrRunTimeout when the
// run outlives the configured budget; every other degradation is absorbed
// into the outcome.
func (o *Orchestrator) RunFlow(ctx context.Context, prompt string, fileIDs []string) (*Outcome, error) {
	threadID, err := retry.ExecuteWithResult(ctx, retry.TransportPolicy(), func(ctx context.Context, _ int) (string, error) {
		return o.provider.CreateThread(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("creating thread: %w", err)
	}
	log := o.log.With().Str("thread_id", threadID).Logger()
	log.Info().Int("file_count", len(fileIDs)).Msg("thread created")

	if err := o.postAttachments(ctx, threadID, fileIDs); err != nil {
		return nil, err
	}

	if _, err := retry.ExecuteWithResult(ctx, retry.TransportPolicy(), func(ctx context.Context, _ int) (string, error) {
		return o.provider.CreateMessage(ctx, threadID, prompt)
	}); err != nil {
		return nil, fmt.Errorf("posting prompt: %w", err)
	}

	runID, err := retry.ExecuteWithResult(ctx, retry.TransportPolicy(), func(ctx context.Context, _ int) (string, error) {
		return o.provider.CreateRun(ctx, threadID)
	})
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}
	log.Info().Str("run_id", runID).Msg("run started")

	return o.waitForTerminal(ctx, threadID, runID)
}

// postAttachments posts fileIDs to the thread in messages of at most
// attachmentBatchSize attachments, labeling each batch with its file range.
func (o *Orchestrator) postAttachments(ctx context.Context, threadID string, fileIDs []string) error {
	for start := 0; start < len(fileIDs); start += attachmentBatchSize {
		end := start + attachmentBatchSize
		if end > len(fileIDs) {
			end = len(fileIDs)
		}
		attachments := make([]Attachment, 0, end-start)
		for _, id := range fileIDs[start:end] {
			attachments = append(attachments, Attachment{
				FileID: id,
				Tools:  DefaultAttachmentTools(),
			})
		}
		content := fmt.Sprintf("%s (Archivos %d-%d)", attachmentBatchContent, start+1, end)
		if _, err := retry.ExecuteWithResult(ctx, retry.TransportPolicy(), func(ctx context.Context, _ int) (string, error) {
			return o.provider.CreateMessageWithFiles(ctx, threadID, content, attachments)
		}); err != nil {
			return fmt.Errorf("posting attachment batch %d-%d: %w", start+1, end, err)
		}
		o.log.Debug().Str("thread_id", threadID).Int("from", start+1).Int("to", end).Msg("attachment batch posted")
		if end < len(fileIDs) && o.opts.BatchPause > 0 {
			if err := sleepCtx(ctx, o.opts.BatchPause); err != nil {
				return err
			}
		}
	}
	return nil
}

// waitForTerminal polls the run until it reaches a terminal state, the failed
// budget is spent, or the timeout elapses. A completed run that never raised
// a required action triggers a bounded re-prompt: a fresh message plus run on
// the same thread, up to RepromptCap times.
func (o *Orchestrator) waitForTerminal(ctx context.Context, threadID, runID string) (*Outcome, error) {
	var (
		elapsed   time.Duration
		captured  *RequiredAction
		failures  int
		reprompts int
	)
	log := o.log.With().Str("thread_id", threadID).Logger()

	for elapsed < o.opts.Timeout {
		snapshot := o.fetchRun(ctx, threadID, runID)

		switch snapshot.Status {
		case StatusRequiresAction:
			// The last observed payload wins: the assistant may raise the
			// function again after an acknowledgment, superseding earlier calls.
			if snapshot.RequiredAction != nil {
				captured = snapshot.RequiredAction
				log.Info().Str("run_id", runID).
					Int("tool_calls", len(captured.SubmitToolOutputs.ToolCalls)).
					Msg("required action captured")
			}
			o.acknowledgeToolCalls(ctx, threadID, runID, snapshot.RequiredAction)

		case StatusCompleted:
			if captured != nil {
				response := o.fetchAssistantResponse(ctx, threadID)
				return &Outcome{
					RequiredAction:    captured,
					AssistantResponse: response,
					LastRun:           *snapshot,
				}, nil
			}
			if reprompts >= o.opts.RepromptCap {
				log.Warn().Str("run_id", runID).Int("reprompts", reprompts).
					Msg("run kept completing without a required action")
				return &Outcome{
					AssistantResponse: o.fetchAssistantResponse(ctx, threadID),
					LastRun:           *snapshot,
				}, nil
			}
			reprompts++
			content := repromptContent
			if reprompts > 1 {
				content = fmt.Sprintf("Por favor, responde ejecutando la función configurada en el assistant. Intento %d.", reprompts)
			}
			newRunID, err := o.startFollowUpRun(ctx, threadID, content)
			if err != nil {
				return nil, err
			}
			log.Info().Str("run_id", newRunID).Int("attempt", reprompts).Msg("re-prompted after silent completion")
			runID = newRunID

		case StatusFailed:
			failures++
			if failures > o.opts.FailedRetries {
				log.Warn().Str("run_id", runID).Int("failures", failures).Msg("failed budget exhausted")
				return &Outcome{
					RequiredAction:    captured,
					AssistantResponse: string(snapshot.Status),
					LastRun:           *snapshot,
				}, nil
			}
			log.Warn().Str("run_id", runID).Int("failures", failures).Msg("run reported failed, waiting for recovery")

		case StatusCancelling, StatusCancelled, StatusIncomplete, StatusExpired:
			log.Warn().Str("run_id", runID).Str("status", string(snapshot.Status)).Msg("run ended abnormally")
			return &Outcome{
				RequiredAction:    captured,
				AssistantResponse: string(snapshot.Status),
				LastRun:           *snapshot,
			}, nil

		default:
			// queued, in_progress or an unknown snapshot: keep waiting.
		}

		if err := sleepCtx(ctx, o.opts.PollInterval); err != nil {
			return nil, err
		}
		elapsed += o.opts.PollInterval
	}

	log.Error().Str("run_id", runID).Dur("elapsed", elapsed).Msg("run timed out")
	return nil, ErrRunTimeout
}

// fetchRun reads the run status with a bounded transport retry. When every
// attempt fails it degrades to an unknown snapshot so the poll loop keeps
// going instead of aborting on a transient outage.
func (o *Orchestrator) fetchRun(ctx context.Context, threadID, runID string) *Run {
	snapshot, err := retry.ExecuteWithResult(ctx, o.statusPolicy, func(ctx context.Context, _ int) (*Run, error) {
		return o.provider.GetRun(ctx, threadID, runID)
	})
	if err != nil || snapshot == nil {
		o.log.Warn().Err(err).Str("thread_id", threadID).Str("run_id", runID).
			Msg("status fetch degraded to unknown")
		return &Run{ID: runID, ThreadID: threadID, Status: StatusUnknown}
	}
	return snapshot
}

// acknowledgeToolCalls submits a fixed acknowledgment for every pending tool
// call. Submission errors are logged and swallowed so the poll loop observes
// the run's next state on its own.
func (o *Orchestrator) acknowledgeToolCalls(ctx context.Context, threadID, runID string, action *RequiredAction) {
	if action == nil || len(action.SubmitToolOutputs.ToolCalls) == 0 {
		return
	}
	outputs := make([]ToolOutput, 0, len(action.SubmitToolOutputs.ToolCalls))
	for _, call := range action.SubmitToolOutputs.ToolCalls {
		outputs = append(outputs, ToolOutput{ToolCallID: call.ID, Output: toolAckOutput})
	}
	if err := o.provider.SubmitToolOutputs(ctx, threadID, runID, outputs); err != nil {
		o.log.Warn().Err(err).Str("run_id", runID).Msg("tool output submission failed")
	}
}

// startFollowUpRun posts a follow-up message and starts a fresh run on the
// same thread.
func (o *Orchestrator) startFollowUpRun(ctx context.Context, threadID, content string) (string, error) {
	if _, err := retry.ExecuteWithResult(ctx, retry.TransportPolicy(), func(ctx context.Context, _ int) (string, error) {
		return o.provider.CreateMessage(ctx, threadID, content)
	}); err != nil {
		return "", fmt.Errorf("posting follow-up message: %w", err)
	}
	runID, err := retry.ExecuteWithResult(ctx, retry.TransportPolicy(), func(ctx context.Context, _ int) (string, error) {
		return o.provider.CreateRun(ctx, threadID)
	})
	if err != nil {
		return "", fmt.Errorf("starting follow-up run: %w", err)
	}
	return runID, nil
}

// fetchAssistantResponse concatenates the assistant's textual replies. It is
// best effort and degrades to an empty string.
func (o *Orchestrator) fetchAssistantResponse(ctx context.Context, threadID string) string {
	messages, err := retry.ExecuteWithResult(ctx, o.messagePolicy, func(ctx context.Context, _ int) ([]ThreadMessage, error) {
		return o.provider.ListMessages(ctx, threadID)
	})
	if err != nil {
		o.log.Warn().Err(err).Str("thread_id", threadID).Msg("message fetch degraded to empty response")
		return ""
	}
	var parts []string
	for _, msg := range messages {
		if msg.Role != "assistant" {
			continue
		}
		for _, text := range msg.Content {
			if text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
