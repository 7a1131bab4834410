package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/queue"
)

type mockQueue struct {
	mu         sync.Mutex
	tasks      []*queue.Task
	processing []string
	completed  []string
	failed     map[string]error
}

func newMockQueue(ids ...string) *mockQueue {
	q := &mockQueue{failed: make(map[string]error)}
	for _, id := range ids {
		q.tasks = append(q.tasks, &queue.Task{SolicitudID: id, QueuedAt: time.Now()})
	}
	return q
}

func (q *mockQueue) Enqueue(context.Context, string) error { return nil }

func (q *mockQueue) Dequeue(context.Context) (*queue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, nil
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task, nil
}

func (q *mockQueue) MarkProcessing(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processing = append(q.processing, id)
	return nil
}

func (q *mockQueue) MarkCompleted(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completed = append(q.completed, id)
	return nil
}

func (q *mockQueue) MarkFailed(_ context.Context, id string, err error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed[id] = err
	return nil
}

func (q *mockQueue) GetQueueDepth(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.tasks)), nil
}

type mockEvaluator struct {
	evaluateFunc func(ctx context.Context, solicitudID string) error
}

func (m *mockEvaluator) Evaluate(ctx context.Context, solicitudID string) error {
	if m.evaluateFunc != nil {
		return m.evaluateFunc(ctx, solicitudID)
	}
	return nil
}

func TestProcessNextTaskCompletes(t *testing.T) {
	q := newMockQueue("sol_ok")
	var evaluated []string
	w := NewWorker(1, q, &mockEvaluator{
		evaluateFunc: func(_ context.Context, id string) error {
			evaluated = append(evaluated, id)
			return nil
		},
	}, time.Second, zerolog.Nop())

	w.processNextTask(context.Background())

	if len(evaluated) != 1 || evaluated[0] != "sol_ok" {
		t.Fatalf("expected evaluation of sol_ok, got %v", evaluated)
	}
	if len(q.processing) != 1 {
		t.Errorf("expected task marked processing")
	}
	if len(q.completed) != 1 || q.completed[0] != "sol_ok" {
		t.Errorf("expected task marked completed, got %v", q.completed)
	}
	if len(q.failed) != 0 {
		t.Errorf("expected no failures, got %v", q.failed)
	}
}

func TestProcessNextTaskMarksFailure(t *testing.T) {
	q := newMockQueue("sol_bad")
	w := NewWorker(1, q, &mockEvaluator{
		evaluateFunc: func(context.Context, string) error {
			return errors.New("assistant unreachable")
		},
	}, time.Second, zerolog.Nop())

	w.processNextTask(context.Background())

	if len(q.completed) != 0 {
		t.Errorf("failed task must not be marked completed")
	}
	if q.failed["sol_bad"] == nil {
		t.Fatalf("expected failure recorded for sol_bad")
	}
}

func TestProcessNextTaskRecoversPanic(t *testing.T) {
	q := newMockQueue("sol_panic")
	w := NewWorker(1, q, &mockEvaluator{
		evaluateFunc: func(context.Context, string) error {
			panic("boom")
		},
	}, time.Second, zerolog.Nop())

	w.processNextTask(context.Background())

	err := q.failed["sol_panic"]
	if err == nil {
		t.Fatalf("expected panic converted to a recorded failure")
	}
}

func TestProcessNextTaskNoTask(t *testing.T) {
	q := newMockQueue()
	called := false
	w := NewWorker(1, q, &mockEvaluator{
		evaluateFunc: func(context.Context, string) error {
			called = true
			return nil
		},
	}, time.Second, zerolog.Nop())

	w.processNextTask(context.Background())

	if called {
		t.Fatal("evaluator must not run when the queue is empty")
	}
}
