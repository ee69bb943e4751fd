package job

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"sync"
)

// taskExecutor erases the payload type so tasks with different payloads can
// share one registry.
type taskExecutor interface {
	Execute(ctx context.Context, payload json.RawMessage) error
}

type taskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]taskExecutor
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{tasks: make(map[string]taskExecutor)}
}

func (r *taskRegistry) register(name string, exec taskExecutor) {
	r.mu.Lock()
	r.tasks[name] = exec
	r.mu.Unlock()
}

func (r *taskRegistry) get(name string) (taskExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.tasks[name]
	return exec, ok
}

func (r *taskRegistry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Collect(maps.Keys(r.tasks))
}

// taskWrapper adapts a typed task to the registry's type-erased interface.
// The JSON payload is decoded into P before the handler runs.
type taskWrapper[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}] struct {
	task T
}

func newTaskWrapper[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) *taskWrapper[P, T] {
	return &taskWrapper[P, T]{task: task}
}

func (w *taskWrapper[P, T]) Execute(ctx context.Context, raw json.RawMessage) error {
	var payload P
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return errors.Join(ErrInvalidPayload, err)
		}
	}
	return w.task.Handle(ctx, payload)
}
