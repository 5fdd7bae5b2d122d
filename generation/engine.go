package generation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ctfhost/content"
	"ctfhost/metrics"
)

type InstanceState int

const (
	// Absent - no cached instance exists (or only a half-written one).
	Absent InstanceState = iota
	// Stale - a cached instance exists but predates the current generation config.
	Stale
	// Fresh - the cached instance is at least as new as the config.
	Fresh
)

// Engine decides when a cached per-team instance is usable and drives the
// generator when it is not.
type Engine struct {
	store   *content.Store
	timeout time.Duration

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

func NewEngine(store *content.Store, timeout time.Duration) *Engine {
	return &Engine{
		store:    store,
		timeout:  timeout,
		inflight: make(map[string]*sync.Mutex),
	}
}

// InstanceState inspects the cache for (task, token). The config file must
// already exist; GetGeneratedTask guarantees that before calling.
func (e *Engine) InstanceState(taskId int, token string) (InstanceState, *content.Task, error) {
	instance, generatedAt, err := e.store.ReadInstance(taskId, token)
	if err != nil {
		return Absent, nil, err
	}
	if instance == nil {
		return Absent, nil, nil
	}
	configTime, err := e.store.GenConfigModTime(taskId)
	if err != nil {
		// Config vanished between resolution and the check; regenerate.
		return Absent, nil, nil
	}
	if generatedAt.Before(configTime) {
		return Stale, instance, nil
	}
	return Fresh, instance, nil
}

// GetGeneratedTask returns the team-specific variant of a task, generating
// it when no fresh cached instance exists. Safe to call concurrently for
// the same (task, token): generations are coalesced per key.
func (e *Engine) GetGeneratedTask(ctx context.Context, task *content.Task, token, team string) (*content.Task, error) {
	// Resolving the config writes the inherited fallback to disk when the
	// task has none of its own, so the staleness check below always has a
	// modification time to compare against.
	if _, err := e.store.ResolveGenConfig(task); err != nil {
		return nil, err
	}

	state, instance, err := e.InstanceState(task.Id, token)
	if err != nil {
		return nil, err
	}
	if state == Fresh {
		return instance, nil
	}

	lock := e.keyLock(task.Id, token)
	lock.Lock()
	defer lock.Unlock()

	// Another request may have generated while we waited.
	state, instance, err = e.InstanceState(task.Id, token)
	if err != nil {
		return nil, err
	}
	if state == Fresh {
		return instance, nil
	}
	return e.Generate(ctx, task, token, team)
}

// Generate runs the task's resolved generator and publishes the result.
// Idempotent: a repeated call overwrites the previous instance. A failed
// generation is fatal for the request and leaves no instance behind; a
// later request may succeed once the cause has cleared.
func (e *Engine) Generate(ctx context.Context, task *content.Task, token, team string) (*content.Task, error) {
	start := time.Now()
	configText, err := e.store.ResolveGenConfig(task)
	if err != nil {
		return nil, err
	}
	config, err := ParseGenConfig(configText)
	if err != nil {
		metrics.GenerationErrorCounter.Inc()
		return nil, fmt.Errorf("task %d: %w", task.Id, err)
	}
	generator, err := Lookup(config.Generator)
	if err != nil {
		metrics.GenerationErrorCounter.Inc()
		return nil, fmt.Errorf("task %d: %w", task.Id, err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	staged, err := e.store.StageInstance(task.Id)
	if err != nil {
		return nil, err
	}

	generated, err := generator.Generate(ctx, &Request{
		Task:      task,
		Token:     token,
		Team:      team,
		SourceDir: e.store.SourceFilesDir(task.Id),
		OutDir:    staged,
		Params:    config.Params,
	})
	if err != nil {
		e.store.DiscardInstance(staged)
		metrics.GenerationErrorCounter.Inc()
		log.Printf("generator %q failed for task %d, token %s: %v", config.Generator, task.Id, token, err)
		return nil, fmt.Errorf("generation of task %d failed: %w", task.Id, err)
	}

	if err := e.store.PublishInstance(task.Id, token, staged, generated, time.Now()); err != nil {
		e.store.DiscardInstance(staged)
		metrics.GenerationErrorCounter.Inc()
		return nil, err
	}
	metrics.GenerationCounter.Inc()
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	return generated, nil
}

func (e *Engine) keyLock(taskId int, token string) *sync.Mutex {
	key := fmt.Sprintf("%d/%s", taskId, token)
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.inflight[key]
	if !ok {
		lock = &sync.Mutex{}
		e.inflight[key] = lock
	}
	return lock
}
