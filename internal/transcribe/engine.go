package transcribe

import (
	"context"
	"fmt"
	"sync"
)

// Result is the output of one transcription run.
type Result struct {
	Text     string
	Language string
}

// Backend is a pluggable transcription backend.
type Backend interface {
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}

// Options are engine decoding parameters, fixed per process.
type Options struct {
	BeamWidth            int
	SpeechThreshold      float64
	SuppressConditioning bool
	VADEnabled           bool
}

func DefaultOptions() Options {
	return Options{
		BeamWidth:            5,
		SpeechThreshold:      0.6,
		SuppressConditioning: true,
		VADEnabled:           true,
	}
}

// EngineError marks a failure produced by a transcription backend.
type EngineError struct {
	Backend string
	Err     error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Backend, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// LazyEngine defers backend construction to the first Transcribe call and
// reuses the constructed backend for every call after that. The factory runs
// under a lock, so concurrent first callers block until it finishes; a
// factory failure is returned to the caller and retried on the next call
// rather than cached.
type LazyEngine struct {
	mu      sync.Mutex
	factory func() (Backend, error)
	backend Backend
}

func NewLazyEngine(factory func() (Backend, error)) *LazyEngine {
	return &LazyEngine{factory: factory}
}

func (e *LazyEngine) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	backend, err := e.acquire()
	if err != nil {
		return Result{}, &EngineError{Backend: "init", Err: err}
	}
	return backend.Transcribe(ctx, audioPath)
}

func (e *LazyEngine) acquire() (Backend, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil {
		backend, err := e.factory()
		if err != nil {
			return nil, err
		}
		e.backend = backend
	}
	return e.backend, nil
}
