// Package testutil provides shared fixtures for portico tests.
package testutil

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder collects ordered events from factories and finalizers so tests
// can assert construction and disposal order. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one event.
func (r *Recorder) Record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events matching the given name were recorded.
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// Config is a leaf test service.
type Config struct {
	Env string
}

// Logger is a test service depending on Config.
type Logger struct {
	Config *Config
	ID     string
}

// Database is a test service depending on Config and Logger.
type Database struct {
	Config *Config
	Logger *Logger
}

// RequestContext is a per-scope test service.
type RequestContext struct {
	ID        string
	StartedAt time.Time
}

// NewRequestContext creates a RequestContext with a unique ID.
func NewRequestContext() *RequestContext {
	return &RequestContext{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
}
