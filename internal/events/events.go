package events

import (
	"context"
	"sync"
	"time"
)

// Type names a pipeline event. It is also the AMQP routing key suffix.
type Type string

const (
	ResumeAnalyzed      Type = "resume.analyzed"
	OptimizationCreated Type = "optimization.created"
	PaymentCreated      Type = "payment.created"
	PaymentSucceeded    Type = "payment.succeeded"
	PaymentFailed       Type = "payment.failed"
)

// Event is published after a pipeline step commits.
type Event struct {
	Type           Type           `json:"type"`
	ResumeID       int64          `json:"resumeId,omitempty"`
	OptimizationID int64          `json:"optimizationId,omitempty"`
	PaymentID      int64          `json:"paymentId,omitempty"`
	At             time.Time      `json:"at"`
	Data           map[string]any `json:"data,omitempty"`
}

// Publisher fans pipeline events out to other systems.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(ctx context.Context, ev Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of what was published.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the published event types in order.
func (r *Recorder) Types() []Type {
	evs := r.Events()
	out := make([]Type, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}
