package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Megamind2600/resumerocketpro/internal/records"
)

// MemoryGateway is an in-process Gateway for local development and tests.
type MemoryGateway struct {
	mu      sync.Mutex
	seq     int
	intents map[string]*memoryIntent
}

type memoryIntent struct {
	intent   Intent
	amount   int64
	currency string
	metadata map[string]string
}

// NewMemoryGateway returns an empty gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{intents: make(map[string]*memoryIntent)}
}

// CreateIntent implements Gateway.
func (g *MemoryGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (Intent, error) {
	if err := ctx.Err(); err != nil {
		return Intent{}, err
	}
	if amount <= 0 {
		return Intent{}, fmt.Errorf("memory gateway: amount must be positive")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	id := fmt.Sprintf("pi_mem_%d", g.seq)
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	intent := Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:       records.PaymentPending,
		RawStatus:    "requires_payment_method",
	}
	g.intents[id] = &memoryIntent{intent: intent, amount: amount, currency: currency, metadata: meta}
	return intent, nil
}

// GetIntent implements Gateway.
func (g *MemoryGateway) GetIntent(ctx context.Context, id string) (Intent, error) {
	if err := ctx.Err(); err != nil {
		return Intent{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	stored, ok := g.intents[id]
	if !ok {
		return Intent{}, fmt.Errorf("%w: %s", ErrIntentNotFound, id)
	}
	return stored.intent, nil
}

// MarkSucceeded simulates a completed checkout.
func (g *MemoryGateway) MarkSucceeded(id string) error {
	return g.set(id, records.PaymentSucceeded, "succeeded")
}

// MarkFailed simulates a canceled intent.
func (g *MemoryGateway) MarkFailed(id string) error {
	return g.set(id, records.PaymentFailed, "canceled")
}

// Metadata returns the metadata recorded for an intent.
func (g *MemoryGateway) Metadata(id string) map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	stored, ok := g.intents[id]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(stored.metadata))
	for k, v := range stored.metadata {
		out[k] = v
	}
	return out
}

// Count returns the number of intents created so far.
func (g *MemoryGateway) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.intents)
}

func (g *MemoryGateway) set(id string, status records.PaymentStatus, raw string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	stored, ok := g.intents[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrIntentNotFound, id)
	}
	stored.intent.Status = status
	stored.intent.RawStatus = raw
	return nil
}
