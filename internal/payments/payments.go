package payments

import (
	"context"
	"errors"

	"github.com/Megamind2600/resumerocketpro/internal/records"
)

// Amount is the price of one optimization download bundle in minor currency units.
const Amount int64 = 999

// ErrIntentNotFound is returned when the provider does not know the intent id.
var ErrIntentNotFound = errors.New("payment intent not found")

// Intent is a provider payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	// Status is normalised to pending, succeeded or failed.
	Status records.PaymentStatus
	// RawStatus is the provider's own status string.
	RawStatus string
}

// Gateway creates and reads payment intents.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
}
