// Package billing is the payment boundary. A provider starts a checkout for
// a staged plan and turns provider callbacks into payment events.
package billing

import (
	"context"
	"fmt"

	"resumegenius/internal/config"
	"resumegenius/internal/errors"
	"resumegenius/internal/plan"
)

const (
	ProviderNone   = "none"
	ProviderStripe = "stripe"
)

// CheckoutRequest asks for payment of one plan on behalf of a session
type CheckoutRequest struct {
	SessionID     string
	Plan          plan.Plan
	CustomerEmail string
}

// Checkout is what the client needs to continue payment. Confirmed means
// no further step is needed and the payment may be completed at once.
type Checkout struct {
	Provider  string `json:"provider"`
	ID        string `json:"id,omitempty"`
	URL       string `json:"url,omitempty"`
	Confirmed bool   `json:"confirmed"`
}

// Event is a verified payment callback. CustomerEmail is set when the
// provider reports who paid.
type Event struct {
	Type          string
	SessionID     string
	CustomerEmail string
	Plan          plan.Plan
	Paid          bool
}

// Provider creates checkouts and verifies webhooks
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

// New returns the configured provider
func New(cfg config.BillingConfig, logger *errors.Logger) (Provider, error) {
	switch cfg.Provider {
	case "", ProviderNone:
		return NoopProvider{}, nil
	case ProviderStripe:
		return NewStripeProvider(cfg, logger), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported billing provider: %s", cfg.Provider), nil)
	}
}

// NoopProvider confirms every checkout immediately
type NoopProvider struct{}

func (NoopProvider) Name() string { return ProviderNone }

func (NoopProvider) CreateCheckout(_ context.Context, req CheckoutRequest) (*Checkout, error) {
	if !req.Plan.Valid() || req.Plan == plan.Free {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidPlan, "plan cannot be purchased", nil)
	}
	return &Checkout{Provider: ProviderNone, Confirmed: true}, nil
}

func (NoopProvider) ParseWebhook([]byte, string) (*Event, error) {
	return nil, errors.NewPaymentError(errors.ErrCodeWebhookInvalid, "webhooks are not enabled for this billing provider", nil)
}
