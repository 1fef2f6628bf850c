package billing

import (
	"context"
	"encoding/json"

	"resumegenius/internal/config"
	"resumegenius/internal/errors"
	"resumegenius/internal/plan"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

// MaxWebhookBytes bounds the webhook body the server reads
const MaxWebhookBytes = 65536

const (
	eventCheckoutCompleted    = "checkout.session.completed"
	eventAsyncPaymentSucceded = "checkout.session.async_payment_succeeded"
)

// StripeProvider uses Stripe Checkout
type StripeProvider struct {
	cfg     config.BillingConfig
	logger  *errors.Logger
	newSess func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeProvider builds a provider with its own API client
func NewStripeProvider(cfg config.BillingConfig, logger *errors.Logger) *StripeProvider {
	sc := session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.Stripe.SecretKey}
	return &StripeProvider{cfg: cfg, logger: logger, newSess: sc.New}
}

func (p *StripeProvider) Name() string { return ProviderStripe }

// CreateCheckout opens a Checkout Session for the staged plan. Monthly
// offerings become subscriptions.
func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	offering, ok := plan.Lookup(req.Plan)
	if !ok || offering.Billing == plan.BillingNone {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidPlan, "plan cannot be purchased", nil)
	}
	priceID := p.cfg.Stripe.PriceIDs[string(req.Plan)]
	if priceID == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "no Stripe price configured for "+string(req.Plan), nil)
	}

	mode := stripe.CheckoutSessionModePayment
	if offering.Billing == plan.BillingMonthly {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(mode)),
		ClientReferenceID: stripe.String(req.SessionID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(p.cfg.SuccessURL),
		CancelURL:  stripe.String(p.cfg.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("plan", string(req.Plan))
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	sess, err := p.newSess(params)
	if err != nil {
		return nil, errors.NewPaymentError(errors.ErrCodePaymentFailed, "failed to create checkout session", err)
	}

	p.logger.Info("Stripe checkout session created",
		"checkout_id", sess.ID,
		"plan", req.Plan,
		"mode", mode)
	return &Checkout{Provider: ProviderStripe, ID: sess.ID, URL: sess.URL}, nil
}

// ParseWebhook verifies the signature and decodes checkout events. Other
// event types return an Event with only Type set.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if p.cfg.Stripe.WebhookSecret == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Stripe webhook secret is not configured", nil)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.Stripe.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.NewPaymentError(errors.ErrCodeWebhookInvalid, "signature verification failed", err)
	}

	out := &Event{Type: string(event.Type)}
	switch out.Type {
	case eventCheckoutCompleted, eventAsyncPaymentSucceded:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, errors.NewPaymentError(errors.ErrCodeWebhookInvalid, "invalid session payload", err)
		}
		out.SessionID = sess.ClientReferenceID
		out.CustomerEmail = sess.CustomerEmail
		if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
			out.CustomerEmail = sess.CustomerDetails.Email
		}
		if pl, ok := plan.Parse(sess.Metadata["plan"]); ok {
			out.Plan = pl
		}
		out.Paid = sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
	}
	return out, nil
}
