package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/videolens/server/internal/domain/billing"
	"go.uber.org/zap"
)

const (
	breakerName = "stripe"

	metadataUserID = "user_id"
	metadataPlan   = "plan"

	sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"
)

// ErrWebhookSecretMissing is returned when webhooks arrive without a configured secret.
var ErrWebhookSecretMissing = errors.New("stripe webhook secret not configured")

// Config holds the Stripe adapter configuration.
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	// MaxNetworkRetries is the number of retries stripe-go makes on transient failures.
	MaxNetworkRetries int64
	// APIURL overrides the Stripe API base URL.
	APIURL string
}

// BreakerRecorder observes circuit breaker state changes.
type BreakerRecorder interface {
	SetBreakerState(name string, state int)
}

// StripeProvider implements billing.PaymentProvider with Stripe Checkout.
// API calls go through a circuit breaker that opens after five consecutive failures.
type StripeProvider struct {
	api     *client.API
	cfg     Config
	breaker *gobreaker.CircuitBreaker[*billing.ProviderSession]
	logger  *zap.Logger
}

// NewStripeProvider creates a Stripe provider using httpClient for API calls.
func NewStripeProvider(cfg Config, httpClient *http.Client, recorder BreakerRecorder, logger *zap.Logger) *StripeProvider {
	if logger == nil {
		logger = zap.NewNop()
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     logger.Sugar(),
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	p := &StripeProvider{
		api:    client.New(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}),
		cfg:    cfg,
		logger: logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker[*billing.ProviderSession](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payment provider circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if recorder != nil {
				recorder.SetBreakerState(name, int(to))
			}
		},
	})
	return p
}

var _ billing.PaymentProvider = (*StripeProvider)(nil)

// isSuccessful keeps client errors from tripping the breaker. Only transport
// failures and 5xx responses count against the provider.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode > 0 && stripeErr.HTTPStatusCode < 500
	}
	return false
}

// BreakerState returns the current circuit breaker state.
func (p *StripeProvider) BreakerState() gobreaker.State {
	return p.breaker.State()
}

// CreateCheckoutSession creates a subscription-mode Checkout Session.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*billing.ProviderSession, error) {
	return p.breaker.Execute(func() (*billing.ProviderSession, error) {
		metadata := map[string]string{
			metadataUserID: params.UserID.String(),
			metadataPlan:   string(params.Plan),
		}

		sp := &stripe.CheckoutSessionParams{
			Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
			LineItems: []*stripe.CheckoutSessionLineItemParams{
				{Price: stripe.String(params.PriceID), Quantity: stripe.Int64(1)},
			},
			SuccessURL:        stripe.String(successURL(p.cfg.SuccessURL)),
			CancelURL:         stripe.String(p.cfg.CancelURL),
			ClientReferenceID: stripe.String(params.UserID.String()),
			Metadata:          metadata,
			SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
				Metadata: metadata,
			},
		}
		if params.CustomerID != "" {
			sp.Customer = stripe.String(params.CustomerID)
		}
		sp.Context = ctx

		s, err := p.api.CheckoutSessions.New(sp)
		if err != nil {
			return nil, fmt.Errorf("create checkout session: %w", err)
		}
		return &billing.ProviderSession{ID: s.ID, URL: s.URL}, nil
	})
}

// successURL makes sure Stripe substitutes the session id into the return URL.
func successURL(base string) string {
	if base == "" || strings.Contains(base, sessionIDPlaceholder) {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "session_id=" + sessionIDPlaceholder
}

// ParseWebhook verifies the Stripe-Signature header and reduces the event to
// the fields billing applies. Unhandled event types carry only their id and type.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*billing.ProviderEvent, error) {
	if p.cfg.WebhookSecret == "" {
		return nil, ErrWebhookSecretMissing
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}

	evt := &billing.ProviderEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if event.Data == nil {
		return evt, nil
	}

	switch evt.Type {
	case billing.EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		fillFromCheckoutSession(evt, &cs)

	case billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		fillFromSubscription(evt, &sub)
	}
	return evt, nil
}

func fillFromCheckoutSession(evt *billing.ProviderEvent, cs *stripe.CheckoutSession) {
	evt.CheckoutSessionID = cs.ID
	if cs.Customer != nil {
		evt.CustomerID = cs.Customer.ID
	}
	if cs.Subscription != nil {
		evt.SubscriptionID = cs.Subscription.ID
		evt.SubscriptionStatus = string(cs.Subscription.Status)
	}
	evt.PlanLabel = cs.Metadata[metadataPlan]

	ref := cs.Metadata[metadataUserID]
	if ref == "" {
		ref = cs.ClientReferenceID
	}
	if id, err := uuid.Parse(ref); err == nil {
		evt.UserID = id
	}
}

func fillFromSubscription(evt *billing.ProviderEvent, sub *stripe.Subscription) {
	evt.SubscriptionID = sub.ID
	evt.SubscriptionStatus = string(sub.Status)
	if sub.Customer != nil {
		evt.CustomerID = sub.Customer.ID
	}
	// The price decides the plan; metadata only reflects the original checkout.
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		evt.PriceID = price.ID
		evt.PlanLabel = price.LookupKey
	} else {
		evt.PlanLabel = sub.Metadata[metadataPlan]
	}
	if id, err := uuid.Parse(sub.Metadata[metadataUserID]); err == nil {
		evt.UserID = id
	}
}
