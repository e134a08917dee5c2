package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/account"
	"github.com/videolens/server/internal/domain/checkout"
	"github.com/videolens/server/internal/domain/plan"
	"go.uber.org/zap"
)

// Subscription statuses that end paid access.
var lapsedStatuses = map[string]bool{
	"canceled":           true,
	"unpaid":             true,
	"incomplete_expired": true,
}

// Config holds the provider price of each purchasable plan.
type Config struct {
	// PriceIDs maps canonical plan IDs to provider price IDs.
	PriceIDs map[string]string `mapstructure:"price_ids"`
}

// Domain is the billing backend. It confirms checkouts, serves profiles,
// starts provider checkouts and applies provider webhooks.
type Domain struct {
	repo        Repository
	cache       ProfileCache
	provider    PaymentProvider
	publisher   Publisher
	resolver    *plan.Resolver
	prices      map[plan.ID]string
	planByPrice map[string]plan.ID
	logger      *zap.Logger
	now         func() time.Time
}

// NewDomain creates the billing backend. cache and publisher may be nil.
func NewDomain(
	repo Repository,
	cache ProfileCache,
	provider PaymentProvider,
	publisher Publisher,
	resolver *plan.Resolver,
	cfg Config,
	logger *zap.Logger,
) *Domain {
	if resolver == nil {
		resolver = plan.NewResolver(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	prices := make(map[plan.ID]string, len(cfg.PriceIDs))
	planByPrice := make(map[string]plan.ID, len(cfg.PriceIDs))
	for label, priceID := range cfg.PriceIDs {
		id, known := resolver.NormalizeLabel(label)
		if !known || priceID == "" {
			logger.Warn("ignoring price for unknown plan", zap.String("plan", label))
			continue
		}
		prices[id] = priceID
		planByPrice[priceID] = id
	}

	return &Domain{
		repo:        repo,
		cache:       cache,
		provider:    provider,
		publisher:   publisher,
		resolver:    resolver,
		prices:      prices,
		planByPrice: planByPrice,
		logger:      logger,
		now:         time.Now,
	}
}

var _ checkout.Backend = (*Domain)(nil)

// --- Checkout confirmation ---

// ConfirmCheckoutSession returns the plan label a checkout session resolved to.
// Sessions the provider has not confirmed yet report the lowest tier.
func (d *Domain) ConfirmCheckoutSession(ctx context.Context, sessionRef string) (string, error) {
	if sessionRef == "" {
		return "", ErrMissingSessionRef
	}

	s, err := d.repo.GetCheckoutSession(ctx, sessionRef)
	if err != nil {
		return "", err
	}
	if !s.IsCompleted() {
		return string(d.resolver.Lowest()), nil
	}
	return string(s.ConfirmedPlan), nil
}

// RefreshCurrentUserProfile loads the user's profile. Without force a cached
// profile may be returned. The plan label is always canonical.
func (d *Domain) RefreshCurrentUserProfile(ctx context.Context, userID uuid.UUID, force bool) (*account.Profile, error) {
	if !force && d.cache != nil {
		p, err := d.cache.Get(ctx, userID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			d.logger.Warn("profile cache read failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}

	p, err := d.repo.GetAccount(ctx, userID)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		p = account.NewFreeProfile(userID, string(d.resolver.Lowest()))
	case err != nil:
		return nil, fmt.Errorf("load account: %w", err)
	}

	id, known := d.resolver.NormalizeLabel(p.PlanLabel)
	if !known {
		d.logger.Warn("account has unknown plan label",
			zap.String("user_id", userID.String()),
			zap.String("plan", p.PlanLabel),
		)
	}
	p.PlanLabel = string(id)

	if d.cache != nil {
		if err := d.cache.Set(ctx, p); err != nil {
			d.logger.Warn("profile cache write failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	return p, nil
}

// --- Checkout creation ---

// CreateCheckoutForPlan starts a provider checkout for an upgrade to target.
func (d *Domain) CreateCheckoutForPlan(ctx context.Context, userID uuid.UUID, target plan.ID) (*CheckoutResult, error) {
	if !target.IsValid() || d.resolver.IsLowest(target) {
		return nil, ErrPlanNotPurchasable
	}

	profile, err := d.RefreshCurrentUserProfile(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	current := d.resolver.Normalize(profile.PlanLabel)
	if d.resolver.Compare(target, current) <= 0 {
		return nil, ErrNotAnUpgrade
	}

	priceID, ok := d.prices[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPriceNotConfigured, target)
	}

	ps, err := d.provider.CreateCheckoutSession(ctx, CheckoutParams{
		UserID:     userID,
		Plan:       target,
		PriceID:    priceID,
		CustomerID: profile.StripeCustomerID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	session := &CheckoutSession{
		ID:        ps.ID,
		UserID:    userID,
		Plan:      target,
		Baseline:  current,
		Status:    CheckoutPending,
		URL:       ps.URL,
		CreatedAt: d.now(),
	}
	if err := d.repo.CreateCheckoutSession(ctx, session); err != nil {
		return nil, fmt.Errorf("store checkout session: %w", err)
	}

	d.logger.Info("checkout session created",
		zap.String("user_id", userID.String()),
		zap.String("session_id", ps.ID),
		zap.String("plan", string(target)),
		zap.String("baseline", string(current)),
	)

	return &CheckoutResult{
		SessionID:   ps.ID,
		RedirectURL: ps.URL,
		Plan:        target,
		Baseline:    current,
	}, nil
}

// GetCheckoutSession returns a checkout session owned by userID.
func (d *Domain) GetCheckoutSession(ctx context.Context, userID uuid.UUID, sessionRef string) (*CheckoutSession, error) {
	if sessionRef == "" {
		return nil, ErrMissingSessionRef
	}
	s, err := d.repo.GetCheckoutSession(ctx, sessionRef)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, ErrCheckoutSessionNotFound
	}
	return s, nil
}

// --- Webhooks ---

// HandleWebhook verifies and applies a provider webhook delivery.
// An event that applied successfully is skipped on redelivery; one that failed
// is applied again.
func (d *Domain) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookOutcome, error) {
	evt, err := d.provider.ParseWebhook(payload, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	outcome := &WebhookOutcome{EventID: evt.ID, EventType: evt.Type}

	applied, err := d.repo.WebhookEventApplied(ctx, evt.ID)
	if err != nil {
		return nil, fmt.Errorf("check webhook event: %w", err)
	}
	if applied {
		d.logger.Debug("duplicate webhook event", zap.String("event_id", evt.ID))
		outcome.Result = WebhookDuplicate
		return outcome, nil
	}

	if err := d.repo.SaveWebhookEvent(ctx, NewWebhookEvent(evt.ID, evt.Type, string(payload))); err != nil {
		return nil, fmt.Errorf("store webhook event: %w", err)
	}

	result, applyErr := d.apply(ctx, evt)
	if err := d.repo.MarkWebhookEventProcessed(ctx, evt.ID, applyErr); err != nil {
		d.logger.Error("failed to mark webhook event processed", zap.String("event_id", evt.ID), zap.Error(err))
	}
	if applyErr != nil {
		d.logger.Error("webhook event failed",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type),
			zap.Error(applyErr),
		)
		outcome.Result = WebhookFailed
		return outcome, applyErr
	}

	outcome.Result = result
	return outcome, nil
}

func (d *Domain) apply(ctx context.Context, evt *ProviderEvent) (WebhookResult, error) {
	switch evt.Type {
	case EventCheckoutCompleted:
		return d.applyCheckoutCompleted(ctx, evt)
	case EventSubscriptionUpdated:
		return d.applySubscriptionUpdated(ctx, evt)
	case EventSubscriptionDeleted:
		return d.applySubscriptionDeleted(ctx, evt)
	default:
		d.logger.Debug("unhandled webhook event type", zap.String("event_type", evt.Type))
		return WebhookIgnored, nil
	}
}

func (d *Domain) applyCheckoutCompleted(ctx context.Context, evt *ProviderEvent) (WebhookResult, error) {
	session, err := d.repo.GetCheckoutSession(ctx, evt.CheckoutSessionID)
	if err != nil && !errors.Is(err, ErrCheckoutSessionNotFound) {
		return WebhookFailed, fmt.Errorf("load checkout session: %w", err)
	}

	userID := evt.UserID
	label := evt.PlanLabel
	if session != nil {
		userID = session.UserID
		if label == "" {
			label = string(session.Plan)
		}
	}
	if userID == uuid.Nil {
		return WebhookFailed, fmt.Errorf("%w: %s", ErrCheckoutSessionNotFound, evt.CheckoutSessionID)
	}
	if label == "" {
		label = d.planForPrice(evt.PriceID)
	}
	target := d.resolver.Normalize(label)

	if err := d.updateAccount(ctx, userID, target, func(p *account.Profile) {
		if evt.CustomerID != "" {
			p.StripeCustomerID = evt.CustomerID
		}
		if evt.SubscriptionID != "" {
			p.StripeSubscriptionID = evt.SubscriptionID
		}
		p.SubscriptionStatus = "active"
	}); err != nil {
		return WebhookFailed, err
	}

	if session != nil {
		session.Complete(target, d.now())
		if err := d.repo.UpdateCheckoutSession(ctx, session); err != nil {
			return WebhookFailed, fmt.Errorf("complete checkout session: %w", err)
		}
	}
	return WebhookApplied, nil
}

func (d *Domain) applySubscriptionUpdated(ctx context.Context, evt *ProviderEvent) (WebhookResult, error) {
	profile, err := d.repo.GetAccountByCustomer(ctx, evt.CustomerID)
	if errors.Is(err, ErrAccountNotFound) {
		d.logger.Warn("subscription update for unknown customer", zap.String("customer_id", evt.CustomerID))
		return WebhookIgnored, nil
	}
	if err != nil {
		return WebhookFailed, fmt.Errorf("load account: %w", err)
	}

	target := d.resolver.Normalize(profile.PlanLabel)
	label := evt.PlanLabel
	if label == "" {
		label = d.planForPrice(evt.PriceID)
	}
	if label != "" {
		target = d.resolver.Normalize(label)
	}
	if lapsedStatuses[evt.SubscriptionStatus] {
		target = d.resolver.Lowest()
	}

	if err := d.updateAccount(ctx, profile.UserID, target, func(p *account.Profile) {
		if evt.SubscriptionID != "" {
			p.StripeSubscriptionID = evt.SubscriptionID
		}
		p.SubscriptionStatus = evt.SubscriptionStatus
	}); err != nil {
		return WebhookFailed, err
	}
	return WebhookApplied, nil
}

func (d *Domain) applySubscriptionDeleted(ctx context.Context, evt *ProviderEvent) (WebhookResult, error) {
	profile, err := d.repo.GetAccountByCustomer(ctx, evt.CustomerID)
	if errors.Is(err, ErrAccountNotFound) {
		d.logger.Warn("subscription deletion for unknown customer", zap.String("customer_id", evt.CustomerID))
		return WebhookIgnored, nil
	}
	if err != nil {
		return WebhookFailed, fmt.Errorf("load account: %w", err)
	}

	if err := d.updateAccount(ctx, profile.UserID, d.resolver.Lowest(), func(p *account.Profile) {
		p.StripeSubscriptionID = ""
		p.SubscriptionStatus = "canceled"
	}); err != nil {
		return WebhookFailed, err
	}
	return WebhookApplied, nil
}

// updateAccount moves an account to target, creating it if needed, and
// publishes PlanChanged.
func (d *Domain) updateAccount(ctx context.Context, userID uuid.UUID, target plan.ID, mutate func(*account.Profile)) error {
	profile, err := d.repo.GetAccount(ctx, userID)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		profile = account.NewFreeProfile(userID, string(d.resolver.Lowest()))
	case err != nil:
		return fmt.Errorf("load account: %w", err)
	}

	from := d.resolver.Normalize(profile.PlanLabel)
	profile.PlanLabel = string(target)
	if mutate != nil {
		mutate(profile)
	}
	profile.UpdatedAt = d.now()

	if err := d.repo.SaveAccount(ctx, profile); err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	d.logger.Info("account plan updated",
		zap.String("user_id", userID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("status", profile.SubscriptionStatus),
	)

	if d.publisher != nil {
		d.publisher.Publish(ctx, NewPlanChanged(userID, from, target, profile.SubscriptionStatus))
	}
	return nil
}

func (d *Domain) planForPrice(priceID string) string {
	if id, ok := d.planByPrice[priceID]; ok {
		return string(id)
	}
	return ""
}
