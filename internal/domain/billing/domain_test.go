package billing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/videolens/server/internal/domain/account"
	"github.com/videolens/server/internal/domain/plan"
	"github.com/videolens/server/internal/infra/events"
	"go.uber.org/zap"
)

// --- Mock Implementations ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetAccount(ctx context.Context, userID uuid.UUID) (*account.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Profile), args.Error(1)
}

func (m *MockRepository) GetAccountByCustomer(ctx context.Context, customerID string) (*account.Profile, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Profile), args.Error(1)
}

func (m *MockRepository) SaveAccount(ctx context.Context, profile *account.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockRepository) CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockRepository) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckoutSession), args.Error(1)
}

func (m *MockRepository) UpdateCheckoutSession(ctx context.Context, session *CheckoutSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockRepository) WebhookEventApplied(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) SaveWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockRepository) MarkWebhookEventProcessed(ctx context.Context, eventID string, err error) error {
	args := m.Called(ctx, eventID, err)
	return args.Error(0)
}

type MockProfileCache struct {
	mock.Mock
}

func (m *MockProfileCache) Get(ctx context.Context, userID uuid.UUID) (*account.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Profile), args.Error(1)
}

func (m *MockProfileCache) Set(ctx context.Context, profile *account.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*ProviderSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProviderSession), args.Error(1)
}

func (m *MockPaymentProvider) ParseWebhook(payload []byte, signature string) (*ProviderEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProviderEvent), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return 0
}

func (p *recordingPublisher) planChanges() []PlanChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PlanChanged
	for _, e := range p.events {
		if pc, ok := e.(PlanChanged); ok {
			out = append(out, pc)
		}
	}
	return out
}

// --- Test Helpers ---

type testDeps struct {
	repo      *MockRepository
	cache     *MockProfileCache
	provider  *MockPaymentProvider
	publisher *recordingPublisher
}

func newTestDomain() (*Domain, *testDeps) {
	deps := &testDeps{
		repo:      new(MockRepository),
		cache:     new(MockProfileCache),
		provider:  new(MockPaymentProvider),
		publisher: &recordingPublisher{},
	}
	cfg := Config{PriceIDs: map[string]string{
		"student": "price_student",
		"starter": "price_starter",
		"pro":     "price_pro",
		"team":    "price_team",
		"gold":    "price_gold",
	}}
	d := NewDomain(deps.repo, deps.cache, deps.provider, deps.publisher, plan.NewResolver(nil), cfg, zap.NewNop())
	return d, deps
}

func profileOn(userID uuid.UUID, label string) *account.Profile {
	return &account.Profile{UserID: userID, PlanLabel: label}
}

// --- Tests ---

func TestDomain_ConfirmCheckoutSession(t *testing.T) {
	ctx := context.Background()

	t.Run("completed session returns confirmed plan", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.repo.On("GetCheckoutSession", ctx, "cs_1").
			Return(&CheckoutSession{ID: "cs_1", Status: CheckoutCompleted, ConfirmedPlan: plan.Pro}, nil)

		label, err := d.ConfirmCheckoutSession(ctx, "cs_1")
		require.NoError(t, err)
		assert.Equal(t, "pro", label)
	})

	t.Run("pending session reports lowest tier", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.repo.On("GetCheckoutSession", ctx, "cs_1").
			Return(&CheckoutSession{ID: "cs_1", Status: CheckoutPending, Plan: plan.Pro}, nil)

		label, err := d.ConfirmCheckoutSession(ctx, "cs_1")
		require.NoError(t, err)
		assert.Equal(t, "free", label)
	})

	t.Run("unknown session", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.repo.On("GetCheckoutSession", ctx, "cs_x").Return(nil, ErrCheckoutSessionNotFound)

		_, err := d.ConfirmCheckoutSession(ctx, "cs_x")
		assert.ErrorIs(t, err, ErrCheckoutSessionNotFound)
	})

	t.Run("empty reference", func(t *testing.T) {
		d, _ := newTestDomain()
		_, err := d.ConfirmCheckoutSession(ctx, "")
		assert.ErrorIs(t, err, ErrMissingSessionRef)
	})
}

func TestDomain_RefreshCurrentUserProfile(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("cached profile served without force", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.cache.On("Get", ctx, userID).Return(profileOn(userID, "pro"), nil)

		p, err := d.RefreshCurrentUserProfile(ctx, userID, false)
		require.NoError(t, err)
		assert.Equal(t, "pro", p.PlanLabel)
		deps.repo.AssertNotCalled(t, "GetAccount", mock.Anything, mock.Anything)
	})

	t.Run("cache miss loads and normalizes", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.cache.On("Get", ctx, userID).Return(nil, ErrCacheMiss)
		deps.repo.On("GetAccount", ctx, userID).Return(profileOn(userID, " Premium_Monthly "), nil)
		deps.cache.On("Set", ctx, mock.MatchedBy(func(p *account.Profile) bool {
			return p.PlanLabel == "pro"
		})).Return(nil)

		p, err := d.RefreshCurrentUserProfile(ctx, userID, false)
		require.NoError(t, err)
		assert.Equal(t, "pro", p.PlanLabel)
		deps.cache.AssertExpectations(t)
	})

	t.Run("force bypasses cache", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.repo.On("GetAccount", ctx, userID).Return(profileOn(userID, "team"), nil)
		deps.cache.On("Set", ctx, mock.Anything).Return(errors.New("redis down"))

		p, err := d.RefreshCurrentUserProfile(ctx, userID, true)
		require.NoError(t, err)
		assert.Equal(t, "team", p.PlanLabel)
		deps.cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("missing account is free", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.repo.On("GetAccount", ctx, userID).Return(nil, ErrAccountNotFound)
		deps.cache.On("Set", ctx, mock.Anything).Return(nil)

		p, err := d.RefreshCurrentUserProfile(ctx, userID, true)
		require.NoError(t, err)
		assert.Equal(t, userID, p.UserID)
		assert.Equal(t, "free", p.PlanLabel)
		assert.Nil(t, p.CreditsRemaining)
	})

	t.Run("database error", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.repo.On("GetAccount", ctx, userID).Return(nil, errors.New("connection refused"))

		_, err := d.RefreshCurrentUserProfile(ctx, userID, true)
		assert.Error(t, err)
	})
}

func TestDomain_CreateCheckoutForPlan(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("creates session with current plan as baseline", func(t *testing.T) {
		d, deps := newTestDomain()
		current := profileOn(userID, "student")
		current.StripeCustomerID = "cus_1"
		deps.repo.On("GetAccount", ctx, userID).Return(current, nil)
		deps.cache.On("Set", ctx, mock.Anything).Return(nil)
		deps.provider.On("CreateCheckoutSession", ctx, CheckoutParams{
			UserID:     userID,
			Plan:       plan.Pro,
			PriceID:    "price_pro",
			CustomerID: "cus_1",
		}).Return(&ProviderSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil)
		deps.repo.On("CreateCheckoutSession", ctx, mock.MatchedBy(func(s *CheckoutSession) bool {
			return s.ID == "cs_1" && s.Plan == plan.Pro && s.Baseline == plan.Student && s.Status == CheckoutPending
		})).Return(nil)

		res, err := d.CreateCheckoutForPlan(ctx, userID, plan.Pro)
		require.NoError(t, err)
		assert.Equal(t, "cs_1", res.SessionID)
		assert.Equal(t, "https://checkout.example/cs_1", res.RedirectURL)
		assert.Equal(t, plan.Student, res.Baseline)
		deps.repo.AssertExpectations(t)
	})

	t.Run("lowest tier is not purchasable", func(t *testing.T) {
		d, _ := newTestDomain()
		_, err := d.CreateCheckoutForPlan(ctx, userID, plan.Free)
		assert.ErrorIs(t, err, ErrPlanNotPurchasable)
	})

	t.Run("unknown plan is not purchasable", func(t *testing.T) {
		d, _ := newTestDomain()
		_, err := d.CreateCheckoutForPlan(ctx, userID, plan.ID("gold"))
		assert.ErrorIs(t, err, ErrPlanNotPurchasable)
	})

	t.Run("same or lower plan is rejected", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.repo.On("GetAccount", ctx, userID).Return(profileOn(userID, "pro"), nil)
		deps.cache.On("Set", ctx, mock.Anything).Return(nil)

		_, err := d.CreateCheckoutForPlan(ctx, userID, plan.Pro)
		assert.ErrorIs(t, err, ErrNotAnUpgrade)

		_, err = d.CreateCheckoutForPlan(ctx, userID, plan.Starter)
		assert.ErrorIs(t, err, ErrNotAnUpgrade)
	})

	t.Run("missing price", func(t *testing.T) {
		deps := &testDeps{repo: new(MockRepository), cache: new(MockProfileCache), provider: new(MockPaymentProvider)}
		d := NewDomain(deps.repo, deps.cache, deps.provider, nil, nil, Config{}, nil)
		deps.repo.On("GetAccount", ctx, userID).Return(nil, ErrAccountNotFound)
		deps.cache.On("Set", ctx, mock.Anything).Return(nil)

		_, err := d.CreateCheckoutForPlan(ctx, userID, plan.Pro)
		assert.ErrorIs(t, err, ErrPriceNotConfigured)
	})

	t.Run("provider failure", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.repo.On("GetAccount", ctx, userID).Return(nil, ErrAccountNotFound)
		deps.cache.On("Set", ctx, mock.Anything).Return(nil)
		deps.provider.On("CreateCheckoutSession", ctx, mock.Anything).Return(nil, errors.New("circuit open"))

		_, err := d.CreateCheckoutForPlan(ctx, userID, plan.Starter)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
		deps.repo.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	})
}

func TestDomain_GetCheckoutSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	d, deps := newTestDomain()
	deps.repo.On("GetCheckoutSession", ctx, "cs_1").
		Return(&CheckoutSession{ID: "cs_1", UserID: userID, Plan: plan.Pro, Baseline: plan.Student}, nil)

	s, err := d.GetCheckoutSession(ctx, userID, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, plan.Student, s.Baseline)

	_, err = d.GetCheckoutSession(ctx, uuid.New(), "cs_1")
	assert.ErrorIs(t, err, ErrCheckoutSessionNotFound)
}

func TestDomain_HandleWebhook(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"id":"evt_1"}`)
	userID := uuid.New()

	t.Run("invalid signature", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.provider.On("ParseWebhook", payload, "bad").Return(nil, errors.New("signature mismatch"))

		_, err := d.HandleWebhook(ctx, payload, "bad")
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("applied event is skipped on redelivery", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.provider.On("ParseWebhook", payload, "sig").
			Return(&ProviderEvent{ID: "evt_1", Type: EventCheckoutCompleted}, nil)
		deps.repo.On("WebhookEventApplied", ctx, "evt_1").Return(true, nil)

		out, err := d.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, WebhookDuplicate, out.Result)
		deps.repo.AssertNotCalled(t, "SaveWebhookEvent", mock.Anything, mock.Anything)
	})

	t.Run("checkout completed upgrades account and session", func(t *testing.T) {
		d, deps := newTestDomain()
		session := &CheckoutSession{ID: "cs_1", UserID: userID, Plan: plan.Pro, Baseline: plan.Free, Status: CheckoutPending}
		deps.provider.On("ParseWebhook", payload, "sig").Return(&ProviderEvent{
			ID:                "evt_1",
			Type:              EventCheckoutCompleted,
			CheckoutSessionID: "cs_1",
			CustomerID:        "cus_1",
			SubscriptionID:    "sub_1",
		}, nil)
		deps.repo.On("WebhookEventApplied", ctx, "evt_1").Return(false, nil)
		deps.repo.On("SaveWebhookEvent", ctx, mock.Anything).Return(nil)
		deps.repo.On("GetCheckoutSession", ctx, "cs_1").Return(session, nil)
		deps.repo.On("GetAccount", ctx, userID).Return(nil, ErrAccountNotFound)
		deps.repo.On("SaveAccount", ctx, mock.MatchedBy(func(p *account.Profile) bool {
			return p.UserID == userID && p.PlanLabel == "pro" &&
				p.StripeCustomerID == "cus_1" && p.StripeSubscriptionID == "sub_1" &&
				p.SubscriptionStatus == "active"
		})).Return(nil)
		deps.repo.On("UpdateCheckoutSession", ctx, session).Return(nil)
		deps.repo.On("MarkWebhookEventProcessed", ctx, "evt_1", nil).Return(nil)

		out, err := d.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, WebhookApplied, out.Result)
		assert.Equal(t, EventCheckoutCompleted, out.EventType)
		assert.True(t, session.IsCompleted())
		assert.Equal(t, plan.Pro, session.ConfirmedPlan)

		changes := deps.publisher.planChanges()
		require.Len(t, changes, 1)
		assert.Equal(t, plan.Free, changes[0].From)
		assert.Equal(t, plan.Pro, changes[0].To)
		assert.True(t, changes[0].Changed())
		deps.repo.AssertExpectations(t)
	})

	t.Run("checkout completed without stored session uses metadata", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.provider.On("ParseWebhook", payload, "sig").Return(&ProviderEvent{
			ID:                "evt_2",
			Type:              EventCheckoutCompleted,
			CheckoutSessionID: "cs_9",
			UserID:            userID,
			PlanLabel:         "Business",
		}, nil)
		deps.repo.On("WebhookEventApplied", ctx, "evt_2").Return(false, nil)
		deps.repo.On("SaveWebhookEvent", ctx, mock.Anything).Return(nil)
		deps.repo.On("GetCheckoutSession", ctx, "cs_9").Return(nil, ErrCheckoutSessionNotFound)
		deps.repo.On("GetAccount", ctx, userID).Return(profileOn(userID, "starter"), nil)
		deps.repo.On("SaveAccount", ctx, mock.MatchedBy(func(p *account.Profile) bool {
			return p.PlanLabel == "team"
		})).Return(nil)
		deps.repo.On("MarkWebhookEventProcessed", ctx, "evt_2", nil).Return(nil)

		out, err := d.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, WebhookApplied, out.Result)
		deps.repo.AssertNotCalled(t, "UpdateCheckoutSession", mock.Anything, mock.Anything)
	})

	t.Run("checkout completed with no owner fails", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.provider.On("ParseWebhook", payload, "sig").Return(&ProviderEvent{
			ID:                "evt_3",
			Type:              EventCheckoutCompleted,
			CheckoutSessionID: "cs_9",
		}, nil)
		deps.repo.On("WebhookEventApplied", ctx, "evt_3").Return(false, nil)
		deps.repo.On("SaveWebhookEvent", ctx, mock.Anything).Return(nil)
		deps.repo.On("GetCheckoutSession", ctx, "cs_9").Return(nil, ErrCheckoutSessionNotFound)
		deps.repo.On("MarkWebhookEventProcessed", ctx, "evt_3", mock.Anything).Return(nil)

		out, err := d.HandleWebhook(ctx, payload, "sig")
		assert.ErrorIs(t, err, ErrCheckoutSessionNotFound)
		assert.Equal(t, WebhookFailed, out.Result)
	})

	t.Run("failed event is applied on redelivery", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.provider.On("ParseWebhook", payload, "sig").Return(&ProviderEvent{
			ID:                "evt_retry",
			Type:              EventCheckoutCompleted,
			CheckoutSessionID: "cs_9",
			UserID:            userID,
			PlanLabel:         "pro",
		}, nil)
		deps.repo.On("WebhookEventApplied", ctx, "evt_retry").Return(false, nil)
		deps.repo.On("SaveWebhookEvent", ctx, mock.Anything).Return(nil)
		deps.repo.On("GetCheckoutSession", ctx, "cs_9").Return(nil, ErrCheckoutSessionNotFound)
		deps.repo.On("GetAccount", ctx, userID).Return(profileOn(userID, "free"), nil)
		deps.repo.On("SaveAccount", ctx, mock.Anything).Return(errors.New("db: connection reset")).Once()
		deps.repo.On("SaveAccount", ctx, mock.Anything).Return(nil).Once()
		deps.repo.On("MarkWebhookEventProcessed", ctx, "evt_retry", mock.Anything).Return(nil)

		out, err := d.HandleWebhook(ctx, payload, "sig")
		require.Error(t, err)
		assert.Equal(t, WebhookFailed, out.Result)
		assert.Empty(t, deps.publisher.planChanges())

		out, err = d.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, WebhookApplied, out.Result)

		deps.repo.AssertNumberOfCalls(t, "SaveWebhookEvent", 2)
		deps.repo.AssertNumberOfCalls(t, "SaveAccount", 2)
		changes := deps.publisher.planChanges()
		require.Len(t, changes, 1)
		assert.Equal(t, plan.Pro, changes[0].To)
	})

	t.Run("subscription updated maps price to plan", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.provider.On("ParseWebhook", payload, "sig").Return(&ProviderEvent{
			ID:                 "evt_4",
			Type:               EventSubscriptionUpdated,
			CustomerID:         "cus_1",
			SubscriptionID:     "sub_1",
			SubscriptionStatus: "active",
			PriceID:            "price_team",
		}, nil)
		deps.repo.On("WebhookEventApplied", ctx, "evt_4").Return(false, nil)
		deps.repo.On("SaveWebhookEvent", ctx, mock.Anything).Return(nil)
		deps.repo.On("GetAccountByCustomer", ctx, "cus_1").Return(profileOn(userID, "pro"), nil)
		deps.repo.On("GetAccount", ctx, userID).Return(profileOn(userID, "pro"), nil)
		deps.repo.On("SaveAccount", ctx, mock.MatchedBy(func(p *account.Profile) bool {
			return p.PlanLabel == "team" && p.SubscriptionStatus == "active"
		})).Return(nil)
		deps.repo.On("MarkWebhookEventProcessed", ctx, "evt_4", nil).Return(nil)

		out, err := d.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, WebhookApplied, out.Result)
	})

	t.Run("lapsed subscription downgrades", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.provider.On("ParseWebhook", payload, "sig").Return(&ProviderEvent{
			ID:                 "evt_5",
			Type:               EventSubscriptionUpdated,
			CustomerID:         "cus_1",
			SubscriptionStatus: "unpaid",
			PriceID:            "price_pro",
		}, nil)
		deps.repo.On("WebhookEventApplied", ctx, "evt_5").Return(false, nil)
		deps.repo.On("SaveWebhookEvent", ctx, mock.Anything).Return(nil)
		deps.repo.On("GetAccountByCustomer", ctx, "cus_1").Return(profileOn(userID, "pro"), nil)
		deps.repo.On("GetAccount", ctx, userID).Return(profileOn(userID, "pro"), nil)
		deps.repo.On("SaveAccount", ctx, mock.MatchedBy(func(p *account.Profile) bool {
			return p.PlanLabel == "free" && p.SubscriptionStatus == "unpaid"
		})).Return(nil)
		deps.repo.On("MarkWebhookEventProcessed", ctx, "evt_5", nil).Return(nil)

		_, err := d.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
	})

	t.Run("subscription deleted downgrades", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.provider.On("ParseWebhook", payload, "sig").Return(&ProviderEvent{
			ID:         "evt_6",
			Type:       EventSubscriptionDeleted,
			CustomerID: "cus_1",
		}, nil)
		deps.repo.On("WebhookEventApplied", ctx, "evt_6").Return(false, nil)
		deps.repo.On("SaveWebhookEvent", ctx, mock.Anything).Return(nil)
		existing := profileOn(userID, "team")
		existing.StripeSubscriptionID = "sub_1"
		deps.repo.On("GetAccountByCustomer", ctx, "cus_1").Return(existing, nil)
		deps.repo.On("GetAccount", ctx, userID).Return(existing, nil)
		deps.repo.On("SaveAccount", ctx, mock.MatchedBy(func(p *account.Profile) bool {
			return p.PlanLabel == "free" && p.StripeSubscriptionID == "" && p.SubscriptionStatus == "canceled"
		})).Return(nil)
		deps.repo.On("MarkWebhookEventProcessed", ctx, "evt_6", nil).Return(nil)

		_, err := d.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)

		changes := deps.publisher.planChanges()
		require.Len(t, changes, 1)
		assert.Equal(t, plan.Team, changes[0].From)
		assert.Equal(t, plan.Free, changes[0].To)
	})

	t.Run("unknown customer is ignored", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.provider.On("ParseWebhook", payload, "sig").Return(&ProviderEvent{
			ID:         "evt_7",
			Type:       EventSubscriptionDeleted,
			CustomerID: "cus_x",
		}, nil)
		deps.repo.On("WebhookEventApplied", ctx, "evt_7").Return(false, nil)
		deps.repo.On("SaveWebhookEvent", ctx, mock.Anything).Return(nil)
		deps.repo.On("GetAccountByCustomer", ctx, "cus_x").Return(nil, ErrAccountNotFound)
		deps.repo.On("MarkWebhookEventProcessed", ctx, "evt_7", nil).Return(nil)

		out, err := d.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, WebhookIgnored, out.Result)
		assert.Empty(t, deps.publisher.planChanges())
	})

	t.Run("unhandled event type is ignored", func(t *testing.T) {
		d, deps := newTestDomain()
		deps.provider.On("ParseWebhook", payload, "sig").
			Return(&ProviderEvent{ID: "evt_8", Type: "invoice.paid"}, nil)
		deps.repo.On("WebhookEventApplied", ctx, "evt_8").Return(false, nil)
		deps.repo.On("SaveWebhookEvent", ctx, mock.Anything).Return(nil)
		deps.repo.On("MarkWebhookEventProcessed", ctx, "evt_8", nil).Return(nil)

		out, err := d.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, WebhookIgnored, out.Result)
	})
}

func TestCacheInvalidator(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	cache := new(MockProfileCache)
	cache.On("Invalidate", ctx, userID).Return(nil).Once()

	bus := events.NewBus(zap.NewNop())
	bus.Register(NewCacheInvalidator(cache, zap.NewNop()))

	failed := bus.Publish(ctx, NewPlanChanged(userID, plan.Free, plan.Pro, "active"))
	assert.Equal(t, 0, failed)
	cache.AssertExpectations(t)
}
