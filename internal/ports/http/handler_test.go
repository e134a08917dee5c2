package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/videolens/server/internal/domain/billing"
	"github.com/videolens/server/internal/domain/checkout"
	"github.com/videolens/server/internal/domain/entitlement"
	"github.com/videolens/server/internal/domain/plan"
	"github.com/videolens/server/internal/domain/usage"
	"github.com/videolens/server/internal/utils/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser stands in for the auth middleware.
func asUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// --- Mocks ---

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) CreateCheckoutForPlan(ctx context.Context, userID uuid.UUID, target plan.ID) (*billing.CheckoutResult, error) {
	args := m.Called(ctx, userID, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutResult), args.Error(1)
}

func (m *MockCheckoutService) GetCheckoutSession(ctx context.Context, userID uuid.UUID, sessionRef string) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, userID, sessionRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

type MockReconciliations struct {
	mock.Mock
}

func (m *MockReconciliations) Start(req checkout.Request) (uuid.UUID, checkout.Snapshot, error) {
	args := m.Called(req)
	return args.Get(0).(uuid.UUID), args.Get(1).(checkout.Snapshot), args.Error(2)
}

func (m *MockReconciliations) Get(id, owner uuid.UUID) (checkout.Snapshot, error) {
	args := m.Called(id, owner)
	return args.Get(0).(checkout.Snapshot), args.Error(1)
}

func (m *MockReconciliations) Retry(id, owner uuid.UUID) (checkout.Snapshot, error) {
	args := m.Called(id, owner)
	return args.Get(0).(checkout.Snapshot), args.Error(1)
}

func (m *MockReconciliations) Dismiss(id, owner uuid.UUID) error {
	args := m.Called(id, owner)
	return args.Error(0)
}

type MockEntitlementService struct {
	mock.Mock
}

func (m *MockEntitlementService) GetSnapshot(ctx context.Context, userID uuid.UUID) (*entitlement.Snapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entitlement.Snapshot), args.Error(1)
}

func (m *MockEntitlementService) RecommendUpgrade(ctx context.Context, userID uuid.UUID, reason usage.Reason) (*entitlement.Recommendation, error) {
	args := m.Called(ctx, userID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entitlement.Recommendation), args.Error(1)
}

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookOutcome, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.WebhookOutcome), args.Error(1)
}
