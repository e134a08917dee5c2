package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/account"
	"github.com/videolens/server/internal/domain/billing"
	"github.com/videolens/server/internal/infra/persistence/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BillingRepository implements billing.Repository interface.
type BillingRepository struct {
	db *gorm.DB
}

// NewBillingRepository creates a new billing repository.
func NewBillingRepository(db *gorm.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

var _ billing.Repository = (*BillingRepository)(nil)

// --- Account Operations ---

func (r *BillingRepository) GetAccount(ctx context.Context, userID uuid.UUID) (*account.Profile, error) {
	var ent entity.AccountEntity
	err := r.db.WithContext(ctx).First(&ent, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return ent.ToDomain(), nil
}

func (r *BillingRepository) GetAccountByCustomer(ctx context.Context, customerID string) (*account.Profile, error) {
	if customerID == "" {
		return nil, billing.ErrAccountNotFound
	}

	var ent entity.AccountEntity
	err := r.db.WithContext(ctx).
		Where("stripe_customer_id = ?", customerID).
		First(&ent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account by customer: %w", err)
	}
	return ent.ToDomain(), nil
}

// SaveAccount inserts the account or overwrites its billing fields.
func (r *BillingRepository) SaveAccount(ctx context.Context, profile *account.Profile) error {
	ent := entity.FromDomainAccount(profile)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan_label",
				"credits_remaining",
				"stripe_customer_id",
				"stripe_subscription_id",
				"subscription_status",
				"updated_at",
			}),
		}).
		Create(ent).Error
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// --- Checkout Session Operations ---

func (r *BillingRepository) CreateCheckoutSession(ctx context.Context, session *billing.CheckoutSession) error {
	ent := entity.FromDomainCheckoutSession(session)
	if err := r.db.WithContext(ctx).Create(ent).Error; err != nil {
		return fmt.Errorf("create checkout session: %w", err)
	}
	return nil
}

func (r *BillingRepository) GetCheckoutSession(ctx context.Context, id string) (*billing.CheckoutSession, error) {
	var ent entity.CheckoutSessionEntity
	err := r.db.WithContext(ctx).First(&ent, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrCheckoutSessionNotFound
		}
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return ent.ToDomain(), nil
}

// UpdateCheckoutSession persists the mutable lifecycle fields of a session.
func (r *BillingRepository) UpdateCheckoutSession(ctx context.Context, session *billing.CheckoutSession) error {
	result := r.db.WithContext(ctx).
		Model(&entity.CheckoutSessionEntity{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"status":         string(session.Status),
			"confirmed_plan": string(session.ConfirmedPlan),
			"completed_at":   session.CompletedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update checkout session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return billing.ErrCheckoutSessionNotFound
	}
	return nil
}

// --- Webhook Event Operations ---

func (r *BillingRepository) WebhookEventApplied(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.WebhookEventEntity{}).
		Where("event_id = ? AND processed = ? AND error IS NULL", eventID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check webhook event applied: %w", err)
	}
	return count > 0, nil
}

func (r *BillingRepository) SaveWebhookEvent(ctx context.Context, event *billing.WebhookEvent) error {
	ent := entity.FromDomainWebhookEvent(event)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"data":         ent.Data,
				"processed":    false,
				"processed_at": nil,
				"error":        nil,
			}),
		}).
		Create(ent).Error
	if err != nil {
		return fmt.Errorf("save webhook event: %w", err)
	}
	return nil
}

func (r *BillingRepository) MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error {
	updates := map[string]interface{}{
		"processed":    true,
		"processed_at": gorm.Expr("NOW()"),
		"error":        nil,
	}
	if processErr != nil {
		updates["error"] = processErr.Error()
	}
	err := r.db.WithContext(ctx).
		Model(&entity.WebhookEventEntity{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}
