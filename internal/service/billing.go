package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lumenchat/lumenchat/internal/adapter/payment"
	"github.com/lumenchat/lumenchat/internal/domain"
)

// Plans returns the purchasable plan catalog.
func (s *Service) Plans() []domain.Plan {
	return domain.Plans()
}

// CreateOrder opens a pending order for a plan and returns the gateway's
// checkout URL.
func (s *Service) CreateOrder(ctx context.Context, userID, planID string) (*domain.Order, string, error) {
	plan, ok := domain.PlanByID(planID)
	if !ok {
		return nil, "", domain.ErrPlanNotFound
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, "", domain.ErrUserNotFound
	}

	order := &domain.Order{
		OrderID:     uuid.New().String(),
		UserID:      userID,
		PlanID:      plan.ID,
		AmountCents: plan.AmountCents,
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, "", fmt.Errorf("failed to create order: %w", err)
	}

	session, err := s.payment.CreateCheckout(ctx, order, plan)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open checkout: %w", err)
	}
	return order, session.URL, nil
}

// webhookEvent is the gateway's settlement callback body.
type webhookEvent struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// HandleWebhook settles an order from a gateway callback. Replays are
// applied at most once.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !payment.VerifySignature(s.config.PaymentWebhookSecret, body, signature) {
		return domain.ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to unmarshal webhook: %w", err)
	}
	if event.Status != "paid" {
		return nil
	}

	order, err := s.store.GetOrder(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return domain.ErrOrderNotFound
	}

	plan, ok := domain.PlanByID(order.PlanID)
	if !ok {
		return domain.ErrPlanNotFound
	}

	applied, err := s.store.MarkOrderPaid(ctx, order.OrderID, plan.Credits, plan.Premium)
	if err != nil {
		return fmt.Errorf("failed to settle order: %w", err)
	}
	if !applied {
		log.Printf("WARN: webhook replay for settled order %s", order.OrderID)
	}
	return nil
}
