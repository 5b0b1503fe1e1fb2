package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lumenchat/lumenchat/internal/adapter/payment"
	"github.com/lumenchat/lumenchat/internal/domain"
)

func TestCreateOrder(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			OrderID     string `json:"order_id"`
			AmountCents int    `json:"amount_cents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode checkout request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"cs_1","url":"https://pay.example.com/%s"}`, req.OrderID)
	}))
	defer gateway.Close()

	svc, db, _ := newTestService(t, &scriptedLLM{})
	svc.payment = payment.NewClient(gateway.URL, "", time.Second)
	user := seedUser(t, db, 0)

	order, checkoutURL, err := svc.CreateOrder(context.Background(), user.ID, "pack-100")
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("unexpected status: %q", order.Status)
	}
	if checkoutURL != "https://pay.example.com/"+order.OrderID {
		t.Fatalf("unexpected checkout url: %q", checkoutURL)
	}

	stored, err := db.GetOrder(context.Background(), order.OrderID)
	if err != nil || stored == nil {
		t.Fatalf("expected stored order, got %v / %v", stored, err)
	}
}

func TestCreateOrderUnknownPlan(t *testing.T) {
	svc, db, _ := newTestService(t, &scriptedLLM{})
	user := seedUser(t, db, 0)

	_, _, err := svc.CreateOrder(context.Background(), user.ID, "no-such-plan")
	if !errors.Is(err, domain.ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func signedWebhook(t *testing.T, secret, orderID, status string) ([]byte, string) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"order_id": orderID, "status": status})
	if err != nil {
		t.Fatalf("marshal webhook: %v", err)
	}
	return body, payment.Sign(secret, body)
}

func TestHandleWebhook(t *testing.T) {
	svc, db, _ := newTestService(t, &scriptedLLM{})
	user := seedUser(t, db, 0)

	order := &domain.Order{
		OrderID:     uuid.New().String(),
		UserID:      user.ID,
		PlanID:      "pack-100",
		AmountCents: 500,
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := db.CreateOrder(context.Background(), order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	body, sig := signedWebhook(t, "whsec-test", order.OrderID, "paid")
	if err := svc.HandleWebhook(context.Background(), body, sig); err != nil {
		t.Fatalf("HandleWebhook failed: %v", err)
	}

	got, err := db.GetUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Credits != 100 {
		t.Fatalf("expected 100 credits, got %d", got.Credits)
	}

	// Replays settle at most once.
	if err := svc.HandleWebhook(context.Background(), body, sig); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	got, err = db.GetUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Credits != 100 {
		t.Fatalf("expected replay not to double-grant, got %d", got.Credits)
	}
}

func TestHandleWebhookBadSignature(t *testing.T) {
	svc, _, _ := newTestService(t, &scriptedLLM{})

	body, _ := signedWebhook(t, "whsec-test", "o1", "paid")
	err := svc.HandleWebhook(context.Background(), body, "deadbeef")
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestHandleWebhookUnknownOrder(t *testing.T) {
	svc, _, _ := newTestService(t, &scriptedLLM{})

	body, sig := signedWebhook(t, "whsec-test", uuid.New().String(), "paid")
	err := svc.HandleWebhook(context.Background(), body, sig)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestHandleWebhookIgnoresOtherStatuses(t *testing.T) {
	svc, db, _ := newTestService(t, &scriptedLLM{})
	user := seedUser(t, db, 0)

	order := &domain.Order{
		OrderID:     uuid.New().String(),
		UserID:      user.ID,
		PlanID:      "pack-100",
		AmountCents: 500,
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := db.CreateOrder(context.Background(), order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	body, sig := signedWebhook(t, "whsec-test", order.OrderID, "failed")
	if err := svc.HandleWebhook(context.Background(), body, sig); err != nil {
		t.Fatalf("HandleWebhook failed: %v", err)
	}

	stored, err := db.GetOrder(context.Background(), order.OrderID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if stored.Status != domain.OrderStatusPending {
		t.Fatalf("expected order still pending, got %q", stored.Status)
	}
}

func TestPlansCatalog(t *testing.T) {
	svc, _, _ := newTestService(t, &scriptedLLM{})

	plans := svc.Plans()
	if len(plans) == 0 {
		t.Fatalf("expected a non-empty plan catalog")
	}
	for _, plan := range plans {
		if plan.ID == "" || plan.AmountCents <= 0 {
			t.Fatalf("unexpected plan: %+v", plan)
		}
	}
}
