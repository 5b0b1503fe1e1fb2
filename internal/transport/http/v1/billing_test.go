package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lumenchat/lumenchat/internal/adapter/payment"
	"github.com/lumenchat/lumenchat/internal/domain"
	"github.com/lumenchat/lumenchat/tests/helpers"
	"github.com/stretchr/testify/assert"
)

func TestListPlans(t *testing.T) {
	e := newTestEcho()
	h, _ := newTestHandler(t, &scriptedLLM{})

	req := httptest.NewRequest(http.MethodGet, "/v1/billing/plans", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ListPlans(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Plans []domain.Plan `json:"plans"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Plans)
}

func TestCreateOrderUnknownPlan(t *testing.T) {
	e := newTestEcho()
	h, db := newTestHandler(t, &scriptedLLM{})
	user := helpers.SeedUser(t, db, "a@example.com", 0)

	req := httptest.NewRequest(http.MethodPost, "/v1/billing/orders", bytes.NewBufferString(`{"plan_id":"no-such-plan"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, user.ID)

	err := h.CreateOrder(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrderValidation(t *testing.T) {
	e := newTestEcho()
	h, db := newTestHandler(t, &scriptedLLM{})
	user := helpers.SeedUser(t, db, "a@example.com", 0)

	req := httptest.NewRequest(http.MethodPost, "/v1/billing/orders", bytes.NewBufferString(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, user.ID)

	err := h.CreateOrder(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBillingWebhookSettlesOrder(t *testing.T) {
	e := newTestEcho()
	h, db := newTestHandler(t, &scriptedLLM{})
	user := helpers.SeedUser(t, db, "a@example.com", 0)

	order := &domain.Order{
		OrderID:     uuid.New().String(),
		UserID:      user.ID,
		PlanID:      "pack-100",
		AmountCents: 500,
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Now(),
	}
	assert.NoError(t, db.CreateOrder(context.Background(), order))

	body, _ := json.Marshal(map[string]string{"order_id": order.OrderID, "status": "paid"})
	req := httptest.NewRequest(http.MethodPost, "/v1/billing/webhook", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Webhook-Signature", payment.Sign("whsec-test", body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.BillingWebhook(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	got, err := db.GetUser(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 100, got.Credits)
}

func TestBillingWebhookBadSignature(t *testing.T) {
	e := newTestEcho()
	h, _ := newTestHandler(t, &scriptedLLM{})

	body := []byte(`{"order_id":"o1","status":"paid"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/billing/webhook", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Webhook-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.BillingWebhook(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
