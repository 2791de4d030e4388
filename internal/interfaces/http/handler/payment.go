package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	reconapp "github.com/biblioteca/backend/internal/application/reconciliation"
	"github.com/biblioteca/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stripe webhook bodies are small; anything larger is not from Stripe
const maxWebhookPayloadSize = 65536

// RedirectStatusProcessing tells the confirmation page the webhook will finish the job
const RedirectStatusProcessing = "PROCESSING"

// Reconciler settles payment sessions reported by the provider
type Reconciler interface {
	Reconcile(ctx context.Context, sessionID string, trigger reconapp.Trigger) (*reconapp.Result, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*reconapp.WebhookResult, error)
}

// PaymentHandler handles the Stripe success redirect and webhook. Both routes
// are public: the session id and the webhook signature authenticate them.
type PaymentHandler struct {
	BaseHandler
	reconciler      Reconciler
	confirmationURL string
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(reconciler Reconciler, confirmationURL string) *PaymentHandler {
	return &PaymentHandler{reconciler: reconciler, confirmationURL: confirmationURL}
}

// WebhookResponse acknowledges a webhook delivery
type WebhookResponse struct {
	Received  bool   `json:"received" example:"true"`
	EventID   string `json:"event_id,omitempty" example:"evt_1Q2w3E"`
	EventType string `json:"event_type,omitempty" example:"checkout.session.completed"`
	Outcome   string `json:"outcome,omitempty" example:"RECONCILED"`
	Message   string `json:"message,omitempty"`
}

// StripeSuccess godoc
// @ID           stripeSuccessRedirect
// @Summary      Stripe success redirect
// @Description  Reconciles the session synchronously and redirects the browser to the order confirmation page with sale_id and status.
// @Description  The redirect is issued even when reconciliation fails so the webhook can complete the sale.
// @Description  Boleto sales are left PENDING here; only the async payment webhook marks them PAID.
// @Tags         payments
// @Param        session_id query string true "Checkout session id"
// @Success      303
// @Failure      400 {object} ErrorResponse
// @Router       /payments/stripe/success [get]
func (h *PaymentHandler) StripeSuccess(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		h.BadRequest(c, "session_id is required")
		return
	}

	status := RedirectStatusProcessing
	result, err := h.reconciler.Reconcile(c.Request.Context(), sessionID, reconapp.TriggerRedirect)
	switch {
	case err == nil:
		status = string(result.Status)
	case errors.Is(err, reconapp.ErrSaleNotFound):
		h.HandleError(c, err)
		return
	default:
		logger.GetGinLogger(c).Warn("Redirect reconciliation failed, deferring to webhook",
			zap.String("sale_id", sessionID), zap.Error(err))
	}

	c.Redirect(http.StatusSeeOther, h.confirmationLocation(sessionID, status))
}

func (h *PaymentHandler) confirmationLocation(sessionID, status string) string {
	u, err := url.Parse(h.confirmationURL)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("sale_id", sessionID)
	q.Set("status", status)
	u.RawQuery = q.Encode()
	return u.String()
}

// StripeWebhook godoc
// @ID           stripeWebhook
// @Summary      Stripe webhook
// @Description  Verifies the Stripe-Signature header and applies checkout.session events.
// @Description  Business conflicts are acknowledged with 200 so Stripe stops retrying; infrastructure failures answer 500 so it retries.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Stripe webhook signature"
// @Success      200 {object} WebhookResponse
// @Failure      400 {object} WebhookResponse
// @Failure      413 {object} WebhookResponse
// @Failure      500 {object} WebhookResponse
// @Router       /payments/stripe/webhook [post]
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Failed to read request body"})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Missing Stripe-Signature header"})
		return
	}

	result, err := h.reconciler.HandleWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, reconapp.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Webhook signature verification failed"})
			return
		}
		if code := domainCode(err); code == "INVALID_WEBHOOK" {
			c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Malformed webhook payload"})
			return
		}
		logger.GetGinLogger(c).Error("Webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, WebhookResponse{Message: "Webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Outcome:   string(result.Outcome),
	})
}
