package handlers

import (
	"encoding/json"
	"log/slog"

	"github.com/echodeskai/echodesk-backend/internal/config"
	"github.com/echodeskai/echodesk-backend/internal/dto"
	"github.com/echodeskai/echodesk-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v82/webhook"
)

type WebhookHandler struct {
	subscriptionService *services.SubscriptionService
	cfg                 *config.Config
}

func NewWebhookHandler(subscriptionService *services.SubscriptionService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{subscriptionService: subscriptionService, cfg: cfg}
}

// HandleStripe verifies the event signature against the endpoint secret and
// dispatches by event type. Unhandled event types are acknowledged with 200
// so Stripe stops retrying them.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	if h.cfg.StripeWebhookSecret == "" {
		slog.Error("stripe webhook received but no webhook secret configured")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Webhooks not configured",
		})
	}

	event, err := webhook.ConstructEventWithOptions(
		c.Body(),
		c.Get("Stripe-Signature"),
		h.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		slog.Warn("stripe webhook signature verification failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid signature",
		})
	}

	switch event.Type {
	case "checkout.session.completed":
		var session dto.StripeCheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid event payload",
			})
		}
		if err := h.subscriptionService.HandleCheckoutCompleted(&session); err != nil {
			slog.Error("checkout.session.completed processing failed", "session_id", session.ID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to process event",
			})
		}

	case "customer.subscription.updated":
		var sub dto.StripeSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid event payload",
			})
		}
		if err := h.subscriptionService.HandleSubscriptionUpdated(&sub); err != nil {
			slog.Error("customer.subscription.updated processing failed", "subscription_id", sub.ID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to process event",
			})
		}

	case "customer.subscription.deleted":
		var sub dto.StripeSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid event payload",
			})
		}
		if err := h.subscriptionService.HandleSubscriptionDeleted(&sub); err != nil {
			slog.Error("customer.subscription.deleted processing failed", "subscription_id", sub.ID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to process event",
			})
		}

	default:
		slog.Debug("stripe webhook event ignored", "event_type", event.Type)
	}

	return c.JSON(fiber.Map{"received": true})
}
