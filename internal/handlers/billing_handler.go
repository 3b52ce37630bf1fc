package handlers

import (
	"errors"
	"log/slog"

	"github.com/echodeskai/echodesk-backend/internal/account"
	"github.com/echodeskai/echodesk-backend/internal/billing"
	"github.com/echodeskai/echodesk-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// BillingHandler exposes the plan upgrade flow. One upgrader per plan
// family; the caller's JWT kind claim picks which one runs.
//
// The upgrade endpoint has its own error shape, a bare {"error": "..."}
// object, fixed by the billing frontend.
type BillingHandler struct {
	upgraders map[string]*billing.Upgrader
}

func NewBillingHandler(upgraders map[string]*billing.Upgrader) *BillingHandler {
	return &BillingHandler{upgraders: upgraders}
}

func (h *BillingHandler) Upgrade(c *fiber.Ctx) error {
	accountID, err := account.GetAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	upgrader, ok := h.upgraders[account.GetKind(c)]
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req dto.UpgradeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.NewPlanCode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "newPlanCode is required"})
	}

	result, err := upgrader.Upgrade(c.Context(), accountID, req.NewPlanCode)
	if err != nil {
		return h.upgradeError(c, err)
	}

	if result.RequiresCheckout {
		return c.JSON(fiber.Map{
			"success":          true,
			"requiresCheckout": true,
			"checkoutUrl":      result.CheckoutURL,
			"message":          result.Message,
		})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      result.Message,
		"previousPlan": result.PreviousPlan,
		"newPlan":      result.NewPlan,
	})
}

func (h *BillingHandler) upgradeError(c *fiber.Ctx, err error) error {
	var prorationErr *billing.ProrationError
	switch {
	case errors.Is(err, billing.ErrInvalidPlan),
		errors.Is(err, billing.ErrDowngradeNotAllowed),
		errors.Is(err, billing.ErrPlanNotPurchasable):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, billing.ErrAccountNotFound),
		errors.Is(err, billing.ErrPlanNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &prorationErr):
		// The processor's own message goes through so support can match it
		// against the Stripe dashboard.
		slog.Error("proration failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": prorationErr.Err.Error()})
	default:
		slog.Error("plan upgrade failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
