package handlers

import (
	"github.com/echodeskai/echodesk-backend/internal/billing"
	"github.com/echodeskai/echodesk-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// CatalogHandler serves the plan catalog. Listing is public so pricing
// pages can render it; price-id management is admin only.
type CatalogHandler struct {
	catalogs billing.CatalogSet
}

func NewCatalogHandler(catalogs billing.CatalogSet) *CatalogHandler {
	return &CatalogHandler{catalogs: catalogs}
}

// ListPlans returns the ordered plans of one family.
func (h *CatalogHandler) ListPlans(c *fiber.Ctx) error {
	family := c.Query("family")
	if family == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "family query parameter is required",
		})
	}

	catalog, ok := h.catalogs[family]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown plan family: " + family,
		})
	}

	plans := catalog.Plans()
	out := make([]dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, dto.PlanResponse{
			Code:         p.Code,
			Name:         p.Name,
			MonthlyPrice: p.MonthlyPrice.StringFixed(2),
			Purchasable:  p.StripePriceID != "",
		})
	}

	return c.JSON(fiber.Map{"family": family, "plans": out})
}

// SetPlanPrice updates a plan's Stripe price id at runtime (admin only).
// Clearing the price id takes a plan off sale without a redeploy.
func (h *CatalogHandler) SetPlanPrice(c *fiber.Ctx) error {
	family := c.Params("family")
	code := c.Params("code")

	catalog, ok := h.catalogs[family]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown plan family: " + family,
		})
	}

	var req dto.SetPriceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if !catalog.SetPriceID(code, req.StripePriceID) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown plan code: " + code,
		})
	}

	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Plan price updated successfully",
		"plan": fiber.Map{
			"family":          family,
			"code":            code,
			"stripe_price_id": req.StripePriceID,
		},
	})
}

// ClearPlanPrice removes a plan's Stripe price id, taking it off sale.
func (h *CatalogHandler) ClearPlanPrice(c *fiber.Ctx) error {
	family := c.Params("family")
	code := c.Params("code")

	catalog, ok := h.catalogs[family]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown plan family: " + family,
		})
	}

	if !catalog.SetPriceID(code, "") {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown plan code: " + code,
		})
	}

	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Plan taken off sale",
	})
}
