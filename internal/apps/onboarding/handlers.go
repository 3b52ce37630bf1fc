package onboarding

import (
	"errors"

	"github.com/echodeskai/echodesk-backend/internal/account"
	"github.com/echodeskai/echodesk-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OnboardingHandler struct {
	service *OnboardingService
}

func NewOnboardingHandler(service *OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{service: service}
}

func (h *OnboardingHandler) GetStatus(c *fiber.Ctx) error {
	accountID, err := account.GetAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	status, err := h.service.Status(accountID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load onboarding status",
		})
	}

	return c.JSON(status)
}

func (h *OnboardingHandler) CompleteStep(c *fiber.Ctx) error {
	accountID, err := account.GetAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req CompleteStepRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	state, err := h.service.CompleteStep(accountID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStep), errors.Is(err, ErrStepOutOfOrder), errors.Is(err, ErrAlreadyDone):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to complete step",
			})
		}
	}

	return c.JSON(state)
}

// LookupPasscode is public; prospects enter the code from a sales email.
func (h *OnboardingHandler) LookupPasscode(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Passcode is required",
		})
	}

	result, err := h.service.LookupPasscode(code)
	if err != nil {
		if errors.Is(err, ErrPasscodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to look up passcode",
		})
	}

	return c.JSON(result)
}

func (h *OnboardingHandler) CreatePasscode(c *fiber.Ctx) error {
	var req CreatePasscodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	passcode, err := h.service.CreatePasscode(&req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(passcode)
}

func (h *OnboardingHandler) ListPasscodes(c *fiber.Ctx) error {
	passcodes, err := h.service.ListPasscodes()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to list passcodes",
		})
	}

	return c.JSON(fiber.Map{"passcodes": passcodes})
}

func (h *OnboardingHandler) DeletePasscode(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid passcode id",
		})
	}

	if err := h.service.DeletePasscode(id); err != nil {
		if errors.Is(err, ErrPasscodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to delete passcode",
		})
	}

	return c.JSON(fiber.Map{"message": "Passcode deleted successfully"})
}
