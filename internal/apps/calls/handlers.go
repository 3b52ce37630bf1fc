package calls

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/echodeskai/echodesk-backend/internal/account"
	"github.com/echodeskai/echodesk-backend/internal/config"
	"github.com/echodeskai/echodesk-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CallHandler struct {
	callService *CallService
	cfg         *config.Config
}

func NewCallHandler(callService *CallService, cfg *config.Config) *CallHandler {
	return &CallHandler{callService: callService, cfg: cfg}
}

// HandleVoiceWebhook ingests a finished call from the voice provider. The
// provider authenticates with a shared secret header, not a JWT.
func (h *CallHandler) HandleVoiceWebhook(c *fiber.Ctx) error {
	if h.cfg.VoiceWebhookSecret == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Webhooks not configured",
		})
	}

	secret := c.Get("X-Voice-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.cfg.VoiceWebhookSecret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	accountID, err := uuid.Parse(c.Params("account_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid account id",
		})
	}

	var payload VoiceCallPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook payload",
		})
	}

	call, err := h.callService.Ingest(accountID, &payload)
	if err != nil {
		if errors.Is(err, ErrInvalidOutcome) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		slog.Error("voice webhook processing failed", "provider_call_id", payload.CallID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process call",
		})
	}

	return c.JSON(fiber.Map{"received": true, "call_id": call.ID})
}

func (h *CallHandler) ListCalls(c *fiber.Ctx) error {
	accountID, err := account.GetAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	calls, total, err := h.callService.List(accountID, c.Query("outcome"), page, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidOutcome) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to list calls",
		})
	}

	return c.JSON(CallListResponse{Calls: calls, Total: total, Page: page, Limit: limit})
}

func (h *CallHandler) GetCall(c *fiber.Ctx) error {
	accountID, err := account.GetAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	callID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid call id",
		})
	}

	detail, err := h.callService.GetByID(accountID, callID)
	if err != nil {
		if errors.Is(err, ErrCallNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load call",
		})
	}

	return c.JSON(detail)
}

// AnalyzeCall returns the cached insight for a call, re-running the
// analysis when ?force=true.
func (h *CallHandler) AnalyzeCall(c *fiber.Ctx) error {
	accountID, err := account.GetAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	callID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid call id",
		})
	}

	insight, err := h.callService.Analyze(accountID, callID, c.QueryBool("force", false))
	if err != nil {
		if errors.Is(err, ErrCallNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		slog.Error("call analysis failed", "call_id", callID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to analyze call",
		})
	}

	return c.JSON(insight)
}

func (h *CallHandler) GetStats(c *fiber.Ctx) error {
	accountID, err := account.GetAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	days := c.QueryInt("days", 30)
	if days < 1 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	stats, err := h.callService.Stats(accountID, since)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to compute call stats",
		})
	}

	return c.JSON(stats)
}
