package calls

import (
	"github.com/echodeskai/echodesk-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CallsPlugin struct{}

func New() *CallsPlugin {
	return &CallsPlugin{}
}

func (p *CallsPlugin) ID() string { return "calls" }

func (p *CallsPlugin) Models() []interface{} {
	return []interface{}{
		&Call{},
		&CallInsight{},
	}
}

func (p *CallsPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewCallService(db, cfg)
	handler := NewCallHandler(svc, cfg)

	router.Get("/calls", handler.ListCalls)
	router.Get("/calls/stats", handler.GetStats)
	router.Get("/calls/:id", handler.GetCall)
	router.Post("/calls/:id/analyze", handler.AnalyzeCall)
}

// RegisterPublicRoutes mounts the voice provider webhook. It authenticates
// with a shared secret, so it lives outside the JWT group.
func (p *CallsPlugin) RegisterPublicRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewCallService(db, cfg)
	handler := NewCallHandler(svc, cfg)

	router.Post("/webhooks/voice/:account_id", handler.HandleVoiceWebhook)
}
