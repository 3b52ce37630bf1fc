package onboarding

import (
	"github.com/echodeskai/echodesk-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type OnboardingPlugin struct{}

func New() *OnboardingPlugin {
	return &OnboardingPlugin{}
}

func (p *OnboardingPlugin) ID() string { return "onboarding" }

func (p *OnboardingPlugin) Models() []interface{} {
	return []interface{}{
		&OnboardingState{},
		&DemoPasscode{},
	}
}

func (p *OnboardingPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewOnboardingService(db)
	handler := NewOnboardingHandler(svc)

	router.Get("/onboarding", handler.GetStatus)
	router.Post("/onboarding/steps", handler.CompleteStep)
}

func (p *OnboardingPlugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewOnboardingService(db)
	handler := NewOnboardingHandler(svc)

	router.Post("/onboarding/passcodes", handler.CreatePasscode)
	router.Get("/onboarding/passcodes", handler.ListPasscodes)
	router.Delete("/onboarding/passcodes/:id", handler.DeletePasscode)
}

// RegisterPublicRoutes exposes the demo passcode lookup for prospects who
// have no account yet.
func (p *OnboardingPlugin) RegisterPublicRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewOnboardingService(db)
	handler := NewOnboardingHandler(svc)

	router.Get("/demo/passcodes/:code", handler.LookupPasscode)
}
