package crm

import (
	"github.com/echodeskai/echodesk-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CRMPlugin struct{}

func New() *CRMPlugin {
	return &CRMPlugin{}
}

func (p *CRMPlugin) ID() string { return "crm" }

func (p *CRMPlugin) Models() []interface{} {
	return []interface{}{
		&Contact{},
		&ContactNote{},
	}
}

func (p *CRMPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewContactService(db)
	handler := NewContactHandler(svc)

	router.Post("/crm/contacts", handler.CreateContact)
	router.Get("/crm/contacts", handler.ListContacts)
	router.Get("/crm/pipeline", handler.PipelineSummary)
	router.Get("/crm/contacts/:id", handler.GetContact)
	router.Patch("/crm/contacts/:id", handler.UpdateContact)
	router.Post("/crm/contacts/:id/stage", handler.MoveStage)
	router.Delete("/crm/contacts/:id", handler.DeleteContact)
	router.Post("/crm/contacts/:id/notes", handler.AddNote)
	router.Get("/crm/contacts/:id/notes", handler.ListNotes)
}
