package training

import (
	"github.com/echodeskai/echodesk-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TrainingPlugin struct{}

func New() *TrainingPlugin {
	return &TrainingPlugin{}
}

func (p *TrainingPlugin) ID() string { return "training" }

func (p *TrainingPlugin) Models() []interface{} {
	return []interface{}{
		&TrainingItem{},
		&TrainingProgress{},
	}
}

func (p *TrainingPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewTrainingService(db)
	handler := NewTrainingHandler(svc)

	router.Get("/training", handler.ListItems)
	router.Post("/training/:id/complete", handler.MarkComplete)
}

func (p *TrainingPlugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewTrainingService(db)
	handler := NewTrainingHandler(svc)

	router.Get("/training/items", handler.ListAllItems)
	router.Post("/training/items", handler.CreateItem)
	router.Patch("/training/items/:id", handler.UpdateItem)
	router.Delete("/training/items/:id", handler.DeleteItem)
}
